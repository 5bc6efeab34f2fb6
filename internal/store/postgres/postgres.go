package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/store"
)

type Store struct {
	db *sql.DB
}

// New connects and applies pending schema migrations.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(4)
	db.SetMaxOpenConns(16)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) FetchLots(ctx context.Context, userID string) ([]domain.Lot, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc
		FROM lot_documents
		WHERE user_id = $1
		ORDER BY (doc->>'dateAdded')::timestamptz DESC NULLS LAST, lot_id
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lots := make([]domain.Lot, 0, 64)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var lot domain.Lot
		if err := json.Unmarshal(raw, &lot); err != nil {
			return nil, err
		}
		if lot.Sales == nil {
			lot.Sales = []domain.Sale{}
		}
		lots = append(lots, lot)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return lots, nil
}

// UpsertLot merges with jsonb ||, so fields absent from lot survive.
func (s *Store) UpsertLot(ctx context.Context, userID string, lot domain.Lot) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(lot.ID) == "" {
		return store.ErrInvalidInput
	}
	payload, err := json.Marshal(lot)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, upsertLotSQL, userID, lot.ID, payload)
	return err
}

const upsertLotSQL = `
	INSERT INTO lot_documents (user_id, lot_id, doc, updated_at)
	VALUES ($1, $2, $3::jsonb, now())
	ON CONFLICT (user_id, lot_id)
	DO UPDATE SET doc = lot_documents.doc || EXCLUDED.doc, updated_at = now()
`

func (s *Store) DeleteLot(ctx context.Context, userID string, lotID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM lot_documents
		WHERE user_id = $1 AND lot_id = $2
	`, userID, lotID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// BatchUpsert writes every lot in one transaction.
func (s *Store) BatchUpsert(ctx context.Context, userID string, lots []domain.Lot) error {
	if strings.TrimSpace(userID) == "" {
		return store.ErrInvalidInput
	}
	payloads := make([][]byte, len(lots))
	for i, lot := range lots {
		if strings.TrimSpace(lot.ID) == "" {
			return store.ErrInvalidInput
		}
		payload, err := json.Marshal(lot)
		if err != nil {
			return err
		}
		payloads[i] = payload
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertLotSQL)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, lot := range lots {
		if _, err := stmt.ExecContext(ctx, userID, lot.ID, payloads[i]); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error) {
	account.Email = strings.ToLower(strings.TrimSpace(account.Email))
	if account.Email == "" || strings.TrimSpace(account.PasswordHash) == "" {
		return nil, store.ErrInvalidInput
	}
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO accounts (id, email, display_name, password_hash, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, account.ID, account.Email, account.DisplayName, account.PasswordHash, account.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrConflict
		}
		return nil, err
	}

	created := account
	return &created, nil
}

func (s *Store) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return s.findAccount(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

func (s *Store) FindAccount(ctx context.Context, id string) (*domain.Account, error) {
	return s.findAccount(ctx, "id", id)
}

func (s *Store) findAccount(ctx context.Context, column string, value string) (*domain.Account, error) {
	var account domain.Account
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, display_name, password_hash, created_at
		FROM accounts
		WHERE `+column+` = $1
	`, value).Scan(&account.ID, &account.Email, &account.DisplayName, &account.PasswordHash, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	return &account, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
