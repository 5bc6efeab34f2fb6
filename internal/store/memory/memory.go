// Package memory is an in-process store.Repository for development and tests.
package memory

import (
	"context"
	"encoding/json"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/store"
)

// document is a stored lot as loose top-level fields so upserts can merge.
type document map[string]json.RawMessage

type Store struct {
	mu             sync.RWMutex
	lotsByUser     map[string]map[string]document
	accountsByID   map[string]domain.Account
	accountByEmail map[string]string
}

func New() *Store {
	return &Store{
		lotsByUser:     make(map[string]map[string]document),
		accountsByID:   make(map[string]domain.Account),
		accountByEmail: make(map[string]string),
	}
}

const demoEmail = "demo@example.com"

// NewSeeded is New with one demo account. The password comes from
// SEED_DEMO_PASSWORD; without it a dev default is used and a warning logged.
func NewSeeded(logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	s := New()
	password := os.Getenv("SEED_DEMO_PASSWORD")
	if password == "" {
		password = "demo12345"
		logger.Warn().Str("email", demoEmail).Msg("memory store: using default demo credentials, set SEED_DEMO_PASSWORD to override")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Error().Err(err).Msg("memory store: hash demo password")
		return s
	}
	_, _ = s.CreateAccount(context.Background(), domain.Account{
		Email:        demoEmail,
		DisplayName:  "Demo",
		PasswordHash: string(hash),
	})
	return s
}

func (s *Store) FetchLots(_ context.Context, userID string) ([]domain.Lot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := s.lotsByUser[userID]
	lots := make([]domain.Lot, 0, len(docs))
	for _, doc := range docs {
		raw, err := json.Marshal(doc)
		if err != nil {
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
	sortLots(lots)
	return lots, nil
}

func (s *Store) UpsertLot(_ context.Context, userID string, lot domain.Lot) error {
	if strings.TrimSpace(userID) == "" || strings.TrimSpace(lot.ID) == "" {
		return store.ErrInvalidInput
	}
	incoming, err := toDocument(lot)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeLocked(userID, lot.ID, incoming)
	return nil
}

func (s *Store) DeleteLot(_ context.Context, userID string, lotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs := s.lotsByUser[userID]
	if _, ok := docs[lotID]; !ok {
		return store.ErrNotFound
	}
	delete(docs, lotID)
	return nil
}

// BatchUpsert applies every lot or none.
func (s *Store) BatchUpsert(_ context.Context, userID string, lots []domain.Lot) error {
	if strings.TrimSpace(userID) == "" {
		return store.ErrInvalidInput
	}
	docs := make([]document, len(lots))
	for i, lot := range lots {
		if strings.TrimSpace(lot.ID) == "" {
			return store.ErrInvalidInput
		}
		doc, err := toDocument(lot)
		if err != nil {
			return err
		}
		docs[i] = doc
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, lot := range lots {
		s.mergeLocked(userID, lot.ID, docs[i])
	}
	return nil
}

func (s *Store) mergeLocked(userID, lotID string, incoming document) {
	docs, ok := s.lotsByUser[userID]
	if !ok {
		docs = make(map[string]document)
		s.lotsByUser[userID] = docs
	}
	existing, ok := docs[lotID]
	if !ok {
		docs[lotID] = incoming
		return
	}
	for k, v := range incoming {
		existing[k] = v
	}
}

func (s *Store) CreateAccount(_ context.Context, account domain.Account) (*domain.Account, error) {
	email := normalizeEmail(account.Email)
	if email == "" || strings.TrimSpace(account.PasswordHash) == "" {
		return nil, store.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accountByEmail[email]; exists {
		return nil, store.ErrConflict
	}
	account.Email = email
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	s.accountsByID[account.ID] = account
	s.accountByEmail[email] = account.ID

	created := account
	return &created, nil
}

func (s *Store) FindAccountByEmail(_ context.Context, email string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.accountByEmail[normalizeEmail(email)]
	if !ok {
		return nil, store.ErrNotFound
	}
	account := s.accountsByID[id]
	return &account, nil
}

func (s *Store) FindAccount(_ context.Context, id string) (*domain.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.accountsByID[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &account, nil
}

func toDocument(lot domain.Lot) (document, error) {
	raw, err := json.Marshal(lot)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// sortLots orders a snapshot newest first, the order the ledger keeps.
func sortLots(lots []domain.Lot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i].DateAdded.OrEpoch(), lots[j].DateAdded.OrEpoch()
		if !a.Equal(b) {
			return a.After(b)
		}
		return lots[i].ID < lots[j].ID
	})
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
