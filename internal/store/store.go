// Package store is the cloud side of the ledger: a per-user collection of
// lot documents keyed by lot id, plus the account table used to sign in.
package store

import (
	"context"
	"errors"

	"github.com/cli2468/Vision-sub000/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("already exists")
)

// LotStore holds the mirrored lots of each user. UpsertLot merges top-level
// fields into an existing document; it never deletes fields it was not given.
type LotStore interface {
	FetchLots(ctx context.Context, userID string) ([]domain.Lot, error)
	UpsertLot(ctx context.Context, userID string, lot domain.Lot) error
	DeleteLot(ctx context.Context, userID string, lotID string) error
	BatchUpsert(ctx context.Context, userID string, lots []domain.Lot) error
}

type AccountStore interface {
	CreateAccount(ctx context.Context, account domain.Account) (*domain.Account, error)
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindAccount(ctx context.Context, id string) (*domain.Account, error)
}

type Repository interface {
	LotStore
	AccountStore
}

// Publisher announces that a user's lot collection changed.
type Publisher interface {
	Publish(ctx context.Context, userID string) error
}

// Subscriber delivers change announcements for one user until ctx ends.
type Subscriber interface {
	Subscribe(ctx context.Context, userID string) (<-chan struct{}, error)
}
