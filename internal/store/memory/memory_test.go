package memory

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/store"
)

func lotAt(id string, added time.Time) domain.Lot {
	return domain.Lot{
		ID: id, Name: id, UnitCost: 100, TotalCost: 200, Quantity: 2, Remaining: 2,
		DateAdded: domain.At(added), PurchaseDate: domain.At(added), Sales: []domain.Sale{},
	}
}

func TestUpsertFetchAndDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertLot(ctx, "u1", lotAt("old", base)))
	require.NoError(t, s.UpsertLot(ctx, "u1", lotAt("new", base.Add(time.Hour))))
	require.NoError(t, s.UpsertLot(ctx, "u2", lotAt("other", base)))

	lots, err := s.FetchLots(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lots, 2)
	assert.Equal(t, "new", lots[0].ID)
	assert.Equal(t, "old", lots[1].ID)

	require.NoError(t, s.DeleteLot(ctx, "u1", "old"))
	assert.ErrorIs(t, s.DeleteLot(ctx, "u1", "old"), store.ErrNotFound)

	lots, err = s.FetchLots(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lots, 1)

	empty, err := s.FetchLots(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestUpsertMergesTopLevelFields(t *testing.T) {
	ctx := context.Background()
	s := New()
	lot := lotAt("a", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, s.UpsertLot(ctx, "u1", lot))

	lot.Remaining = 1
	lot.Sales = []domain.Sale{{ID: "s1", UnitsSold: 1}}
	require.NoError(t, s.UpsertLot(ctx, "u1", lot))

	lots, err := s.FetchLots(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, lots, 1)
	assert.Equal(t, 1, lots[0].Remaining)
	assert.Len(t, lots[0].Sales, 1)
}

func TestBatchUpsertIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := New()
	good := lotAt("a", time.Now())

	err := s.BatchUpsert(ctx, "u1", []domain.Lot{good, {Name: "no id"}})
	assert.ErrorIs(t, err, store.ErrInvalidInput)
	lots, err := s.FetchLots(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lots)

	require.NoError(t, s.BatchUpsert(ctx, "u1", []domain.Lot{good}))
	lots, err = s.FetchLots(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, lots, 1)
}

func TestAccounts(t *testing.T) {
	ctx := context.Background()
	s := New()

	created, err := s.CreateAccount(ctx, domain.Account{Email: " Ann@Example.com ", PasswordHash: "hash"})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "ann@example.com", created.Email)

	_, err = s.CreateAccount(ctx, domain.Account{Email: "ann@example.com", PasswordHash: "x"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = s.CreateAccount(ctx, domain.Account{Email: "bob@example.com"})
	assert.ErrorIs(t, err, store.ErrInvalidInput)

	found, err := s.FindAccountByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	byID, err := s.FindAccount(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Email, byID.Email)

	_, err = s.FindAccount(ctx, "missing")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestNewSeededHasDemoAccount(t *testing.T) {
	t.Setenv("SEED_DEMO_PASSWORD", "seed-secret")
	var logs bytes.Buffer
	s := NewSeeded(logging.NewLoggerWithOutput("info", &logs))
	acct, err := s.FindAccountByEmail(context.Background(), "demo@example.com")
	require.NoError(t, err)
	assert.NotEqual(t, "seed-secret", acct.PasswordHash)
	assert.Empty(t, logs.String())
}

func TestNewSeededWarnsThroughInjectedLogger(t *testing.T) {
	t.Setenv("SEED_DEMO_PASSWORD", "")
	var logs bytes.Buffer
	s := NewSeeded(logging.NewLoggerWithOutput("info", &logs))
	_, err := s.FindAccountByEmail(context.Background(), "demo@example.com")
	require.NoError(t, err)
	assert.Contains(t, logs.String(), "default demo credentials")
	assert.Contains(t, logs.String(), `"level":"warn"`)
}
