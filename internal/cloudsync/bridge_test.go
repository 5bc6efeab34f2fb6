package cloudsync

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cli2468/Vision-sub000/internal/auth"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/ledger"
	"github.com/cli2468/Vision-sub000/internal/notify"
	"github.com/cli2468/Vision-sub000/internal/store"
	"github.com/cli2468/Vision-sub000/internal/store/memory"
)

type harness struct {
	ledger  *ledger.Ledger
	cloud   *memory.Store
	remote  *store.Notifying
	session *auth.Session
	bridge  *Bridge
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	hub := notify.NewHub()
	cloud := memory.New()
	remote := store.NewNotifying(cloud, hub, nil)
	l := ledger.Open(ledger.NewMemoryBlob(nil))
	session := auth.NewSession()

	b := New(l, remote, hub, session, WithPushTimeout(time.Second))
	b.Start(ctx)
	t.Cleanup(b.Stop)

	return &harness{ledger: l, cloud: cloud, remote: remote, session: session, bridge: b}
}

func ids(lots []domain.Lot) []string {
	out := make([]string, len(lots))
	for i, lot := range lots {
		out[i] = lot.ID
	}
	return out
}

func TestFirstSignInReplacesLocalLedger(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ledger.SaveLot(domain.LotInput{Name: "local only", Cost: 10, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, h.cloud.UpsertLot(ctx, "u1", domain.Lot{ID: "remote", Name: "Remote", Quantity: 1, Remaining: 1}))

	h.session.SignIn(domain.User{ID: "u1"})

	assert.Equal(t, []string{"remote"}, ids(h.ledger.Lots()))
}

func TestSignedOutWritesAreNotPushed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.ledger.SaveLot(domain.LotInput{Name: "offline", Cost: 10, Quantity: 1})
	require.NoError(t, err)
	require.NoError(t, h.bridge.Drain(ctx))

	lots, err := h.cloud.FetchLots(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, lots)
}

func TestLocalWritesArePushedInOrder(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h.session.SignIn(domain.User{ID: "u1"})

	lot, err := h.ledger.SaveLot(domain.LotInput{Name: "Cards", Cost: 30, Quantity: 3})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		_, err = h.ledger.RecordSale(lot.ID, domain.SaleInput{PricePerUnit: 20, UnitsSold: 1, Platform: "ebay"})
		require.NoError(t, err)
	}
	require.NoError(t, h.bridge.Drain(ctx))

	require.Eventually(t, func() bool {
		remote, err := h.cloud.FetchLots(ctx, "u1")
		return err == nil && len(remote) == 1 && len(remote[0].Sales) == 3 && remote[0].Remaining == 0
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.ledger.DeleteLot(lot.ID))
	require.NoError(t, h.bridge.Drain(ctx))
	remote, err := h.cloud.FetchLots(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, remote)
}

func TestRemoteChangesReplaceLocalWhileSignedIn(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.session.SignIn(domain.User{ID: "u1"})

	require.NoError(t, h.remote.UpsertLot(ctx, "u1", domain.Lot{ID: "other-device", Name: "x", Quantity: 1, Remaining: 1}))
	require.Eventually(t, func() bool {
		return len(h.ledger.Lots()) == 1 && h.ledger.Lots()[0].ID == "other-device"
	}, 2*time.Second, 10*time.Millisecond)

	h.session.SignOut()
	require.NoError(t, h.remote.UpsertLot(ctx, "u1", domain.Lot{ID: "after-signout", Name: "y", Quantity: 1, Remaining: 1}))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"other-device"}, ids(h.ledger.Lots()))
}

func TestUploadLocalData(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.bridge.UploadLocalData(ctx)
	assert.ErrorIs(t, err, ErrSignedOut)

	h.session.SignIn(domain.User{ID: "u1"})
	_, err = h.ledger.SaveLot(domain.LotInput{Name: "a", Cost: 1, Quantity: 1})
	require.NoError(t, err)
	_, err = h.ledger.SaveLot(domain.LotInput{Name: "b", Cost: 1, Quantity: 1})
	require.NoError(t, err)

	n, err := h.bridge.UploadLocalData(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	remote, err := h.cloud.FetchLots(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, remote, 2)
}
