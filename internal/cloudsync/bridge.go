// Package cloudsync mirrors the local ledger to the cloud store and pulls
// remote snapshots back. The model is last full snapshot wins: remote
// changes replace the whole local ledger, and local writes are pushed best
// effort with no retry.
package cloudsync

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cli2468/Vision-sub000/internal/auth"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/ledger"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/store"
)

var ErrSignedOut = errors.New("no user signed in")

const defaultPushTimeout = 10 * time.Second

// push is one queued cloud write. Pushes run in the order the ledger
// committed them so an older copy of a lot never lands after a newer one.
type push struct {
	userID   string
	lot      *domain.Lot
	deleteID string
}

type Bridge struct {
	ledger      *ledger.Ledger
	lots        store.LotStore
	changes     store.Subscriber
	provider    auth.Provider
	logger      *logging.Logger
	pushTimeout time.Duration

	user atomic.Pointer[domain.User]

	mu          sync.Mutex
	stopListen  context.CancelFunc
	unsubscribe func()
	stopWorker  context.CancelFunc

	queueMu sync.Mutex
	queue   []push
	pending int
	stale   bool
	wake    chan struct{}
}

type Option func(*Bridge)

func WithLogger(logger *logging.Logger) Option {
	return func(b *Bridge) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithPushTimeout bounds each cloud write and snapshot fetch.
func WithPushTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.pushTimeout = d
		}
	}
}

func New(l *ledger.Ledger, lots store.LotStore, changes store.Subscriber, provider auth.Provider, opts ...Option) *Bridge {
	b := &Bridge{
		ledger:      l,
		lots:        lots,
		changes:     changes,
		provider:    provider,
		logger:      logging.NewSilentLogger(),
		pushTimeout: defaultPushTimeout,
		wake:        make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Start hooks the bridge into the ledger and the auth provider. The push
// worker and any live listener stop when ctx ends or Stop is called.
func (b *Bridge) Start(ctx context.Context) {
	workerCtx, cancel := context.WithCancel(ctx)
	b.mu.Lock()
	b.stopWorker = cancel
	b.mu.Unlock()

	go b.work(workerCtx)
	b.ledger.SetMirror(b)

	unsubscribe := b.provider.OnUserChanged(func(u *domain.User) {
		b.handleUser(workerCtx, u)
	})
	b.mu.Lock()
	b.unsubscribe = unsubscribe
	b.mu.Unlock()
}

func (b *Bridge) Stop() {
	b.ledger.SetMirror(nil)

	b.mu.Lock()
	unsubscribe, stopWorker := b.unsubscribe, b.stopWorker
	b.unsubscribe, b.stopWorker = nil, nil
	b.stopListenerLocked()
	b.user.Store(nil)
	b.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	if stopWorker != nil {
		stopWorker()
	}
}

// SignedIn reports the user pushes are currently written for.
func (b *Bridge) SignedIn() *domain.User {
	u := b.user.Load()
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// handleUser runs on every auth transition. The first signed-in callback of
// a session replaces the local ledger with the remote snapshot, even an
// empty one, then keeps a listener applying later snapshots.
func (b *Bridge) handleUser(ctx context.Context, u *domain.User) {
	b.mu.Lock()
	defer b.mu.Unlock()

	current := b.user.Load()
	if u == nil {
		if current != nil {
			b.logger.Info().Str("user", current.ID).Msg("signed out, cloud listener stopped")
		}
		b.stopListenerLocked()
		b.user.Store(nil)
		return
	}
	if current != nil && current.ID == u.ID && b.stopListen != nil {
		return
	}

	b.stopListenerLocked()
	user := *u
	b.user.Store(&user)

	listenCtx, cancel := context.WithCancel(ctx)
	b.stopListen = cancel

	// Subscribe before the first fetch so no change falls between them.
	snapshots, err := store.Watch(listenCtx, b.lots, b.changes, user.ID, b.logger)
	if err != nil {
		b.logger.Error().Str("user", user.ID).Err(err).Msg("cloud listener failed to start")
	}

	fetchCtx, fetchCancel := context.WithTimeout(listenCtx, b.pushTimeout)
	remote, err := b.lots.FetchLots(fetchCtx, user.ID)
	fetchCancel()
	if err != nil {
		b.logger.Error().Str("user", user.ID).Err(err).Msg("initial cloud snapshot failed, keeping local data")
	} else {
		b.ledger.SetLots(remote)
		b.logger.Info().Str("user", user.ID).Int("lots", len(remote)).Msg("local ledger replaced from cloud")
	}

	if snapshots != nil {
		go b.listen(listenCtx, user.ID, snapshots)
	}
}

func (b *Bridge) listen(ctx context.Context, userID string, snapshots <-chan []domain.Lot) {
	for snapshot := range snapshots {
		if ctx.Err() != nil {
			return
		}
		b.apply(userID, snapshot)
	}
}

// apply replaces the ledger with a remote snapshot unless this device still
// has writes on the way, in which case the snapshot predates them. The
// worker refetches once the queue drains.
func (b *Bridge) apply(userID string, snapshot []domain.Lot) {
	applied := b.ledger.ReplaceIf(snapshot, func() bool {
		u := b.user.Load()
		if u == nil || u.ID != userID {
			return false
		}
		b.queueMu.Lock()
		defer b.queueMu.Unlock()
		if b.pending > 0 {
			b.stale = true
			return false
		}
		return true
	})
	if applied {
		b.logger.Debug().Str("user", userID).Int("lots", len(snapshot)).Msg("remote snapshot applied")
	}
}

func (b *Bridge) stopListenerLocked() {
	if b.stopListen != nil {
		b.stopListen()
		b.stopListen = nil
	}
}

// MirrorLot queues an upsert of lot for the signed-in user.
func (b *Bridge) MirrorLot(lot domain.Lot) {
	if u := b.user.Load(); u != nil {
		b.enqueue(push{userID: u.ID, lot: &lot})
	}
}

// MirrorDelete queues a delete for the signed-in user.
func (b *Bridge) MirrorDelete(lotID string) {
	if u := b.user.Load(); u != nil {
		b.enqueue(push{userID: u.ID, deleteID: lotID})
	}
}

// UploadLocalData writes every local lot to the cloud in one batch, for
// moving a local-only ledger into a new account.
func (b *Bridge) UploadLocalData(ctx context.Context) (int, error) {
	u := b.SignedIn()
	if u == nil {
		return 0, ErrSignedOut
	}
	lots := b.ledger.Lots()
	if err := b.lots.BatchUpsert(ctx, u.ID, lots); err != nil {
		b.logger.Error().Str("user", u.ID).Int("lots", len(lots)).Err(err).Msg("bulk upload failed")
		return 0, err
	}
	b.logger.Info().Str("user", u.ID).Int("lots", len(lots)).Msg("local data uploaded")
	return len(lots), nil
}

// Drain waits until every queued push has been attempted.
func (b *Bridge) Drain(ctx context.Context) error {
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()
	for {
		b.queueMu.Lock()
		idle := b.pending == 0
		b.queueMu.Unlock()
		if idle {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (b *Bridge) enqueue(p push) {
	b.queueMu.Lock()
	b.queue = append(b.queue, p)
	b.pending++
	b.queueMu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *Bridge) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.wake:
		}
		for {
			b.queueMu.Lock()
			if len(b.queue) == 0 {
				refetch := b.stale
				b.stale = false
				b.queueMu.Unlock()
				if refetch {
					b.refresh(ctx)
				}
				break
			}
			p := b.queue[0]
			b.queue = b.queue[1:]
			b.queueMu.Unlock()

			b.send(ctx, p)

			b.queueMu.Lock()
			b.pending--
			b.queueMu.Unlock()
		}
	}
}

// refresh pulls the snapshot that was skipped while pushes were pending.
func (b *Bridge) refresh(ctx context.Context) {
	u := b.user.Load()
	if u == nil {
		return
	}
	fetchCtx, cancel := context.WithTimeout(ctx, b.pushTimeout)
	defer cancel()
	snapshot, err := b.lots.FetchLots(fetchCtx, u.ID)
	if err != nil {
		b.logger.Warn().Str("user", u.ID).Err(err).Msg("snapshot refresh failed")
		return
	}
	b.apply(u.ID, snapshot)
}

// send performs one push. Failures are logged and dropped; the local ledger
// stays authoritative until the next remote snapshot.
func (b *Bridge) send(ctx context.Context, p push) {
	pushCtx, cancel := context.WithTimeout(ctx, b.pushTimeout)
	defer cancel()

	if p.lot != nil {
		if err := b.lots.UpsertLot(pushCtx, p.userID, *p.lot); err != nil {
			b.logger.Warn().Str("user", p.userID).Str("lot", p.lot.ID).Err(err).Msg("cloud save failed")
		}
		return
	}
	if err := b.lots.DeleteLot(pushCtx, p.userID, p.deleteID); err != nil && !errors.Is(err, store.ErrNotFound) {
		b.logger.Warn().Str("user", p.userID).Str("lot", p.deleteID).Err(err).Msg("cloud delete failed")
	}
}
