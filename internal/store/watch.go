package store

import (
	"context"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/logging"
)

// Notifying wraps a Repository so every successful lot write is announced
// on pub. Announcement failures are logged; the write already happened.
type Notifying struct {
	Repository
	pub    Publisher
	logger *logging.Logger
}

func NewNotifying(repo Repository, pub Publisher, logger *logging.Logger) *Notifying {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	return &Notifying{Repository: repo, pub: pub, logger: logger}
}

func (n *Notifying) UpsertLot(ctx context.Context, userID string, lot domain.Lot) error {
	if err := n.Repository.UpsertLot(ctx, userID, lot); err != nil {
		return err
	}
	n.announce(ctx, userID)
	return nil
}

func (n *Notifying) DeleteLot(ctx context.Context, userID string, lotID string) error {
	if err := n.Repository.DeleteLot(ctx, userID, lotID); err != nil {
		return err
	}
	n.announce(ctx, userID)
	return nil
}

func (n *Notifying) BatchUpsert(ctx context.Context, userID string, lots []domain.Lot) error {
	if err := n.Repository.BatchUpsert(ctx, userID, lots); err != nil {
		return err
	}
	n.announce(ctx, userID)
	return nil
}

func (n *Notifying) announce(ctx context.Context, userID string) {
	if err := n.pub.Publish(ctx, userID); err != nil {
		n.logger.Warn().Str("user", userID).Err(err).Msg("change announcement failed")
	}
}

// Watch turns change announcements into full snapshots of the user's lots.
// Each announcement triggers one fetch; a failed fetch is logged and skipped.
// The returned channel closes when ctx ends or the subscription does.
func Watch(ctx context.Context, lots LotStore, sub Subscriber, userID string, logger *logging.Logger) (<-chan []domain.Lot, error) {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	changes, err := sub.Subscribe(ctx, userID)
	if err != nil {
		return nil, err
	}

	out := make(chan []domain.Lot, 1)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					return
				}
				snapshot, err := lots.FetchLots(ctx, userID)
				if err != nil {
					if ctx.Err() == nil {
						logger.Warn().Str("user", userID).Err(err).Msg("snapshot fetch failed")
					}
					continue
				}
				select {
				case out <- snapshot:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
