// Package ledger is the on-device record of lots and their sales. It is the
// only writer of the persisted blob and enforces inventory conservation:
// for every lot, remaining == quantity - units in sales not returned.
//
// Rejected operations return a sentinel error and leave state untouched.
// Storage failures never surface to callers: a bad blob loads as an empty
// ledger and a failed write is logged while the in-memory state stays current.
package ledger

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/money"
	"github.com/cli2468/Vision-sub000/internal/xid"
)

var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInsufficientRemaining = errors.New("units sold exceed remaining inventory")
	ErrQuantityBelowSold     = errors.New("quantity below units already sold")
	ErrInventoryCorrupt      = errors.New("restoring units would exceed lot quantity")

	errUnchanged = errors.New("unchanged")
)

// Mirror receives every persisted lot change, in commit order. It is called
// with the ledger lock held, so implementations must return quickly and
// must not call back into the Ledger.
type Mirror interface {
	MirrorLot(lot domain.Lot)
	MirrorDelete(lotID string)
}

type Ledger struct {
	mu     sync.Mutex
	blob   Blob
	calc   *money.Calculator
	loc    *time.Location
	now    func() time.Time
	logger *logging.Logger
	mirror Mirror
	lots   []domain.Lot
}

type Option func(*Ledger)

func WithCalculator(calc *money.Calculator) Option {
	return func(l *Ledger) {
		if calc != nil {
			l.calc = calc
		}
	}
}

// WithLocation sets the zone used to read date-only strings and month filters.
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) {
		if loc != nil {
			l.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(l *Ledger) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Open loads the ledger from blob, migrating older records in place.
func Open(blob Blob, opts ...Option) *Ledger {
	l := &Ledger{
		blob:   blob,
		calc:   money.Default(),
		loc:    time.Local,
		now:    time.Now,
		logger: logging.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.load()
	return l
}

func (l *Ledger) load() {
	data, err := l.blob.Load()
	if errors.Is(err, ErrBlobNotFound) {
		l.lots = []domain.Lot{}
		return
	}
	if err != nil {
		l.logger.Error().Err(err).Msg("ledger read failed, starting empty")
		l.lots = []domain.Lot{}
		return
	}

	lots, migrated, err := decodeRecord(data, l.calc, l.loc)
	if err != nil {
		l.logger.Error().Err(err).Msg("ledger record unreadable, starting empty")
		l.lots = []domain.Lot{}
		return
	}
	if lots == nil {
		lots = []domain.Lot{}
	}
	l.lots = lots
	if migrated {
		l.logger.Info().Int("lots", len(lots)).Int("version", CurrentVersion).Msg("ledger record migrated")
		l.persistLocked()
	}
}

// SetMirror installs the cloud hook. Pass nil to detach.
func (l *Ledger) SetMirror(m Mirror) {
	l.mu.Lock()
	l.mirror = m
	l.mu.Unlock()
}

func (l *Ledger) Location() *time.Location { return l.loc }

func (l *Ledger) Calculator() *money.Calculator { return l.calc }

// Lots returns every lot, most recently added first.
func (l *Ledger) Lots() []domain.Lot {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]domain.Lot, len(l.lots))
	for i := range l.lots {
		out[i] = l.lots[i].Clone()
	}
	return out
}

func (l *Ledger) Lot(id string) (domain.Lot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexLocked(id)
	if idx < 0 {
		return domain.Lot{}, ErrNotFound
	}
	return l.lots[idx].Clone(), nil
}

// SaveLot creates a lot from the add form and puts it first.
func (l *Ledger) SaveLot(in domain.LotInput) (domain.Lot, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || in.Quantity < 1 {
		return domain.Lot{}, ErrInvalidInput
	}
	total := money.ToCents(in.Cost)
	if total < 0 {
		return domain.Lot{}, ErrInvalidInput
	}

	now := l.now()
	purchase := now
	if in.PurchaseDate != nil && !in.PurchaseDate.IsZero() {
		purchase = *in.PurchaseDate
	}
	lot := domain.Lot{
		ID:           xid.New(),
		Name:         name,
		UnitCost:     money.DivRound(total, int64(in.Quantity)),
		TotalCost:    total,
		Quantity:     in.Quantity,
		Remaining:    in.Quantity,
		DateAdded:    domain.At(now),
		PurchaseDate: domain.At(purchase),
		Sales:        []domain.Sale{},
	}
	if in.ImageData != nil {
		img := *in.ImageData
		lot.ImageData = &img
	}

	l.mu.Lock()
	l.lots = append([]domain.Lot{lot}, l.lots...)
	l.persistLocked()
	if l.mirror != nil {
		l.mirror.MirrorLot(lot.Clone())
	}
	l.mu.Unlock()

	l.logger.Info().Str("lot", lot.ID).Int("quantity", lot.Quantity).Int64("total_cost", lot.TotalCost).Msg("lot saved")
	return lot.Clone(), nil
}

// UpdateLot merges the patch into lot id. Quantity edits move remaining by
// the same delta and are refused below the units already sold. A cost edit
// re-derives the other cost field so unitCost and totalCost stay in step.
func (l *Ledger) UpdateLot(id string, patch domain.LotPatch) (domain.Lot, error) {
	return l.mutate(id, "update lot", func(lot *domain.Lot) error {
		if patch.Name != nil {
			name := strings.TrimSpace(*patch.Name)
			if name == "" {
				return ErrInvalidInput
			}
			lot.Name = name
		}

		qty := lot.Quantity
		if patch.Quantity != nil {
			qty = *patch.Quantity
			if qty < 1 {
				return ErrInvalidInput
			}
			if qty < lot.SoldUnits() {
				return ErrQuantityBelowSold
			}
		}
		remaining := lot.Remaining + (qty - lot.Quantity)
		if remaining < 0 {
			return ErrQuantityBelowSold
		}

		unitCost, totalCost := lot.UnitCost, lot.TotalCost
		switch {
		case patch.UnitCost != nil:
			if *patch.UnitCost < 0 {
				return ErrInvalidInput
			}
			unitCost = *patch.UnitCost
			totalCost = unitCost * int64(qty)
		case patch.TotalCost != nil:
			if *patch.TotalCost < 0 {
				return ErrInvalidInput
			}
			totalCost = *patch.TotalCost
			unitCost = money.DivRound(totalCost, int64(qty))
		case qty != lot.Quantity:
			totalCost = unitCost * int64(qty)
		}

		lot.Quantity = qty
		lot.Remaining = remaining
		lot.UnitCost = unitCost
		lot.TotalCost = totalCost

		if patch.PurchaseDate != nil && !patch.PurchaseDate.IsZero() {
			lot.PurchaseDate = domain.At(*patch.PurchaseDate)
		}
		if patch.ClearImage {
			lot.ImageData = nil
		} else if patch.ImageData != nil {
			img := *patch.ImageData
			lot.ImageData = &img
		}
		if patch.ReturnDismissed != nil {
			lot.ReturnDismissed = *patch.ReturnDismissed
		}
		return nil
	})
}

// DeleteLot removes the lot and every sale it owns.
func (l *Ledger) DeleteLot(id string) error {
	l.mu.Lock()
	idx := l.indexLocked(id)
	if idx < 0 {
		l.mu.Unlock()
		return ErrNotFound
	}
	l.lots = append(l.lots[:idx:idx], l.lots[idx+1:]...)
	l.persistLocked()
	if l.mirror != nil {
		l.mirror.MirrorDelete(id)
	}
	l.mu.Unlock()

	l.logger.Info().Str("lot", id).Msg("lot deleted")
	return nil
}

// SetLots replaces the whole ledger with a cloud snapshot. It is never
// mirrored back.
func (l *Ledger) SetLots(lots []domain.Lot) {
	l.ReplaceIf(lots, nil)
}

// ReplaceIf is SetLots guarded by ok, which runs under the ledger lock so
// no local mutation can land between the check and the replace. A nil ok
// always replaces. It reports whether the replace happened.
func (l *Ledger) ReplaceIf(lots []domain.Lot, ok func() bool) bool {
	next := make([]domain.Lot, 0, len(lots))
	for _, lot := range lots {
		c := lot.Clone()
		if c.Sales == nil {
			c.Sales = []domain.Sale{}
		}
		next = append(next, c)
	}

	l.mu.Lock()
	if ok != nil && !ok() {
		l.mu.Unlock()
		return false
	}
	l.lots = next
	l.persistLocked()
	l.mu.Unlock()

	l.logger.Info().Int("lots", len(next)).Msg("ledger replaced from snapshot")
	return true
}

// mutate runs fn on a copy of lot id and commits the copy only if fn
// succeeds, so a refused operation leaves the ledger as it was.
func (l *Ledger) mutate(id, op string, fn func(lot *domain.Lot) error) (domain.Lot, error) {
	l.mu.Lock()
	idx := l.indexLocked(id)
	if idx < 0 {
		l.mu.Unlock()
		return domain.Lot{}, ErrNotFound
	}

	working := l.lots[idx].Clone()
	if err := fn(&working); err != nil {
		current := l.lots[idx].Clone()
		l.mu.Unlock()
		if errors.Is(err, errUnchanged) {
			return current, nil
		}
		l.logger.Warn().Str("lot", id).Str("op", op).Err(err).Msg("ledger operation refused")
		return domain.Lot{}, err
	}

	l.lots[idx] = working
	l.persistLocked()
	if l.mirror != nil {
		l.mirror.MirrorLot(working.Clone())
	}
	l.mu.Unlock()

	return working.Clone(), nil
}

func (l *Ledger) indexLocked(id string) int {
	for i := range l.lots {
		if l.lots[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *Ledger) persistLocked() {
	data, err := encodeRecord(l.lots)
	if err != nil {
		l.logger.Error().Err(err).Msg("ledger encode failed, write skipped")
		return
	}
	if err := l.blob.Save(data); err != nil {
		l.logger.Error().Err(err).Int("lots", len(l.lots)).Msg("ledger write failed")
	}
}
