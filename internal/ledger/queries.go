package ledger

import (
	"fmt"
	"time"

	"github.com/cli2468/Vision-sub000/internal/calendar"
	"github.com/cli2468/Vision-sub000/internal/domain"
)

// ReturnWindowDays is how long after purchase a lot can still go back to
// the seller.
const ReturnWindowDays = 30

// DefaultAlertWindow is the default look-ahead for deadline alerts.
const DefaultAlertWindow = 3

// AllSales flattens every sale across lots, in lot order then sale order.
func (l *Ledger) AllSales() []domain.SaleRecord {
	lots := l.Lots()
	var out []domain.SaleRecord
	for _, lot := range lots {
		out = append(out, lot.Records()...)
	}
	return out
}

// SalesBetween returns sales sold from local midnight of start through the
// end of the end day. A nil end has no upper bound.
func (l *Ledger) SalesBetween(start time.Time, end *time.Time) []domain.SaleRecord {
	from := calendar.StartOfDay(start, l.loc)
	var to time.Time
	if end != nil {
		to = calendar.EndOfDay(*end, l.loc)
	}

	var out []domain.SaleRecord
	for _, rec := range l.AllSales() {
		sold := rec.Sale.DateSold.OrEpoch()
		if sold.Before(from) {
			continue
		}
		if end != nil && sold.After(to) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// SalesBetweenStrings is SalesBetween over date-only strings in the ledger's
// location. An empty end is unbounded.
func (l *Ledger) SalesBetweenStrings(start, end string) ([]domain.SaleRecord, error) {
	from, err := calendar.ParseLocal(start, l.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: start: %v", ErrInvalidInput, err)
	}
	if end == "" {
		return l.SalesBetween(from, nil), nil
	}
	to, err := calendar.ParseLocal(end, l.loc)
	if err != nil {
		return nil, fmt.Errorf("%w: end: %v", ErrInvalidInput, err)
	}
	return l.SalesBetween(from, &to), nil
}

// LotsByMonth filters on dateAdded.
func (l *Ledger) LotsByMonth(year int, month time.Month) []domain.Lot {
	var out []domain.Lot
	for _, lot := range l.Lots() {
		if calendar.InMonth(lot.DateAdded.OrEpoch(), year, month, l.loc) {
			out = append(out, lot)
		}
	}
	return out
}

// SalesByMonth filters on dateSold.
func (l *Ledger) SalesByMonth(year int, month time.Month) []domain.SaleRecord {
	var out []domain.SaleRecord
	for _, rec := range l.AllSales() {
		if calendar.InMonth(rec.Sale.DateSold.OrEpoch(), year, month, l.loc) {
			out = append(out, rec)
		}
	}
	return out
}

// ReturnDeadline is purchaseDate plus the return window. Lots without a
// purchase date fall back to when they were added.
func ReturnDeadline(lot domain.Lot) time.Time {
	base := lot.PurchaseDate
	if base.IsZero() {
		base = lot.DateAdded
	}
	return calendar.AddDays(base.OrEpoch(), ReturnWindowDays)
}

// DaysUntilReturn counts calendar days from today to the deadline. It is
// negative once the window has closed.
func (l *Ledger) DaysUntilReturn(lot domain.Lot) int {
	return calendar.DaysBetween(l.now(), ReturnDeadline(lot), l.loc)
}

// LotsNearingReturnDeadline lists lots with unsold units whose window closes
// within the given number of days and whose alert was not dismissed.
func (l *Ledger) LotsNearingReturnDeadline(within int) []domain.Lot {
	if within < 0 {
		within = DefaultAlertWindow
	}
	var out []domain.Lot
	for _, lot := range l.Lots() {
		if lot.Remaining <= 0 || lot.ReturnDismissed {
			continue
		}
		days := l.DaysUntilReturn(lot)
		if days >= 0 && days <= within {
			out = append(out, lot)
		}
	}
	return out
}
