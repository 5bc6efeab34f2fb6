package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/money"
	"github.com/cli2468/Vision-sub000/internal/xid"
)

// CurrentVersion is the schema written by this build.
//
//	v1: one optional "sale" per lot, total "cost" only.
//	v2: unitCost/totalCost, remaining counter, embedded "sales" list.
const CurrentVersion = 2

type record struct {
	Version int          `json:"version"`
	Lots    []domain.Lot `json:"lots"`
}

// storedRecord reads any version. Lots stay raw until their shape is known.
type storedRecord struct {
	Version int               `json:"version"`
	Lots    []json.RawMessage `json:"lots"`
}

// storedLot is the union of every lot shape ever persisted.
type storedLot struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Cost            *float64         `json:"cost"`
	UnitCost        *float64         `json:"unitCost"`
	TotalCost       *float64         `json:"totalCost"`
	Quantity        float64          `json:"quantity"`
	Remaining       *float64         `json:"remaining"`
	DateAdded       domain.Timestamp `json:"dateAdded"`
	PurchaseDate    domain.Timestamp `json:"purchaseDate"`
	ImageData       *string          `json:"imageData"`
	Sales           *[]domain.Sale   `json:"sales"`
	Sale            *legacySale      `json:"sale"`
	ReturnDismissed bool             `json:"returnDismissed"`
}

// legacySale is the v1 single sale: the whole lot sold in one go.
type legacySale struct {
	ID           string           `json:"id"`
	Price        float64          `json:"price"`
	Platform     string           `json:"platform"`
	Fees         *float64         `json:"fees"`
	ShippingCost float64          `json:"shippingCost"`
	Profit       *float64         `json:"profit"`
	DateSold     domain.Timestamp `json:"dateSold"`
}

// decodeRecord reads a blob of any version and reports whether it had to be
// migrated. A bare JSON array is the oldest v1 layout. Date-only values are
// read as midnight in loc.
func decodeRecord(data []byte, calc *money.Calculator, loc *time.Location) ([]domain.Lot, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, false, nil
	}

	var stored storedRecord
	if data[0] == '[' {
		if err := json.Unmarshal(data, &stored.Lots); err != nil {
			return nil, false, fmt.Errorf("decode legacy lot array: %w", err)
		}
		stored.Version = 1
	} else {
		if err := json.Unmarshal(data, &stored); err != nil {
			return nil, false, fmt.Errorf("decode ledger record: %w", err)
		}
		if stored.Version < 1 {
			stored.Version = 1
		}
	}
	if stored.Version > CurrentVersion {
		return nil, false, fmt.Errorf("ledger record version %d is newer than supported %d", stored.Version, CurrentVersion)
	}

	lots := make([]domain.Lot, 0, len(stored.Lots))
	for i, raw := range stored.Lots {
		var sl storedLot
		if err := json.Unmarshal(raw, &sl); err != nil {
			return nil, false, fmt.Errorf("decode lot %d: %w", i, err)
		}
		lots = append(lots, anchorDates(upgradeLot(sl, calc), loc))
	}
	return lots, stored.Version < CurrentVersion, nil
}

// Migrate rewrites a blob of any supported version as the current version.
// It is idempotent: migrating an already current blob returns it unchanged
// in content.
func Migrate(data []byte, calc *money.Calculator, loc *time.Location) ([]byte, error) {
	lots, _, err := decodeRecord(data, calc, loc)
	if err != nil {
		return nil, err
	}
	return encodeRecord(lots)
}

func encodeRecord(lots []domain.Lot) ([]byte, error) {
	if lots == nil {
		lots = []domain.Lot{}
	}
	return json.Marshal(record{Version: CurrentVersion, Lots: lots})
}

// upgradeLot maps any stored shape onto the current Lot. Fields that are
// already in current form pass through untouched.
func upgradeLot(sl storedLot, calc *money.Calculator) domain.Lot {
	qty := int(sl.Quantity)
	if qty < 1 {
		qty = 1
	}
	lot := domain.Lot{
		ID:              sl.ID,
		Name:            sl.Name,
		Quantity:        qty,
		DateAdded:       sl.DateAdded,
		PurchaseDate:    sl.PurchaseDate,
		ImageData:       sl.ImageData,
		ReturnDismissed: sl.ReturnDismissed,
	}
	if lot.ID == "" {
		lot.ID = xid.New()
	}
	if lot.PurchaseDate.IsZero() {
		lot.PurchaseDate = lot.DateAdded
	}

	switch {
	case sl.TotalCost != nil:
		lot.TotalCost = cents(*sl.TotalCost)
	case sl.Cost != nil:
		lot.TotalCost = cents(*sl.Cost)
	case sl.UnitCost != nil:
		lot.TotalCost = cents(*sl.UnitCost) * int64(qty)
	}
	if sl.UnitCost != nil {
		lot.UnitCost = cents(*sl.UnitCost)
	} else {
		lot.UnitCost = money.DivRound(lot.TotalCost, int64(qty))
	}

	if sl.Sales != nil || (sl.Remaining != nil && sl.Sale == nil) {
		lot.Sales = []domain.Sale{}
		if sl.Sales != nil {
			lot.Sales = append(lot.Sales, (*sl.Sales)...)
		}
		if sl.Remaining != nil {
			lot.Remaining = int(*sl.Remaining)
		} else {
			lot.Remaining = qty - lot.SoldUnits()
		}
		return lot
	}

	lot.Sales = []domain.Sale{}
	lot.Remaining = qty
	if sl.Sale != nil {
		lot.Sales = append(lot.Sales, upgradeSale(*sl.Sale, lot, calc))
		lot.Remaining = 0
	}
	return lot
}

func anchorDates(lot domain.Lot, loc *time.Location) domain.Lot {
	lot.DateAdded = lot.DateAdded.Anchor(loc)
	lot.PurchaseDate = lot.PurchaseDate.Anchor(loc)
	for i := range lot.Sales {
		lot.Sales[i].DateSold = lot.Sales[i].DateSold.Anchor(loc)
	}
	return lot
}

func upgradeSale(ls legacySale, lot domain.Lot, calc *money.Calculator) domain.Sale {
	total := cents(ls.Price)
	sale := domain.Sale{
		ID:           ls.ID,
		UnitsSold:    lot.Quantity,
		PricePerUnit: money.DivRound(total, int64(lot.Quantity)),
		TotalPrice:   total,
		Platform:     ls.Platform,
		ShippingCost: cents(ls.ShippingCost),
		CostBasis:    lot.TotalCost,
		DateSold:     ls.DateSold,
	}
	if sale.ID == "" {
		sale.ID = xid.New()
	}
	if ls.Fees != nil {
		sale.Fees = cents(*ls.Fees)
	} else {
		sale.Fees = calc.CalculateFees(total, ls.Platform)
	}
	if ls.Profit != nil {
		sale.Profit = cents(*ls.Profit)
	} else {
		sale.Profit = total - sale.CostBasis - sale.Fees - sale.ShippingCost
	}
	return sale
}

// cents rounds a stored number that is already in cents.
func cents(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return int64(math.Floor(v + 0.5))
}
