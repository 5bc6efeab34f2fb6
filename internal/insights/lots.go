package insights

import (
	"sort"
	"strings"
	"time"

	"github.com/cli2468/Vision-sub000/internal/calendar"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/money"
)

// LotMetrics is the per-lot card on the inventory view.
type LotMetrics struct {
	LotID         string `json:"lotId"`
	UnitsSold     int    `json:"unitsSold"`
	Revenue       int64  `json:"revenue"`
	Profit        int64  `json:"profit"`
	ROI           int64  `json:"roi"`
	SellThrough   int64  `json:"sellThrough"`
	DaysHeld      int    `json:"daysHeld"`
	CapitalAtRisk int64  `json:"capitalAtRisk"`
}

// LotMetricsFor derives metrics from the lot alone. ROI is measured against
// the cost basis of units actually sold; days held stops at the last sale
// once the lot is sold out.
func LotMetricsFor(lot domain.Lot, now time.Time, loc *time.Location) LotMetrics {
	m := LotMetrics{LotID: lot.ID}
	var costBasis int64
	var lastSold time.Time
	for _, s := range lot.Sales {
		if s.Returned {
			continue
		}
		m.UnitsSold += s.UnitsSold
		m.Revenue += s.TotalPrice
		m.Profit += s.Profit
		costBasis += s.CostBasis
		if sold := s.DateSold.OrEpoch(); sold.After(lastSold) {
			lastSold = sold
		}
	}
	m.ROI = money.CalculateROI(costBasis, m.Profit)
	m.SellThrough = money.Percent(int64(m.UnitsSold), int64(lot.Quantity))
	m.CapitalAtRisk = lot.UnitCost * int64(max(lot.Remaining, 0))

	held := lot.PurchaseDate
	if held.IsZero() {
		held = lot.DateAdded
	}
	until := now
	if lot.Remaining == 0 && !lastSold.IsZero() {
		until = lastSold
	}
	m.DaysHeld = max(calendar.DaysBetween(held.OrEpoch(), until, loc), 0)
	return m
}

// Performer is one row of the top performers list.
type Performer struct {
	Lot    domain.Lot `json:"lot"`
	Profit int64      `json:"profit"`
}

// TopPerformers ranks lots with at least one kept sale by realized profit,
// highest first. Ties go to name, then id. n <= 0 returns every lot.
func TopPerformers(lots []domain.Lot, n int) []Performer {
	var out []Performer
	for _, lot := range lots {
		if lot.SoldUnits() == 0 {
			continue
		}
		out = append(out, Performer{Lot: lot, Profit: lot.RealizedProfit()})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Profit != out[j].Profit {
			return out[i].Profit > out[j].Profit
		}
		a, b := strings.ToLower(out[i].Lot.Name), strings.ToLower(out[j].Lot.Name)
		if a != b {
			return a < b
		}
		return out[i].Lot.ID < out[j].Lot.ID
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// RecentSales orders records by dateSold, newest first. Unreadable dates
// count as the epoch and land at the end instead of being dropped.
func RecentSales(records []domain.SaleRecord, n int) []domain.SaleRecord {
	out := make([]domain.SaleRecord, 0, len(records))
	for _, rec := range records {
		if rec.Sale != nil {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Sale.DateSold.OrEpoch().After(out[j].Sale.DateSold.OrEpoch())
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Totals is the dashboard header over the whole ledger.
type Totals struct {
	Lots           int   `json:"lots"`
	UnitsOnHand    int   `json:"unitsOnHand"`
	Invested       int64 `json:"invested"`
	InventoryValue int64 `json:"inventoryValue"`
	Revenue        int64 `json:"revenue"`
	Fees           int64 `json:"fees"`
	Profit         int64 `json:"profit"`
	ROI            int64 `json:"roi"`
	Returned       int   `json:"returned"`
}

// Summary totals every lot. Inventory value is remaining units at unit cost.
func Summary(lots []domain.Lot) Totals {
	t := Totals{Lots: len(lots)}
	var soldBasis int64
	for _, lot := range lots {
		t.UnitsOnHand += lot.Remaining
		t.Invested += lot.UnitCost * int64(lot.Quantity)
		t.InventoryValue += lot.UnitCost * int64(lot.Remaining)
		for _, s := range lot.Sales {
			if s.Returned {
				t.Returned++
				continue
			}
			t.Revenue += s.TotalPrice
			t.Fees += s.Fees
			t.Profit += s.Profit
			soldBasis += s.CostBasis
		}
	}
	t.ROI = money.CalculateROI(soldBasis, t.Profit)
	return t
}
