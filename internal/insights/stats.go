// Package insights derives dashboard figures from ledger reads. Nothing here
// is stored; every figure is recomputed from the records it is given.
package insights

import (
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/money"
)

// Stats totals a set of sales. Returned sales are kept apart and never count
// toward revenue, costs, fees or profit.
type Stats struct {
	TotalRevenue     int64 `json:"totalRevenue"`
	TotalCosts       int64 `json:"totalCosts"`
	TotalFees        int64 `json:"totalFees"`
	TotalProfit      int64 `json:"totalProfit"`
	UnitsSold        int   `json:"unitsSold"`
	TransactionCount int   `json:"transactionCount"`
	AvgProfitPerUnit int64 `json:"avgProfitPerUnit"`

	TotalReturned   int64 `json:"totalReturned"`
	ReturnedCount   int   `json:"returnedCount"`
	ReturnedRevenue int64 `json:"returnedRevenue"`
}

// MonthlyStats sums the given records. Records without a sale are skipped.
func MonthlyStats(records []domain.SaleRecord) Stats {
	var s Stats
	for _, rec := range records {
		sale := rec.Sale
		if sale == nil {
			continue
		}
		if sale.Returned {
			s.TotalReturned += sale.Profit
			s.ReturnedCount++
			s.ReturnedRevenue += sale.TotalPrice
			continue
		}
		s.TotalRevenue += sale.TotalPrice
		s.TotalCosts += sale.CostBasis
		s.TotalFees += sale.Fees
		s.TotalProfit += sale.Profit
		s.UnitsSold += sale.UnitsSold
		s.TransactionCount++
	}
	if s.UnitsSold > 0 {
		s.AvgProfitPerUnit = money.DivRound(s.TotalProfit, int64(s.UnitsSold))
	}
	return s
}
