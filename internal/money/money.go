// Package money holds the fee and profit arithmetic. Every amount is an
// integer number of cents; fractional intermediate results are computed with
// exact decimals and rounded half up, the way the dashboard always has.
package money

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	half    = decimal.New(5, -1)
	hundred = decimal.NewFromInt(100)
)

// SaleBreakdown is the frozen money snapshot stored on a sale.
type SaleBreakdown struct {
	CostBasis      int64 `json:"costBasis"`
	TotalSalePrice int64 `json:"totalSalePrice"`
	Fees           int64 `json:"fees"`
	ShippingCost   int64 `json:"shippingCost"`
	Profit         int64 `json:"profit"`
}

// Calculator applies a platform fee table. The zero value charges no fees.
type Calculator struct {
	fees FeeTable
}

func NewCalculator(fees FeeTable) *Calculator {
	if fees == nil {
		fees = DefaultFeeTable()
	}
	return &Calculator{fees: fees}
}

var defaultCalculator = NewCalculator(DefaultFeeTable())

// Default returns the calculator over DefaultFeeTable.
func Default() *Calculator { return defaultCalculator }

func (c *Calculator) Platforms() FeeTable {
	if c == nil {
		return nil
	}
	return c.fees
}

// CalculateFees returns round(total * rate(platform)).
func (c *Calculator) CalculateFees(totalCents int64, platform string) int64 {
	if c == nil {
		return 0
	}
	rate := c.fees.Rate(platform)
	if rate == 0 {
		return 0
	}
	return roundHalfUp(decimal.NewFromInt(totalCents).Mul(decimal.NewFromFloat(rate)))
}

// CalculateSaleProfit derives every money field of a sale.
func (c *Calculator) CalculateSaleProfit(unitCostCents int64, unitsSold int, pricePerUnitCents int64, platform string, shippingCents int64) SaleBreakdown {
	units := int64(unitsSold)
	costBasis := unitCostCents * units
	total := pricePerUnitCents * units
	fees := c.CalculateFees(total, platform)
	return SaleBreakdown{
		CostBasis:      costBasis,
		TotalSalePrice: total,
		Fees:           fees,
		ShippingCost:   shippingCents,
		Profit:         total - costBasis - fees - shippingCents,
	}
}

// CalculateFees uses the default fee table.
func CalculateFees(totalCents int64, platform string) int64 {
	return defaultCalculator.CalculateFees(totalCents, platform)
}

// CalculateSaleProfit uses the default fee table.
func CalculateSaleProfit(unitCostCents int64, unitsSold int, pricePerUnitCents int64, platform string, shippingCents int64) SaleBreakdown {
	return defaultCalculator.CalculateSaleProfit(unitCostCents, unitsSold, pricePerUnitCents, platform, shippingCents)
}

// CalculateROI returns profit/cost as a whole percent, 0 when cost is 0.
func CalculateROI(costCents, profitCents int64) int64 {
	if costCents == 0 {
		return 0
	}
	return roundHalfUp(decimal.NewFromInt(profitCents).Mul(hundred).Div(decimal.NewFromInt(costCents)))
}

// Percent returns round(part/whole*100), 0 when whole is 0.
func Percent(part, whole int64) int64 {
	return CalculateROI(whole, part)
}

// DivRound returns round(a/b), 0 when b is 0.
func DivRound(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return roundHalfUp(decimal.NewFromInt(a).Div(decimal.NewFromInt(b)))
}

// ToCents converts a dollar amount; NaN and infinities become 0.
func ToCents(dollars float64) int64 {
	if math.IsNaN(dollars) || math.IsInf(dollars, 0) {
		return 0
	}
	return roundHalfUp(decimal.NewFromFloat(dollars).Shift(2))
}

// ParseCents reads user-typed dollars ("$1,234.50", " 12 ") into cents.
// Anything unreadable is 0.
func ParseCents(raw string) int64 {
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return roundHalfUp(d.Shift(2))
}

// ToDollars is the inverse of ToCents for display and export.
func ToDollars(cents int64) float64 {
	return decimal.New(cents, -2).InexactFloat64()
}

// roundHalfUp matches floor(x + 0.5): halves round toward +Inf.
func roundHalfUp(d decimal.Decimal) int64 {
	return d.Add(half).Floor().IntPart()
}
