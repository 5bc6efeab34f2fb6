package ledger

import (
	"strings"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/money"
	"github.com/cli2468/Vision-sub000/internal/xid"
)

// RecordSale appends a sale priced from the lot's current unit cost and
// takes its units out of remaining. Selling more than remaining is refused.
func (l *Ledger) RecordSale(lotID string, in domain.SaleInput) (domain.Lot, error) {
	platform := normalizePlatform(in.Platform)
	price := money.ToCents(in.PricePerUnit)
	shipping := money.ToCents(in.ShippingCost)
	if in.UnitsSold < 1 || platform == "" || price < 0 || shipping < 0 {
		l.logger.Warn().Str("lot", lotID).Int("units", in.UnitsSold).Str("platform", in.Platform).Msg("sale rejected: invalid input")
		return domain.Lot{}, ErrInvalidInput
	}

	sold := l.now()
	if in.DateSold != nil && !in.DateSold.IsZero() {
		sold = *in.DateSold
	}

	return l.mutate(lotID, "record sale", func(lot *domain.Lot) error {
		if in.UnitsSold > lot.Remaining {
			return ErrInsufficientRemaining
		}
		b := l.calc.CalculateSaleProfit(lot.UnitCost, in.UnitsSold, price, platform, shipping)
		lot.Sales = append(lot.Sales, domain.Sale{
			ID:           xid.New(),
			UnitsSold:    in.UnitsSold,
			PricePerUnit: price,
			TotalPrice:   b.TotalSalePrice,
			Platform:     platform,
			Fees:         b.Fees,
			ShippingCost: b.ShippingCost,
			CostBasis:    b.CostBasis,
			Profit:       b.Profit,
			DateSold:     domain.At(sold),
		})
		lot.Remaining -= in.UnitsSold
		return nil
	})
}

// DeleteSale removes a sale. Units of a sale still counted as sold go back
// to remaining; a returned sale already gave its units back.
func (l *Ledger) DeleteSale(lotID, saleID string) (domain.Lot, error) {
	return l.mutate(lotID, "delete sale", func(lot *domain.Lot) error {
		idx := lot.SaleIndex(saleID)
		if idx < 0 {
			return ErrNotFound
		}
		sale := lot.Sales[idx]
		if !sale.Returned {
			if lot.Remaining+sale.UnitsSold > lot.Quantity {
				return ErrInventoryCorrupt
			}
			lot.Remaining += sale.UnitsSold
		}
		lot.Sales = append(lot.Sales[:idx:idx], lot.Sales[idx+1:]...)
		return nil
	})
}

// MarkSaleReturned flags the sale returned and restocks its units. There is
// no way back: marking an already returned sale changes nothing.
func (l *Ledger) MarkSaleReturned(lotID, saleID string) (domain.Lot, error) {
	return l.mutate(lotID, "mark returned", func(lot *domain.Lot) error {
		idx := lot.SaleIndex(saleID)
		if idx < 0 {
			return ErrNotFound
		}
		sale := &lot.Sales[idx]
		if sale.Returned {
			return errUnchanged
		}
		if lot.Remaining+sale.UnitsSold > lot.Quantity {
			return ErrInventoryCorrupt
		}
		sale.Returned = true
		lot.Remaining += sale.UnitsSold
		return nil
	})
}

// UpdateSale merges patch into the sale as given. Money fields are not
// derived here; see ReviseSale. A unitsSold change on a sale that still
// counts moves remaining by the difference.
func (l *Ledger) UpdateSale(lotID, saleID string, patch domain.SalePatch) (domain.Lot, error) {
	return l.mutate(lotID, "update sale", func(lot *domain.Lot) error {
		return applySalePatch(lot, saleID, patch)
	})
}

// ReviseSale re-prices a sale from form input: fees, cost basis and profit
// are recomputed against the lot's current unit cost, then merged in one step.
func (l *Ledger) ReviseSale(lotID, saleID string, in domain.SaleInput) (domain.Lot, error) {
	platform := normalizePlatform(in.Platform)
	price := money.ToCents(in.PricePerUnit)
	shipping := money.ToCents(in.ShippingCost)
	if in.UnitsSold < 1 || platform == "" || price < 0 || shipping < 0 {
		return domain.Lot{}, ErrInvalidInput
	}

	return l.mutate(lotID, "revise sale", func(lot *domain.Lot) error {
		b := l.calc.CalculateSaleProfit(lot.UnitCost, in.UnitsSold, price, platform, shipping)
		units := in.UnitsSold
		patch := domain.SalePatch{
			UnitsSold:    &units,
			PricePerUnit: &price,
			TotalPrice:   &b.TotalSalePrice,
			Platform:     &platform,
			Fees:         &b.Fees,
			ShippingCost: &b.ShippingCost,
			CostBasis:    &b.CostBasis,
			Profit:       &b.Profit,
			DateSold:     in.DateSold,
		}
		return applySalePatch(lot, saleID, patch)
	})
}

func applySalePatch(lot *domain.Lot, saleID string, patch domain.SalePatch) error {
	idx := lot.SaleIndex(saleID)
	if idx < 0 {
		return ErrNotFound
	}
	sale := &lot.Sales[idx]

	if patch.UnitsSold != nil {
		units := *patch.UnitsSold
		if units < 1 {
			return ErrInvalidInput
		}
		if !sale.Returned {
			delta := units - sale.UnitsSold
			if delta > lot.Remaining {
				return ErrInsufficientRemaining
			}
			if lot.Remaining-delta > lot.Quantity {
				return ErrInventoryCorrupt
			}
			lot.Remaining -= delta
		}
		sale.UnitsSold = units
	}
	if patch.PricePerUnit != nil {
		sale.PricePerUnit = *patch.PricePerUnit
	}
	if patch.TotalPrice != nil {
		sale.TotalPrice = *patch.TotalPrice
	}
	if patch.Platform != nil {
		p := normalizePlatform(*patch.Platform)
		if p == "" {
			return ErrInvalidInput
		}
		sale.Platform = p
	}
	if patch.Fees != nil {
		sale.Fees = *patch.Fees
	}
	if patch.ShippingCost != nil {
		sale.ShippingCost = *patch.ShippingCost
	}
	if patch.CostBasis != nil {
		sale.CostBasis = *patch.CostBasis
	}
	if patch.Profit != nil {
		sale.Profit = *patch.Profit
	}
	if patch.DateSold != nil && !patch.DateSold.IsZero() {
		sale.DateSold = domain.At(*patch.DateSold)
	}
	return nil
}

func normalizePlatform(p string) string {
	return strings.ToLower(strings.TrimSpace(p))
}
