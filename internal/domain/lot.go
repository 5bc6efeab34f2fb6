package domain

// Clone deep-copies the lot so callers never alias ledger state.
func (l Lot) Clone() Lot {
	out := l
	if l.ImageData != nil {
		img := *l.ImageData
		out.ImageData = &img
	}
	out.Sales = make([]Sale, len(l.Sales))
	copy(out.Sales, l.Sales)
	return out
}

// SoldUnits counts units in sales that were not returned.
func (l Lot) SoldUnits() int {
	sold := 0
	for _, s := range l.Sales {
		if !s.Returned {
			sold += s.UnitsSold
		}
	}
	return sold
}

// Balanced reports whether remaining == quantity - units in active sales.
func (l Lot) Balanced() bool {
	return l.Remaining == l.Quantity-l.SoldUnits()
}

// SaleIndex returns the position of sale id, or -1.
func (l Lot) SaleIndex(id string) int {
	for i := range l.Sales {
		if l.Sales[i].ID == id {
			return i
		}
	}
	return -1
}

// RealizedProfit sums profit over sales that were not returned.
func (l Lot) RealizedProfit() int64 {
	var total int64
	for _, s := range l.Sales {
		if !s.Returned {
			total += s.Profit
		}
	}
	return total
}

// Records flattens the lot into one SaleRecord per sale.
func (l Lot) Records() []SaleRecord {
	if len(l.Sales) == 0 {
		return nil
	}
	snapshot := l.Clone()
	out := make([]SaleRecord, 0, len(snapshot.Sales))
	for i := range snapshot.Sales {
		out = append(out, SaleRecord{Lot: &snapshot, Sale: &snapshot.Sales[i]})
	}
	return out
}
