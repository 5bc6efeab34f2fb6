// Package sheet moves lots in and out of .xlsx workbooks.
package sheet

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cli2468/Vision-sub000/internal/calendar"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/money"
)

const (
	LotsSheet  = "Lots"
	SalesSheet = "Sales"
)

// ContentType is the MIME type of the workbooks Export writes.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var lotHeader = []any{
	"ID", "Name", "Purchase Date", "Date Added", "Quantity", "Remaining",
	"Unit Cost", "Total Cost", "Units Sold", "Revenue", "Profit", "Return Dismissed",
}

var saleHeader = []any{
	"Lot ID", "Lot", "Sale ID", "Date Sold", "Platform", "Units",
	"Price Per Unit", "Total Price", "Fees", "Shipping", "Cost Basis", "Profit", "Returned",
}

// Export writes lots to w as a workbook with one row per lot on the Lots
// sheet and one row per sale on the Sales sheet. Amounts are dollars.
func Export(w io.Writer, lots []domain.Lot, loc *time.Location) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", LotsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SalesSheet); err != nil {
		return fmt.Errorf("create sales sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("create header style: %w", err)
	}

	lotRows := [][]any{lotHeader}
	saleRows := [][]any{saleHeader}
	for _, lot := range lots {
		var unitsSold int
		var revenue, profit int64
		for _, s := range lot.Sales {
			if !s.Returned {
				unitsSold += s.UnitsSold
				revenue += s.TotalPrice
				profit += s.Profit
			}
			saleRows = append(saleRows, []any{
				lot.ID, lot.Name, s.ID, dateCell(s.DateSold, loc), s.Platform, s.UnitsSold,
				money.ToDollars(s.PricePerUnit), money.ToDollars(s.TotalPrice), money.ToDollars(s.Fees),
				money.ToDollars(s.ShippingCost), money.ToDollars(s.CostBasis), money.ToDollars(s.Profit), s.Returned,
			})
		}
		lotRows = append(lotRows, []any{
			lot.ID, lot.Name, dateCell(lot.PurchaseDate, loc), dateCell(lot.DateAdded, loc), lot.Quantity, lot.Remaining,
			money.ToDollars(lot.UnitCost), money.ToDollars(lot.TotalCost), unitsSold,
			money.ToDollars(revenue), money.ToDollars(profit), lot.ReturnDismissed,
		})
	}

	if err := writeRows(f, LotsSheet, lotRows, bold); err != nil {
		return err
	}
	if err := writeRows(f, SalesSheet, saleRows, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(LotsSheet, "B", "B", 32); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}
	f.SetActiveSheet(0)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("write %s row %d: %w", sheet, i+1, err)
		}
	}
	if err := f.SetRowStyle(sheet, 1, 1, headerStyle); err != nil {
		return fmt.Errorf("style %s header: %w", sheet, err)
	}
	return nil
}

func dateCell(ts domain.Timestamp, loc *time.Location) string {
	if ts.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return ts.Time.In(loc).Format(calendar.DateFormat)
}
