package sheet

import (
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/cli2468/Vision-sub000/internal/calendar"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/money"
)

var ErrInvalidSheet = errors.New("invalid spreadsheet")

var headerAliases = map[string]string{
	"name":          "name",
	"item":          "name",
	"item name":     "name",
	"product":       "name",
	"product name":  "name",
	"description":   "name",
	"cost":          "cost",
	"total cost":    "cost",
	"total":         "cost",
	"paid":          "cost",
	"amount paid":   "cost",
	"price paid":    "cost",
	"unit cost":     "unit_cost",
	"cost per unit": "unit_cost",
	"quantity":      "quantity",
	"qty":           "quantity",
	"units":         "quantity",
	"count":         "quantity",
	"purchase date": "purchase_date",
	"purchased":     "purchase_date",
	"date":          "purchase_date",
	"order date":    "purchase_date",
}

var dateLayouts = []string{"1/2/2006", "1/2/06", "01-02-06", "Jan 2, 2006", "2 Jan 2006"}

// ParseLots reads add-lot inputs from the first sheet whose header names a
// lot. Rows without a name are skipped. Cost falls back to unit cost times
// quantity when only a unit cost column is present.
func ParseLots(r io.Reader, loc *time.Location) ([]domain.LotInput, error) {
	file, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook: %v", ErrInvalidSheet, err)
	}
	defer file.Close()

	sheets := file.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrInvalidSheet)
	}

	var rows [][]string
	var cols map[string]int
	for _, name := range sheets {
		candidate, err := file.GetRows(name)
		if err != nil {
			return nil, fmt.Errorf("read sheet %q: %w", name, err)
		}
		if len(candidate) == 0 {
			continue
		}
		if mapped := mapColumns(candidate[0]); hasColumn(mapped, "name") {
			rows, cols = candidate, mapped
			break
		}
	}
	if rows == nil {
		return nil, fmt.Errorf("%w: missing required column: name", ErrInvalidSheet)
	}
	if !hasColumn(cols, "quantity") {
		return nil, fmt.Errorf("%w: missing required column: quantity", ErrInvalidSheet)
	}
	if !hasColumn(cols, "cost") && !hasColumn(cols, "unit_cost") {
		return nil, fmt.Errorf("%w: missing required column: cost", ErrInvalidSheet)
	}

	result := make([]domain.LotInput, 0, len(rows)-1)
	for index := 1; index < len(rows); index++ {
		cells := rows[index]
		name := strings.TrimSpace(readCell(cells, cols, "name"))
		if name == "" {
			continue
		}

		qty, err := parseQuantity(readCell(cells, cols, "quantity"))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d invalid quantity: %v", ErrInvalidSheet, index+1, err)
		}

		var costCents int64
		if raw := strings.TrimSpace(readCell(cells, cols, "cost")); raw != "" {
			costCents = money.ParseCents(raw)
		} else if raw := strings.TrimSpace(readCell(cells, cols, "unit_cost")); raw != "" {
			costCents = money.ParseCents(raw) * int64(qty)
		}
		if costCents < 0 {
			return nil, fmt.Errorf("%w: row %d cost is negative", ErrInvalidSheet, index+1)
		}

		in := domain.LotInput{
			Name:     name,
			Cost:     money.ToDollars(costCents),
			Quantity: qty,
		}
		if raw := strings.TrimSpace(readCell(cells, cols, "purchase_date")); raw != "" {
			t, err := parseDate(raw, loc)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d invalid purchase date: %v", ErrInvalidSheet, index+1, err)
			}
			in.PurchaseDate = &t
		}
		result = append(result, in)
	}

	if len(result) == 0 {
		return nil, fmt.Errorf("%w: no lot rows found", ErrInvalidSheet)
	}
	return result, nil
}

func mapColumns(header []string) map[string]int {
	mapped := make(map[string]int)
	for idx, col := range header {
		canonical, ok := headerAliases[normalizeHeader(col)]
		if !ok {
			continue
		}
		if _, exists := mapped[canonical]; !exists {
			mapped[canonical] = idx
		}
	}
	return mapped
}

func hasColumn(cols map[string]int, name string) bool {
	_, ok := cols[name]
	return ok
}

func normalizeHeader(raw string) string {
	value := strings.TrimSpace(raw)
	value = strings.TrimPrefix(value, "\ufeff")
	value = strings.ToLower(value)
	value = strings.NewReplacer("_", " ", "($)", "", "$", "").Replace(value)
	return strings.Join(strings.Fields(value), " ")
}

func readCell(row []string, cols map[string]int, name string) string {
	idx, ok := cols[name]
	if !ok || idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func parseQuantity(raw string) (int, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("value is empty")
	}
	asFloat, err := strconv.ParseFloat(strings.ReplaceAll(value, ",", ""), 64)
	if err != nil {
		return 0, fmt.Errorf("not a number")
	}
	if math.Mod(asFloat, 1) != 0 {
		return 0, fmt.Errorf("must be an integer")
	}
	if asFloat < 1 {
		return 0, fmt.Errorf("must be at least 1")
	}
	return int(asFloat), nil
}

func parseDate(raw string, loc *time.Location) (time.Time, error) {
	if t, err := calendar.ParseLocal(raw, loc); err == nil {
		return t, nil
	}
	if loc == nil {
		loc = time.Local
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, err
		}
		y, m, d := t.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}
