package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cli2468/Vision-sub000/internal/calendar"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/ledger"
)

// lotRequest is the add-lot form. Dates may be date-only (read as local
// midnight) or full RFC 3339 timestamps.
type lotRequest struct {
	Name         string  `json:"name"`
	Cost         float64 `json:"cost"`
	Quantity     int     `json:"quantity"`
	PurchaseDate string  `json:"purchaseDate"`
	ImageData    *string `json:"imageData"`
}

type lotPatchRequest struct {
	Name            *string `json:"name"`
	TotalCost       *int64  `json:"totalCost"`
	UnitCost        *int64  `json:"unitCost"`
	Quantity        *int    `json:"quantity"`
	PurchaseDate    *string `json:"purchaseDate"`
	ImageData       *string `json:"imageData"`
	ClearImage      bool    `json:"clearImage"`
	ReturnDismissed *bool   `json:"returnDismissed"`
}

type saleRequest struct {
	PricePerUnit float64 `json:"pricePerUnit"`
	UnitsSold    int     `json:"unitsSold"`
	Platform     string  `json:"platform"`
	ShippingCost float64 `json:"shippingCost"`
	DateSold     string  `json:"dateSold"`
}

// optionalDate parses raw in loc; empty means not given.
func optionalDate(raw string, loc *time.Location) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	t, err := calendar.ParseLocal(raw, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return &t, nil
}

func (a *API) handleListLots(w http.ResponseWriter, r *http.Request) {
	lots := a.service.Lots()
	if ym := strings.TrimSpace(r.URL.Query().Get("month")); ym != "" {
		t, err := time.Parse("2006-01", ym)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("month must be YYYY-MM"))
			return
		}
		lots = a.service.LotsByMonth(t.Year(), t.Month())
	}
	writeJSON(w, http.StatusOK, map[string]any{"lots": lots})
}

func (a *API) handleCreateLot(w http.ResponseWriter, r *http.Request) {
	var req lotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	purchased, err := optionalDate(req.PurchaseDate, a.service.Location())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	lot, err := a.service.AddLot(domain.LotInput{
		Name:         req.Name,
		Cost:         req.Cost,
		Quantity:     req.Quantity,
		PurchaseDate: purchased,
		ImageData:    req.ImageData,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lot)
}

func (a *API) handleGetLot(w http.ResponseWriter, r *http.Request) {
	detail, err := a.service.Lot(chi.URLParam(r, "lotID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (a *API) handleUpdateLot(w http.ResponseWriter, r *http.Request) {
	var req lotPatchRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	patch := domain.LotPatch{
		Name:            req.Name,
		TotalCost:       req.TotalCost,
		UnitCost:        req.UnitCost,
		Quantity:        req.Quantity,
		ImageData:       req.ImageData,
		ClearImage:      req.ClearImage,
		ReturnDismissed: req.ReturnDismissed,
	}
	if req.PurchaseDate != nil {
		purchased, err := optionalDate(*req.PurchaseDate, a.service.Location())
		if err != nil {
			a.fail(w, r, err)
			return
		}
		patch.PurchaseDate = purchased
	}
	lot, err := a.service.UpdateLot(chi.URLParam(r, "lotID"), patch)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (a *API) handleDeleteLot(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteLot(chi.URLParam(r, "lotID")); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDismissReturn(w http.ResponseWriter, r *http.Request) {
	lot, err := a.service.DismissReturnAlert(chi.URLParam(r, "lotID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (a *API) handleReturnAlerts(w http.ResponseWriter, r *http.Request) {
	within := ledger.DefaultAlertWindow
	if raw := strings.TrimSpace(r.URL.Query().Get("within")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("within must be a non-negative number of days"))
			return
		}
		within = n
	}
	writeJSON(w, http.StatusOK, map[string]any{"alerts": a.service.ReturnAlerts(within)})
}

func (a *API) handleTopPerformers(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 5, 100)
	writeJSON(w, http.StatusOK, map[string]any{"performers": a.service.TopPerformers(limit)})
}

func (a *API) saleInput(req saleRequest) (domain.SaleInput, error) {
	sold, err := optionalDate(req.DateSold, a.service.Location())
	if err != nil {
		return domain.SaleInput{}, err
	}
	return domain.SaleInput{
		PricePerUnit: req.PricePerUnit,
		UnitsSold:    req.UnitsSold,
		Platform:     req.Platform,
		ShippingCost: req.ShippingCost,
		DateSold:     sold,
	}, nil
}

func (a *API) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := a.saleInput(req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	lot, err := a.service.RecordSale(chi.URLParam(r, "lotID"), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, lot)
}

func (a *API) handleEditSale(w http.ResponseWriter, r *http.Request) {
	var req saleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	in, err := a.saleInput(req)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	lot, err := a.service.EditSale(chi.URLParam(r, "lotID"), chi.URLParam(r, "saleID"), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (a *API) handleDeleteSale(w http.ResponseWriter, r *http.Request) {
	lot, err := a.service.DeleteSale(chi.URLParam(r, "lotID"), chi.URLParam(r, "saleID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (a *API) handleReturnSale(w http.ResponseWriter, r *http.Request) {
	lot, err := a.service.ReturnSale(chi.URLParam(r, "lotID"), chi.URLParam(r, "saleID"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lot)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sales, err := a.service.Sales(strings.TrimSpace(q.Get("start")), strings.TrimSpace(q.Get("end")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sales": sales})
}

func (a *API) handleRecentSales(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 10, 200)
	writeJSON(w, http.StatusOK, map[string]any{"sales": a.service.RecentSales(limit)})
}

func (a *API) handleMonthlyStats(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var year, month int
	if raw := strings.TrimSpace(q.Get("year")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("year must be a number"))
			return
		}
		year = n
	}
	if raw := strings.TrimSpace(q.Get("month")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("month must be a number"))
			return
		}
		month = n
	}
	if (year == 0) != (month == 0) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("year and month go together"))
		return
	}
	report, err := a.service.MonthlyStats(year, time.Month(month))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleDailyStats(w http.ResponseWriter, r *http.Request) {
	series, err := a.service.DailySeries(r.URL.Query().Get("range"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

func (a *API) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Summary())
}

func (a *API) handleChart(w http.ResponseWriter, r *http.Request) {
	png, err := a.service.Chart(r.URL.Query().Get("range"))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
