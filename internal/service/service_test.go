package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cli2468/Vision-sub000/internal/auth"
	"github.com/cli2468/Vision-sub000/internal/cloudsync"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/ledger"
	"github.com/cli2468/Vision-sub000/internal/notify"
	"github.com/cli2468/Vision-sub000/internal/store"
	"github.com/cli2468/Vision-sub000/internal/store/memory"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

func clock() time.Time { return testNow }

func newTestLedger() *ledger.Ledger {
	return ledger.Open(ledger.NewMemoryBlob(nil), ledger.WithClock(clock), ledger.WithLocation(time.UTC))
}

func newTestService(opts ...Option) *Service {
	return New(newTestLedger(), append([]Option{WithClock(clock)}, opts...)...)
}

func TestEditSaleRecomputesMoney(t *testing.T) {
	svc := newTestService()

	lot, err := svc.AddLot(domain.LotInput{Name: "Cards", Cost: 30, Quantity: 3})
	if err != nil {
		t.Fatalf("add lot failed: %v", err)
	}
	lot, err = svc.RecordSale(lot.ID, domain.SaleInput{PricePerUnit: 20, UnitsSold: 2, Platform: "ebay"})
	if err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	saleID := lot.Sales[0].ID

	lot, err = svc.EditSale(lot.ID, saleID, domain.SaleInput{PricePerUnit: 25, UnitsSold: 1, Platform: "facebook", ShippingCost: 2})
	if err != nil {
		t.Fatalf("edit sale failed: %v", err)
	}
	sale := lot.Sales[0]
	if sale.TotalPrice != 2500 || sale.Fees != 0 || sale.ShippingCost != 200 || sale.CostBasis != 1000 || sale.Profit != 1300 {
		t.Fatalf("unexpected money fields after edit: %+v", sale)
	}
	if lot.Remaining != 2 {
		t.Fatalf("expected remaining 2 after units dropped to 1, got %d", lot.Remaining)
	}
}

func TestReturnAlertsAndDismiss(t *testing.T) {
	svc := newTestService()

	bought := testNow.AddDate(0, 0, -28)
	lot, err := svc.AddLot(domain.LotInput{Name: "Shoes", Cost: 100, Quantity: 1, PurchaseDate: &bought})
	if err != nil {
		t.Fatalf("add lot failed: %v", err)
	}

	alerts := svc.ReturnAlerts(-1)
	if len(alerts) != 1 || alerts[0].Lot.ID != lot.ID || alerts[0].DaysLeft != 2 {
		t.Fatalf("expected one alert with 2 days left, got %+v", alerts)
	}

	detail, err := svc.Lot(lot.ID)
	if err != nil {
		t.Fatalf("lot detail failed: %v", err)
	}
	if detail.DaysUntilReturn != 2 || !detail.ReturnDeadline.Equal(alerts[0].Deadline) {
		t.Fatalf("detail disagrees with alert: %+v", detail)
	}

	if _, err := svc.DismissReturnAlert(lot.ID); err != nil {
		t.Fatalf("dismiss failed: %v", err)
	}
	if alerts := svc.ReturnAlerts(-1); len(alerts) != 0 {
		t.Fatalf("expected no alerts after dismiss, got %d", len(alerts))
	}
}

func TestMonthlyStatsDefaultsToCurrentMonth(t *testing.T) {
	svc := newTestService()

	lot, err := svc.AddLot(domain.LotInput{Name: "Lego", Cost: 10, Quantity: 2})
	if err != nil {
		t.Fatalf("add lot failed: %v", err)
	}
	lastMonth := testNow.AddDate(0, -1, 0)
	if _, err := svc.RecordSale(lot.ID, domain.SaleInput{PricePerUnit: 15, UnitsSold: 1, Platform: "facebook"}); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}
	if _, err := svc.RecordSale(lot.ID, domain.SaleInput{PricePerUnit: 15, UnitsSold: 1, Platform: "facebook", DateSold: &lastMonth}); err != nil {
		t.Fatalf("record sale failed: %v", err)
	}

	report, err := svc.MonthlyStats(0, 0)
	if err != nil {
		t.Fatalf("monthly stats failed: %v", err)
	}
	if report.Year != 2026 || report.Month != time.March {
		t.Fatalf("expected March 2026, got %d-%d", report.Year, report.Month)
	}
	if report.Stats.TransactionCount != 1 || report.Stats.TotalProfit != 1000 {
		t.Fatalf("unexpected stats: %+v", report.Stats)
	}

	if _, err := svc.MonthlyStats(2026, 13); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected invalid input for month 13, got %v", err)
	}
}

func TestSalesAndSeriesValidation(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Sales("", "2026-03-01"); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected invalid input without start, got %v", err)
	}
	if _, err := svc.Sales("garbage", ""); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected invalid input for bad start, got %v", err)
	}
	if _, err := svc.DailySeries("1y"); !errors.Is(err, ledger.ErrInvalidInput) {
		t.Fatalf("expected invalid input for unknown range, got %v", err)
	}
	series, err := svc.DailySeries("")
	if err != nil {
		t.Fatalf("daily series failed: %v", err)
	}
	if len(series.Buckets) != 30 {
		t.Fatalf("expected default 30 day range, got %d buckets", len(series.Buckets))
	}
	png, err := svc.Chart("7d")
	if err != nil {
		t.Fatalf("chart failed: %v", err)
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("chart is not a PNG")
	}
}

func TestWorkbookRoundTrip(t *testing.T) {
	svc := newTestService()
	if _, err := svc.AddLot(domain.LotInput{Name: "Funko", Cost: 12.5, Quantity: 5}); err != nil {
		t.Fatalf("add lot failed: %v", err)
	}

	var buf bytes.Buffer
	if err := svc.ExportWorkbook(&buf); err != nil {
		t.Fatalf("export failed: %v", err)
	}

	other := newTestService()
	saved, err := other.ImportWorkbook(&buf)
	if err != nil {
		t.Fatalf("import failed: %v", err)
	}
	if len(saved) != 1 || saved[0].Name != "Funko" || saved[0].TotalCost != 1250 || saved[0].Remaining != 5 {
		t.Fatalf("unexpected imported lots: %+v", saved)
	}
	if len(other.Lots()) != 1 {
		t.Fatalf("imported lot not in ledger")
	}
}

func TestExtractOrderWithoutModelFallsBackToManual(t *testing.T) {
	svc := newTestService()
	data, ok := svc.ExtractOrder(context.Background(), []byte("\x89PNG\r\n\x1a\n"), "image/png", nil)
	if ok || data != (domain.OrderData{}) {
		t.Fatalf("expected empty manual form, got %+v ok=%v", data, ok)
	}
}

func TestCloudFeaturesDisabledWithoutConfig(t *testing.T) {
	svc := newTestService()

	if _, err := svc.Login(context.Background(), domain.LoginRequest{Email: "a@example.com", Password: "x"}); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("expected auth disabled, got %v", err)
	}
	if _, err := svc.UploadLocalData(context.Background()); !errors.Is(err, ErrCloudDisabled) {
		t.Fatalf("expected cloud disabled, got %v", err)
	}
	state := svc.Session()
	if state.User != nil || state.CloudEnabled || state.SignInEnabled {
		t.Fatalf("unexpected session state: %+v", state)
	}
}

func TestLoginReplacesLocalLedgerFromCloud(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := notify.NewHub()
	cloud := memory.New()
	repo := store.NewNotifying(cloud, hub, nil)
	l := newTestLedger()
	session := auth.NewSession()
	manager := auth.NewManager("test-secret", time.Hour, repo)
	bridge := cloudsync.New(l, repo, hub, session)
	bridge.Start(ctx)
	defer bridge.Stop()

	svc := New(l, WithClock(clock), WithAuth(session, manager), WithBridge(bridge))

	reg, err := manager.Register(ctx, domain.RegisterRequest{Email: "seller@example.com", Password: "long-enough"})
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if err := cloud.UpsertLot(ctx, reg.User.ID, domain.Lot{ID: "cloud-lot", Name: "From cloud", Quantity: 1, Remaining: 1}); err != nil {
		t.Fatalf("seed cloud failed: %v", err)
	}
	if _, err := svc.AddLot(domain.LotInput{Name: "local", Cost: 1, Quantity: 1}); err != nil {
		t.Fatalf("add lot failed: %v", err)
	}

	if _, err := svc.UploadLocalData(ctx); !errors.Is(err, cloudsync.ErrSignedOut) {
		t.Fatalf("expected signed out, got %v", err)
	}

	if _, err := svc.Login(ctx, domain.LoginRequest{Email: "seller@example.com", Password: "long-enough"}); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	lots := svc.Lots()
	if len(lots) != 1 || lots[0].ID != "cloud-lot" {
		t.Fatalf("expected cloud snapshot to replace local lots, got %+v", lots)
	}

	user, err := svc.Resume(reg.Token)
	if err != nil || user.ID != reg.User.ID {
		t.Fatalf("resume failed: %v", err)
	}

	svc.Logout()
	if svc.Session().User != nil {
		t.Fatalf("expected signed out")
	}
}
