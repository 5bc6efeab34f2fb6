package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cli2468/Vision-sub000/internal/auth"
	"github.com/cli2468/Vision-sub000/internal/cloudsync"
	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/insights"
	"github.com/cli2468/Vision-sub000/internal/ledger"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/money"
	"github.com/cli2468/Vision-sub000/internal/ocr"
	"github.com/cli2468/Vision-sub000/internal/sheet"
)

var (
	ErrCloudDisabled = errors.New("cloud sync is not configured")
	ErrAuthDisabled  = errors.New("sign-in is not configured")
)

// Service is what the HTTP layer and the CLI talk to. It owns no domain
// state of its own: every read is derived from the ledger on demand.
type Service struct {
	ledger    *ledger.Ledger
	session   *auth.Session
	accounts  *auth.Manager
	bridge    *cloudsync.Bridge
	extractor ocr.Extractor
	logger    *logging.Logger
	now       func() time.Time
}

type Option func(*Service)

// WithAuth enables sign-in. session is shared with the sync bridge.
func WithAuth(session *auth.Session, accounts *auth.Manager) Option {
	return func(s *Service) {
		if session != nil {
			s.session = session
		}
		s.accounts = accounts
	}
}

func WithBridge(b *cloudsync.Bridge) Option {
	return func(s *Service) { s.bridge = b }
}

func WithExtractor(ex ocr.Extractor) Option {
	return func(s *Service) {
		if ex != nil {
			s.extractor = ex
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(l *ledger.Ledger, opts ...Option) *Service {
	s := &Service{
		ledger:    l,
		session:   auth.NewSession(),
		extractor: ocr.Unavailable{},
		logger:    logging.NewSilentLogger(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Location is the zone date-only input is read in.
func (s *Service) Location() *time.Location {
	return s.ledger.Location()
}

func (s *Service) Platforms() []money.Platform {
	return s.ledger.Calculator().Platforms().List()
}

// LotDetail is a lot with everything the detail view derives from it.
type LotDetail struct {
	Lot             domain.Lot          `json:"lot"`
	Metrics         insights.LotMetrics `json:"metrics"`
	ReturnDeadline  time.Time           `json:"returnDeadline"`
	DaysUntilReturn int                 `json:"daysUntilReturn"`
}

func (s *Service) Lots() []domain.Lot {
	return s.ledger.Lots()
}

func (s *Service) Lot(id string) (LotDetail, error) {
	lot, err := s.ledger.Lot(id)
	if err != nil {
		return LotDetail{}, err
	}
	return LotDetail{
		Lot:             lot,
		Metrics:         insights.LotMetricsFor(lot, s.now(), s.ledger.Location()),
		ReturnDeadline:  ledger.ReturnDeadline(lot),
		DaysUntilReturn: s.ledger.DaysUntilReturn(lot),
	}, nil
}

// LotsByMonth lists lots bought in the given local calendar month.
func (s *Service) LotsByMonth(year int, month time.Month) []domain.Lot {
	return s.ledger.LotsByMonth(year, month)
}

func (s *Service) AddLot(in domain.LotInput) (domain.Lot, error) {
	return s.ledger.SaveLot(in)
}

func (s *Service) UpdateLot(id string, patch domain.LotPatch) (domain.Lot, error) {
	return s.ledger.UpdateLot(id, patch)
}

func (s *Service) DeleteLot(id string) error {
	return s.ledger.DeleteLot(id)
}

// DismissReturnAlert hides a lot from the return-deadline alerts.
func (s *Service) DismissReturnAlert(id string) (domain.Lot, error) {
	dismissed := true
	return s.ledger.UpdateLot(id, domain.LotPatch{ReturnDismissed: &dismissed})
}

func (s *Service) RecordSale(lotID string, in domain.SaleInput) (domain.Lot, error) {
	return s.ledger.RecordSale(lotID, in)
}

// EditSale revises a sale from form values. Money fields are always
// recomputed before they are written.
func (s *Service) EditSale(lotID, saleID string, in domain.SaleInput) (domain.Lot, error) {
	return s.ledger.ReviseSale(lotID, saleID, in)
}

func (s *Service) DeleteSale(lotID, saleID string) (domain.Lot, error) {
	return s.ledger.DeleteSale(lotID, saleID)
}

func (s *Service) ReturnSale(lotID, saleID string) (domain.Lot, error) {
	return s.ledger.MarkSaleReturned(lotID, saleID)
}

// ReturnAlert is a lot whose store return window is about to close.
type ReturnAlert struct {
	Lot      domain.Lot `json:"lot"`
	Deadline time.Time  `json:"deadline"`
	DaysLeft int        `json:"daysLeft"`
}

func (s *Service) ReturnAlerts(within int) []ReturnAlert {
	lots := s.ledger.LotsNearingReturnDeadline(within)
	alerts := make([]ReturnAlert, 0, len(lots))
	for _, lot := range lots {
		alerts = append(alerts, ReturnAlert{
			Lot:      lot,
			Deadline: ledger.ReturnDeadline(lot),
			DaysLeft: s.ledger.DaysUntilReturn(lot),
		})
	}
	return alerts
}

func (s *Service) TopPerformers(n int) []insights.Performer {
	return insights.TopPerformers(s.ledger.Lots(), n)
}

// Sales lists sales between two YYYY-MM-DD dates, both inclusive. An empty
// end is unbounded; an empty range returns every sale.
func (s *Service) Sales(start, end string) ([]domain.SaleRecord, error) {
	if start == "" && end == "" {
		return s.ledger.AllSales(), nil
	}
	if start == "" {
		return nil, fmt.Errorf("%w: start date is required with an end date", ledger.ErrInvalidInput)
	}
	return s.ledger.SalesBetweenStrings(start, end)
}

func (s *Service) RecentSales(n int) []domain.SaleRecord {
	return insights.RecentSales(s.ledger.AllSales(), n)
}

// MonthlyReport is the stats card for one calendar month.
type MonthlyReport struct {
	Year  int            `json:"year"`
	Month time.Month     `json:"month"`
	Stats insights.Stats `json:"stats"`
}

// MonthlyStats reports on year/month; a zero year means the current month.
func (s *Service) MonthlyStats(year int, month time.Month) (MonthlyReport, error) {
	if year == 0 {
		now := s.now().In(s.ledger.Location())
		year, month = now.Year(), now.Month()
	}
	if month < time.January || month > time.December {
		return MonthlyReport{}, fmt.Errorf("%w: month must be 1-12", ledger.ErrInvalidInput)
	}
	return MonthlyReport{
		Year:  year,
		Month: month,
		Stats: insights.MonthlyStats(s.ledger.SalesByMonth(year, month)),
	}, nil
}

func (s *Service) DailySeries(rangeName string) (insights.Series, error) {
	r, err := insights.ParseRange(rangeName)
	if err != nil {
		return insights.Series{}, fmt.Errorf("%w: %v", ledger.ErrInvalidInput, err)
	}
	return insights.DailySeries(s.ledger.AllSales(), r, s.now(), s.ledger.Location()), nil
}

func (s *Service) Summary() insights.Totals {
	return insights.Summary(s.ledger.Lots())
}

// Chart renders the daily profit chart as PNG.
func (s *Service) Chart(rangeName string) ([]byte, error) {
	series, err := s.DailySeries(rangeName)
	if err != nil {
		return nil, err
	}
	png, err := insights.RenderDailyChart(series)
	if err != nil {
		s.logger.Error().Str("range", string(series.Range)).Err(err).Msg("chart render failed")
		return nil, err
	}
	return png, nil
}

// ExtractOrder pre-fills the add-lot form from an order image. It never
// fails: anything the extractor cannot read comes back as an empty form
// with ok false.
func (s *Service) ExtractOrder(ctx context.Context, image []byte, mimeType string, progress ocr.Progress) (domain.OrderData, bool) {
	return ocr.ExtractOrManual(ctx, s.extractor, image, mimeType, progress, s.logger)
}

func (s *Service) ExportWorkbook(w io.Writer) error {
	return sheet.Export(w, s.ledger.Lots(), s.ledger.Location())
}

// ImportWorkbook adds one lot per sheet row. The workbook is validated in
// full before any lot is saved.
func (s *Service) ImportWorkbook(r io.Reader) ([]domain.Lot, error) {
	inputs, err := sheet.ParseLots(r, s.ledger.Location())
	if err != nil {
		return nil, err
	}
	saved := make([]domain.Lot, 0, len(inputs))
	for i, in := range inputs {
		lot, err := s.ledger.SaveLot(in)
		if err != nil {
			return saved, fmt.Errorf("row %d (%s): %w", i+1, in.Name, err)
		}
		saved = append(saved, lot)
	}
	s.logger.Info().Int("lots", len(saved)).Msg("workbook imported")
	return saved, nil
}
