package httpapi

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cli2468/Vision-sub000/internal/auth"
	"github.com/cli2468/Vision-sub000/internal/cloudsync"
	"github.com/cli2468/Vision-sub000/internal/ledger"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/service"
	"github.com/cli2468/Vision-sub000/internal/sheet"
	"github.com/cli2468/Vision-sub000/internal/store"
)

const maxJSONBody = 1 << 20

type API struct {
	service       *service.Service
	logger        *logging.Logger
	allowedOrigin string
	loginLimiter  *clientLimiter
	csrfSecret    []byte
	now           func() time.Time
}

func New(svc *service.Service, logger *logging.Logger, allowedOrigin string) *API {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	csrfSecret := make([]byte, 32)
	if _, err := rand.Read(csrfSecret); err != nil {
		csrfSecret = []byte("csrf-fallback-secret-change-me!!")
	}
	return &API{
		service:       svc,
		logger:        logger,
		allowedOrigin: allowedOrigin,
		loginLimiter:  newClientLimiter(5, time.Minute),
		csrfSecret:    csrfSecret,
		now:           time.Now,
	}
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(a.accessLog)
	r.Use(a.recoverer)
	r.Use(a.securityHeaders)
	r.Use(a.checkCSRF)

	r.Get("/healthz", a.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/csrf-token", a.handleCSRFToken)
		r.Get("/platforms", a.handlePlatforms)

		r.Get("/lots", a.handleListLots)
		r.Post("/lots", a.handleCreateLot)
		r.Get("/lots/alerts", a.handleReturnAlerts)
		r.Get("/lots/top", a.handleTopPerformers)
		r.Get("/lots/{lotID}", a.handleGetLot)
		r.Patch("/lots/{lotID}", a.handleUpdateLot)
		r.Delete("/lots/{lotID}", a.handleDeleteLot)
		r.Post("/lots/{lotID}/dismiss-return", a.handleDismissReturn)

		r.Post("/lots/{lotID}/sales", a.handleRecordSale)
		r.Patch("/lots/{lotID}/sales/{saleID}", a.handleEditSale)
		r.Delete("/lots/{lotID}/sales/{saleID}", a.handleDeleteSale)
		r.Post("/lots/{lotID}/sales/{saleID}/return", a.handleReturnSale)

		r.Get("/sales", a.handleListSales)
		r.Get("/sales/recent", a.handleRecentSales)

		r.Get("/stats/monthly", a.handleMonthlyStats)
		r.Get("/stats/daily", a.handleDailyStats)
		r.Get("/stats/summary", a.handleSummary)
		r.Get("/stats/chart.png", a.handleChart)

		r.Get("/session", a.handleGetSession)
		r.Post("/session", a.handleResumeSession)
		r.Delete("/session", a.handleLogout)
		r.Post("/session/login", a.handleLogin)
		r.Post("/session/register", a.handleRegister)
		r.Post("/sync/upload", a.handleUpload)

		r.Post("/ocr", a.handleOCR)
		r.Get("/export.xlsx", a.handleExport)
		r.Post("/import", a.handleImport)
	})

	return r
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": a.now().UTC().Format(time.RFC3339),
	})
}

// csrfTokenForHour computes an HMAC-SHA256 token for the given hour bucket.
func (a *API) csrfTokenForHour(hourBucket int64) string {
	h := hmac.New(sha256.New, a.csrfSecret)
	fmt.Fprintf(h, "%d", hourBucket)
	return hex.EncodeToString(h.Sum(nil))
}

func (a *API) generateCSRFToken() string {
	return a.csrfTokenForHour(a.now().UTC().Truncate(time.Hour).Unix())
}

// validateCSRFToken accepts tokens from the current or previous hour bucket.
func (a *API) validateCSRFToken(token string) bool {
	if token == "" {
		return false
	}
	current := a.now().UTC().Truncate(time.Hour).Unix()
	return hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current))) ||
		hmac.Equal([]byte(token), []byte(a.csrfTokenForHour(current-3600)))
}

func (a *API) handleCSRFToken(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"csrf_token": a.generateCSRFToken(),
	})
}

func (a *API) handlePlatforms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"platforms": a.service.Platforms()})
}

// statusFor maps domain errors onto HTTP statuses. Anything unrecognised
// is a 500 and its message stays in the log.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrNotFound), errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInvalidInput), errors.Is(err, sheet.ErrInvalidSheet), errors.Is(err, auth.ErrInvalidSignup):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrInsufficientRemaining), errors.Is(err, ledger.ErrQuantityBelowSold),
		errors.Is(err, ledger.ErrInventoryCorrupt), errors.Is(err, auth.ErrEmailTaken), errors.Is(err, cloudsync.ErrSignedOut):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials), errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrAuthDisabled), errors.Is(err, service.ErrCloudDisabled):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= 500 {
		a.logger.Error().Str("method", r.Method).Str("path", r.URL.Path).Err(err).Msg("request failed")
	}
	writeError(w, status, err)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dest any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; 4xx messages are meant for the user.
	msg := err.Error()
	if status >= 500 {
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
