// Package ocr reads purchase details out of order screenshots. Results are
// guesses for pre-filling the add-lot form; nothing here may block adding a
// lot by hand.
package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/logging"
	"github.com/cli2468/Vision-sub000/internal/money"
)

// MaxImageBytes caps uploads handed to an Extractor.
const MaxImageBytes = 10 << 20

// maxQuantity caps a read quantity so a misread cannot overflow int.
const maxQuantity = 10000

var (
	ErrUnavailable      = errors.New("image extraction is not configured")
	ErrEmptyImage       = errors.New("image is empty")
	ErrImageTooLarge    = errors.New("image is too large")
	ErrUnsupportedImage = errors.New("unsupported image type")
	ErrNoData           = errors.New("no order data found in image")
)

// Progress reports extraction stages; fraction runs from 0 to 1.
type Progress func(stage string, fraction float64)

type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string, progress Progress) (domain.OrderData, error)
}

var supportedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
}

// DetectType returns the image MIME type, sniffing the bytes when the
// declared type is missing or generic.
func DetectType(image []byte, declared string) (string, error) {
	mimeType := strings.ToLower(strings.TrimSpace(declared))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(image)
	}
	if !supportedTypes[mimeType] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, mimeType)
	}
	return mimeType, nil
}

func checkImage(image []byte) error {
	if len(image) == 0 {
		return ErrEmptyImage
	}
	if len(image) > MaxImageBytes {
		return ErrImageTooLarge
	}
	return nil
}

// ExtractOrManual runs ex and falls back to an empty form on any failure.
// A nil Extractor is treated as unavailable.
func ExtractOrManual(ctx context.Context, ex Extractor, image []byte, mimeType string, progress Progress, logger *logging.Logger) (data domain.OrderData, ok bool) {
	if logger == nil {
		logger = logging.NewSilentLogger()
	}
	report := func(stage string, fraction float64) {
		if progress != nil {
			progress(stage, fraction)
		}
	}
	defer func() {
		if r := recover(); r != nil {
			logger.Error().Str("panic", fmt.Sprint(r)).Msg("image extraction panicked, falling back to manual entry")
			data, ok = domain.OrderData{}, false
			report("manual", 1)
		}
	}()

	if ex == nil {
		report("manual", 1)
		return domain.OrderData{}, false
	}
	data, err := ex.Extract(ctx, image, mimeType, report)
	if err != nil {
		logger.Warn().Err(err).Int("bytes", len(image)).Msg("image extraction failed, falling back to manual entry")
		report("manual", 1)
		return domain.OrderData{}, false
	}
	return data, true
}

// Unavailable is the Extractor used when no model is configured.
type Unavailable struct{}

func (Unavailable) Extract(context.Context, []byte, string, Progress) (domain.OrderData, error) {
	return domain.OrderData{}, ErrUnavailable
}

// parseOrder reads the model's JSON answer. Fields it cannot read are left
// at their zero value; quantity defaults to 1.
func parseOrder(raw string) (domain.OrderData, error) {
	text := strings.TrimSpace(raw)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.OrderData{}, ErrNoData
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return domain.OrderData{}, fmt.Errorf("decode model answer: %w", err)
	}

	data := domain.OrderData{Quantity: 1}
	if name, ok := fields["name"].(string); ok {
		data.Name = strings.TrimSpace(name)
	}
	switch cost := fields["cost"].(type) {
	case float64:
		data.Cost = money.ToDollars(money.ToCents(cost))
	case string:
		data.Cost = money.ToDollars(money.ParseCents(cost))
	}
	if data.Cost < 0 {
		data.Cost = 0
	}
	if q, ok := fields["quantity"].(float64); ok && !math.IsNaN(q) && q >= 1 {
		data.Quantity = int(math.Round(math.Min(q, maxQuantity)))
	}

	if data.Name == "" && data.Cost == 0 {
		return domain.OrderData{}, ErrNoData
	}
	return data, nil
}
