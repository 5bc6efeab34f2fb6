package money

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	gomoney "github.com/Rhymond/go-money"
)

// Placeholder is rendered for missing or unreadable values.
const Placeholder = "—"

// Formatter renders cents in one currency.
type Formatter struct {
	code string
}

func NewFormatter(code string) Formatter {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = gomoney.USD
	}
	return Formatter{code: code}
}

// Format renders -150 as "-$1.50": the minus sits outside the symbol.
func (f Formatter) Format(cents int64) string {
	if cents < 0 {
		return "-" + f.abs(cents)
	}
	return f.abs(cents)
}

// FormatSigned is Format with a leading "+" on positive values.
func (f Formatter) FormatSigned(cents int64) string {
	if cents > 0 {
		return "+" + f.abs(cents)
	}
	return f.Format(cents)
}

// FormatValue accepts loosely typed input (decoded JSON, form values) and
// never fails: nil, NaN and non-numeric values render as Placeholder.
func (f Formatter) FormatValue(v any, signed bool) string {
	cents, ok := looseCents(v)
	if !ok {
		return Placeholder
	}
	if signed {
		return f.FormatSigned(cents)
	}
	return f.Format(cents)
}

func (f Formatter) abs(cents int64) string {
	if cents < 0 {
		cents = -cents
	}
	return gomoney.New(cents, f.code).Display()
}

func looseCents(v any) (int64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case *int64:
		if n == nil {
			return 0, false
		}
		return *n, true
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return int64(math.Floor(n + 0.5)), true
	case string:
		d := strings.TrimSpace(n)
		if d == "" {
			return 0, false
		}
		var f float64
		if err := json.Unmarshal([]byte(d), &f); err != nil {
			return 0, false
		}
		return looseCents(f)
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// FormatDate renders t as "Jan 2, 2006" in loc; the zero time is Placeholder.
func FormatDate(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return Placeholder
	}
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("Jan 2, 2006")
}
