package insights

import (
	"fmt"
	"strings"
	"time"

	"github.com/cli2468/Vision-sub000/internal/calendar"
	"github.com/cli2468/Vision-sub000/internal/domain"
)

// Range selects how far back the daily chart reaches.
type Range string

const (
	Range7d  Range = "7d"
	Range30d Range = "30d"
	Range90d Range = "90d"
	RangeAll Range = "all"
)

const (
	minAllDays = 7
	maxAllDays = 365
)

func ParseRange(s string) (Range, error) {
	switch r := Range(strings.ToLower(strings.TrimSpace(s))); r {
	case Range7d, Range30d, Range90d, RangeAll:
		return r, nil
	case "":
		return Range30d, nil
	default:
		return "", fmt.Errorf("unknown range %q", s)
	}
}

// Bucket is one calendar day of activity.
type Bucket struct {
	Date    time.Time           `json:"date"`
	Key     string              `json:"key"`
	Label   string              `json:"label"`
	Revenue int64               `json:"revenue"`
	Profit  int64               `json:"profit"`
	Sales   []domain.SaleRecord `json:"sales"`
}

// Series is the chart-ready daily breakdown. The parallel slices share
// indexes with Buckets.
type Series struct {
	Range      Range    `json:"range"`
	Buckets    []Bucket `json:"buckets"`
	Labels     []string `json:"labels"`
	Revenue    []int64  `json:"revenue"`
	Profit     []int64  `json:"profit"`
	Cumulative []int64  `json:"cumulativeProfit"`

	index map[string]int
}

// Day returns the bucket for a YYYY-MM-DD key.
func (s Series) Day(key string) (Bucket, bool) {
	i, ok := s.index[key]
	if !ok {
		return Bucket{}, false
	}
	return s.Buckets[i], true
}

// At returns the bucket behind chart point i.
func (s Series) At(i int) (Bucket, bool) {
	if i < 0 || i >= len(s.Buckets) {
		return Bucket{}, false
	}
	return s.Buckets[i], true
}

// DailySeries buckets non-returned sales into local calendar days ending
// today. RangeAll starts at the earliest sale, clamped to 7..365 days.
func DailySeries(records []domain.SaleRecord, r Range, now time.Time, loc *time.Location) Series {
	if loc == nil {
		loc = time.Local
	}
	days := rangeDays(records, r, now, loc)
	start := calendar.AddDays(calendar.StartOfDay(now, loc), -(days - 1))

	s := Series{
		Range:      r,
		Buckets:    make([]Bucket, days),
		Labels:     make([]string, days),
		Revenue:    make([]int64, days),
		Profit:     make([]int64, days),
		Cumulative: make([]int64, days),
		index:      make(map[string]int, days),
	}
	for i := 0; i < days; i++ {
		day := calendar.AddDays(start, i)
		key := calendar.DayKey(day, loc)
		s.Buckets[i] = Bucket{Date: day, Key: key, Label: day.Format("Jan 2")}
		s.Labels[i] = s.Buckets[i].Label
		s.index[key] = i
	}

	for _, rec := range records {
		if rec.Sale == nil || rec.Sale.Returned {
			continue
		}
		i, ok := s.index[calendar.DayKey(rec.Sale.DateSold.OrEpoch(), loc)]
		if !ok {
			continue
		}
		b := &s.Buckets[i]
		b.Revenue += rec.Sale.TotalPrice
		b.Profit += rec.Sale.Profit
		b.Sales = append(b.Sales, rec)
	}

	var running int64
	for i := range s.Buckets {
		s.Revenue[i] = s.Buckets[i].Revenue
		s.Profit[i] = s.Buckets[i].Profit
		running += s.Buckets[i].Profit
		s.Cumulative[i] = running
	}
	return s
}

func rangeDays(records []domain.SaleRecord, r Range, now time.Time, loc *time.Location) int {
	switch r {
	case Range7d:
		return 7
	case Range90d:
		return 90
	case RangeAll:
	default:
		return 30
	}

	var earliest time.Time
	for _, rec := range records {
		if rec.Sale == nil || rec.Sale.Returned {
			continue
		}
		sold := rec.Sale.DateSold.OrEpoch()
		if earliest.IsZero() || sold.Before(earliest) {
			earliest = sold
		}
	}
	if earliest.IsZero() {
		return minAllDays
	}
	days := calendar.DaysBetween(earliest, now, loc) + 1
	return min(max(days, minAllDays), maxAllDays)
}
