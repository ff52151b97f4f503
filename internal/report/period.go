package report

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidRange = errors.New("invalid date range")

// Range names a reporting window
type Range string

const (
	RangeAll    Range = "all"
	RangeToday  Range = "today"
	RangeWeek   Range = "week"
	RangeMonth  Range = "month"
	RangeCustom Range = "custom"
)

const dateLayout = "2006-01-02"

// Period is the half-open window [From, To). A zero Period matches everything.
type Period struct {
	Range Range     `json:"range"`
	From  time.Time `json:"from,omitempty"`
	To    time.Time `json:"to,omitempty"`
}

// NewPeriod resolves a range against now. Week is the last seven days including today,
// month is the current calendar month, custom takes inclusive YYYY-MM-DD dates.
func NewPeriod(r Range, from, to string, now time.Time) (Period, error) {
	r = Range(strings.ToLower(strings.TrimSpace(string(r))))
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := midnight.AddDate(0, 0, 1)

	switch r {
	case "", RangeAll:
		return Period{Range: RangeAll}, nil
	case RangeToday:
		return Period{Range: r, From: midnight, To: tomorrow}, nil
	case RangeWeek:
		return Period{Range: r, From: midnight.AddDate(0, 0, -6), To: tomorrow}, nil
	case RangeMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Period{Range: r, From: first, To: first.AddDate(0, 1, 0)}, nil
	case RangeCustom:
		p := Period{Range: r}
		if from != "" {
			t, err := time.ParseInLocation(dateLayout, from, now.Location())
			if err != nil {
				return Period{}, fmt.Errorf("%w: from %q", ErrInvalidRange, from)
			}
			p.From = t
		}
		if to != "" {
			t, err := time.ParseInLocation(dateLayout, to, now.Location())
			if err != nil {
				return Period{}, fmt.Errorf("%w: to %q", ErrInvalidRange, to)
			}
			p.To = t.AddDate(0, 0, 1)
		}
		if !p.From.IsZero() && !p.To.IsZero() && !p.From.Before(p.To) {
			return Period{}, fmt.Errorf("%w: from is after to", ErrInvalidRange)
		}
		return p, nil
	}
	return Period{}, fmt.Errorf("%w: %q", ErrInvalidRange, r)
}

func (p Period) Contains(t time.Time) bool {
	if !p.From.IsZero() && t.Before(p.From) {
		return false
	}
	if !p.To.IsZero() && !t.Before(p.To) {
		return false
	}
	return true
}
