package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/wadjakorntonsri/linkstats/pkg/core/domain"
)

// DefaultRangeDays is how far back an analytics query reaches when no from is given.
const DefaultRangeDays = 30

const dateOnly = "2006-01-02"

// Accepted ISO-8601 forms. Values without an offset are read as UTC.
var boundLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseBound parses an optional range bound named field. An empty value yields nil.
// A date-only value is the start of that UTC day, or its last millisecond when
// endOfDay is set.
func ParseBound(field, value string, endOfDay bool) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	if d, err := time.Parse(dateOnly, value); err == nil {
		if endOfDay {
			d = lastInstantOfDay(d)
		}
		return &d, nil
	}
	for _, layout := range boundLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, domain.NewValidationError(field, "expected an ISO-8601 date or datetime, got %q", value)
}

// NormalizeRange resolves optional bounds into a concrete inclusive UTC range.
// A missing to is the end of the current UTC day; a missing from is midnight UTC
// DefaultRangeDays days before now.
func NormalizeRange(now time.Time, from, to *time.Time) (domain.DateRange, error) {
	now = now.UTC()

	r := domain.DateRange{
		From: startOfDay(now.AddDate(0, 0, -DefaultRangeDays)),
		To:   lastInstantOfDay(now),
	}
	if from != nil {
		r.From = from.UTC()
	}
	if to != nil {
		r.To = to.UTC()
	}

	if r.From.After(r.To) {
		return domain.DateRange{}, fmt.Errorf("%w: from %s is after to %s", domain.ErrInvalidRange,
			r.From.Format(time.RFC3339Nano), r.To.Format(time.RFC3339Nano))
	}
	return r, nil
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func lastInstantOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), time.UTC)
}
