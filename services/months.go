package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/aj9599/rent-ledger/backend/models"
)

// monthLayout renders tokens like "August 24".
const monthLayout = "January 06"

const (
	DefaultFirstMonth = "August 24"
	DefaultLastMonth  = "December 27"
)

// MonthSequence is the fixed, ordered catalog of billing months. Order comes
// from catalog position only.
type MonthSequence struct {
	months []string
	index  map[string]int
}

// NewMonthSequence enumerates every calendar month from first to last inclusive.
func NewMonthSequence(first, last string) (*MonthSequence, error) {
	start, err := ParseMonth(first)
	if err != nil {
		return nil, err
	}
	end, err := ParseMonth(last)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: catalog ends (%s) before it starts (%s)", models.ErrValidation, last, first)
	}

	seq := &MonthSequence{index: map[string]int{}}
	for t := start; !t.After(end); t = t.AddDate(0, 1, 0) {
		token := t.Format(monthLayout)
		seq.index[token] = len(seq.months)
		seq.months = append(seq.months, token)
	}
	return seq, nil
}

// ParseMonth checks a "<MonthName> <YY>" token and returns the first day of that month.
func ParseMonth(token string) (time.Time, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(token))
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: malformed month %q", models.ErrValidation, token)
	}
	return t, nil
}

// CurrentMonth is the catalog token for the month containing now.
func CurrentMonth(now time.Time) string {
	return now.Format(monthLayout)
}

func (s *MonthSequence) Index(month string) (int, bool) {
	i, ok := s.index[month]
	return i, ok
}

func (s *MonthSequence) Contains(month string) bool {
	_, ok := s.index[month]
	return ok
}

// Next returns the month after month; false when month is last or unknown.
func (s *MonthSequence) Next(month string) (string, bool) {
	i, ok := s.index[month]
	if !ok || i+1 >= len(s.months) {
		return "", false
	}
	return s.months[i+1], true
}

// Prev returns the month before month; false when month is first or unknown.
func (s *MonthSequence) Prev(month string) (string, bool) {
	i, ok := s.index[month]
	if !ok || i == 0 {
		return "", false
	}
	return s.months[i-1], true
}

// Compare orders by catalog index. Unknown months sort after every known
// month and compare equal to each other.
func (s *MonthSequence) Compare(a, b string) int {
	ia, okA := s.index[a]
	ib, okB := s.index[b]
	switch {
	case !okA && !okB:
		return 0
	case !okA:
		return 1
	case !okB:
		return -1
	case ia < ib:
		return -1
	case ia > ib:
		return 1
	}
	return 0
}

// IsFuture reports whether month comes after reference. Months missing from
// the catalog are never future, and neither is anything compared to an
// unknown reference.
func (s *MonthSequence) IsFuture(month, reference string) bool {
	i, ok := s.index[month]
	if !ok {
		return false
	}
	r, ok := s.index[reference]
	if !ok {
		return false
	}
	return i > r
}

func (s *MonthSequence) First() string { return s.months[0] }

func (s *MonthSequence) Last() string { return s.months[len(s.months)-1] }

func (s *MonthSequence) Len() int { return len(s.months) }

func (s *MonthSequence) Months() []string {
	out := make([]string, len(s.months))
	copy(out, s.months)
	return out
}
