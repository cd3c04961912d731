package domain

import (
	"errors"
	"fmt"
	"time"
)

// DateRange represents an inclusive-start, exclusive-end span of time, used
// for pricing rule validity windows.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange creates a new DateRange value object.
func NewDateRange(start, end time.Time) (DateRange, error) {
	if end.Before(start) {
		return DateRange{}, errors.New("date range end cannot be before start")
	}
	return DateRange{start: start, end: end}, nil
}

// Start returns the range's start instant.
func (dr DateRange) Start() time.Time { return dr.start }

// End returns the range's end instant.
func (dr DateRange) End() time.Time { return dr.end }

// Contains reports whether t falls within [start, end).
func (dr DateRange) Contains(t time.Time) bool {
	return !t.Before(dr.start) && t.Before(dr.end)
}

// Overlaps reports whether dr and other share any instant.
func (dr DateRange) Overlaps(other DateRange) bool {
	return dr.start.Before(other.end) && dr.end.After(other.start)
}

// String implements fmt.Stringer.
func (dr DateRange) String() string {
	return fmt.Sprintf("%s to %s", dr.start.Format(time.RFC3339), dr.end.Format(time.RFC3339))
}

// Percentage is a bounded [0, 100] value used for discount/score weights.
type Percentage struct {
	value float64
}

// NewPercentage creates a Percentage, rejecting values outside [0, 100].
func NewPercentage(value float64) (Percentage, error) {
	if value < 0 || value > 100 {
		return Percentage{}, fmt.Errorf("percentage must be between 0 and 100, got %.4f", value)
	}
	return Percentage{value: value}, nil
}

// Value returns the raw 0-100 value.
func (p Percentage) Value() float64 { return p.value }

// AsFraction returns the value as a 0.0-1.0 fraction.
func (p Percentage) AsFraction() float64 { return p.value / 100.0 }

// String implements fmt.Stringer.
func (p Percentage) String() string { return fmt.Sprintf("%.2f%%", p.value) }
