package u

import (
	"fmt"
	"strings"
	"time"
)

// FormatSize formats a number in a human-readable form e.g. 1.24 kB
func FormatSize(n int64) string {
	sizes := []int64{1024 * 1024 * 1024, 1024 * 1024, 1024}
	suffixes := []string{"GB", "MB", "kB"}
	for i, size := range sizes {
		if n >= size {
			s := fmt.Sprintf("%.2f", float64(n)/float64(size))
			return strings.TrimSuffix(s, ".00") + " " + suffixes[i]
		}
	}
	return fmt.Sprintf("%d bytes", n)
}

// Pair holds two values of possibly different types
type Pair[A, B any] struct {
	First  A
	Second B
}

func NewPair[A, B any](first A, second B) Pair[A, B] {
	return Pair[A, B]{First: first, Second: second}
}

func (p Pair[A, B]) String() string {
	return fmt.Sprintf("%v, %v", p.First, p.Second)
}

func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// IsInPeriod returns true if the date of t is between the dates
// of start and end, inclusive. Time of day is ignored.
// A date equal to start or end is in the period even if end is before start.
func IsInPeriod(t, start, end time.Time) bool {
	d, s, e := dateOf(t), dateOf(start), dateOf(end)
	if d.Equal(s) || d.Equal(e) {
		return true
	}
	return d.After(s) && d.Before(e)
}
