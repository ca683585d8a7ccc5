// Package hours decides whether the store is taking orders.
package hours

import (
	"math"
	"time"
)

const (
	DefaultClosingHour = 22
	DefaultWarnWithin  = 30 * time.Minute
)

// Gate is a closing-hour rule evaluated against local time.
type Gate struct {
	ClosingHour int
	WarnWithin  time.Duration
}

// Status is the result of evaluating a Gate at one instant.
type Status struct {
	Open              bool `json:"open"`
	MinutesUntilClose int  `json:"minutesUntilClose"`
	ClosingSoon       bool `json:"closingSoon"`
	ClosingHour       int  `json:"closingHour"`
}

// Evaluate reports whether orders are accepted at now. The store is open
// while the current hour is strictly before ClosingHour; minutes are counted
// in now's location.
func (g Gate) Evaluate(now time.Time) Status {
	warn := g.WarnWithin
	if warn <= 0 {
		warn = DefaultWarnWithin
	}
	st := Status{
		Open:        now.Hour() < g.ClosingHour,
		ClosingHour: g.ClosingHour,
	}
	if !st.Open {
		return st
	}
	closing := time.Date(now.Year(), now.Month(), now.Day(), g.ClosingHour, 0, 0, 0, now.Location())
	left := closing.Sub(now)
	// Partial minutes count as a whole one so an open store never reports 0.
	st.MinutesUntilClose = int(math.Ceil(left.Minutes()))
	st.ClosingSoon = left <= warn
	return st
}
