package hours

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(hour, minute int) time.Time {
	return time.Date(2024, time.March, 9, hour, minute, 0, 0, time.Local)
}

func TestGate_Evaluate(t *testing.T) {
	gate := Gate{ClosingHour: 22, WarnWithin: 30 * time.Minute}

	cases := []struct {
		name    string
		now     time.Time
		open    bool
		minutes int
		soon    bool
	}{
		{"morning", at(9, 0), true, 13 * 60, false},
		{"just outside warning", at(21, 29), true, 31, false},
		{"warning window", at(21, 30), true, 30, true},
		{"last minute", at(21, 59), true, 1, true},
		{"last seconds", at(21, 59).Add(30 * time.Second), true, 1, true},
		{"partial minute rounds up", at(21, 29).Add(30 * time.Second), true, 31, false},
		{"closing hour", at(22, 0), false, 0, false},
		{"late night", at(23, 45), false, 0, false},
		{"after midnight", at(0, 15), true, 21*60 + 45, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := gate.Evaluate(tc.now)
			assert.Equal(t, tc.open, st.Open)
			assert.Equal(t, tc.minutes, st.MinutesUntilClose)
			assert.Equal(t, tc.soon, st.ClosingSoon)
		})
	}
}

func TestGate_DefaultWarnWindow(t *testing.T) {
	st := Gate{ClosingHour: 20}.Evaluate(at(19, 31))
	assert.True(t, st.ClosingSoon)
	st = Gate{ClosingHour: 20}.Evaluate(at(19, 29))
	assert.False(t, st.ClosingSoon)
}

func TestWatcher_PublishesAndStopsOnCancel(t *testing.T) {
	var mu sync.Mutex
	clock := at(21, 58)
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Minute)
		return clock
	}

	w := NewWatcher(Gate{ClosingHour: 22}, 5*time.Millisecond, now, zerolog.Nop())
	statuses := make(chan Status, 64)
	w.Subscribe(func(s Status) {
		select {
		case statuses <- s:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	first := <-statuses
	assert.True(t, first.Open)
	for {
		s := <-statuses
		if !s.Open {
			break
		}
	}
	assert.False(t, w.Status().Open)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		require.FailNow(t, "watcher did not stop after cancel")
	}
}
