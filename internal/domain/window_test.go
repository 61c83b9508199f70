package domain

import (
	"testing"
	"time"
)

func TestWindowClassify(t *testing.T) {
	opens := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC) // Monday 9:00
	w := ComputeWindow(opens, 48*time.Hour)

	if !w.ClosesAt.Equal(opens.Add(48 * time.Hour)) {
		t.Fatalf("ClosesAt = %v, want open + 48h", w.ClosesAt)
	}

	tests := []struct {
		name string
		now  time.Time
		want WindowState
	}{
		{name: "before open", now: opens.Add(-time.Minute), want: WindowNotYetOpen},
		{name: "at open", now: opens, want: WindowOpen},
		{name: "mid window", now: opens.Add(12 * time.Hour), want: WindowOpen},
		{name: "just before 24h lead", now: w.ClosesAt.Add(-24*time.Hour - time.Second), want: WindowOpen},
		{name: "at 24h lead", now: w.ClosesAt.Add(-24 * time.Hour), want: WindowClosingSoon},
		{name: "1h before close", now: w.ClosesAt.Add(-time.Hour), want: WindowClosingSoon},
		{name: "1ns before close", now: w.ClosesAt.Add(-time.Nanosecond), want: WindowClosingSoon},
		{name: "at close", now: w.ClosesAt, want: WindowClosingSoon},
		{name: "1ns after close", now: w.ClosesAt.Add(time.Nanosecond), want: WindowClosed},
		{name: "well after close", now: w.ClosesAt.Add(3 * time.Hour), want: WindowClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := w.Classify(tt.now); got != tt.want {
				t.Errorf("Classify(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestWindowCloseBoundary(t *testing.T) {
	w := ComputeWindow(time.Unix(0, 0).UTC(), 48*time.Hour)
	if got := w.Classify(w.ClosesAt.Add(-time.Nanosecond)); got == WindowClosed {
		t.Errorf("1ns before close classified closed")
	}
	if got := w.Classify(w.ClosesAt.Add(time.Nanosecond)); got != WindowClosed {
		t.Errorf("1ns after close = %v, want closed", got)
	}
}

func TestStatusAt(t *testing.T) {
	opens := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	w := ComputeWindow(opens, 48*time.Hour)

	tests := []struct {
		name      string
		now       time.Time
		submitted bool
		want      AssignmentStatus
	}{
		{name: "scheduled before open", now: opens.Add(-time.Hour), want: StatusScheduled},
		{name: "open mid window", now: opens.Add(time.Hour), want: StatusOpen},
		{name: "closing soon still open", now: w.ClosesAt.Add(-time.Hour), want: StatusOpen},
		{name: "missed after close", now: w.ClosesAt.Add(time.Hour), want: StatusMissed},
		{name: "submitted wins over window", now: w.ClosesAt.Add(time.Hour), submitted: true, want: StatusSubmitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StatusAt(w, tt.now, tt.submitted); got != tt.want {
				t.Errorf("StatusAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSeriesWeekAt(t *testing.T) {
	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	five := 5
	bounded := &CheckInSeries{Cadence: CadenceWeekly, StartAt: start, TotalWeeks: &five}
	indefinite := &CheckInSeries{Cadence: CadenceWeekly, StartAt: start}

	tests := []struct {
		name   string
		series *CheckInSeries
		at     time.Time
		want   int
		ok     bool
	}{
		{name: "before start", series: indefinite, at: start.Add(-time.Second), want: 0, ok: false},
		{name: "at start", series: indefinite, at: start, want: 1, ok: true},
		{name: "day 6", series: indefinite, at: start.AddDate(0, 0, 6), want: 1, ok: true},
		{name: "day 7 exactly", series: indefinite, at: start.AddDate(0, 0, 7), want: 2, ok: true},
		{name: "day 15", series: indefinite, at: start.AddDate(0, 0, 15), want: 3, ok: true},
		{name: "day 21 exactly", series: indefinite, at: start.AddDate(0, 0, 21), want: 4, ok: true},
		{name: "bounded clamps", series: bounded, at: start.AddDate(0, 0, 49), want: 5, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.series.WeekAt(tt.at)
			if got != tt.want || ok != tt.ok {
				t.Errorf("WeekAt(%v) = (%d, %v), want (%d, %v)", tt.at, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestSeriesActive(t *testing.T) {
	start := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	two := 2
	s := &CheckInSeries{
		Cadence:        CadenceWeekly,
		StartAt:        start,
		WindowDuration: 48 * time.Hour,
		TotalWeeks:     &two,
	}

	if !s.Active(start.AddDate(0, 0, 8)) {
		t.Error("series inactive during week 2")
	}
	// Week 2 opens at day 7, closes at day 9; after that the series is spent.
	if s.Active(start.AddDate(0, 0, 10)) {
		t.Error("series still active after final window closed")
	}
	s.Paused = true
	if s.Active(start) {
		t.Error("paused series reported active")
	}
}
