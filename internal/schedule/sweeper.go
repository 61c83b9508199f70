// Package schedule runs the recurring reminder sweep: the only background
// behavior in the system. Each sweep walks the occurrences whose windows
// are near closing and fires the time-relative milestones that have been
// crossed but not yet recorded.
package schedule

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/notify"
	"coachpoint/checkin-app/internal/repository"
	"coachpoint/checkin-app/internal/service"
)

// Candidate horizon around "now". lookAhead covers the earliest milestone
// (closing_24h). lookBehind keeps closed windows in view well past the
// closed_2h mark: the fired-set check makes re-scanning them a no-op, and
// a sweep outage shorter than the look-behind still delivers the
// missed-check-in notice late instead of never.
const (
	lookAhead  = 24 * time.Hour
	lookBehind = 7 * 24 * time.Hour
)

// Sweeper periodically evaluates reminder milestones for check-in
// occurrences. Sends are at-least-once: a milestone is dispatched first
// and recorded after, and the fired-set check makes re-runs and
// overlapping sweeps idempotent without a lock.
type Sweeper struct {
	seriesRepo     repository.SeriesRepository
	assignmentRepo repository.AssignmentRepository
	userRepo       repository.UserRepository
	notifier       notify.Notifier
	precreated     bool
	interval       time.Duration
	itemTimeout    time.Duration
	now            func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
}

// NewSweeper creates a sweeper. precreated mirrors the materialization
// toggle: with it off the sweep also evaluates virtual computed weeks that
// have no stored document yet.
func NewSweeper(
	seriesRepo repository.SeriesRepository,
	assignmentRepo repository.AssignmentRepository,
	userRepo repository.UserRepository,
	notifier notify.Notifier,
	precreated bool,
	interval, itemTimeout time.Duration,
) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if itemTimeout <= 0 {
		itemTimeout = 10 * time.Second
	}
	return &Sweeper{
		seriesRepo:     seriesRepo,
		assignmentRepo: assignmentRepo,
		userRepo:       userRepo,
		notifier:       notifier,
		precreated:     precreated,
		interval:       interval,
		itemTimeout:    itemTimeout,
		now:            time.Now,
	}
}

// Start launches the sweep loop in its own goroutine. Repeated calls are
// no-ops; a stopped sweeper can be started again.
func (s *Sweeper) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	go s.run(stopCh)
}

// Stop halts the sweep loop. An in-flight sweep finishes its current item.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	close(s.stopCh)
	s.running = false
}

func (s *Sweeper) run(stopCh <-chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Initial sweep immediately so a restart does not wait a full interval.
	s.SweepOnce(context.Background())

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.SweepOnce(context.Background())
		}
	}
}

// SweepOnce runs a single sweep pass. Each occurrence is its own unit of
// work: one failing dispatch is logged and skipped, never aborting the
// pass for other occurrences.
func (s *Sweeper) SweepOnce(ctx context.Context) {
	now := s.now().UTC()
	seen := make(map[string]bool)

	// Stored occurrences near closing: one-offs, pre-created weeks, and
	// promoted computed weeks.
	stored, err := s.assignmentRepo.ListClosingBetween(ctx, now.Add(-lookBehind), now.Add(lookAhead))
	if err != nil {
		slog.Error("sweep: listing stored occurrences failed", "error", err)
	}
	for i := range stored {
		a := &stored[i]
		seen[a.ID] = true
		window, ok := s.windowFor(ctx, a)
		if !ok {
			continue
		}
		s.sweepItem(ctx, a, window, now)
	}

	// Virtual computed weeks: with pre-creation off, the current and
	// previous week of every active series may exist only as configuration.
	if !s.precreated {
		s.sweepVirtual(ctx, now, seen)
	}
}

func (s *Sweeper) sweepVirtual(ctx context.Context, now time.Time, seen map[string]bool) {
	seriesList, err := s.seriesRepo.ListUnpaused(ctx)
	if err != nil {
		slog.Error("sweep: listing series failed", "error", err)
		return
	}

	for i := range seriesList {
		series := &seriesList[i]
		week, started := series.WeekAt(now)
		if !started {
			continue
		}
		// The previous week's closed_2h milestone can still be pending
		// when the current week has already begun.
		first := week - 1
		if first < 1 {
			first = 1
		}
		for n := first; n <= week; n++ {
			ref := domain.OccurrenceRef{SeriesID: series.ID, Week: n}
			if seen[ref.ID()] {
				continue
			}
			seen[ref.ID()] = true

			occurrence := s.loadOrMaterialize(ctx, series, n, now)
			if occurrence == nil {
				continue
			}
			s.sweepItem(ctx, occurrence, series.WindowFor(n), now)
		}
	}
}

// loadOrMaterialize prefers the stored document for a week (it carries the
// authoritative fired set and submission state) and falls back to a
// virtual occurrence built from the series configuration.
func (s *Sweeper) loadOrMaterialize(ctx context.Context, series *domain.CheckInSeries, week int, now time.Time) *domain.CheckInAssignment {
	ref := domain.OccurrenceRef{SeriesID: series.ID, Week: week}
	stored, err := s.assignmentRepo.GetByID(ctx, ref.ID())
	if err == nil {
		return stored
	}
	if !errors.Is(err, repository.ErrNotFound) {
		slog.Error("sweep: loading occurrence failed", "occurrence", ref.ID(), "error", err)
		return nil
	}
	occ := service.NewWeekOccurrence(series, week, now)
	return &occ
}

// windowFor resolves the submission window to evaluate a stored occurrence
// against. In computed mode a recurring occurrence's close time is derived
// from the live series configuration, never the stored copy.
func (s *Sweeper) windowFor(ctx context.Context, a *domain.CheckInAssignment) (domain.Window, bool) {
	if !a.IsRecurring() || s.precreated {
		return a.Window(), true
	}
	series, err := s.seriesRepo.GetByID(ctx, *a.SeriesID)
	if err != nil {
		// Dangling series reference; skip the occurrence, not the sweep.
		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("sweep: loading series failed", "series", a.SeriesID.Hex(), "error", err)
		}
		return domain.Window{}, false
	}
	if series.Paused {
		return domain.Window{}, false
	}
	return domain.ComputeWindow(a.OpensAt, series.WindowDuration), true
}

// sweepItem checks and fires the due milestones of a single occurrence
// under a bounded per-item timeout.
func (s *Sweeper) sweepItem(ctx context.Context, a *domain.CheckInAssignment, w domain.Window, now time.Time) {
	if a.Submitted() || a.Status == domain.StatusClosed {
		return
	}

	due := milestonesDue(w, now)
	pending := due[:0]
	for _, m := range due {
		if !a.MilestoneFired(m) {
			pending = append(pending, m)
		}
	}
	if len(pending) == 0 {
		return
	}

	itemCtx, cancel := context.WithTimeout(ctx, s.itemTimeout)
	defer cancel()

	client, err := s.userRepo.GetByID(itemCtx, a.ClientID)
	if err != nil {
		slog.Error("sweep: loading client failed", "occurrence", a.ID, "error", err)
		return
	}

	for _, m := range pending {
		n := notify.Notification{
			Milestone:    m,
			AssignmentID: a.ID,
			Recipient:    client.Email,
			ClientName:   client.Name,
			OpensAt:      w.OpensAt,
			ClosesAt:     w.ClosesAt,
		}
		// Fire then record. An unrecorded send may repeat next sweep;
		// a recorded non-send would silently drop the reminder.
		if err := s.notifier.Send(itemCtx, n); err != nil {
			slog.Error("sweep: dispatch failed, will retry next sweep",
				"occurrence", a.ID, "milestone", m, "error", err)
			continue
		}
		if err := s.assignmentRepo.RecordMilestone(itemCtx, a, m); err != nil {
			slog.Error("sweep: recording milestone failed",
				"occurrence", a.ID, "milestone", m, "error", err)
			continue
		}
		a.MilestonesFired = append(a.MilestonesFired, m)
	}
}

// milestonesDue returns the milestones whose wall-clock threshold has been
// crossed at now. The closing reminders are pointless once the window has
// closed and are dropped rather than sent late; the closed notice waits
// for the 2h mark.
func milestonesDue(w domain.Window, now time.Time) []domain.Milestone {
	var due []domain.Milestone
	if w.Classify(now) == domain.WindowClosed {
		if !now.Before(w.ClosesAt.Add(2 * time.Hour)) {
			due = append(due, domain.MilestoneClosed2h)
		}
		return due
	}
	if !now.Before(w.ClosesAt.Add(-24 * time.Hour)) {
		due = append(due, domain.MilestoneClosing24h)
	}
	if !now.Before(w.ClosesAt.Add(-time.Hour)) {
		due = append(due, domain.MilestoneClosing1h)
	}
	return due
}
