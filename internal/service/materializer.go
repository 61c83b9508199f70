package service

import (
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/repository"
)

// MaterializationStrategy turns series configuration into the concrete
// occurrence list a client should see "now". Two implementations exist
// behind the features.precreate_assignments toggle: one trusts pre-created
// documents, one computes virtual weeks on demand. Selected once at
// startup; flipping the toggle changes which records a read trusts first,
// never the stored data itself.
type MaterializationStrategy interface {
	ListForClient(ctx context.Context, clientID primitive.ObjectID, asOf time.Time) ([]domain.CheckInAssignment, error)
}

// NewMaterializer selects the strategy for the precreated toggle.
func NewMaterializer(precreated bool, seriesRepo repository.SeriesRepository, assignmentRepo repository.AssignmentRepository) MaterializationStrategy {
	if precreated {
		return &storedMaterializer{assignmentRepo: assignmentRepo}
	}
	return &computedMaterializer{seriesRepo: seriesRepo, assignmentRepo: assignmentRepo}
}

// NewWeekOccurrence builds the virtual occurrence for week N of a series
// from the live configuration. The id is canonical from birth; the record
// is not persisted until the client interacts with it.
func NewWeekOccurrence(series *domain.CheckInSeries, week int, asOf time.Time) domain.CheckInAssignment {
	w := series.WindowFor(week)
	wk := week
	sid := series.ID
	return domain.CheckInAssignment{
		ID:       domain.OccurrenceRef{SeriesID: series.ID, Week: week}.ID(),
		SeriesID: &sid,
		Week:     &wk,
		CoachID:  series.CoachID,
		ClientID: series.ClientID,
		FormID:   series.FormID,
		OpensAt:  w.OpensAt,
		ClosesAt: w.ClosesAt,
		Status:   domain.StatusAt(w, asOf, false),
	}
}

// --- Pre-created mode ---

// storedMaterializer reads pre-created occurrence documents only. No
// virtual weeks are computed; an explicit write is the source of truth.
type storedMaterializer struct {
	assignmentRepo repository.AssignmentRepository
}

func (m *storedMaterializer) ListForClient(ctx context.Context, clientID primitive.ObjectID, asOf time.Time) ([]domain.CheckInAssignment, error) {
	assignments, err := m.assignmentRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	// Status is still presented relative to now; the stored window is
	// trusted as written in this mode.
	for i := range assignments {
		a := &assignments[i]
		if a.Status == domain.StatusSubmitted || a.Status == domain.StatusClosed {
			continue
		}
		a.Status = domain.StatusAt(a.Window(), asOf, false)
	}
	sortOccurrences(assignments)
	return assignments, nil
}

// --- Computed mode (default) ---

// computedMaterializer derives week-N occurrences from series
// configuration at read time and merges in whatever has actually been
// persisted. Stored documents win over computed views of the same
// canonical id.
type computedMaterializer struct {
	seriesRepo     repository.SeriesRepository
	assignmentRepo repository.AssignmentRepository
}

func (m *computedMaterializer) ListForClient(ctx context.Context, clientID primitive.ObjectID, asOf time.Time) ([]domain.CheckInAssignment, error) {
	stored, err := m.assignmentRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	seriesList, err := m.seriesRepo.GetByClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}

	seriesByID := make(map[primitive.ObjectID]*domain.CheckInSeries, len(seriesList))
	for i := range seriesList {
		seriesByID[seriesList[i].ID] = &seriesList[i]
	}

	var out []domain.CheckInAssignment
	seen := make(map[string]bool, len(stored))

	// Stored documents first: they win over computed views. A recurring
	// document whose series is gone or reassigned is a dangling reference;
	// it is omitted rather than failing the whole list.
	for i := range stored {
		a := stored[i]
		seen[a.ID] = true
		if a.IsRecurring() {
			series, ok := seriesByID[*a.SeriesID]
			if !ok || series.ClientID != clientID {
				continue
			}
			// Windows are derived in this mode: the stored open time is
			// authoritative (explicit write), the close time is recomputed
			// from the live configuration so a retroactive window edit is
			// honored.
			a.ClosesAt = domain.ComputeWindow(a.OpensAt, series.WindowDuration).ClosesAt
		}
		if a.Status != domain.StatusSubmitted && a.Status != domain.StatusClosed {
			a.Status = domain.StatusAt(a.Window(), asOf, false)
		}
		out = append(out, a)
	}

	// Now synthesize weeks 1..current for each of the client's own active
	// series. Prior weeks whose window has passed without a persisted
	// response surface as missed.
	for i := range seriesList {
		series := &seriesList[i]
		if series.ClientID != clientID || series.Paused {
			continue
		}
		week, started := series.WeekAt(asOf)
		if !started {
			// Week 1 exists from series creation even before its window
			// opens; it just shows as scheduled.
			week = 1
		}
		for n := 1; n <= week; n++ {
			occ := NewWeekOccurrence(series, n, asOf)
			if seen[occ.ID] {
				continue
			}
			seen[occ.ID] = true
			out = append(out, occ)
		}
	}

	sortOccurrences(out)
	return out, nil
}

func sortOccurrences(assignments []domain.CheckInAssignment) {
	sort.Slice(assignments, func(i, j int) bool {
		if !assignments[i].OpensAt.Equal(assignments[j].OpensAt) {
			return assignments[i].OpensAt.Before(assignments[j].OpensAt)
		}
		return assignments[i].ID < assignments[j].ID
	})
}
