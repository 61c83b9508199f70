package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coachpoint/checkin-app/internal/domain"
)

func newTestSeries(clientID primitive.ObjectID, startAt time.Time, window time.Duration) *domain.CheckInSeries {
	return &domain.CheckInSeries{
		ID:             primitive.NewObjectID(),
		CoachID:        primitive.NewObjectID(),
		ClientID:       clientID,
		FormID:         primitive.NewObjectID(),
		Cadence:        domain.CadenceWeekly,
		WindowDuration: window,
		StartAt:        startAt,
	}
}

func TestComputedMaterializerWeekProgression(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clientID := primitive.NewObjectID()
	seriesRepo := newFakeSeriesRepo()
	assignmentRepo := newFakeAssignmentRepo()
	series := newTestSeries(clientID, start, 48*time.Hour)
	seriesRepo.series[series.ID] = series

	m := NewMaterializer(false, seriesRepo, assignmentRepo)

	// Day 15 falls in week 3.
	occurrences, err := m.ListForClient(context.Background(), clientID, start.Add(15*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, occurrences, 3)

	// Sorted by open time: weeks 1 and 2 closed unanswered, week 3 open.
	assert.Equal(t, domain.StatusMissed, occurrences[0].Status)
	assert.Equal(t, domain.StatusMissed, occurrences[1].Status)
	assert.Equal(t, domain.StatusOpen, occurrences[2].Status)
	assert.Equal(t, 3, *occurrences[2].Week)
	assert.Equal(t, domain.OccurrenceRef{SeriesID: series.ID, Week: 3}.ID(), occurrences[2].ID)

	// Day 21 starts week 4.
	occurrences, err = m.ListForClient(context.Background(), clientID, start.Add(21*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, occurrences, 4)
	assert.Equal(t, 4, *occurrences[3].Week)
}

func TestComputedMaterializerBeforeStart(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clientID := primitive.NewObjectID()
	seriesRepo := newFakeSeriesRepo()
	series := newTestSeries(clientID, start, 48*time.Hour)
	seriesRepo.series[series.ID] = series

	m := NewMaterializer(false, seriesRepo, newFakeAssignmentRepo())

	// Week 1 is visible as scheduled before its window opens.
	occurrences, err := m.ListForClient(context.Background(), clientID, start.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, domain.StatusScheduled, occurrences[0].Status)
	assert.Equal(t, 1, *occurrences[0].Week)
}

func TestComputedMaterializerStoredWins(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clientID := primitive.NewObjectID()
	seriesRepo := newFakeSeriesRepo()
	assignmentRepo := newFakeAssignmentRepo()
	series := newTestSeries(clientID, start, 48*time.Hour)
	seriesRepo.series[series.ID] = series

	// Week 1 has been persisted with a response.
	week := 1
	responseID := primitive.NewObjectID()
	stored := NewWeekOccurrence(series, week, start)
	stored.Status = domain.StatusSubmitted
	stored.ResponseID = &responseID
	require.NoError(t, assignmentRepo.Create(context.Background(), &stored))

	m := NewMaterializer(false, seriesRepo, assignmentRepo)
	occurrences, err := m.ListForClient(context.Background(), clientID, start.Add(8*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, occurrences, 2)

	// The stored week 1 shadows the computed one and keeps its response.
	assert.Equal(t, domain.StatusSubmitted, occurrences[0].Status)
	require.NotNil(t, occurrences[0].ResponseID)
	assert.Equal(t, responseID, *occurrences[0].ResponseID)
	assert.Equal(t, domain.StatusOpen, occurrences[1].Status)
}

func TestComputedMaterializerRetroactiveWindowEdit(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clientID := primitive.NewObjectID()
	seriesRepo := newFakeSeriesRepo()
	assignmentRepo := newFakeAssignmentRepo()
	series := newTestSeries(clientID, start, 48*time.Hour)
	seriesRepo.series[series.ID] = series

	stored := NewWeekOccurrence(series, 1, start)
	require.NoError(t, assignmentRepo.Create(context.Background(), &stored))

	// The coach widens the window after the document was written.
	series.WindowDuration = 72 * time.Hour

	m := NewMaterializer(false, seriesRepo, assignmentRepo)
	occurrences, err := m.ListForClient(context.Background(), clientID, start.Add(time.Hour))
	require.NoError(t, err)
	require.NotEmpty(t, occurrences)
	assert.Equal(t, start.Add(72*time.Hour), occurrences[0].ClosesAt,
		"close time follows the live configuration, not the stored copy")
}

func TestComputedMaterializerOmitsDanglingSeries(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clientID := primitive.NewObjectID()
	assignmentRepo := newFakeAssignmentRepo()

	// A stored occurrence whose series no longer exists.
	orphan := newTestSeries(clientID, start, 48*time.Hour)
	stored := NewWeekOccurrence(orphan, 1, start)
	require.NoError(t, assignmentRepo.Create(context.Background(), &stored))

	m := NewMaterializer(false, newFakeSeriesRepo(), assignmentRepo)
	occurrences, err := m.ListForClient(context.Background(), clientID, start.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, occurrences, "dangling references are omitted, not errors")
}

func TestStoredMaterializerUsesDocumentsOnly(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	clientID := primitive.NewObjectID()
	seriesRepo := newFakeSeriesRepo()
	assignmentRepo := newFakeAssignmentRepo()
	series := newTestSeries(clientID, start, 48*time.Hour)
	seriesRepo.series[series.ID] = series

	stored := NewWeekOccurrence(series, 1, start)
	require.NoError(t, assignmentRepo.Create(context.Background(), &stored))

	m := NewMaterializer(true, seriesRepo, assignmentRepo)

	// Week 2's time has come but no document exists: pre-created mode
	// does not synthesize it.
	occurrences, err := m.ListForClient(context.Background(), clientID, start.Add(8*24*time.Hour))
	require.NoError(t, err)
	require.Len(t, occurrences, 1)
	assert.Equal(t, domain.StatusMissed, occurrences[0].Status)
}
