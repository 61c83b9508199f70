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

type clientServiceFixture struct {
	svc         *clientService
	seriesRepo  *fakeSeriesRepo
	assignments *fakeAssignmentRepo
	responses   *fakeResponseRepo
	clientID    primitive.ObjectID
}

func newClientServiceFixture(t *testing.T, precreated bool) *clientServiceFixture {
	t.Helper()
	f := &clientServiceFixture{
		seriesRepo:  newFakeSeriesRepo(),
		assignments: newFakeAssignmentRepo(),
		responses:   newFakeResponseRepo(),
		clientID:    primitive.NewObjectID(),
	}
	materializer := NewMaterializer(precreated, f.seriesRepo, f.assignments)
	f.svc = NewClientService(materializer, f.seriesRepo, f.assignments, f.responses, fakeFileStorage{}, precreated).(*clientService)
	return f
}

func (f *clientServiceFixture) at(t time.Time) {
	f.svc.now = func() time.Time { return t }
}

func TestSubmitCheckInPromotesVirtualOccurrence(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 1}.ID()
	f.at(start.Add(5 * time.Hour))

	response, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, id,
		map[string]string{"mood": "great"}, nil)
	require.NoError(t, err)
	assert.Equal(t, id, response.AssignmentID)
	assert.NotEqual(t, primitive.NilObjectID, response.ID)

	// The occurrence document exists before the response references it.
	stored, err := f.assignments.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSubmitted, stored.Status)
	require.NotNil(t, stored.ResponseID)
	assert.Equal(t, response.ID, *stored.ResponseID)
	assert.Equal(t, series.ID, *stored.SeriesID)
	assert.Equal(t, 1, *stored.Week)
}

func TestSubmitCheckInWindowNotOpen(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 2}.ID()
	f.at(start.Add(5 * time.Hour)) // Week 2 opens six days later

	_, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, id, map[string]string{}, nil)
	assert.ErrorIs(t, err, ErrWindowNotOpen)
}

func TestSubmitCheckInWindowClosed(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 1}.ID()
	f.at(start.Add(49 * time.Hour))

	_, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, id, map[string]string{}, nil)
	assert.ErrorIs(t, err, ErrWindowClosed)

	// Nothing was persisted for the rejected submission.
	_, err = f.assignments.GetByID(context.Background(), id)
	assert.Error(t, err)
}

func TestSubmitCheckInAlreadySubmitted(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 1}.ID()
	f.at(start.Add(5 * time.Hour))

	_, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, id, map[string]string{"mood": "ok"}, nil)
	require.NoError(t, err)

	_, err = f.svc.SubmitCheckIn(context.Background(), f.clientID, id, map[string]string{"mood": "better"}, nil)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
}

func TestSubmitCheckInOwnership(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(primitive.NewObjectID(), start, 48*time.Hour) // someone else's
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 1}.ID()
	f.at(start.Add(5 * time.Hour))

	_, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, id, map[string]string{}, nil)
	assert.ErrorIs(t, err, ErrNotYourCheckIn)
}

func TestSubmitCheckInUnknownID(t *testing.T) {
	f := newClientServiceFixture(t, false)
	f.at(time.Now())

	_, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, "not-a-checkin", map[string]string{}, nil)
	assert.ErrorIs(t, err, ErrCheckInNotFound)

	// A week past the series bound does not resolve either.
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	total := 4
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	series.TotalWeeks = &total
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 9}.ID()
	_, err = f.svc.SubmitCheckIn(context.Background(), f.clientID, id, map[string]string{}, nil)
	assert.ErrorIs(t, err, ErrCheckInNotFound)
}

// A milestone the sweep recorded on the virtual week must survive the
// submit-time promotion of the same document.
func TestSubmitCheckInKeepsFiredMilestones(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	f.seriesRepo.series[series.ID] = series

	occ := NewWeekOccurrence(series, 1, start.Add(25*time.Hour))
	require.NoError(t, f.assignments.RecordMilestone(context.Background(), &occ, domain.MilestoneClosing24h))

	id := occ.ID
	f.at(start.Add(26 * time.Hour))
	_, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, id, map[string]string{"mood": "ok"}, nil)
	require.NoError(t, err)

	stored, err := f.assignments.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, stored.MilestoneFired(domain.MilestoneClosing24h))
	assert.Equal(t, domain.StatusSubmitted, stored.Status)
}

func TestRequestPhotoUploadURL(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 1}.ID()
	f.at(start.Add(5 * time.Hour))

	_, err := f.svc.RequestPhotoUploadURL(context.Background(), f.clientID, id, "application/pdf")
	assert.ErrorIs(t, err, ErrInvalidPhotoType)

	upload, err := f.svc.RequestPhotoUploadURL(context.Background(), f.clientID, id, "image/jpeg")
	require.NoError(t, err)
	assert.Contains(t, upload.ObjectKey, f.clientID.Hex())
	assert.Contains(t, upload.ObjectKey, id)
	assert.NotEmpty(t, upload.UploadURL)

	// Closed window, no more uploads.
	f.at(start.Add(49 * time.Hour))
	_, err = f.svc.RequestPhotoUploadURL(context.Background(), f.clientID, id, "image/jpeg")
	assert.ErrorIs(t, err, ErrWindowClosed)
}

func TestGetPhotoDownloadURL(t *testing.T) {
	start := time.Date(2025, 6, 2, 9, 0, 0, 0, time.UTC)
	f := newClientServiceFixture(t, false)
	series := newTestSeries(f.clientID, start, 48*time.Hour)
	f.seriesRepo.series[series.ID] = series

	id := domain.OccurrenceRef{SeriesID: series.ID, Week: 1}.ID()
	f.at(start.Add(5 * time.Hour))

	_, err := f.svc.SubmitCheckIn(context.Background(), f.clientID, id,
		map[string]string{"mood": "ok"}, []string{"checkins/a/b/photo.jpg"})
	require.NoError(t, err)

	url, err := f.svc.GetPhotoDownloadURL(context.Background(), f.clientID, id, "checkins/a/b/photo.jpg")
	require.NoError(t, err)
	assert.NotEmpty(t, url)

	_, err = f.svc.GetPhotoDownloadURL(context.Background(), f.clientID, id, "checkins/other.jpg")
	assert.ErrorIs(t, err, ErrPhotoNotFound)

	_, err = f.svc.GetPhotoDownloadURL(context.Background(), primitive.NewObjectID(), id, "checkins/a/b/photo.jpg")
	assert.ErrorIs(t, err, ErrNotYourCheckIn)
}
