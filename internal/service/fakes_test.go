package service

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/repository"
)

// In-memory repository fakes shared by the service tests.

type fakeUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	if user.ID == primitive.NilObjectID {
		user.ID = primitive.NewObjectID()
	}
	r.users[user.ID] = user
	return user.ID, nil
}
func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (r *fakeUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}
func (r *fakeUserRepo) AddClientIDToCoach(ctx context.Context, coachID, clientID primitive.ObjectID) error {
	coach, ok := r.users[coachID]
	if !ok {
		return repository.ErrNotFound
	}
	coach.ClientIDs = append(coach.ClientIDs, clientID)
	return nil
}
func (r *fakeUserRepo) GetClientsByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	var out []domain.User
	for _, u := range r.users {
		if u.CoachID != nil && *u.CoachID == coachID {
			out = append(out, *u)
		}
	}
	return out, nil
}
func (r *fakeUserRepo) SetCoachForClient(ctx context.Context, clientID, coachID primitive.ObjectID) error {
	client, ok := r.users[clientID]
	if !ok {
		return repository.ErrNotFound
	}
	client.CoachID = &coachID
	return nil
}

type fakeFormRepo struct {
	forms map[primitive.ObjectID]*domain.CheckInForm
}

func newFakeFormRepo() *fakeFormRepo {
	return &fakeFormRepo{forms: make(map[primitive.ObjectID]*domain.CheckInForm)}
}

func (r *fakeFormRepo) Create(ctx context.Context, form *domain.CheckInForm) (primitive.ObjectID, error) {
	if form.ID == primitive.NilObjectID {
		form.ID = primitive.NewObjectID()
	}
	r.forms[form.ID] = form
	return form.ID, nil
}
func (r *fakeFormRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInForm, error) {
	f, ok := r.forms[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *f
	return &cp, nil
}
func (r *fakeFormRepo) GetByCoachID(ctx context.Context, coachID primitive.ObjectID) ([]domain.CheckInForm, error) {
	var out []domain.CheckInForm
	for _, f := range r.forms {
		if f.CoachID == coachID {
			out = append(out, *f)
		}
	}
	return out, nil
}

type fakeSeriesRepo struct {
	series map[primitive.ObjectID]*domain.CheckInSeries
}

func newFakeSeriesRepo() *fakeSeriesRepo {
	return &fakeSeriesRepo{series: make(map[primitive.ObjectID]*domain.CheckInSeries)}
}

func (r *fakeSeriesRepo) Create(ctx context.Context, s *domain.CheckInSeries) (primitive.ObjectID, error) {
	if s.ID == primitive.NilObjectID {
		s.ID = primitive.NewObjectID()
	}
	r.series[s.ID] = s
	return s.ID, nil
}
func (r *fakeSeriesRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInSeries, error) {
	s, ok := r.series[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}
func (r *fakeSeriesRepo) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInSeries, error) {
	var out []domain.CheckInSeries
	for _, s := range r.series {
		if s.ClientID == clientID {
			out = append(out, *s)
		}
	}
	return out, nil
}
func (r *fakeSeriesRepo) GetByCoachAndClientID(ctx context.Context, coachID, clientID primitive.ObjectID) ([]domain.CheckInSeries, error) {
	var out []domain.CheckInSeries
	for _, s := range r.series {
		if s.CoachID == coachID && s.ClientID == clientID {
			out = append(out, *s)
		}
	}
	return out, nil
}
func (r *fakeSeriesRepo) ListUnpaused(ctx context.Context) ([]domain.CheckInSeries, error) {
	var out []domain.CheckInSeries
	for _, s := range r.series {
		if !s.Paused {
			out = append(out, *s)
		}
	}
	return out, nil
}
func (r *fakeSeriesRepo) SetPaused(ctx context.Context, id primitive.ObjectID, paused bool) error {
	s, ok := r.series[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.Paused = paused
	return nil
}
func (r *fakeSeriesRepo) SetTotalWeeks(ctx context.Context, id primitive.ObjectID, totalWeeks *int) error {
	s, ok := r.series[id]
	if !ok {
		return repository.ErrNotFound
	}
	s.TotalWeeks = totalWeeks
	return nil
}
func (r *fakeSeriesRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	delete(r.series, id)
	return nil
}

type fakeAssignmentRepo struct {
	assignments map[string]*domain.CheckInAssignment
}

func newFakeAssignmentRepo() *fakeAssignmentRepo {
	return &fakeAssignmentRepo{assignments: make(map[string]*domain.CheckInAssignment)}
}

func (r *fakeAssignmentRepo) Create(ctx context.Context, a *domain.CheckInAssignment) error {
	cp := *a
	r.assignments[a.ID] = &cp
	return nil
}
func (r *fakeAssignmentRepo) CreateMany(ctx context.Context, as []domain.CheckInAssignment) error {
	for i := range as {
		cp := as[i]
		r.assignments[cp.ID] = &cp
	}
	return nil
}
func (r *fakeAssignmentRepo) GetByID(ctx context.Context, id string) (*domain.CheckInAssignment, error) {
	a, ok := r.assignments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *a
	return &cp, nil
}
func (r *fakeAssignmentRepo) GetByClientID(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInAssignment, error) {
	var out []domain.CheckInAssignment
	for _, a := range r.assignments {
		if a.ClientID == clientID {
			out = append(out, *a)
		}
	}
	return out, nil
}
func (r *fakeAssignmentRepo) GetBySeriesID(ctx context.Context, seriesID primitive.ObjectID) ([]domain.CheckInAssignment, error) {
	var out []domain.CheckInAssignment
	for _, a := range r.assignments {
		if a.SeriesID != nil && *a.SeriesID == seriesID {
			out = append(out, *a)
		}
	}
	return out, nil
}
func (r *fakeAssignmentRepo) Upsert(ctx context.Context, a *domain.CheckInAssignment) error {
	if existing, ok := r.assignments[a.ID]; ok {
		// Mirror the merge write: milestones recorded concurrently survive.
		for _, m := range existing.MilestonesFired {
			if !a.MilestoneFired(m) {
				a.MilestonesFired = append(a.MilestonesFired, m)
			}
		}
	}
	cp := *a
	r.assignments[a.ID] = &cp
	return nil
}
func (r *fakeAssignmentRepo) SetSubmitted(ctx context.Context, id string, responseID primitive.ObjectID, at time.Time) error {
	a, ok := r.assignments[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = domain.StatusSubmitted
	a.ResponseID = &responseID
	a.UpdatedAt = at
	return nil
}
func (r *fakeAssignmentRepo) RecordMilestone(ctx context.Context, a *domain.CheckInAssignment, m domain.Milestone) error {
	stored, ok := r.assignments[a.ID]
	if !ok {
		cp := *a
		stored = &cp
		r.assignments[a.ID] = stored
	}
	for _, fired := range stored.MilestonesFired {
		if fired == m {
			return nil
		}
	}
	stored.MilestonesFired = append(stored.MilestonesFired, m)
	return nil
}
func (r *fakeAssignmentRepo) ListClosingBetween(ctx context.Context, from, to time.Time) ([]domain.CheckInAssignment, error) {
	var out []domain.CheckInAssignment
	for _, a := range r.assignments {
		if a.Status == domain.StatusSubmitted || a.Status == domain.StatusClosed {
			continue
		}
		if a.ClosesAt.Before(from) || a.ClosesAt.After(to) {
			continue
		}
		out = append(out, *a)
	}
	return out, nil
}
func (r *fakeAssignmentRepo) CloseBySeries(ctx context.Context, seriesID primitive.ObjectID) error {
	for _, a := range r.assignments {
		if a.SeriesID != nil && *a.SeriesID == seriesID && a.Status != domain.StatusSubmitted {
			a.Status = domain.StatusClosed
		}
	}
	return nil
}

type fakeResponseRepo struct {
	responses map[primitive.ObjectID]*domain.CheckInResponse
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{responses: make(map[primitive.ObjectID]*domain.CheckInResponse)}
}

func (r *fakeResponseRepo) Create(ctx context.Context, response *domain.CheckInResponse) (primitive.ObjectID, error) {
	for _, existing := range r.responses {
		if existing.AssignmentID == response.AssignmentID {
			return primitive.NilObjectID, repository.RepositoryError("duplicate assignment response")
		}
	}
	response.ID = primitive.NewObjectID()
	cp := *response
	r.responses[response.ID] = &cp
	return response.ID, nil
}
func (r *fakeResponseRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.CheckInResponse, error) {
	resp, ok := r.responses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *resp
	return &cp, nil
}
func (r *fakeResponseRepo) GetByAssignmentID(ctx context.Context, assignmentID string) (*domain.CheckInResponse, error) {
	for _, resp := range r.responses {
		if resp.AssignmentID == assignmentID {
			cp := *resp
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}
func (r *fakeResponseRepo) GetByAssignmentIDs(ctx context.Context, assignmentIDs []string) ([]domain.CheckInResponse, error) {
	wanted := make(map[string]bool, len(assignmentIDs))
	for _, id := range assignmentIDs {
		wanted[id] = true
	}
	var out []domain.CheckInResponse
	for _, resp := range r.responses {
		if wanted[resp.AssignmentID] {
			out = append(out, *resp)
		}
	}
	return out, nil
}

type fakeFileStorage struct{}

func (fakeFileStorage) GeneratePresignedUploadURL(ctx context.Context, objectKey, contentType string, expires time.Duration) (string, error) {
	return "https://storage.test/upload/" + objectKey, nil
}
func (fakeFileStorage) GeneratePresignedDownloadURL(ctx context.Context, objectKey string, expires time.Duration) (string, error) {
	return "https://storage.test/download/" + objectKey, nil
}
func (fakeFileStorage) DeleteObject(ctx context.Context, objectKey string) error {
	return nil
}
