package service

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/repository"
)

// --- Error Definitions ---
var (
	ErrClientNotFound        = errors.New("client user not found")
	ErrClientNotRole         = errors.New("user found but is not a client")
	ErrClientAlreadyAssigned = errors.New("client is already assigned to a coach")
	ErrClientNotManaged      = errors.New("client is not managed by this coach")
	ErrFormNotFound          = errors.New("check-in form not found")
	ErrFormAccessDenied      = errors.New("access denied to this check-in form")
	ErrSeriesNotFound        = errors.New("check-in series not found")
	ErrSeriesAccessDenied    = errors.New("access denied to this check-in series")
	ErrInvalidSeriesConfig   = errors.New("invalid series configuration")
)

// CreateSeriesInput carries the series configuration a coach submits.
type CreateSeriesInput struct {
	FormID         primitive.ObjectID
	StartAt        time.Time
	WindowDuration time.Duration
	TotalWeeks     *int // nil = indefinite
}

type CoachService interface {
	// Client Management
	AddClientByEmail(ctx context.Context, coachID primitive.ObjectID, clientEmail string) (*domain.User, error)
	GetManagedClients(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error)

	// Form Management
	CreateForm(ctx context.Context, coachID primitive.ObjectID, title string, questions []domain.FormQuestion) (*domain.CheckInForm, error)
	GetMyForms(ctx context.Context, coachID primitive.ObjectID) ([]domain.CheckInForm, error)

	// Series Management
	CreateSeries(ctx context.Context, coachID, clientID primitive.ObjectID, input CreateSeriesInput) (*domain.CheckInSeries, error)
	GetSeriesForClient(ctx context.Context, coachID, clientID primitive.ObjectID) ([]domain.CheckInSeries, error)
	SetSeriesPaused(ctx context.Context, coachID, seriesID primitive.ObjectID, paused bool) error
	SetSeriesTotalWeeks(ctx context.Context, coachID, seriesID primitive.ObjectID, totalWeeks *int) error
	DeactivateSeries(ctx context.Context, coachID, seriesID primitive.ObjectID) error

	// One-off check-ins and responses
	CreateOneOffCheckIn(ctx context.Context, coachID, clientID, formID primitive.ObjectID, opensAt time.Time, window time.Duration) (*domain.CheckInAssignment, error)
	GetSeriesResponses(ctx context.Context, coachID, seriesID primitive.ObjectID) ([]domain.CheckInResponse, error)
}

// coachService implements the CoachService interface.
type coachService struct {
	userRepo       repository.UserRepository
	formRepo       repository.FormRepository
	seriesRepo     repository.SeriesRepository
	assignmentRepo repository.AssignmentRepository
	responseRepo   repository.ResponseRepository
	precreate      bool // features.precreate_assignments
	horizonWeeks   int  // pre-creation cap for indefinite series
}

// NewCoachService creates a new instance of coachService.
func NewCoachService(
	userRepo repository.UserRepository,
	formRepo repository.FormRepository,
	seriesRepo repository.SeriesRepository,
	assignmentRepo repository.AssignmentRepository,
	responseRepo repository.ResponseRepository,
	precreate bool,
	horizonWeeks int,
) CoachService {
	if horizonWeeks <= 0 {
		horizonWeeks = 12
	}
	return &coachService{
		userRepo:       userRepo,
		formRepo:       formRepo,
		seriesRepo:     seriesRepo,
		assignmentRepo: assignmentRepo,
		responseRepo:   responseRepo,
		precreate:      precreate,
		horizonWeeks:   horizonWeeks,
	}
}

// === Client Management ===

// AddClientByEmail finds a client by email and assigns them to the coach.
func (s *coachService) AddClientByEmail(ctx context.Context, coachID primitive.ObjectID, clientEmail string) (*domain.User, error) {
	if coachID == primitive.NilObjectID || clientEmail == "" {
		return nil, errors.New("coach ID and client email are required")
	}

	client, err := s.userRepo.GetByEmail(ctx, clientEmail)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrClientNotFound
		}
		return nil, err
	}

	if client.Role != domain.RoleClient {
		return nil, ErrClientNotRole
	}

	if client.CoachID != nil && *client.CoachID != primitive.NilObjectID {
		if *client.CoachID == coachID {
			return client, nil // Already managed by this coach
		}
		return nil, ErrClientAlreadyAssigned
	}

	if err := s.userRepo.AddClientIDToCoach(ctx, coachID, client.ID); err != nil {
		return nil, err
	}
	if err := s.userRepo.SetCoachForClient(ctx, client.ID, coachID); err != nil {
		return nil, err
	}

	client.CoachID = &coachID
	return client, nil
}

// GetManagedClients lists all clients managed by the coach.
func (s *coachService) GetManagedClients(ctx context.Context, coachID primitive.ObjectID) ([]domain.User, error) {
	return s.userRepo.GetClientsByCoachID(ctx, coachID)
}

// === Form Management ===

// CreateForm creates a new check-in form owned by the coach.
func (s *coachService) CreateForm(ctx context.Context, coachID primitive.ObjectID, title string, questions []domain.FormQuestion) (*domain.CheckInForm, error) {
	if title == "" || len(questions) == 0 {
		return nil, errors.New("form title and at least one question are required")
	}

	form := &domain.CheckInForm{
		CoachID:   coachID,
		Title:     title,
		Questions: questions,
	}
	formID, err := s.formRepo.Create(ctx, form)
	if err != nil {
		return nil, err
	}
	form.ID = formID
	return form, nil
}

// GetMyForms lists the coach's forms.
func (s *coachService) GetMyForms(ctx context.Context, coachID primitive.ObjectID) ([]domain.CheckInForm, error) {
	return s.formRepo.GetByCoachID(ctx, coachID)
}

// === Series Management ===

// CreateSeries creates a recurring check-in series for a managed client.
// The week-1 occurrence is persisted immediately; later weeks are either
// pre-created here (toggle on) or computed on demand by the materializer.
func (s *coachService) CreateSeries(ctx context.Context, coachID, clientID primitive.ObjectID, input CreateSeriesInput) (*domain.CheckInSeries, error) {
	if input.WindowDuration <= 0 || input.StartAt.IsZero() {
		return nil, ErrInvalidSeriesConfig
	}
	if input.TotalWeeks != nil && *input.TotalWeeks < 1 {
		return nil, ErrInvalidSeriesConfig
	}

	if err := s.verifyManagedClient(ctx, coachID, clientID); err != nil {
		return nil, err
	}
	if _, err := s.verifyOwnForm(ctx, coachID, input.FormID); err != nil {
		return nil, err
	}

	series := &domain.CheckInSeries{
		CoachID:        coachID,
		ClientID:       clientID,
		FormID:         input.FormID,
		Cadence:        domain.CadenceWeekly,
		WindowDuration: input.WindowDuration,
		TotalWeeks:     input.TotalWeeks,
		StartAt:        input.StartAt.UTC(),
	}
	seriesID, err := s.seriesRepo.Create(ctx, series)
	if err != nil {
		return nil, err
	}
	series.ID = seriesID

	now := time.Now().UTC()
	if s.precreate {
		// Bounded series get every week up front. Nothing synthesizes
		// missing documents in this mode, so a horizon-capped bounded
		// series would lose its tail weeks entirely; the horizon only
		// bounds indefinite series.
		weeks := s.horizonWeeks
		if series.TotalWeeks != nil {
			weeks = *series.TotalWeeks
		}
		batch := make([]domain.CheckInAssignment, 0, weeks)
		for n := 1; n <= weeks; n++ {
			batch = append(batch, NewWeekOccurrence(series, n, now))
		}
		if err := s.assignmentRepo.CreateMany(ctx, batch); err != nil {
			return nil, err
		}
	} else {
		week1 := NewWeekOccurrence(series, 1, now)
		if err := s.assignmentRepo.Create(ctx, &week1); err != nil {
			return nil, err
		}
	}

	return series, nil
}

// GetSeriesForClient lists the coach's series for one managed client.
func (s *coachService) GetSeriesForClient(ctx context.Context, coachID, clientID primitive.ObjectID) ([]domain.CheckInSeries, error) {
	if err := s.verifyManagedClient(ctx, coachID, clientID); err != nil {
		return nil, err
	}
	return s.seriesRepo.GetByCoachAndClientID(ctx, coachID, clientID)
}

// SetSeriesPaused pauses or resumes a series.
func (s *coachService) SetSeriesPaused(ctx context.Context, coachID, seriesID primitive.ObjectID, paused bool) error {
	if _, err := s.verifyOwnSeries(ctx, coachID, seriesID); err != nil {
		return err
	}
	return s.seriesRepo.SetPaused(ctx, seriesID, paused)
}

// SetSeriesTotalWeeks edits the recurrence count of a series. In
// pre-created mode raising the count backfills the tail documents the
// original batch did not cover.
func (s *coachService) SetSeriesTotalWeeks(ctx context.Context, coachID, seriesID primitive.ObjectID, totalWeeks *int) error {
	if totalWeeks != nil && *totalWeeks < 1 {
		return ErrInvalidSeriesConfig
	}
	series, err := s.verifyOwnSeries(ctx, coachID, seriesID)
	if err != nil {
		return err
	}
	if err := s.seriesRepo.SetTotalWeeks(ctx, seriesID, totalWeeks); err != nil {
		return err
	}

	if s.precreate && totalWeeks != nil {
		series.TotalWeeks = totalWeeks
		return s.precreateMissingWeeks(ctx, series, *totalWeeks)
	}
	return nil
}

// precreateMissingWeeks persists any week documents up to throughWeek that
// do not exist yet for the series.
func (s *coachService) precreateMissingWeeks(ctx context.Context, series *domain.CheckInSeries, throughWeek int) error {
	existing, err := s.assignmentRepo.GetBySeriesID(ctx, series.ID)
	if err != nil {
		return err
	}
	present := make(map[int]bool, len(existing))
	for i := range existing {
		if existing[i].Week != nil {
			present[*existing[i].Week] = true
		}
	}

	now := time.Now().UTC()
	var batch []domain.CheckInAssignment
	for n := 1; n <= throughWeek; n++ {
		if !present[n] {
			batch = append(batch, NewWeekOccurrence(series, n, now))
		}
	}
	if len(batch) == 0 {
		return nil
	}
	return s.assignmentRepo.CreateMany(ctx, batch)
}

// DeactivateSeries retires a series: remaining occurrences are closed and
// the series record removed. Submitted occurrences and their responses are
// kept for the coach's history.
func (s *coachService) DeactivateSeries(ctx context.Context, coachID, seriesID primitive.ObjectID) error {
	if _, err := s.verifyOwnSeries(ctx, coachID, seriesID); err != nil {
		return err
	}
	if err := s.assignmentRepo.CloseBySeries(ctx, seriesID); err != nil {
		return err
	}
	return s.seriesRepo.Delete(ctx, seriesID)
}

// === One-off check-ins and responses ===

// CreateOneOffCheckIn creates a single non-recurring occurrence. Its id is
// a freestanding document id, never a series id.
func (s *coachService) CreateOneOffCheckIn(ctx context.Context, coachID, clientID, formID primitive.ObjectID, opensAt time.Time, window time.Duration) (*domain.CheckInAssignment, error) {
	if window <= 0 || opensAt.IsZero() {
		return nil, ErrInvalidSeriesConfig
	}
	if err := s.verifyManagedClient(ctx, coachID, clientID); err != nil {
		return nil, err
	}
	if _, err := s.verifyOwnForm(ctx, coachID, formID); err != nil {
		return nil, err
	}

	w := domain.ComputeWindow(opensAt.UTC(), window)
	assignment := &domain.CheckInAssignment{
		ID:       primitive.NewObjectID().Hex(),
		CoachID:  coachID,
		ClientID: clientID,
		FormID:   formID,
		OpensAt:  w.OpensAt,
		ClosesAt: w.ClosesAt,
		Status:   domain.StatusAt(w, time.Now().UTC(), false),
	}
	if err := s.assignmentRepo.Create(ctx, assignment); err != nil {
		return nil, err
	}
	return assignment, nil
}

// GetSeriesResponses lists all submitted responses for a series the coach
// owns, newest first.
func (s *coachService) GetSeriesResponses(ctx context.Context, coachID, seriesID primitive.ObjectID) ([]domain.CheckInResponse, error) {
	if _, err := s.verifyOwnSeries(ctx, coachID, seriesID); err != nil {
		return nil, err
	}

	assignments, err := s.assignmentRepo.GetBySeriesID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(assignments))
	for i := range assignments {
		if assignments[i].ResponseID != nil {
			ids = append(ids, assignments[i].ID)
		}
	}
	return s.responseRepo.GetByAssignmentIDs(ctx, ids)
}

// === Helpers ===

func (s *coachService) verifyManagedClient(ctx context.Context, coachID, clientID primitive.ObjectID) error {
	client, err := s.userRepo.GetByID(ctx, clientID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrClientNotFound
		}
		return err
	}
	if client.Role != domain.RoleClient {
		return ErrClientNotRole
	}
	if client.CoachID == nil || *client.CoachID != coachID {
		return ErrClientNotManaged
	}
	return nil
}

func (s *coachService) verifyOwnForm(ctx context.Context, coachID, formID primitive.ObjectID) (*domain.CheckInForm, error) {
	form, err := s.formRepo.GetByID(ctx, formID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrFormNotFound
		}
		return nil, err
	}
	if form.CoachID != coachID {
		return nil, ErrFormAccessDenied
	}
	return form, nil
}

func (s *coachService) verifyOwnSeries(ctx context.Context, coachID, seriesID primitive.ObjectID) (*domain.CheckInSeries, error) {
	series, err := s.seriesRepo.GetByID(ctx, seriesID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSeriesNotFound
		}
		return nil, err
	}
	if series.CoachID != coachID {
		return nil, ErrSeriesAccessDenied
	}
	return series, nil
}
