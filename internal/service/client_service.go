package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/repository"
	"coachpoint/checkin-app/internal/storage"
)

// --- Error Definitions ---
var (
	ErrCheckInNotFound   = errors.New("check-in not found")
	ErrNotYourCheckIn    = errors.New("check-in does not belong to this client")
	ErrAlreadySubmitted  = errors.New("check-in already has a response")
	ErrWindowNotOpen     = errors.New("check-in window is not open yet")
	ErrWindowClosed      = errors.New("check-in window has closed")
	ErrUploadURLError    = errors.New("failed to generate upload URL")
	ErrDownloadURLError  = errors.New("failed to generate download URL")
	ErrPhotoNotFound     = errors.New("photo not attached to this check-in")
	ErrInvalidPhotoType  = errors.New("invalid or missing image content type")
)

// PhotoUploadResponse carries the presigned URL and the key the client
// must report back on submit.
type PhotoUploadResponse struct {
	UploadURL string `json:"uploadUrl"`
	ObjectKey string `json:"objectKey"`
}

type ClientService interface {
	// Check-in Viewing
	GetMyCheckIns(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInAssignment, error)

	// Submission
	SubmitCheckIn(ctx context.Context, clientID primitive.ObjectID, assignmentID string, answers map[string]string, photoKeys []string) (*domain.CheckInResponse, error)

	// Progress photos
	RequestPhotoUploadURL(ctx context.Context, clientID primitive.ObjectID, assignmentID, contentType string) (*PhotoUploadResponse, error)
	GetPhotoDownloadURL(ctx context.Context, clientID primitive.ObjectID, assignmentID, objectKey string) (string, error)
}

// clientService implements the ClientService interface.
type clientService struct {
	materializer   MaterializationStrategy
	seriesRepo     repository.SeriesRepository
	assignmentRepo repository.AssignmentRepository
	responseRepo   repository.ResponseRepository
	fileStorage    storage.FileStorage
	precreated     bool
	now            func() time.Time
}

// NewClientService creates a new instance of clientService.
func NewClientService(
	materializer MaterializationStrategy,
	seriesRepo repository.SeriesRepository,
	assignmentRepo repository.AssignmentRepository,
	responseRepo repository.ResponseRepository,
	fileStorage storage.FileStorage,
	precreated bool,
) ClientService {
	return &clientService{
		materializer:   materializer,
		seriesRepo:     seriesRepo,
		assignmentRepo: assignmentRepo,
		responseRepo:   responseRepo,
		fileStorage:    fileStorage,
		precreated:     precreated,
		now:            time.Now,
	}
}

// === Check-in Viewing ===

// GetMyCheckIns returns the client's occurrence list as of now. Always
// best-effort: a dangling series reduces the list instead of erroring it.
func (s *clientService) GetMyCheckIns(ctx context.Context, clientID primitive.ObjectID) ([]domain.CheckInAssignment, error) {
	return s.materializer.ListForClient(ctx, clientID, s.now().UTC())
}

// === Submission ===

// SubmitCheckIn records a response for an occurrence. A virtual computed
// occurrence is promoted to a stored document under its canonical id
// before the response is written, so a response can never be orphaned from
// its week.
func (s *clientService) SubmitCheckIn(ctx context.Context, clientID primitive.ObjectID, assignmentID string, answers map[string]string, photoKeys []string) (*domain.CheckInResponse, error) {
	if clientID == primitive.NilObjectID || assignmentID == "" {
		return nil, errors.New("client ID and check-in ID are required")
	}

	assignment, window, err := s.resolveOccurrence(ctx, clientID, assignmentID)
	if err != nil {
		return nil, err
	}

	if assignment.Submitted() {
		return nil, ErrAlreadySubmitted
	}

	now := s.now().UTC()
	switch window.Classify(now) {
	case domain.WindowNotYetOpen:
		return nil, ErrWindowNotOpen
	case domain.WindowClosed:
		return nil, ErrWindowClosed
	}

	// Persist the occurrence first. The upsert keeps any milestones a
	// concurrent sweep recorded on the same document.
	assignment.OpensAt = window.OpensAt
	assignment.ClosesAt = window.ClosesAt
	if err := s.assignmentRepo.Upsert(ctx, assignment); err != nil {
		return nil, err
	}

	response := &domain.CheckInResponse{
		AssignmentID: assignment.ID,
		ClientID:     clientID,
		Answers:      answers,
		PhotoKeys:    photoKeys,
		SubmittedAt:  now,
	}
	responseID, err := s.responseRepo.Create(ctx, response)
	if err != nil {
		return nil, err
	}
	response.ID = responseID

	if err := s.assignmentRepo.SetSubmitted(ctx, assignment.ID, responseID, now); err != nil {
		return nil, err
	}

	return response, nil
}

// resolveOccurrence fetches the stored occurrence for id, or materializes
// the virtual week it names. The returned window is recomputed from the
// live series configuration in computed mode; a stored document's own
// window is trusted as written in pre-created mode and for one-offs.
func (s *clientService) resolveOccurrence(ctx context.Context, clientID primitive.ObjectID, assignmentID string) (*domain.CheckInAssignment, domain.Window, error) {
	assignment, err := s.assignmentRepo.GetByID(ctx, assignmentID)
	switch {
	case err == nil:
		if assignment.ClientID != clientID {
			return nil, domain.Window{}, ErrNotYourCheckIn
		}
		window := assignment.Window()
		if assignment.IsRecurring() && !s.precreated {
			series, err := s.seriesRepo.GetByID(ctx, *assignment.SeriesID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return nil, domain.Window{}, ErrCheckInNotFound
				}
				return nil, domain.Window{}, err
			}
			window = domain.ComputeWindow(assignment.OpensAt, series.WindowDuration)
		}
		return assignment, window, nil

	case errors.Is(err, repository.ErrNotFound):
		// Possibly a virtual computed week. The id alone cannot settle
		// that; the series record's recurrence does.
		ref, ok := domain.ParseOccurrenceID(assignmentID)
		if !ok {
			return nil, domain.Window{}, ErrCheckInNotFound
		}
		series, err := s.seriesRepo.GetByID(ctx, ref.SeriesID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, domain.Window{}, ErrCheckInNotFound
			}
			return nil, domain.Window{}, err
		}
		if series.ClientID != clientID {
			return nil, domain.Window{}, ErrNotYourCheckIn
		}
		if series.TotalWeeks != nil && ref.Week > *series.TotalWeeks {
			return nil, domain.Window{}, ErrCheckInNotFound
		}
		occ := NewWeekOccurrence(series, ref.Week, s.now().UTC())
		return &occ, series.WindowFor(ref.Week), nil

	default:
		return nil, domain.Window{}, err
	}
}

// === Progress photos ===

// RequestPhotoUploadURL generates a presigned URL for a client to upload a
// progress photo for an occurrence.
func (s *clientService) RequestPhotoUploadURL(ctx context.Context, clientID primitive.ObjectID, assignmentID, contentType string) (*PhotoUploadResponse, error) {
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return nil, ErrInvalidPhotoType
	}

	assignment, window, err := s.resolveOccurrence(ctx, clientID, assignmentID)
	if err != nil {
		return nil, err
	}
	if !window.Contains(s.now().UTC()) {
		return nil, ErrWindowClosed
	}

	fileExtension := ""
	if parts := strings.Split(contentType, "/"); len(parts) == 2 {
		fileExtension = parts[1]
	}
	objectKey := path.Join("checkins", clientID.Hex(), assignment.ID,
		fmt.Sprintf("%s.%s", uuid.NewString(), fileExtension))

	uploadURL, err := s.fileStorage.GeneratePresignedUploadURL(ctx, objectKey, contentType, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return nil, ErrUploadURLError
	}

	return &PhotoUploadResponse{UploadURL: uploadURL, ObjectKey: objectKey}, nil
}

// GetPhotoDownloadURL generates a temporary URL for the client to view a
// photo attached to their own submitted check-in.
func (s *clientService) GetPhotoDownloadURL(ctx context.Context, clientID primitive.ObjectID, assignmentID, objectKey string) (string, error) {
	response, err := s.responseRepo.GetByAssignmentID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return "", ErrCheckInNotFound
		}
		return "", err
	}
	if response.ClientID != clientID {
		return "", ErrNotYourCheckIn
	}

	attached := false
	for _, key := range response.PhotoKeys {
		if key == objectKey {
			attached = true
			break
		}
	}
	if !attached {
		return "", ErrPhotoNotFound
	}

	downloadURL, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, storage.DefaultPresignedURLExpiry)
	if err != nil {
		return "", ErrDownloadURLError
	}
	return downloadURL, nil
}
