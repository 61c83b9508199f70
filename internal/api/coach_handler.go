package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/service"
)

type CoachHandler struct {
	coachService service.CoachService
}

func NewCoachHandler(coachService service.CoachService) *CoachHandler {
	return &CoachHandler{coachService: coachService}
}

// userObjectIDFromContext extracts the caller's ObjectID from the token
// claims, aborting the request on failure.
func userObjectIDFromContext(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusUnauthorized, "Unable to identify user from token.")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid user ID format in token.")
		return primitive.NilObjectID, false
	}
	return id, true
}

// --- DTOs ---

type AddClientRequest struct {
	ClientEmail string `json:"clientEmail" binding:"required,email"`
}

type FormQuestionRequest struct {
	Key    string `json:"key" binding:"required"`
	Prompt string `json:"prompt" binding:"required"`
	Type   string `json:"type" binding:"required,oneof=text number scale"`
}

type CreateFormRequest struct {
	Title     string                `json:"title" binding:"required"`
	Questions []FormQuestionRequest `json:"questions" binding:"required,min=1,dive"`
}

type FormResponse struct {
	ID        string                `json:"id"`
	CoachID   string                `json:"coachId"`
	Title     string                `json:"title"`
	Questions []domain.FormQuestion `json:"questions"`
	CreatedAt time.Time             `json:"createdAt"`
}

type CreateSeriesRequest struct {
	FormID      string    `json:"formId" binding:"required"`
	StartAt     time.Time `json:"startAt" binding:"required"`
	WindowHours int       `json:"windowHours" binding:"required,min=1"`
	TotalWeeks  *int      `json:"totalWeeks" binding:"omitempty,min=1"`
}

type SeriesResponse struct {
	ID          string    `json:"id"`
	CoachID     string    `json:"coachId"`
	ClientID    string    `json:"clientId"`
	FormID      string    `json:"formId"`
	Cadence     string    `json:"cadence"`
	StartAt     time.Time `json:"startAt"`
	WindowHours int       `json:"windowHours"`
	TotalWeeks  *int      `json:"totalWeeks,omitempty"`
	Paused      bool      `json:"paused"`
	CreatedAt   time.Time `json:"createdAt"`
}

type SetPausedRequest struct {
	Paused *bool `json:"paused" binding:"required"`
}

type SetTotalWeeksRequest struct {
	TotalWeeks *int `json:"totalWeeks" binding:"omitempty,min=1"` // null clears the bound
}

type CreateOneOffRequest struct {
	ClientID    string    `json:"clientId" binding:"required"`
	FormID      string    `json:"formId" binding:"required"`
	OpensAt     time.Time `json:"opensAt" binding:"required"`
	WindowHours int       `json:"windowHours" binding:"required,min=1"`
}

type CheckInResponseDTO struct {
	ID           string            `json:"id"`
	AssignmentID string            `json:"assignmentId"`
	ClientID     string            `json:"clientId"`
	Answers      map[string]string `json:"answers"`
	PhotoKeys    []string          `json:"photoKeys,omitempty"`
	SubmittedAt  time.Time         `json:"submittedAt"`
}

// --- Mappers ---

func MapFormToResponse(f *domain.CheckInForm) FormResponse {
	if f == nil {
		return FormResponse{}
	}
	return FormResponse{
		ID:        f.ID.Hex(),
		CoachID:   f.CoachID.Hex(),
		Title:     f.Title,
		Questions: f.Questions,
		CreatedAt: f.CreatedAt,
	}
}

func MapSeriesToResponse(s *domain.CheckInSeries) SeriesResponse {
	if s == nil {
		return SeriesResponse{}
	}
	return SeriesResponse{
		ID:          s.ID.Hex(),
		CoachID:     s.CoachID.Hex(),
		ClientID:    s.ClientID.Hex(),
		FormID:      s.FormID.Hex(),
		Cadence:     string(s.Cadence),
		StartAt:     s.StartAt,
		WindowHours: int(s.WindowDuration / time.Hour),
		TotalWeeks:  s.TotalWeeks,
		Paused:      s.Paused,
		CreatedAt:   s.CreatedAt,
	}
}

func MapResponseToDTO(r *domain.CheckInResponse) CheckInResponseDTO {
	if r == nil {
		return CheckInResponseDTO{}
	}
	return CheckInResponseDTO{
		ID:           r.ID.Hex(),
		AssignmentID: r.AssignmentID,
		ClientID:     r.ClientID.Hex(),
		Answers:      r.Answers,
		PhotoKeys:    r.PhotoKeys,
		SubmittedAt:  r.SubmittedAt,
	}
}

// --- Client Management ---

func (h *CoachHandler) AddClientByEmail(c *gin.Context) {
	var req AddClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	client, err := h.coachService.AddClientByEmail(c.Request.Context(), coachID, req.ClientEmail)
	if err != nil {
		if errors.Is(err, service.ErrClientNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
		} else if errors.Is(err, service.ErrClientNotRole) || errors.Is(err, service.ErrClientAlreadyAssigned) {
			abortWithError(c, http.StatusForbidden, err.Error())
		} else {
			abortWithError(c, http.StatusInternalServerError, "Failed to add client.")
		}
		return
	}

	c.JSON(http.StatusOK, MapUserToResponse(client))
}

func (h *CoachHandler) GetManagedClients(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	clients, err := h.coachService.GetManagedClients(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve managed clients.")
		return
	}

	responses := make([]UserResponse, len(clients))
	for i := range clients {
		responses[i] = MapUserToResponse(&clients[i])
	}
	c.JSON(http.StatusOK, responses)
}

// --- Form Management ---

func (h *CoachHandler) CreateForm(c *gin.Context) {
	var req CreateFormRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	questions := make([]domain.FormQuestion, len(req.Questions))
	for i, q := range req.Questions {
		questions[i] = domain.FormQuestion{
			Key:    q.Key,
			Prompt: q.Prompt,
			Type:   domain.QuestionType(q.Type),
		}
	}

	form, err := h.coachService.CreateForm(c.Request.Context(), coachID, req.Title, questions)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to create form.")
		return
	}

	c.JSON(http.StatusCreated, MapFormToResponse(form))
}

func (h *CoachHandler) GetMyForms(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	forms, err := h.coachService.GetMyForms(c.Request.Context(), coachID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve forms.")
		return
	}

	responses := make([]FormResponse, len(forms))
	for i := range forms {
		responses[i] = MapFormToResponse(&forms[i])
	}
	c.JSON(http.StatusOK, responses)
}

// --- Series Management ---

func (h *CoachHandler) CreateSeries(c *gin.Context) {
	var req CreateSeriesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	clientID, err := primitive.ObjectIDFromHex(c.Param("clientId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return
	}
	formID, err := primitive.ObjectIDFromHex(req.FormID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid form ID format.")
		return
	}

	series, err := h.coachService.CreateSeries(c.Request.Context(), coachID, clientID, service.CreateSeriesInput{
		FormID:         formID,
		StartAt:        req.StartAt,
		WindowDuration: time.Duration(req.WindowHours) * time.Hour,
		TotalWeeks:     req.TotalWeeks,
	})
	if err != nil {
		h.mapSeriesError(c, err, "Failed to create series.")
		return
	}

	c.JSON(http.StatusCreated, MapSeriesToResponse(series))
}

func (h *CoachHandler) GetSeriesForClient(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	clientID, err := primitive.ObjectIDFromHex(c.Param("clientId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return
	}

	seriesList, err := h.coachService.GetSeriesForClient(c.Request.Context(), coachID, clientID)
	if err != nil {
		h.mapSeriesError(c, err, "Failed to retrieve series.")
		return
	}

	responses := make([]SeriesResponse, len(seriesList))
	for i := range seriesList {
		responses[i] = MapSeriesToResponse(&seriesList[i])
	}
	c.JSON(http.StatusOK, responses)
}

func (h *CoachHandler) SetSeriesPaused(c *gin.Context) {
	var req SetPausedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	seriesID, err := primitive.ObjectIDFromHex(c.Param("seriesId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid series ID format.")
		return
	}

	if err := h.coachService.SetSeriesPaused(c.Request.Context(), coachID, seriesID, *req.Paused); err != nil {
		h.mapSeriesError(c, err, "Failed to update series.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"paused": *req.Paused})
}

func (h *CoachHandler) SetSeriesTotalWeeks(c *gin.Context) {
	var req SetTotalWeeksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	seriesID, err := primitive.ObjectIDFromHex(c.Param("seriesId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid series ID format.")
		return
	}

	if err := h.coachService.SetSeriesTotalWeeks(c.Request.Context(), coachID, seriesID, req.TotalWeeks); err != nil {
		h.mapSeriesError(c, err, "Failed to update series.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalWeeks": req.TotalWeeks})
}

func (h *CoachHandler) DeactivateSeries(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	seriesID, err := primitive.ObjectIDFromHex(c.Param("seriesId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid series ID format.")
		return
	}

	if err := h.coachService.DeactivateSeries(c.Request.Context(), coachID, seriesID); err != nil {
		h.mapSeriesError(c, err, "Failed to deactivate series.")
		return
	}
	c.Status(http.StatusNoContent)
}

// --- One-offs and Responses ---

func (h *CoachHandler) CreateOneOffCheckIn(c *gin.Context) {
	var req CreateOneOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	clientID, err := primitive.ObjectIDFromHex(req.ClientID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid client ID format.")
		return
	}
	formID, err := primitive.ObjectIDFromHex(req.FormID)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid form ID format.")
		return
	}

	assignment, err := h.coachService.CreateOneOffCheckIn(c.Request.Context(), coachID, clientID, formID,
		req.OpensAt, time.Duration(req.WindowHours)*time.Hour)
	if err != nil {
		h.mapSeriesError(c, err, "Failed to create check-in.")
		return
	}

	c.JSON(http.StatusCreated, MapAssignmentToResponse(assignment))
}

func (h *CoachHandler) GetSeriesResponses(c *gin.Context) {
	coachID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	seriesID, err := primitive.ObjectIDFromHex(c.Param("seriesId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid series ID format.")
		return
	}

	responses, err := h.coachService.GetSeriesResponses(c.Request.Context(), coachID, seriesID)
	if err != nil {
		h.mapSeriesError(c, err, "Failed to retrieve responses.")
		return
	}

	dtos := make([]CheckInResponseDTO, len(responses))
	for i := range responses {
		dtos[i] = MapResponseToDTO(&responses[i])
	}
	c.JSON(http.StatusOK, dtos)
}

// mapSeriesError maps coach service errors to HTTP status codes, falling
// back to 500 with the given message.
func (h *CoachHandler) mapSeriesError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrClientNotManaged):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrFormNotFound), errors.Is(err, service.ErrSeriesNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrFormAccessDenied), errors.Is(err, service.ErrSeriesAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrInvalidSeriesConfig):
		abortWithError(c, http.StatusBadRequest, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
