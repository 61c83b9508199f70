package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"coachpoint/checkin-app/internal/domain"
	"coachpoint/checkin-app/internal/service"
)

type ClientHandler struct {
	clientService service.ClientService
}

func NewClientHandler(clientService service.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// --- DTOs ---

// AssignmentResponse is the DTO for a check-in occurrence. The id is the
// canonical occurrence id and is what SubmitCheckIn expects back.
type AssignmentResponse struct {
	ID         string    `json:"id"`
	SeriesID   *string   `json:"seriesId,omitempty"`
	Week       *int      `json:"week,omitempty"`
	FormID     string    `json:"formId"`
	OpensAt    time.Time `json:"opensAt"`
	ClosesAt   time.Time `json:"closesAt"`
	Status     string    `json:"status"`
	ResponseID *string   `json:"responseId,omitempty"`
}

type SubmitCheckInRequest struct {
	Answers   map[string]string `json:"answers" binding:"required"`
	PhotoKeys []string          `json:"photoKeys"`
}

type PhotoUploadRequest struct {
	ContentType string `json:"contentType" binding:"required"`
}

type PhotoDownloadRequest struct {
	ObjectKey string `json:"objectKey" binding:"required"`
}

// MapAssignmentToResponse converts a domain occurrence to its DTO.
func MapAssignmentToResponse(a *domain.CheckInAssignment) AssignmentResponse {
	if a == nil {
		return AssignmentResponse{}
	}
	resp := AssignmentResponse{
		ID:       a.ID,
		Week:     a.Week,
		FormID:   a.FormID.Hex(),
		OpensAt:  a.OpensAt,
		ClosesAt: a.ClosesAt,
		Status:   string(a.Status),
	}
	if a.SeriesID != nil {
		hex := a.SeriesID.Hex()
		resp.SeriesID = &hex
	}
	if a.ResponseID != nil {
		hex := a.ResponseID.Hex()
		resp.ResponseID = &hex
	}
	return resp
}

// --- Handler Methods ---

func (h *ClientHandler) GetMyCheckIns(c *gin.Context) {
	clientID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}

	checkIns, err := h.clientService.GetMyCheckIns(c.Request.Context(), clientID)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to retrieve check-ins.")
		return
	}

	responses := make([]AssignmentResponse, len(checkIns))
	for i := range checkIns {
		responses[i] = MapAssignmentToResponse(&checkIns[i])
	}
	c.JSON(http.StatusOK, responses)
}

func (h *ClientHandler) SubmitCheckIn(c *gin.Context) {
	var req SubmitCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	clientID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	assignmentID := c.Param("checkinId")

	response, err := h.clientService.SubmitCheckIn(c.Request.Context(), clientID, assignmentID, req.Answers, req.PhotoKeys)
	if err != nil {
		h.mapCheckInError(c, err, "Failed to submit check-in.")
		return
	}

	c.JSON(http.StatusCreated, MapResponseToDTO(response))
}

func (h *ClientHandler) RequestPhotoUploadURL(c *gin.Context) {
	var req PhotoUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	clientID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	assignmentID := c.Param("checkinId")

	upload, err := h.clientService.RequestPhotoUploadURL(c.Request.Context(), clientID, assignmentID, req.ContentType)
	if err != nil {
		if errors.Is(err, service.ErrInvalidPhotoType) {
			abortWithError(c, http.StatusBadRequest, err.Error())
			return
		}
		h.mapCheckInError(c, err, "Failed to generate upload URL.")
		return
	}

	c.JSON(http.StatusOK, upload)
}

func (h *ClientHandler) GetPhotoDownloadURL(c *gin.Context) {
	var req PhotoDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}
	clientID, ok := userObjectIDFromContext(c)
	if !ok {
		return
	}
	assignmentID := c.Param("checkinId")

	url, err := h.clientService.GetPhotoDownloadURL(c.Request.Context(), clientID, assignmentID, req.ObjectKey)
	if err != nil {
		if errors.Is(err, service.ErrPhotoNotFound) {
			abortWithError(c, http.StatusNotFound, err.Error())
			return
		}
		h.mapCheckInError(c, err, "Failed to generate download URL.")
		return
	}

	c.JSON(http.StatusOK, gin.H{"downloadUrl": url})
}

// mapCheckInError maps client service errors to HTTP status codes.
func (h *ClientHandler) mapCheckInError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, service.ErrCheckInNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrNotYourCheckIn):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrAlreadySubmitted):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrWindowNotOpen), errors.Is(err, service.ErrWindowClosed):
		abortWithError(c, http.StatusUnprocessableEntity, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, fallback)
	}
}
