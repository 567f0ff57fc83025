package wizard

import (
	"errors"
	"net/http"

	"tablebook/internal/shared/utils/response"
	"tablebook/internal/submission"
	"tablebook/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	service Service
}

func NewController(service Service) *Controller {
	return &Controller{service: service}
}

// CreateSession handles POST /api/v1/wizard/sessions
func (c *Controller) CreateSession(ctx *gin.Context) {
	resp, err := c.service.Create(ctx.Request.Context())
	if err != nil {
		logger.GetDefault().LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to start reservation", nil, err.Error())
		return
	}
	response.RespondJSON(ctx, "success", http.StatusCreated, "Reservation session started", resp, nil)
}

// GetSession handles GET /api/v1/wizard/sessions/:id
func (c *Controller) GetSession(ctx *gin.Context) {
	resp, err := c.service.Get(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		status, msg := mapError(err)
		response.RespondJSON(ctx, "error", status, msg, nil, err.Error())
		return
	}
	response.RespondJSON(ctx, "success", http.StatusOK, "Reservation session retrieved", resp, nil)
}

// ApplyAction handles POST /api/v1/wizard/sessions/:id/actions
func (c *Controller) ApplyAction(ctx *gin.Context) {
	var req ActionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		response.RespondJSON(ctx, "error", http.StatusBadRequest, "Invalid request body", nil, err.Error())
		return
	}

	resp, err := c.service.Apply(ctx.Request.Context(), ctx.Param("id"), req)
	if err != nil {
		status, msg := mapError(err)
		if status >= http.StatusInternalServerError {
			logger.GetDefault().LogHTTPError(ctx, err, status)
		}

		var verr *ValidationError
		if errors.As(err, &verr) {
			response.RespondJSON(ctx, "error", status, msg, resp, verr)
			return
		}
		response.RespondJSON(ctx, "error", status, msg, resp, err.Error())
		return
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Action applied", resp, nil)
}

func mapError(err error) (int, string) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, verr.Message
	case errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound, "Reservation session not found"
	case errors.Is(err, ErrInvalidState):
		return http.StatusConflict, "Action not allowed in the current step"
	case errors.Is(err, ErrScheduleIncomplete):
		return http.StatusBadRequest, "Please select date, time, party size and course"
	case errors.Is(err, ErrDateUnavailable):
		return http.StatusBadRequest, "The selected date is not available"
	case errors.Is(err, ErrPolicyNotAgreed):
		return http.StatusBadRequest, "Please agree to the reservation policy"
	case errors.Is(err, ErrInvalidSelection):
		return http.StatusBadRequest, "Invalid selection"
	case errors.Is(err, submission.ErrSubmissionDispatch), errors.Is(err, submission.ErrLocalCache):
		return http.StatusBadGateway, "Reservation could not be sent, please call the restaurant"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}
