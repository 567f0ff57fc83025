package availability

import (
	"log/slog"
	"net/http"
	"time"

	"tablebook/pkg/logger"

	"github.com/gin-gonic/gin"
)

const ActionGetFullyBookedDates = "getFullyBookedDates"

type Controller struct {
	service Service
	now     func() time.Time
}

func NewController(service Service) *Controller {
	return &Controller{service: service, now: time.Now}
}

// Exec handles GET /api/v1/exec?action=getFullyBookedDates
//
// The outcome is carried in the envelope; the HTTP status is always 200.
func (c *Controller) Exec(ctx *gin.Context) {
	action := ctx.Query("action")

	switch action {
	case ActionGetFullyBookedDates:
		dates, err := c.service.GetFullyBookedDates(ctx.Request.Context())
		if err != nil {
			logger.GetDefault().ErrorContext(ctx.Request.Context(), "Failed to get fully booked dates",
				slog.String("error", err.Error()))
			ctx.JSON(http.StatusOK, QueryResponse{
				Success: false,
				Error:   err.Error(),
			})
			return
		}

		ctx.JSON(http.StatusOK, QueryResponse{
			Success:   true,
			Data:      dates,
			Timestamp: c.now().UTC().Format(time.RFC3339Nano),
		})
	default:
		ctx.JSON(http.StatusOK, QueryResponse{
			Success: false,
			Error:   "Invalid action",
		})
	}
}
