package submission

import (
	"net/http"

	"tablebook/internal/shared/utils/response"
	"tablebook/pkg/logger"

	"github.com/gin-gonic/gin"
)

type Controller struct {
	gateway *Gateway
}

func NewController(gateway *Gateway) *Controller {
	return &Controller{gateway: gateway}
}

// ListSubmissions handles GET /api/v1/admin/submissions
// Optional ?status=unconfirmed|dispatch_failed filters the backup list.
func (c *Controller) ListSubmissions(ctx *gin.Context) {
	records, err := c.gateway.Records(ctx.Request.Context())
	if err != nil {
		logger.GetDefault().LogHTTPError(ctx, err, http.StatusInternalServerError)
		response.RespondJSON(ctx, "error", http.StatusInternalServerError, "Failed to read local backup", nil, err.Error())
		return
	}

	if status := ctx.Query("status"); status != "" {
		filtered := make([]Record, 0, len(records))
		for _, r := range records {
			if string(r.DeliveryStatus) == status {
				filtered = append(filtered, r)
			}
		}
		records = filtered
	}

	response.RespondJSON(ctx, "success", http.StatusOK, "Submissions retrieved successfully", gin.H{
		"submissions": records,
		"count":       len(records),
	}, nil)
}
