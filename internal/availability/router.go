package availability

import (
	"github.com/gin-gonic/gin"
)

// SetupAvailabilityRoutes configures the read-only query endpoint
func SetupAvailabilityRoutes(rg *gin.RouterGroup, controller *Controller) {
	rg.GET("/exec", controller.Exec) // GET /api/v1/exec?action=getFullyBookedDates
}

// Route definitions for reference:
//
// GET /api/v1/exec?action=getFullyBookedDates
//   200 {"success":true,"data":["2025-04-10"],"timestamp":"2025-04-01T00:00:00Z"}
//   200 {"success":false,"error":"data source unavailable: sheet not found: form_responses"}
// GET /api/v1/exec?action=unknown
//   200 {"success":false,"error":"Invalid action"}
