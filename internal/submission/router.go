package submission

import (
	"tablebook/internal/shared/config"
	"tablebook/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// SetupSubmissionRoutes configures the staff-only backup export
func SetupSubmissionRoutes(rg *gin.RouterGroup, controller *Controller, cfg *config.Config) {
	admin := rg.Group("/admin")
	admin.Use(middleware.JWTAuthWithConfig(cfg), middleware.RequireAdmin())
	{
		admin.GET("/submissions", controller.ListSubmissions) // GET /api/v1/admin/submissions
	}
}

// Route definitions for reference:
//
// LOCAL BACKUP EXPORT (ADMIN)
// GET /api/v1/admin/submissions                    - Every cached record
// GET /api/v1/admin/submissions?status=dispatch_failed - Records that never reached the form
