package staff

import (
	"tablebook/internal/shared/config"
	"tablebook/internal/shared/middleware"

	"github.com/gin-gonic/gin"
)

// Router handles staff account routes
type Router struct {
	controller *Controller
	config     *config.Config
}

func NewRouter(controller *Controller, cfg *config.Config) *Router {
	return &Router{
		controller: controller,
		config:     cfg,
	}
}

// SetupRoutes registers all staff routes
func (r *Router) SetupRoutes(rg *gin.RouterGroup) {
	staff := rg.Group("/staff")
	{
		staff.POST("/login", r.controller.Login)

		protected := staff.Group("")
		protected.Use(middleware.JWTAuthWithConfig(r.config))
		{
			protected.GET("/me", r.controller.GetMe)
			protected.PUT("/change-password", r.controller.ChangePassword)
			protected.POST("", middleware.RequireAdmin(), r.controller.CreateStaff)
		}
	}
}

// Route definitions for reference:
//
// PUBLIC
// POST /api/v1/staff/login            - Email + password, returns an access token
//
// AUTHENTICATED STAFF
// GET  /api/v1/staff/me               - Own profile (cached in Redis)
// PUT  /api/v1/staff/change-password  - Change own password
//
// ADMIN
// POST /api/v1/staff                  - Create a staff account
