// api/routes/router.go
package routes

import (
	"net/http"
	"time"

	"tablebook/internal/availability"
	"tablebook/internal/shared/config"
	"tablebook/internal/shared/database"
	"tablebook/internal/staff"
	"tablebook/internal/submission"
	"tablebook/internal/wizard"
	"tablebook/pkg/cache"

	"github.com/gin-gonic/gin"
)

// Router holds all route dependencies
type Router struct {
	config     *config.Config
	restaurant *config.Restaurant
	db         *database.DB
	cache      cache.Service
	notifier   submission.Notifier // nil when notifications are disabled

	availabilityService availability.Service
	gateway             *submission.Gateway
}

// NewRouter creates a new router instance
func NewRouter(cfg *config.Config, restaurant *config.Restaurant, db *database.DB, notifier submission.Notifier) *Router {
	return &Router{
		config:     cfg,
		restaurant: restaurant,
		db:         db,
		cache:      cache.NewService(db.GetRedisClient()),
		notifier:   notifier,
	}
}

// SetupRoutes configures all application routes
func (r *Router) SetupRoutes(engine *gin.Engine) {
	r.setupHealthRoutes(engine)

	api := engine.Group(r.config.GetAPIBasePath())
	{
		// availability and submission first, the wizard depends on both
		r.setupAvailabilityRoutes(api)
		r.setupSubmissionRoutes(api)
		r.setupWizardRoutes(api)
		r.setupStaffRoutes(api)
	}
}

// setupHealthRoutes sets up health check and system status routes
func (r *Router) setupHealthRoutes(engine *gin.Engine) {
	engine.GET("/health", func(c *gin.Context) {
		health, err := r.db.HealthCheck(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"backends":  health,
				"timestamp": time.Now(),
				"service":   "tablebook",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"backends":  health,
			"timestamp": time.Now(),
			"service":   "tablebook",
		})
	})

	engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
			"version": r.config.APIVersion,
		})
	})
}

func (r *Router) setupAvailabilityRoutes(rg *gin.RouterGroup) {
	repo := availability.NewRepository(r.db.GetPostgreSQL())
	r.availabilityService = availability.NewService(
		repo,
		r.restaurant.SheetName,
		r.restaurant.MaxReservationsPerDay,
		r.restaurant.Location(),
	)

	availability.SetupAvailabilityRoutes(rg, availability.NewController(r.availabilityService))
}

func (r *Router) setupSubmissionRoutes(rg *gin.RouterGroup) {
	form := r.restaurant.FormSettings(r.config.Form)
	dispatcher := submission.NewFormDispatcher(form.BaseURL, form.FormID, submission.FieldMapping(form.Entries), form.Timeout)
	r.gateway = submission.NewGateway(dispatcher, submission.NewRedisCache(r.db.GetRedisClient()), r.notifier)

	submission.SetupSubmissionRoutes(rg, submission.NewController(r.gateway), r.config)
}

func (r *Router) setupWizardRoutes(rg *gin.RouterGroup) {
	machine := wizard.NewMachine(r.restaurant)
	store := wizard.NewSessionStore(r.cache, r.config.Redis.SessionTTL)
	wizardService := wizard.NewService(machine, store, r.availabilityService, r.gateway)

	wizard.SetupWizardRoutes(rg, wizard.NewController(wizardService))
}

func (r *Router) setupStaffRoutes(rg *gin.RouterGroup) {
	staffRepo := staff.NewRepository(r.db.GetPostgreSQL())
	staffService := staff.NewService(staffRepo, r.cache, r.config)
	staffRouter := staff.NewRouter(staff.NewController(staffService), r.config)

	staffRouter.SetupRoutes(rg)
}
