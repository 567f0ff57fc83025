package wizard

import (
	"github.com/gin-gonic/gin"
)

// SetupWizardRoutes configures the reservation wizard session API
func SetupWizardRoutes(rg *gin.RouterGroup, controller *Controller) {
	sessions := rg.Group("/wizard/sessions")
	{
		sessions.POST("", controller.CreateSession)           // POST /api/v1/wizard/sessions
		sessions.GET("/:id", controller.GetSession)           // GET /api/v1/wizard/sessions/:id
		sessions.POST("/:id/actions", controller.ApplyAction) // POST /api/v1/wizard/sessions/:id/actions
	}
}

// Route definitions for reference:
//
// POST /api/v1/wizard/sessions                 - Start a reservation (step 1, current month)
// GET  /api/v1/wizard/sessions/:id             - Current step, calendar, options, summary
// POST /api/v1/wizard/sessions/:id/actions     - Apply one action
// Request body examples:
//   { "type": "select_date", "value": "2025-04-10" }
//   { "type": "select_time_slot", "value": "dinner-18:00" }
//   { "type": "select_party_size", "value": "4" }          ("more" redirects to phone)
//   { "type": "select_course", "value": "dinner-chef" }
//   { "type": "proceed_to_details" }
//   { "type": "proceed_to_confirmation", "details": { "name": "...", "nameKana": "...", "email": "...", "phone": "..." } }
//   { "type": "set_policy_agreement", "agree": true }
//   { "type": "submit" }
//   { "type": "back" } / { "type": "restart" } / { "type": "prev_month" } / { "type": "next_month" }
