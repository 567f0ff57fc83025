package wizard

// Action types accepted by POST /wizard/sessions/:id/actions
const (
	ActionSelectDate            = "select_date"
	ActionPrevMonth             = "prev_month"
	ActionNextMonth             = "next_month"
	ActionSelectTimeSlot        = "select_time_slot"
	ActionSelectPartySize       = "select_party_size"
	ActionSelectCourse          = "select_course"
	ActionProceedToDetails      = "proceed_to_details"
	ActionUpdateDetails         = "update_details"
	ActionProceedToConfirmation = "proceed_to_confirmation"
	ActionSetPolicyAgreement    = "set_policy_agreement"
	ActionSubmit                = "submit"
	ActionBack                  = "back"
	ActionRestart               = "restart"
)

type ActionRequest struct {
	Type    string   `json:"type" binding:"required,oneof=select_date prev_month next_month select_time_slot select_party_size select_course proceed_to_details update_details proceed_to_confirmation set_policy_agreement submit back restart"`
	Value   string   `json:"value" binding:"max=64"`
	Details *Details `json:"details,omitempty"`
	Agree   bool     `json:"agree"`
}
