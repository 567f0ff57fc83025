package wizard

// EffectKind names a render instruction for the front-end.
type EffectKind string

const (
	EffectRenderStep          EffectKind = "render_step"
	EffectRenderCalendar      EffectKind = "render_calendar"
	EffectEnableTimeSlots     EffectKind = "enable_time_slots"
	EffectRenderCourseOptions EffectKind = "render_course_options"
	EffectUpdateSummary       EffectKind = "update_summary"
	EffectSetProceedEnabled   EffectKind = "set_proceed_enabled"
	EffectRenderConfirmation  EffectKind = "render_confirmation"
	EffectSetConfirmControl   EffectKind = "set_confirm_control"
	EffectShowMessage         EffectKind = "show_message"
	EffectFocusField          EffectKind = "focus_field"
	EffectClearField          EffectKind = "clear_field"
)

// Confirm control labels.
const (
	ConfirmLabel    = "予約を確定する"
	SubmittingLabel = "送信中..."
)

// Effect describes one UI side effect of a transition. Only the fields
// relevant to Kind are set.
type Effect struct {
	Kind    EffectKind `json:"kind"`
	Step    Step       `json:"step,omitempty"`
	Field   string     `json:"field,omitempty"`
	Period  string     `json:"period,omitempty"`
	Message string     `json:"message,omitempty"`
	Enabled bool       `json:"enabled,omitempty"`
	Label   string     `json:"label,omitempty"`
}

func renderStep(s Step) Effect {
	return Effect{Kind: EffectRenderStep, Step: s}
}

func renderCalendar() Effect {
	return Effect{Kind: EffectRenderCalendar}
}

func showMessage(msg string) Effect {
	return Effect{Kind: EffectShowMessage, Message: msg}
}

func focusField(field string) Effect {
	return Effect{Kind: EffectFocusField, Field: field}
}

func clearField(field string) Effect {
	return Effect{Kind: EffectClearField, Field: field}
}

func updateSummary() Effect {
	return Effect{Kind: EffectUpdateSummary}
}

func proceedEnabled(enabled bool) Effect {
	return Effect{Kind: EffectSetProceedEnabled, Enabled: enabled}
}

func confirmControl(s Session) Effect {
	if s.Submitting {
		return Effect{Kind: EffectSetConfirmControl, Enabled: false, Label: SubmittingLabel}
	}
	return Effect{Kind: EffectSetConfirmControl, Enabled: s.PolicyAgreed, Label: ConfirmLabel}
}

// Has reports whether effects contains one of kind.
func Has(effects []Effect, kind EffectKind) bool {
	_, ok := Find(effects, kind)
	return ok
}

// Find returns the first effect of kind.
func Find(effects []Effect, kind EffectKind) (Effect, bool) {
	for _, e := range effects {
		if e.Kind == kind {
			return e, true
		}
	}
	return Effect{}, false
}
