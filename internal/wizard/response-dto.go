package wizard

import "tablebook/internal/calendar"

// SessionResponse is everything a front-end needs to draw the current step.
type SessionResponse struct {
	Session      Session         `json:"session"`
	Step         string          `json:"step"`
	Calendar     *calendar.Month `json:"calendar,omitempty"`
	TimeSlots    []OptionGroup   `json:"time_slots,omitempty"`
	PartySizes   []Option        `json:"party_sizes,omitempty"`
	Courses      *OptionGroup    `json:"courses,omitempty"`
	Summary      *Summary        `json:"summary,omitempty"`
	CanProceed   bool            `json:"can_proceed"`
	Confirmation *Confirmation   `json:"confirmation,omitempty"`
	Effects      []Effect        `json:"effects"`
}

// buildResponse renders s. fullyBooked is only used for the calendar.
func (m *Machine) buildResponse(s Session, fullyBooked []string, effects []Effect) *SessionResponse {
	if effects == nil {
		effects = []Effect{}
	}
	resp := &SessionResponse{
		Session:    s,
		Step:       s.Step.String(),
		CanProceed: CanProceedToDetails(s),
		Effects:    effects,
	}

	switch s.Step {
	case StepSelectingSchedule:
		month := m.Calendar(s, fullyBooked)
		resp.Calendar = &month
		if s.Draft.Date != "" {
			resp.TimeSlots = m.TimeSlotOptions()
		}
		resp.PartySizes = m.PartySizeOptions()
		resp.Courses = m.CourseOptions(s)
		if summary := m.Summary(s); !summary.IsEmpty() {
			resp.Summary = &summary
		}
	case StepConfirming, StepCompleted:
		confirmation := m.Confirmation(s)
		resp.Confirmation = &confirmation
	}
	return resp
}
