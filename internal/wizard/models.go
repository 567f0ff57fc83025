package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"tablebook/internal/calendar"
)

var (
	ErrScheduleIncomplete = errors.New("date, time slot, party size and course are required")
	ErrDateUnavailable    = errors.New("date is not available")
	ErrInvalidSelection   = errors.New("invalid selection")
	ErrInvalidState       = errors.New("action not allowed in the current step")
	ErrPolicyNotAgreed    = errors.New("the reservation policy has not been accepted")
	ErrSessionNotFound    = errors.New("session not found")
)

// ValidationError is the first customer-detail field that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Step is a wizard state.
type Step int

const (
	StepSelectingSchedule Step = iota + 1
	StepEnteringDetails
	StepConfirming
	StepCompleted
)

func (s Step) String() string {
	switch s {
	case StepSelectingSchedule:
		return "selecting_schedule"
	case StepEnteringDetails:
		return "entering_details"
	case StepConfirming:
		return "confirming"
	case StepCompleted:
		return "completed"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// TimeSlot is a bookable time tagged with its period.
type TimeSlot struct {
	Period string `json:"period"`
	Time   string `json:"time"`
}

func (t TimeSlot) IsZero() bool {
	return t.Period == "" && t.Time == ""
}

// Value renders the slot as "lunch-11:30".
func (t TimeSlot) Value() string {
	if t.IsZero() {
		return ""
	}
	return t.Period + "-" + t.Time
}

// ParseTimeSlot parses "lunch-11:30".
func ParseTimeSlot(v string) (TimeSlot, error) {
	period, clock, ok := strings.Cut(v, "-")
	if !ok || period == "" || clock == "" {
		return TimeSlot{}, fmt.Errorf("%w: time slot %q", ErrInvalidSelection, v)
	}
	return TimeSlot{Period: period, Time: clock}, nil
}

// Details are the customer fields entered in the second step.
type Details struct {
	Name     string `json:"name"`
	NameKana string `json:"nameKana"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Requests string `json:"requests"`
}

// Trimmed returns d with surrounding whitespace removed from every field.
func (d Details) Trimmed() Details {
	return Details{
		Name:     strings.TrimSpace(d.Name),
		NameKana: strings.TrimSpace(d.NameKana),
		Email:    strings.TrimSpace(d.Email),
		Phone:    strings.TrimSpace(d.Phone),
		Requests: strings.TrimSpace(d.Requests),
	}
}

// Draft is the in-progress reservation of a session.
// Course is only meaningful for the period of TimeSlot.
type Draft struct {
	Date      string   `json:"date,omitempty"` // YYYY-MM-DD
	TimeSlot  TimeSlot `json:"time_slot"`
	PartySize int      `json:"party_size,omitempty"` // 0 = unset
	Course    string   `json:"course,omitempty"`
	Details
}

// Session is the complete state of one wizard run. Operations take a Session
// and return the next one; nothing is shared between sessions.
type Session struct {
	ID                string          `json:"id"`
	Step              Step            `json:"step"`
	Submitting        bool            `json:"submitting"`
	PolicyAgreed      bool            `json:"policy_agreed"`
	Cursor            calendar.Cursor `json:"cursor"`
	Draft             Draft           `json:"draft"`
	ReservationNumber string          `json:"reservation_number,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
