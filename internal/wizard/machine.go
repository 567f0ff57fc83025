package wizard

import (
	"fmt"
	"strconv"
	"time"

	"tablebook/internal/calendar"
	"tablebook/internal/shared/config"
	"tablebook/internal/submission"
)

// Machine holds the restaurant catalog and a clock. Its methods are the
// wizard transitions: each takes a Session and returns the next Session plus
// the effects the front-end must apply. The input Session is never modified.
type Machine struct {
	restaurant *config.Restaurant
	now        func() time.Time
}

func NewMachine(restaurant *config.Restaurant) *Machine {
	if restaurant == nil {
		restaurant = config.DefaultRestaurant()
	}
	return &Machine{restaurant: restaurant, now: time.Now}
}

// WithClock replaces the machine's clock.
func (m *Machine) WithClock(now func() time.Time) *Machine {
	m.now = now
	return m
}

// Restaurant returns the catalog the machine validates against.
func (m *Machine) Restaurant() *config.Restaurant {
	return m.restaurant
}

// Today returns the current time in the restaurant's timezone.
func (m *Machine) Today() time.Time {
	return m.now().In(m.restaurant.Location())
}

// NewSession starts an empty draft with the calendar on the current month.
func (m *Machine) NewSession(id string) Session {
	now := m.Today()
	return Session{
		ID:        id,
		Step:      StepSelectingSchedule,
		Cursor:    calendar.CursorFor(now),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Calendar renders the session's displayed month.
func (m *Machine) Calendar(s Session, fullyBooked []string) calendar.Month {
	return calendar.Render(s.Cursor.Input(m.Today(), m.restaurant.ClosedWeekdaySet(), fullyBooked, s.Draft.Date))
}

// CanProceedToDetails reports whether all four schedule fields are set.
func CanProceedToDetails(s Session) bool {
	d := s.Draft
	return d.Date != "" && !d.TimeSlot.IsZero() && d.PartySize > 0 && d.Course != ""
}

// SelectDate sets the reservation date. Only available days can be chosen.
func (m *Machine) SelectDate(s Session, date string, fullyBooked []string) (Session, []Effect, error) {
	if err := requireStep(s, StepSelectingSchedule); err != nil {
		return s, nil, err
	}

	class, err := calendar.Classify(date, m.Today(), m.restaurant.ClosedWeekdaySet(), fullyBooked)
	if err != nil {
		return s, nil, fmt.Errorf("%w: %v", ErrInvalidSelection, err)
	}
	if class != calendar.ClassAvailable {
		return s, nil, fmt.Errorf("%w: %s is %s", ErrDateUnavailable, date, class)
	}

	s.Draft.Date = date
	return m.touch(s), []Effect{
		renderCalendar(),
		{Kind: EffectEnableTimeSlots, Enabled: true},
		updateSummary(),
		proceedEnabled(CanProceedToDetails(s)),
	}, nil
}

// PrevMonth moves the calendar back one month. The selected date is kept.
func (m *Machine) PrevMonth(s Session) (Session, []Effect) {
	s.Cursor = s.Cursor.Prev()
	return m.touch(s), []Effect{renderCalendar()}
}

// NextMonth moves the calendar forward one month. The selected date is kept.
func (m *Machine) NextMonth(s Session) (Session, []Effect) {
	s.Cursor = s.Cursor.Next()
	return m.touch(s), []Effect{renderCalendar()}
}

// SelectTimeSlot sets the slot from a "period-HH:MM" value; an empty value
// clears it. Moving to another period clears the course.
func (m *Machine) SelectTimeSlot(s Session, value string) (Session, []Effect, error) {
	if err := requireStep(s, StepSelectingSchedule); err != nil {
		return s, nil, err
	}
	if s.Draft.Date == "" {
		return s, nil, fmt.Errorf("%w: select a date first", ErrInvalidSelection)
	}

	var slot TimeSlot
	if value != "" {
		parsed, err := ParseTimeSlot(value)
		if err != nil {
			return s, nil, err
		}
		period, ok := m.restaurant.Period(parsed.Period)
		if !ok || !period.HasSlot(parsed.Time) {
			return s, nil, fmt.Errorf("%w: time slot %q", ErrInvalidSelection, value)
		}
		slot = parsed
	}

	var effects []Effect
	if slot.Period != s.Draft.TimeSlot.Period {
		s.Draft.Course = ""
		effects = append(effects,
			Effect{Kind: EffectRenderCourseOptions, Period: slot.Period},
			clearField(FieldCourse),
		)
	}
	s.Draft.TimeSlot = slot

	effects = append(effects, updateSummary(), proceedEnabled(CanProceedToDetails(s)))
	return m.touch(s), effects, nil
}

// SelectPartySize sets the party size. "more", or anything above the cap,
// is refused: the field is cleared and the customer is sent to the phone.
func (m *Machine) SelectPartySize(s Session, value string) (Session, []Effect, error) {
	if err := requireStep(s, StepSelectingSchedule); err != nil {
		return s, nil, err
	}

	limit := m.restaurant.MaxPartySize
	switch value {
	case "":
		s.Draft.PartySize = 0
	case "more":
		return m.rejectPartySize(s)
	default:
		n, err := strconv.Atoi(value)
		if err != nil || n < 1 {
			return s, nil, fmt.Errorf("%w: party size %q", ErrInvalidSelection, value)
		}
		if n > limit {
			return m.rejectPartySize(s)
		}
		s.Draft.PartySize = n
	}

	return m.touch(s), []Effect{updateSummary(), proceedEnabled(CanProceedToDetails(s))}, nil
}

func (m *Machine) rejectPartySize(s Session) (Session, []Effect, error) {
	s.Draft.PartySize = 0
	msg := fmt.Sprintf("%d名様以上のご予約は、お電話（%s）にてお問い合わせください。",
		m.restaurant.MaxPartySize+1, m.restaurant.Phone)
	return m.touch(s), []Effect{
		clearField(FieldGuests),
		showMessage(msg),
		updateSummary(),
		proceedEnabled(false),
	}, nil
}

// SelectCourse sets the course, which must belong to the current period.
// An empty value clears it.
func (m *Machine) SelectCourse(s Session, value string) (Session, []Effect, error) {
	if err := requireStep(s, StepSelectingSchedule); err != nil {
		return s, nil, err
	}

	if value != "" {
		if s.Draft.TimeSlot.IsZero() {
			return s, nil, fmt.Errorf("%w: select a time slot first", ErrInvalidSelection)
		}
		if _, ok := m.course(s.Draft.TimeSlot.Period, value); !ok {
			return s, nil, fmt.Errorf("%w: course %q is not served at %s", ErrInvalidSelection, value, s.Draft.TimeSlot.Period)
		}
	}

	s.Draft.Course = value
	return m.touch(s), []Effect{updateSummary(), proceedEnabled(CanProceedToDetails(s))}, nil
}

// ProceedToDetails moves to the customer-details step.
func (m *Machine) ProceedToDetails(s Session) (Session, []Effect, error) {
	if err := requireStep(s, StepSelectingSchedule); err != nil {
		return s, nil, err
	}
	if !CanProceedToDetails(s) {
		return s, nil, ErrScheduleIncomplete
	}

	s.Step = StepEnteringDetails
	return m.touch(s), []Effect{renderStep(StepEnteringDetails)}, nil
}

// UpdateDetails stores the customer fields as typed. They are trimmed and
// validated on ProceedToConfirmation.
func (m *Machine) UpdateDetails(s Session, d Details) (Session, []Effect, error) {
	if err := requireStep(s, StepEnteringDetails); err != nil {
		return s, nil, err
	}
	s.Draft.Details = d
	return m.touch(s), nil, nil
}

// ProceedToConfirmation validates name, nameKana, email and phone in that
// order. The first failure is returned as a *ValidationError.
func (m *Machine) ProceedToConfirmation(s Session) (Session, []Effect, error) {
	if err := requireStep(s, StepEnteringDetails); err != nil {
		return s, nil, err
	}

	details := s.Draft.Details.Trimmed()
	if verr := ValidateDetails(details); verr != nil {
		return s, []Effect{showMessage(verr.Message), focusField(verr.Field)}, verr
	}

	s.Draft.Details = details
	s.Step = StepConfirming
	return m.touch(s), []Effect{
		renderStep(StepConfirming),
		{Kind: EffectRenderConfirmation},
		confirmControl(s),
	}, nil
}

// SetPolicyAgreement ticks or unticks the policy checkbox, which gates the
// confirm control.
func (m *Machine) SetPolicyAgreement(s Session, agreed bool) (Session, []Effect, error) {
	if err := requireStep(s, StepConfirming); err != nil {
		return s, nil, err
	}
	if s.Submitting {
		return s, nil, fmt.Errorf("%w: submission in progress", ErrInvalidState)
	}
	s.PolicyAgreed = agreed
	return m.touch(s), []Effect{confirmControl(s)}, nil
}

// Back returns to the previous step without clearing anything.
func (m *Machine) Back(s Session) (Session, []Effect, error) {
	if s.Submitting {
		return s, nil, fmt.Errorf("%w: submission in progress", ErrInvalidState)
	}

	switch s.Step {
	case StepEnteringDetails:
		s.Step = StepSelectingSchedule
		return m.touch(s), []Effect{
			renderStep(StepSelectingSchedule),
			renderCalendar(),
			updateSummary(),
			proceedEnabled(CanProceedToDetails(s)),
		}, nil
	case StepConfirming:
		s.Step = StepEnteringDetails
		return m.touch(s), []Effect{renderStep(StepEnteringDetails)}, nil
	default:
		return s, nil, fmt.Errorf("%w: cannot go back from %s", ErrInvalidState, s.Step)
	}
}

// Restart discards the draft and starts over on the current month.
func (m *Machine) Restart(s Session) (Session, []Effect) {
	fresh := m.NewSession(s.ID)
	fresh.CreatedAt = s.CreatedAt
	return fresh, []Effect{
		renderStep(StepSelectingSchedule),
		renderCalendar(),
		updateSummary(),
		proceedEnabled(false),
		confirmControl(fresh),
	}
}

// Reservation freezes the draft into submission content with display labels.
func (m *Machine) Reservation(s Session) submission.Reservation {
	d := s.Draft
	label := d.Course
	if c, ok := m.course(d.TimeSlot.Period, d.Course); ok {
		label = c.DisplayName()
	}
	return submission.Reservation{
		Date:        d.Date,
		Time:        d.TimeSlot.Time,
		Period:      d.TimeSlot.Period,
		Guests:      d.PartySize,
		Course:      d.Course,
		CourseLabel: label,
		Name:        d.Name,
		NameKana:    d.NameKana,
		Email:       d.Email,
		Phone:       d.Phone,
		Requests:    d.Requests,
	}
}

func (m *Machine) course(period, value string) (config.Course, bool) {
	p, ok := m.restaurant.Period(period)
	if !ok {
		return config.Course{}, false
	}
	return p.Course(value)
}

func (m *Machine) touch(s Session) Session {
	s.UpdatedAt = m.Today()
	return s
}

func requireStep(s Session, want Step) error {
	if s.Step != want {
		return fmt.Errorf("%w: expected %s, session is %s", ErrInvalidState, want, s.Step)
	}
	return nil
}
