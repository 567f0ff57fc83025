// internal/tui/app.go
//
// Terminal front-end for the reservation wizard. The App owns one
// wizard.Session and feeds every key press through the wizard.Machine; the
// effects that come back only drive the message line and field focus, the
// rest of the screen is re-rendered from the session.

package tui

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"tablebook/internal/calendar"
	"tablebook/internal/submission"
	"tablebook/internal/wizard"
	"tablebook/pkg/logger"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
)

// scheduleFocus is the panel of the first step that receives arrow keys
type scheduleFocus int

const (
	focusCalendar scheduleFocus = iota
	focusTimeSlot
	focusPartySize
	focusCourse
	focusCount
)

const (
	inputName = iota
	inputNameKana
	inputEmail
	inputPhone
	inputRequests
	inputCount
)

var inputFields = [inputCount]string{
	inputName:     wizard.FieldName,
	inputNameKana: wizard.FieldNameKana,
	inputEmail:    wizard.FieldEmail,
	inputPhone:    wizard.FieldPhone,
	inputRequests: "requests",
}

type bookedDatesMsg struct {
	dates []string
	err   error
}

type submitDoneMsg struct {
	rec submission.Record
	err error
}

// App is the bubbletea model for one reservation
type App struct {
	machine *wizard.Machine
	source  wizard.FullyBookedSource
	gateway wizard.Gateway
	log     *logger.Logger

	session wizard.Session
	booked  []string
	message string

	// step 1
	focus      scheduleFocus
	dayCursor  string // "YYYY-MM-DD"
	slotIndex  int
	guestIndex int
	courseIdx  int

	// step 2
	inputs     [inputCount]textinput.Model
	inputFocus int

	spinner spinner.Model

	width  int
	height int
}

// NewApp creates an App on a fresh session. source may be nil, in which case
// no date is shown as fully booked.
func NewApp(machine *wizard.Machine, source wizard.FullyBookedSource, gateway wizard.Gateway) *App {
	s := spinner.New()
	s.Spinner = spinner.Dot

	a := &App{
		machine: machine,
		source:  source,
		gateway: gateway,
		log:     logger.GetDefault(),
		spinner: s,
	}
	a.inputs = newInputs()
	a.reset(machine.NewSession(uuid.New().String()))
	return a
}

// WithLogger replaces the logger used for transitions and fetch failures
func (a *App) WithLogger(l *logger.Logger) *App {
	a.log = l
	return a
}

func newInputs() [inputCount]textinput.Model {
	placeholders := [inputCount]string{
		inputName:     "山田 太郎",
		inputNameKana: "ヤマダ タロウ",
		inputEmail:    "taro@example.com",
		inputPhone:    "090-1234-5678",
		inputRequests: "アレルギー・記念日など（任意）",
	}
	limits := [inputCount]int{50, 50, 100, 20, 200}

	var inputs [inputCount]textinput.Model
	for i := range inputs {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		in.Width = 40
		inputs[i] = in
	}
	return inputs
}

func (a *App) reset(s wizard.Session) {
	a.session = s
	a.focus = focusCalendar
	a.dayCursor = a.machine.Today().Format(calendar.DateLayout)
	a.slotIndex, a.guestIndex, a.courseIdx = 0, 0, 0
	for i := range a.inputs {
		a.inputs[i].SetValue("")
		a.inputs[i].Blur()
	}
	a.inputFocus = inputName
}

// Session returns the current wizard session
func (a *App) Session() wizard.Session {
	return a.session
}

func (a *App) Init() tea.Cmd {
	return a.fetchBookedDates()
}

func (a *App) fetchBookedDates() tea.Cmd {
	source := a.source
	if source == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		dates, err := source.GetFullyBookedDates(ctx)
		return bookedDatesMsg{dates: dates, err: err}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		return a, nil

	case bookedDatesMsg:
		if msg.err != nil {
			a.log.Warn("Fully booked dates unavailable, rendering without them", slog.String("error", msg.err.Error()))
			a.booked = nil
		} else {
			a.booked = msg.dates
		}
		return a, nil

	case submitDoneMsg:
		next, effects := a.machine.CompleteSubmit(a.session, msg.rec, msg.err)
		a.transition("submit", next, effects)
		return a, nil

	case spinner.TickMsg:
		if !a.session.Submitting {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "ctrl+r":
			return a.restart()
		}
		switch a.session.Step {
		case wizard.StepSelectingSchedule:
			return a.updateSchedule(msg)
		case wizard.StepEnteringDetails:
			return a.updateDetails(msg)
		case wizard.StepConfirming:
			return a.updateConfirmation(msg)
		case wizard.StepCompleted:
			return a.updateCompleted(msg)
		}
		return a, nil
	}

	// cursor blinks
	if a.session.Step == wizard.StepEnteringDetails {
		var cmd tea.Cmd
		a.inputs[a.inputFocus], cmd = a.inputs[a.inputFocus].Update(msg)
		return a, cmd
	}
	return a, nil
}

// transition stores next and applies the effects the App cares about
func (a *App) transition(action string, next wizard.Session, effects []wizard.Effect) {
	a.log.LogWizardTransition(context.Background(), next.ID, action, a.session.Step.String(), next.Step.String())
	a.session = next
	for _, e := range effects {
		switch e.Kind {
		case wizard.EffectShowMessage:
			a.message = e.Message
		case wizard.EffectFocusField:
			a.focusInput(e.Field)
		case wizard.EffectRenderStep:
			a.message = ""
			if e.Step == wizard.StepEnteringDetails {
				a.focusInputIndex(a.inputFocus)
			}
		case wizard.EffectClearField:
			if e.Field == wizard.FieldCourse {
				a.courseIdx = 0
			}
		}
	}
}

// fail shows err on the message line. Validation and machine errors carry
// their own effects, so plain errors only need their text.
func (a *App) fail(err error, effects []wizard.Effect) {
	if wizard.Has(effects, wizard.EffectShowMessage) {
		for _, e := range effects {
			if e.Kind == wizard.EffectFocusField {
				a.focusInput(e.Field)
			}
			if e.Kind == wizard.EffectShowMessage {
				a.message = e.Message
			}
		}
		return
	}
	a.message = errorMessage(err)
}

func errorMessage(err error) string {
	switch {
	case errors.Is(err, wizard.ErrDateUnavailable):
		return "この日はご予約いただけません。"
	case errors.Is(err, wizard.ErrScheduleIncomplete):
		return "日付・時間・人数・コースを選択してください。"
	case errors.Is(err, wizard.ErrPolicyNotAgreed):
		return "ご予約ポリシーに同意してください。"
	default:
		return err.Error()
	}
}

func (a *App) updateSchedule(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return a, tea.Quit
	case "r":
		return a.restart()
	case "tab":
		a.focus = (a.focus + 1) % focusCount
		return a, nil
	case "shift+tab":
		a.focus = (a.focus + focusCount - 1) % focusCount
		return a, nil
	case "[":
		a.shiftMonth(-1)
		return a, nil
	case "]":
		a.shiftMonth(1)
		return a, nil
	case "n":
		next, effects, err := a.machine.ProceedToDetails(a.session)
		if err != nil {
			a.fail(err, effects)
			return a, nil
		}
		a.transition("proceed_to_details", next, effects)
		return a, textinput.Blink
	}

	if a.focus == focusCalendar {
		return a.updateCalendar(msg)
	}
	return a.updateOptions(msg)
}

func (a *App) updateCalendar(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "left", "h":
		a.moveDay(-1)
	case "right", "l":
		a.moveDay(1)
	case "up", "k":
		a.moveDay(-7)
	case "down", "j":
		a.moveDay(7)
	case "enter", " ":
		next, effects, err := a.machine.SelectDate(a.session, a.dayCursor, a.booked)
		if err != nil {
			a.fail(err, effects)
			return a, nil
		}
		a.message = ""
		a.transition("select_date", next, effects)
		a.focus = focusTimeSlot
	}
	return a, nil
}

// moveDay moves the day cursor, following it into the next or previous month
func (a *App) moveDay(delta int) {
	day, err := time.Parse(calendar.DateLayout, a.dayCursor)
	if err != nil {
		return
	}
	day = day.AddDate(0, 0, delta)
	a.dayCursor = day.Format(calendar.DateLayout)

	for !a.session.Cursor.Contains(a.dayCursor) {
		c := a.session.Cursor
		var next wizard.Session
		if day.Before(time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC)) {
			next, _ = a.machine.PrevMonth(a.session)
		} else {
			next, _ = a.machine.NextMonth(a.session)
		}
		a.session = next
	}
}

func (a *App) shiftMonth(delta int) {
	var next wizard.Session
	var effects []wizard.Effect
	if delta < 0 {
		next, effects = a.machine.PrevMonth(a.session)
	} else {
		next, effects = a.machine.NextMonth(a.session)
	}
	a.transition("change_month", next, effects)
	a.dayCursor = time.Date(next.Cursor.Year, next.Cursor.Month, 1, 0, 0, 0, 0, time.UTC).Format(calendar.DateLayout)
}

func (a *App) updateOptions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	index, options := a.focusedOptions()
	if len(options) == 0 {
		return a, nil
	}

	switch msg.String() {
	case "up", "k":
		if *index > 0 {
			*index--
		}
	case "down", "j":
		if *index < len(options)-1 {
			*index++
		}
	case "enter", " ":
		a.selectOption(options[*index].Value)
	}
	return a, nil
}

func (a *App) focusedOptions() (*int, []wizard.Option) {
	switch a.focus {
	case focusTimeSlot:
		return &a.slotIndex, flattenGroups(a.machine.TimeSlotOptions())
	case focusPartySize:
		return &a.guestIndex, a.machine.PartySizeOptions()
	case focusCourse:
		if g := a.machine.CourseOptions(a.session); g != nil {
			return &a.courseIdx, g.Options
		}
	}
	return &a.courseIdx, nil
}

func (a *App) selectOption(value string) {
	var (
		next    wizard.Session
		effects []wizard.Effect
		err     error
		action  string
	)
	switch a.focus {
	case focusTimeSlot:
		action = "select_time_slot"
		next, effects, err = a.machine.SelectTimeSlot(a.session, value)
	case focusPartySize:
		action = "select_party_size"
		next, effects, err = a.machine.SelectPartySize(a.session, value)
	case focusCourse:
		action = "select_course"
		next, effects, err = a.machine.SelectCourse(a.session, value)
	}
	if err != nil {
		a.fail(err, effects)
		return
	}
	if !wizard.Has(effects, wizard.EffectShowMessage) {
		a.message = ""
	}
	a.transition(action, next, effects)
	if a.focus < focusCourse && !wizard.Has(effects, wizard.EffectShowMessage) {
		a.focus++
	}
}

func flattenGroups(groups []wizard.OptionGroup) []wizard.Option {
	var out []wizard.Option
	for _, g := range groups {
		out = append(out, g.Options...)
	}
	return out
}

func (a *App) updateDetails(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.syncDetails()
		next, effects, err := a.machine.Back(a.session)
		if err != nil {
			a.fail(err, effects)
			return a, nil
		}
		a.blurInputs()
		a.transition("back", next, effects)
		return a, nil
	case "tab", "down":
		a.focusInputIndex((a.inputFocus + 1) % inputCount)
		return a, textinput.Blink
	case "shift+tab", "up":
		a.focusInputIndex((a.inputFocus + inputCount - 1) % inputCount)
		return a, textinput.Blink
	case "enter":
		if a.inputFocus < inputCount-1 {
			a.focusInputIndex(a.inputFocus + 1)
			return a, textinput.Blink
		}
		return a.proceedToConfirmation()
	case "ctrl+n":
		return a.proceedToConfirmation()
	}

	var cmd tea.Cmd
	a.inputs[a.inputFocus], cmd = a.inputs[a.inputFocus].Update(msg)
	a.syncDetails()
	return a, cmd
}

func (a *App) proceedToConfirmation() (tea.Model, tea.Cmd) {
	a.syncDetails()
	next, effects, err := a.machine.ProceedToConfirmation(a.session)
	if err != nil {
		a.fail(err, effects)
		return a, textinput.Blink
	}
	a.blurInputs()
	a.transition("proceed_to_confirmation", next, effects)
	return a, nil
}

// syncDetails copies the inputs into the draft as typed
func (a *App) syncDetails() {
	next, _, err := a.machine.UpdateDetails(a.session, wizard.Details{
		Name:     a.inputs[inputName].Value(),
		NameKana: a.inputs[inputNameKana].Value(),
		Email:    a.inputs[inputEmail].Value(),
		Phone:    a.inputs[inputPhone].Value(),
		Requests: a.inputs[inputRequests].Value(),
	})
	if err == nil {
		a.session = next
	}
}

func (a *App) focusInput(field string) {
	for i, f := range inputFields {
		if f == field {
			a.focusInputIndex(i)
			return
		}
	}
}

func (a *App) focusInputIndex(i int) {
	a.blurInputs()
	a.inputFocus = i
	a.inputs[i].Focus()
}

func (a *App) blurInputs() {
	for i := range a.inputs {
		a.inputs[i].Blur()
	}
}

func (a *App) updateConfirmation(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if a.session.Submitting {
		return a, nil
	}

	switch msg.String() {
	case "esc":
		next, effects, err := a.machine.Back(a.session)
		if err != nil {
			a.fail(err, effects)
			return a, nil
		}
		a.transition("back", next, effects)
		a.focusInputIndex(a.inputFocus)
		return a, textinput.Blink
	case "r":
		return a.restart()
	case " ", "a":
		next, effects, err := a.machine.SetPolicyAgreement(a.session, !a.session.PolicyAgreed)
		if err != nil {
			a.fail(err, effects)
			return a, nil
		}
		a.transition("set_policy_agreement", next, effects)
		return a, nil
	case "enter":
		return a.submit()
	}
	return a, nil
}

// submit enters the submitting sub-state and hands the record to the gateway
// off the UI goroutine
func (a *App) submit() (tea.Model, tea.Cmd) {
	next, rec, effects, err := a.machine.BeginSubmit(a.session)
	if err != nil {
		a.fail(err, effects)
		return a, nil
	}
	a.message = ""
	a.transition("begin_submit", next, effects)

	gateway := a.gateway
	send := func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		stored, err := gateway.Submit(ctx, rec)
		return submitDoneMsg{rec: stored, err: err}
	}
	return a, tea.Batch(send, a.spinner.Tick)
}

func (a *App) updateCompleted(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "enter":
		return a, tea.Quit
	case "r":
		return a.restart()
	}
	return a, nil
}

// restart is available from every step except while a submission is in flight
func (a *App) restart() (tea.Model, tea.Cmd) {
	if a.session.Submitting {
		return a, nil
	}
	next, effects := a.machine.Restart(a.session)
	a.transition("restart", next, effects)
	a.reset(next)
	return a, a.fetchBookedDates()
}
