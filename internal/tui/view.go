package tui

import (
	"fmt"
	"strings"

	"tablebook/internal/calendar"
	"tablebook/internal/wizard"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#CCCCCC"))
	hintStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0")).Width(14)

	dayStyle         = lipgloss.NewStyle().Width(4).Align(lipgloss.Right)
	dayDimStyle      = dayStyle.Foreground(lipgloss.Color("#555555"))
	dayBookedStyle   = dayStyle.Foreground(lipgloss.Color("#FF6B6B"))
	daySundayStyle   = dayStyle.Foreground(lipgloss.Color("#E57373"))
	daySaturdayStyle = dayStyle.Foreground(lipgloss.Color("#64B5F6"))
	daySelectedStyle = dayStyle.Reverse(true).Bold(true)

	optionStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
	optionActive  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	optionChosen  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	panelStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	panelFocused  = panelStyle.BorderForeground(lipgloss.Color("#5B8DEF"))
	confirmButton = lipgloss.NewStyle().Padding(0, 2).Bold(true)
)

var stepTitles = map[wizard.Step]string{
	wizard.StepSelectingSchedule: "1. 日時・人数・コースの選択",
	wizard.StepEnteringDetails:   "2. お客様情報の入力",
	wizard.StepConfirming:        "3. ご予約内容の確認",
	wizard.StepCompleted:         "ご予約完了",
}

func (a *App) View() string {
	var body, hint string
	switch a.session.Step {
	case wizard.StepSelectingSchedule:
		body = a.viewSchedule()
		hint = "tab: 項目切替  ←↑↓→: 移動  enter: 選択  [ ]: 月切替  n: 次へ  r: やり直す  q: 終了"
	case wizard.StepEnteringDetails:
		body = a.viewDetails()
		hint = "tab: 次の項目  enter/ctrl+n: 確認へ  esc: 戻る  ctrl+r: やり直す"
	case wizard.StepConfirming:
		body = a.viewConfirmation()
		hint = "space: ポリシーに同意  enter: 予約を確定  esc: 戻る  r: やり直す"
	case wizard.StepCompleted:
		body = a.viewCompleted()
		hint = "r: 新しい予約  q: 終了"
	}

	parts := []string{titleStyle.Render(stepTitles[a.session.Step]), "", body}
	if a.message != "" {
		parts = append(parts, "", messageStyle.Render(a.message))
	}
	parts = append(parts, "", hintStyle.Render(hint))
	return lipgloss.NewStyle().Padding(1, 2).Render(lipgloss.JoinVertical(lipgloss.Left, parts...))
}

func (a *App) viewSchedule() string {
	cal := a.panel(focusCalendar).Render(a.viewCalendar())
	slots := a.panel(focusTimeSlot).Render(a.viewTimeSlots())
	guests := a.panel(focusPartySize).Render(a.viewOptions("人数", a.machine.PartySizeOptions(), a.guestIndex,
		focusPartySize, fmt.Sprint(a.session.Draft.PartySize)))

	var course string
	if g := a.machine.CourseOptions(a.session); g != nil {
		course = a.viewOptions("コース", g.Options, a.courseIdx, focusCourse, a.session.Draft.Course)
	} else {
		course = headingStyle.Render("コース") + "\n" + hintStyle.Render("時間を選択してください")
	}
	course = a.panel(focusCourse).Render(course)

	top := lipgloss.JoinHorizontal(lipgloss.Top, cal, slots, guests)
	return lipgloss.JoinVertical(lipgloss.Left, top, course, a.viewSummary())
}

func (a *App) panel(f scheduleFocus) lipgloss.Style {
	if a.focus == f {
		return panelFocused
	}
	return panelStyle
}

func (a *App) viewCalendar() string {
	month := a.machine.Calendar(a.session, a.booked)

	var b strings.Builder
	b.WriteString(headingStyle.Render(fmt.Sprintf("◀ %s ▶", month.Title)))
	b.WriteString("\n")
	for i, wd := range month.Weekdays {
		style := dayStyle
		switch i {
		case 0:
			style = daySundayStyle
		case 6:
			style = daySaturdayStyle
		}
		b.WriteString(style.Render(wd))
	}
	for _, week := range month.Weeks() {
		b.WriteString("\n")
		for _, cell := range week {
			b.WriteString(a.viewDay(cell))
		}
	}
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("× 満席  薄字: 予約不可"))
	return b.String()
}

func (a *App) viewDay(cell calendar.Cell) string {
	if cell.Blank {
		return dayStyle.Render("")
	}

	text := fmt.Sprint(cell.Day)
	style := dayStyle
	switch {
	case cell.Selected:
		style = daySelectedStyle
	case cell.Class == calendar.ClassFullyBooked:
		text = "×"
		style = dayBookedStyle
	case !cell.Selectable():
		style = dayDimStyle
	case cell.Sunday:
		style = daySundayStyle
	case cell.Saturday:
		style = daySaturdayStyle
	}
	if a.focus == focusCalendar && cell.Date == a.dayCursor {
		style = style.Underline(true).Bold(true)
	}
	return style.Render(text)
}

func (a *App) viewTimeSlots() string {
	chosen := ""
	if !a.session.Draft.TimeSlot.IsZero() {
		chosen = a.session.Draft.TimeSlot.Value()
	}

	lines := []string{headingStyle.Render("時間")}
	i := 0
	for _, g := range a.machine.TimeSlotOptions() {
		lines = append(lines, hintStyle.Render(g.Label))
		for _, opt := range g.Options {
			lines = append(lines, a.optionLine(opt, i == a.slotIndex && a.focus == focusTimeSlot, opt.Value == chosen))
			i++
		}
	}
	return strings.Join(lines, "\n")
}

func (a *App) viewOptions(title string, options []wizard.Option, index int, f scheduleFocus, chosen string) string {
	lines := []string{headingStyle.Render(title)}
	for i, opt := range options {
		lines = append(lines, a.optionLine(opt, i == index && a.focus == f, opt.Value == chosen))
	}
	return strings.Join(lines, "\n")
}

func (a *App) optionLine(opt wizard.Option, active, chosen bool) string {
	marker := "  "
	style := optionStyle
	if chosen {
		marker = "● "
		style = optionChosen
	}
	if active {
		marker = "> "
		style = optionActive
	}
	return style.Render(marker + opt.Label)
}

func (a *App) viewSummary() string {
	summary := a.machine.Summary(a.session)
	if summary.IsEmpty() {
		return ""
	}
	rows := []string{headingStyle.Render("選択中の内容")}
	if summary.DateTime != "" {
		rows = append(rows, labelStyle.Render("日時")+summary.DateTime)
	}
	if summary.Guests != "" {
		rows = append(rows, labelStyle.Render("人数")+summary.Guests)
	}
	if summary.Course != "" {
		rows = append(rows, labelStyle.Render("コース")+summary.Course)
	}
	return panelStyle.Render(strings.Join(rows, "\n"))
}

func (a *App) viewDetails() string {
	labels := [inputCount]string{
		inputName:     "お名前 *",
		inputNameKana: "フリガナ *",
		inputEmail:    "メール *",
		inputPhone:    "電話番号 *",
		inputRequests: "ご要望",
	}

	rows := make([]string, 0, inputCount+2)
	for i := range a.inputs {
		rows = append(rows, labelStyle.Render(labels[i])+a.inputs[i].View())
	}
	return lipgloss.JoinVertical(lipgloss.Left, a.viewSummary(), "", strings.Join(rows, "\n"))
}

func (a *App) viewConfirmation() string {
	c := a.machine.Confirmation(a.session)
	rows := []string{
		labelStyle.Render("日時") + c.DateTime,
		labelStyle.Render("人数") + c.Guests,
		labelStyle.Render("コース") + c.Course,
		labelStyle.Render("お名前") + c.Name,
		labelStyle.Render("フリガナ") + c.NameKana,
		labelStyle.Render("メール") + c.Email,
		labelStyle.Render("電話番号") + c.Phone,
		labelStyle.Render("ご要望") + c.Requests,
	}

	box := "[ ]"
	if a.session.PolicyAgreed {
		box = "[x]"
	}
	policy := box + " キャンセルポリシーに同意します"

	button := confirmButton.Foreground(lipgloss.Color("#555555")).Render(wizard.ConfirmLabel)
	switch {
	case a.session.Submitting:
		button = a.spinner.View() + " " + wizard.SubmittingLabel
	case a.session.PolicyAgreed:
		button = confirmButton.Background(lipgloss.Color("#5B8DEF")).Foreground(lipgloss.Color("#FFFFFF")).Render(wizard.ConfirmLabel)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		panelStyle.Render(strings.Join(rows, "\n")),
		"",
		policy,
		"",
		button,
	)
}

func (a *App) viewCompleted() string {
	return lipgloss.JoinVertical(lipgloss.Left,
		successStyle.Render("ご予約を受け付けました。"),
		"",
		labelStyle.Render("予約番号")+a.session.ReservationNumber,
		"",
		fmt.Sprintf("ご不明な点はお電話（%s）にてお問い合わせください。", a.machine.Restaurant().Phone),
	)
}
