package wizard

import (
	"fmt"
	"strconv"
	"time"

	"tablebook/internal/submission"
)

// Option is a selectable value with its display text.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionGroup is a labelled group of options.
type OptionGroup struct {
	Label   string   `json:"label"`
	Options []Option `json:"options"`
}

// Summary is the selected-info panel of the first step.
type Summary struct {
	DateTime string `json:"date_time,omitempty"` // "2025年4月10日 18:00"
	Guests   string `json:"guests,omitempty"`    // "4名"
	Course   string `json:"course,omitempty"`
}

// IsEmpty reports whether the panel would be hidden.
func (s Summary) IsEmpty() bool {
	return s.DateTime == "" && s.Guests == "" && s.Course == ""
}

// Confirmation is the read-only review shown in the third step.
type Confirmation struct {
	DateTime string `json:"date_time"` // "2025年4月10日（木） 18:00"
	Guests   string `json:"guests"`    // "4名様"
	Course   string `json:"course"`
	Name     string `json:"name"`
	NameKana string `json:"name_kana"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Requests string `json:"requests"`
}

// TimeSlotOptions lists every bookable slot grouped by period.
func (m *Machine) TimeSlotOptions() []OptionGroup {
	groups := make([]OptionGroup, 0, len(m.restaurant.Periods))
	for _, p := range m.restaurant.Periods {
		g := OptionGroup{Label: p.GroupLabel()}
		for _, slot := range p.Slots {
			g.Options = append(g.Options, Option{
				Value: TimeSlot{Period: p.Name, Time: slot}.Value(),
				Label: slot,
			})
		}
		groups = append(groups, g)
	}
	return groups
}

// CourseOptions lists the courses of the session's current period.
// It is empty until a time slot is chosen.
func (m *Machine) CourseOptions(s Session) *OptionGroup {
	p, ok := m.restaurant.Period(s.Draft.TimeSlot.Period)
	if !ok {
		return nil
	}
	g := &OptionGroup{Label: p.GroupLabel()}
	for _, c := range p.Courses {
		g.Options = append(g.Options, Option{Value: c.Value, Label: c.DisplayName()})
	}
	return g
}

// PartySizeOptions lists 1..cap followed by the "more" sentinel.
func (m *Machine) PartySizeOptions() []Option {
	limit := m.restaurant.MaxPartySize
	opts := make([]Option, 0, limit+1)
	for i := 1; i <= limit; i++ {
		opts = append(opts, Option{Value: strconv.Itoa(i), Label: strconv.Itoa(i) + "名"})
	}
	return append(opts, Option{Value: "more", Label: fmt.Sprintf("%d名以上", limit+1)})
}

// Summary renders the selected-info panel.
func (m *Machine) Summary(s Session) Summary {
	var out Summary
	d := s.Draft
	if d.Date != "" && !d.TimeSlot.IsZero() {
		if t, err := time.Parse("2006-01-02", d.Date); err == nil {
			out.DateTime = fmt.Sprintf("%d年%d月%d日 %s", t.Year(), int(t.Month()), t.Day(), d.TimeSlot.Time)
		}
	}
	if d.PartySize > 0 {
		out.Guests = strconv.Itoa(d.PartySize) + "名"
	}
	if d.Course != "" {
		if c, ok := m.course(d.TimeSlot.Period, d.Course); ok {
			out.Course = c.DisplayName()
		}
	}
	return out
}

// Confirmation renders the review of the frozen draft.
func (m *Machine) Confirmation(s Session) Confirmation {
	r := m.Reservation(s)
	requests := r.Requests
	if requests == "" {
		requests = "（なし）"
	}
	return Confirmation{
		DateTime: submission.FormatDateLabel(r.Date) + " " + r.Time,
		Guests:   strconv.Itoa(r.Guests) + "名様",
		Course:   r.CourseLabel,
		Name:     r.Name,
		NameKana: r.NameKana,
		Email:    r.Email,
		Phone:    r.Phone,
		Requests: requests,
	}
}
