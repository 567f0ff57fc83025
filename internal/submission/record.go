package submission

import (
	"fmt"
	"strconv"
	"time"
)

var weekdayNames = [...]string{"日", "月", "火", "水", "木", "金", "土"}

// NewRecord freezes r into a record numbered from now.
func NewRecord(r Reservation, now time.Time) Record {
	return Record{
		ReservationNumber: ReservationNumber(now),
		CreatedAt:         now,
		Reservation:       r,
	}
}

// ReservationNumber is "R" followed by the last 8 digits of the Unix millisecond timestamp.
func ReservationNumber(now time.Time) string {
	ms := strconv.FormatInt(now.UnixMilli(), 10)
	if len(ms) > 8 {
		ms = ms[len(ms)-8:]
	}
	return "R" + ms
}

// FormatDateLabel renders "2025-04-10" as "2025年4月10日（木）". Unparseable input is returned as is.
func FormatDateLabel(date string) string {
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		return date
	}
	return fmt.Sprintf("%d年%d月%d日（%s）", d.Year(), int(d.Month()), d.Day(), weekdayNames[d.Weekday()])
}

// DateTimeLabel is the confirmation display, e.g. "2025年4月10日（木） 18:00".
func (r Reservation) DateTimeLabel() string {
	return FormatDateLabel(r.Date) + " " + r.Time
}

// GuestsLabel renders the party size as "4名".
func (r Reservation) GuestsLabel() string {
	return strconv.Itoa(r.Guests) + "名"
}

// RequestsOrDefault returns the requests text, or "なし" when empty.
func (r Reservation) RequestsOrDefault() string {
	if r.Requests == "" {
		return "なし"
	}
	return r.Requests
}

// FormValues returns the submitted value of every logical field.
func (r Record) FormValues() map[string]string {
	course := r.CourseLabel
	if course == "" {
		course = r.Course
	}
	return map[string]string{
		FieldDate:     FormatDateLabel(r.Date),
		FieldTime:     r.Time,
		FieldGuests:   r.GuestsLabel(),
		FieldCourse:   course,
		FieldName:     r.Name,
		FieldNameKana: r.NameKana,
		FieldEmail:    r.Email,
		FieldPhone:    r.Phone,
		FieldRequests: r.RequestsOrDefault(),
	}
}
