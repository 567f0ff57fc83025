package calendar

import "time"

// Cursor is the month currently displayed.
type Cursor struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// CursorFor returns the cursor for the month containing t.
func CursorFor(t time.Time) Cursor {
	return Cursor{Year: t.Year(), Month: t.Month()}
}

// Prev moves one month back.
func (c Cursor) Prev() Cursor {
	return c.shift(-1)
}

// Next moves one month forward.
func (c Cursor) Next() Cursor {
	return c.shift(1)
}

func (c Cursor) shift(months int) Cursor {
	t := time.Date(c.Year, c.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, months, 0)
	return Cursor{Year: t.Year(), Month: t.Month()}
}

// Contains reports whether date ("YYYY-MM-DD") falls in the cursor's month.
func (c Cursor) Contains(date string) bool {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return false
	}
	return t.Year() == c.Year && t.Month() == c.Month
}

// Input builds a render input for the cursor's month.
func (c Cursor) Input(today time.Time, closed map[time.Weekday]bool, fullyBooked []string, selected string) Input {
	return Input{
		Year:           c.Year,
		Month:          c.Month,
		Today:          today,
		ClosedWeekdays: closed,
		FullyBooked:    fullyBooked,
		Selected:       selected,
	}
}
