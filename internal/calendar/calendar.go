package calendar

import (
	"fmt"
	"time"
)

// DateLayout is the normalized calendar date format shared with the aggregator.
const DateLayout = "2006-01-02"

// Class is the availability classification of a day cell.
type Class string

const (
	ClassPast        Class = "past"
	ClassClosed      Class = "closed"
	ClassFullyBooked Class = "fully_booked"
	ClassAvailable   Class = "available"
)

// WeekdayLabels are the column headers, Sunday first.
var WeekdayLabels = []string{"日", "月", "火", "水", "木", "金", "土"}

// Cell is one slot of the month grid. Padding cells have Blank set and no date.
type Cell struct {
	Blank    bool         `json:"blank,omitempty"`
	Date     string       `json:"date,omitempty"`
	Day      int          `json:"day,omitempty"`
	Weekday  time.Weekday `json:"weekday"`
	Class    Class        `json:"class,omitempty"`
	Selected bool         `json:"selected,omitempty"`
	Sunday   bool         `json:"sunday,omitempty"`
	Saturday bool         `json:"saturday,omitempty"`
}

// Selectable reports whether the cell accepts a click.
func (c Cell) Selectable() bool {
	return !c.Blank && c.Class == ClassAvailable
}

// Input is everything a render depends on.
type Input struct {
	Year           int
	Month          time.Month
	Today          time.Time
	ClosedWeekdays map[time.Weekday]bool
	FullyBooked    []string
	Selected       string // "YYYY-MM-DD", empty when nothing is selected
}

// Month is a rendered month grid.
type Month struct {
	Year     int        `json:"year"`
	Month    time.Month `json:"month"`
	Title    string     `json:"title"`
	Weekdays []string   `json:"weekdays"`
	Cells    []Cell     `json:"cells"`
}

// Render builds the grid for in.Year/in.Month. The first cells are blanks, one
// per weekday before day 1, followed by one cell per day of the month.
func Render(in Input) Month {
	first := time.Date(in.Year, in.Month, 1, 0, 0, 0, 0, time.UTC)
	daysInMonth := first.AddDate(0, 1, -1).Day()
	lead := int(first.Weekday())

	today := civil(in.Today)
	booked := toSet(in.FullyBooked)

	cells := make([]Cell, 0, lead+daysInMonth)
	for i := 0; i < lead; i++ {
		cells = append(cells, Cell{Blank: true, Weekday: time.Weekday(i)})
	}

	for day := 1; day <= daysInMonth; day++ {
		d := time.Date(in.Year, in.Month, day, 0, 0, 0, 0, time.UTC)
		date := d.Format(DateLayout)
		wd := d.Weekday()
		cells = append(cells, Cell{
			Date:     date,
			Day:      day,
			Weekday:  wd,
			Class:    classify(date, wd, today, in.ClosedWeekdays, booked),
			Selected: date == in.Selected,
			Sunday:   wd == time.Sunday,
			Saturday: wd == time.Saturday,
		})
	}

	return Month{
		Year:     first.Year(),
		Month:    first.Month(),
		Title:    fmt.Sprintf("%d年 %d月", first.Year(), int(first.Month())),
		Weekdays: WeekdayLabels,
		Cells:    cells,
	}
}

// Classify returns the class of a single "YYYY-MM-DD" date.
// Priority is past, then closed weekday, then fully booked.
func Classify(date string, today time.Time, closed map[time.Weekday]bool, fullyBooked []string) (Class, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return classify(d.Format(DateLayout), d.Weekday(), civil(today), closed, toSet(fullyBooked)), nil
}

func classify(date string, wd time.Weekday, today string, closed map[time.Weekday]bool, booked map[string]bool) Class {
	switch {
	case date < today:
		return ClassPast
	case closed[wd]:
		return ClassClosed
	case booked[date]:
		return ClassFullyBooked
	default:
		return ClassAvailable
	}
}

// Cell returns the cell for date, if the month contains it.
func (m Month) Cell(date string) (Cell, bool) {
	for _, c := range m.Cells {
		if !c.Blank && c.Date == date {
			return c, true
		}
	}
	return Cell{}, false
}

// Weeks splits the grid into rows of seven, padding the last row with blanks.
func (m Month) Weeks() [][]Cell {
	var weeks [][]Cell
	for i := 0; i < len(m.Cells); i += 7 {
		end := i + 7
		row := make([]Cell, 0, 7)
		if end > len(m.Cells) {
			row = append(row, m.Cells[i:]...)
			for len(row) < 7 {
				row = append(row, Cell{Blank: true, Weekday: time.Weekday(len(row))})
			}
		} else {
			row = append(row, m.Cells[i:end]...)
		}
		weeks = append(weeks, row)
	}
	return weeks
}

// civil drops the clock, keeping the calendar date as seen in t's location.
func civil(t time.Time) string {
	return t.Format(DateLayout)
}

func toSet(dates []string) map[string]bool {
	set := make(map[string]bool, len(dates))
	for _, d := range dates {
		set[d] = true
	}
	return set
}
