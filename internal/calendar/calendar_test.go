package calendar

import (
	"testing"
	"time"
)

var wednesdayClosed = map[time.Weekday]bool{time.Wednesday: true}

func april2025(today time.Time, booked []string, selected string) Month {
	return Render(Input{
		Year:           2025,
		Month:          time.April,
		Today:          today,
		ClosedWeekdays: wednesdayClosed,
		FullyBooked:    booked,
		Selected:       selected,
	})
}

func TestRenderLayout(t *testing.T) {
	today := time.Date(2025, 4, 10, 15, 30, 0, 0, time.UTC)
	m := april2025(today, nil, "")

	if m.Title != "2025年 4月" {
		t.Errorf("Title = %q", m.Title)
	}
	if len(m.Weekdays) != 7 || m.Weekdays[0] != "日" || m.Weekdays[6] != "土" {
		t.Errorf("Weekdays = %v", m.Weekdays)
	}

	// 2025-04-01 is a Tuesday: two leading blanks
	if len(m.Cells) != 2+30 {
		t.Fatalf("len(Cells) = %d, want 32", len(m.Cells))
	}
	for i := 0; i < 2; i++ {
		if !m.Cells[i].Blank || m.Cells[i].Selectable() {
			t.Errorf("cell %d should be a non-selectable blank: %+v", i, m.Cells[i])
		}
	}
	first := m.Cells[2]
	if first.Date != "2025-04-01" || first.Day != 1 || first.Weekday != time.Tuesday {
		t.Errorf("first day cell = %+v", first)
	}
	if last := m.Cells[len(m.Cells)-1]; last.Date != "2025-04-30" {
		t.Errorf("last day cell = %+v", last)
	}

	sun, _ := m.Cell("2025-04-13")
	sat, _ := m.Cell("2025-04-12")
	if !sun.Sunday || sun.Saturday || !sat.Saturday || sat.Sunday {
		t.Errorf("weekend flags wrong: sunday %+v saturday %+v", sun, sat)
	}
}

func TestRenderLeadingBlanksMatchFirstWeekday(t *testing.T) {
	tests := []struct {
		year  int
		month time.Month
		lead  int
	}{
		{2025, time.June, 0},      // Sunday
		{2025, time.September, 1}, // Monday
		{2025, time.February, 6},  // Saturday
		{2024, time.February, 4},  // Thursday, leap year
	}

	for _, tt := range tests {
		m := Render(Input{Year: tt.year, Month: tt.month, Today: time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)})
		blanks := 0
		for _, c := range m.Cells {
			if !c.Blank {
				break
			}
			blanks++
		}
		if blanks != tt.lead {
			t.Errorf("%d-%02d: leading blanks = %d, want %d", tt.year, tt.month, blanks, tt.lead)
		}
		days := time.Date(tt.year, tt.month+1, 0, 0, 0, 0, 0, time.UTC).Day()
		if len(m.Cells)-blanks != days {
			t.Errorf("%d-%02d: day cells = %d, want %d", tt.year, tt.month, len(m.Cells)-blanks, days)
		}
	}
}

func TestRenderClassification(t *testing.T) {
	today := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)
	booked := []string{"2025-04-09", "2025-04-12", "2025-04-16"}
	m := april2025(today, booked, "")

	tests := []struct {
		date string
		want Class
	}{
		{"2025-04-01", ClassPast},
		{"2025-04-09", ClassPast}, // past, closed and fully booked at once
		{"2025-04-10", ClassAvailable},
		{"2025-04-12", ClassFullyBooked},
		{"2025-04-16", ClassClosed}, // closed wins over fully booked
		{"2025-04-23", ClassClosed},
		{"2025-04-30", ClassClosed},
		{"2025-04-29", ClassAvailable},
	}

	for _, tt := range tests {
		c, ok := m.Cell(tt.date)
		if !ok {
			t.Fatalf("cell %s missing", tt.date)
		}
		if c.Class != tt.want {
			t.Errorf("%s class = %s, want %s", tt.date, c.Class, tt.want)
		}
		if c.Selectable() != (tt.want == ClassAvailable) {
			t.Errorf("%s Selectable() = %v", tt.date, c.Selectable())
		}
	}
}

func TestClassifyPriority(t *testing.T) {
	closedEveryDay := map[time.Weekday]bool{}
	for d := time.Sunday; d <= time.Saturday; d++ {
		closedEveryDay[d] = true
	}
	today := time.Date(2025, 4, 10, 0, 0, 0, 0, time.UTC)

	for day := 1; day <= 20; day++ {
		date := time.Date(2025, 4, day, 0, 0, 0, 0, time.UTC).Format(DateLayout)
		got, err := Classify(date, today, closedEveryDay, []string{date})
		if err != nil {
			t.Fatalf("Classify(%s) error = %v", date, err)
		}
		want := ClassClosed
		if day < 10 {
			want = ClassPast
		}
		if got != want {
			t.Errorf("Classify(%s) = %s, want %s", date, got, want)
		}
	}

	if _, err := Classify("2025/04/10", today, nil, nil); err == nil {
		t.Error("Classify with a malformed date should fail")
	}
}

func TestRenderSelection(t *testing.T) {
	today := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	m := april2025(today, nil, "2025-04-18")

	selected := 0
	for _, c := range m.Cells {
		if c.Selected {
			selected++
			if c.Date != "2025-04-18" {
				t.Errorf("wrong cell selected: %s", c.Date)
			}
		}
	}
	if selected != 1 {
		t.Errorf("selected cells = %d, want 1", selected)
	}

	// a selection in another month renders nowhere
	other := april2025(today, nil, "2025-05-02")
	for _, c := range other.Cells {
		if c.Selected {
			t.Errorf("cell %s selected for out-of-month selection", c.Date)
		}
	}
}

func TestWeeks(t *testing.T) {
	m := april2025(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC), nil, "")
	weeks := m.Weeks()

	if len(weeks) != 5 {
		t.Fatalf("len(Weeks) = %d, want 5", len(weeks))
	}
	for i, w := range weeks {
		if len(w) != 7 {
			t.Errorf("week %d has %d cells", i, len(w))
		}
	}
	if weeks[0][2].Date != "2025-04-01" {
		t.Errorf("first week starts with %+v", weeks[0][2])
	}
	if weeks[4][3].Date != "2025-04-30" || !weeks[4][4].Blank {
		t.Errorf("last week = %+v", weeks[4])
	}
}

func TestCursor(t *testing.T) {
	c := CursorFor(time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC))
	if c != (Cursor{Year: 2025, Month: time.December}) {
		t.Fatalf("CursorFor = %+v", c)
	}
	if next := c.Next(); next != (Cursor{Year: 2026, Month: time.January}) {
		t.Errorf("Next = %+v", next)
	}
	if prev := c.Next().Prev().Prev(); prev != (Cursor{Year: 2025, Month: time.November}) {
		t.Errorf("Prev = %+v", prev)
	}
	if !c.Contains("2025-12-05") || c.Contains("2026-01-05") || c.Contains("junk") {
		t.Error("Contains gave the wrong answer")
	}
}
