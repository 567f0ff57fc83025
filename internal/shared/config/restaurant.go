package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultRestaurantYAML = `# restaurant reservation settings
max_reservations_per_day: 10
max_party_size: 8
closed_weekdays: [3] # 0=Sunday ... 6=Saturday
phone: "03-1234-5678"
timezone: Asia/Tokyo
sheet_name: form_responses

periods:
  - name: lunch
    label: ランチ
    start: "11:30"
    end: "14:30"
    slots: ["11:30", "12:00", "12:30", "13:00", "13:30", "14:00"]
    courses:
      - value: lunch-daily
        label: 日替わりランチ
        price: "¥1,200"
      - value: lunch-pasta
        label: パスタランチ
        price: "¥1,500"
      - value: lunch-grill
        label: グリルランチ
        price: "¥1,800"
      - value: lunch-course
        label: 特選ランチコース
        price: "¥2,800"
  - name: dinner
    label: ディナー
    start: "17:30"
    end: "22:00"
    slots: ["17:30", "18:00", "18:30", "19:00", "19:30", "20:00", "20:30", "21:00"]
    courses:
      - value: dinner-chef
        label: シェフおまかせコース
        price: "¥6,500"
      - value: dinner-premium
        label: プレミアムコース
        price: "¥9,800"
      - value: dinner-alacarte
        label: アラカルト
`

// Course is one bookable menu entry of a period.
type Course struct {
	Value string `yaml:"value" json:"value"`
	Label string `yaml:"label" json:"label"`
	Price string `yaml:"price,omitempty" json:"price,omitempty"`
}

// DisplayName renders the label with its price, e.g. "パスタランチ（¥1,500）".
func (c Course) DisplayName() string {
	if c.Price == "" {
		return c.Label
	}
	return c.Label + "（" + c.Price + "）"
}

// Period is a daily service window with its own slots and courses.
type Period struct {
	Name    string   `yaml:"name" json:"name"`
	Label   string   `yaml:"label" json:"label"`
	Start   string   `yaml:"start" json:"start"`
	End     string   `yaml:"end" json:"end"`
	Slots   []string `yaml:"slots" json:"slots"`
	Courses []Course `yaml:"courses" json:"courses"`
}

// GroupLabel renders "ランチ (11:30-14:30)".
func (p Period) GroupLabel() string {
	return fmt.Sprintf("%s (%s-%s)", p.Label, p.Start, p.End)
}

// HasSlot reports whether t is one of the bookable times.
func (p Period) HasSlot(t string) bool {
	for _, slot := range p.Slots {
		if slot == t {
			return true
		}
	}
	return false
}

// Course looks a course up by value.
func (p Period) Course(value string) (Course, bool) {
	for _, c := range p.Courses {
		if c.Value == value {
			return c, true
		}
	}
	return Course{}, false
}

// Restaurant is the injected catalog: capacity, closed days, periods and courses.
type Restaurant struct {
	MaxReservationsPerDay int      `yaml:"max_reservations_per_day"`
	MaxPartySize          int      `yaml:"max_party_size"`
	ClosedWeekdays        []int    `yaml:"closed_weekdays"`
	Phone                 string   `yaml:"phone"`
	Timezone              string   `yaml:"timezone"`
	SheetName             string   `yaml:"sheet_name"`
	Periods               []Period `yaml:"periods"`

	// Form overrides the FORM_* environment settings when present.
	Form *FormSection `yaml:"form,omitempty"`
}

// FormSection is the optional form endpoint block of the catalog.
type FormSection struct {
	ID      string            `yaml:"id"`
	Entries map[string]string `yaml:"entries"`
}

// FormSettings merges the catalog's form block over env. Entries missing from
// the block keep their env value.
func (r *Restaurant) FormSettings(env FormConfig) FormConfig {
	if r.Form == nil {
		return env
	}
	out := env
	if r.Form.ID != "" {
		out.FormID = r.Form.ID
	}
	out.Entries = make(map[string]string, len(env.Entries)+len(r.Form.Entries))
	for k, v := range env.Entries {
		out.Entries[k] = v
	}
	for k, v := range r.Form.Entries {
		if v != "" {
			out.Entries[k] = v
		}
	}
	return out
}

// DefaultRestaurant returns the compiled-in catalog.
func DefaultRestaurant() *Restaurant {
	r, err := ParseRestaurant([]byte(defaultRestaurantYAML))
	if err != nil {
		panic(fmt.Sprintf("config: invalid default restaurant yaml: %v", err))
	}
	return r
}

// LoadRestaurant reads the catalog from path. An empty path yields the defaults.
func LoadRestaurant(path string) (*Restaurant, error) {
	if path == "" {
		return DefaultRestaurant(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read restaurant config: %w", err)
	}
	return ParseRestaurant(data)
}

// ParseRestaurant decodes and validates a catalog document.
func ParseRestaurant(data []byte) (*Restaurant, error) {
	var r Restaurant
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("config: parse restaurant config: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the invariants the wizard relies on.
func (r *Restaurant) Validate() error {
	if r.MaxReservationsPerDay <= 0 {
		return fmt.Errorf("config: max_reservations_per_day must be positive")
	}
	if r.MaxPartySize <= 0 {
		return fmt.Errorf("config: max_party_size must be positive")
	}
	for _, wd := range r.ClosedWeekdays {
		if wd < 0 || wd > 6 {
			return fmt.Errorf("config: closed weekday %d out of range 0-6", wd)
		}
	}
	if len(r.Periods) == 0 {
		return fmt.Errorf("config: at least one period is required")
	}
	seen := make(map[string]bool)
	for _, p := range r.Periods {
		if p.Name == "" {
			return fmt.Errorf("config: period without name")
		}
		// time slot values are "<period>-<HH:MM>"
		if strings.Contains(p.Name, "-") {
			return fmt.Errorf("config: period name %q must not contain '-'", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate period %q", p.Name)
		}
		seen[p.Name] = true
		if len(p.Slots) == 0 {
			return fmt.Errorf("config: period %q has no slots", p.Name)
		}
	}
	return nil
}

// Period looks a period up by name.
func (r *Restaurant) Period(name string) (Period, bool) {
	for _, p := range r.Periods {
		if p.Name == name {
			return p, true
		}
	}
	return Period{}, false
}

// ClosedWeekdaySet returns the closed weekdays as a lookup set.
func (r *Restaurant) ClosedWeekdaySet() map[time.Weekday]bool {
	set := make(map[time.Weekday]bool, len(r.ClosedWeekdays))
	for _, wd := range r.ClosedWeekdays {
		set[time.Weekday(wd)] = true
	}
	return set
}

// Location returns the restaurant's time zone, JST when unset or unknown.
func (r *Restaurant) Location() *time.Location {
	if r.Timezone != "" {
		if loc, err := time.LoadLocation(r.Timezone); err == nil {
			return loc
		}
	}
	return time.FixedZone("JST", 9*60*60)
}
