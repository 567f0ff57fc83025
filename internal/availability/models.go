package availability

import (
	"time"
)

// DefaultSheetName is the table holding mirrored form responses.
const DefaultSheetName = "form_responses"

// FormResponse is one row of the reservation sheet as mirrored from the
// external form. The date column arrives either as the text the form wrote
// ("2025年4月10日（木）") or as a typed date, depending on how the row was ingested.
type FormResponse struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	SubmittedAt time.Time  `gorm:"autoCreateTime" json:"submitted_at"`
	DateText    *string    `gorm:"column:date_text;type:varchar(64)" json:"date_text,omitempty"`
	DateValue   *time.Time `gorm:"column:date_value;type:date" json:"date_value,omitempty"`
	Time        string     `gorm:"type:varchar(16)" json:"time"`
	Guests      string     `gorm:"type:varchar(16)" json:"guests"`
	Course      string     `gorm:"type:varchar(100)" json:"course"`
	Name        string     `gorm:"type:varchar(100)" json:"name"`
	NameKana    string     `gorm:"type:varchar(100)" json:"name_kana"`
	Email       string     `gorm:"type:varchar(255)" json:"email"`
	Phone       string     `gorm:"type:varchar(32)" json:"phone"`
	Requests    string     `gorm:"type:text" json:"requests"`
}

// TableName sets the table name for FormResponse
func (FormResponse) TableName() string {
	return DefaultSheetName
}

// DateCell returns the raw date-bearing value of the row: the typed date when
// present, otherwise the text, otherwise nil.
func (f FormResponse) DateCell() any {
	if f.DateValue != nil {
		return *f.DateValue
	}
	if f.DateText != nil && *f.DateText != "" {
		return *f.DateText
	}
	return nil
}

// Row is the aggregator's view of a sheet row.
type Row struct {
	Date any
}

// CountIndex maps a normalized "YYYY-MM-DD" date to its reservation count.
type CountIndex map[string]int

// QueryResponse is the query endpoint's envelope.
type QueryResponse struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Timestamp string      `json:"timestamp,omitempty"`
}
