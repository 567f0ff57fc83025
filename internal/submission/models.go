package submission

import (
	"errors"
	"time"
)

var (
	ErrSubmissionDispatch = errors.New("submission dispatch failed")
	ErrLocalCache         = errors.New("local reservation cache write failed")
)

// DeliveryStatus records what is known about a record's delivery.
// The form endpoint never confirms receipt, so a dispatched record stays unconfirmed.
type DeliveryStatus string

const (
	StatusUnconfirmed    DeliveryStatus = "unconfirmed"
	StatusDispatchFailed DeliveryStatus = "dispatch_failed"
)

// Logical field names used in the form field mapping.
const (
	FieldDate     = "date"
	FieldTime     = "time"
	FieldGuests   = "guests"
	FieldCourse   = "course"
	FieldName     = "name"
	FieldNameKana = "nameKana"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldRequests = "requests"
)

// LogicalFields lists every field the form receives, in submission order.
var LogicalFields = []string{
	FieldDate, FieldTime, FieldGuests, FieldCourse,
	FieldName, FieldNameKana, FieldEmail, FieldPhone, FieldRequests,
}

// FieldMapping maps a logical field name to the form's field identifier (e.g. "entry.1854835807").
type FieldMapping map[string]string

// Reservation is the frozen content of a completed draft.
type Reservation struct {
	Date        string `json:"date"` // YYYY-MM-DD
	Time        string `json:"time"` // HH:MM
	Period      string `json:"period"`
	Guests      int    `json:"guests"`
	Course      string `json:"course"`
	CourseLabel string `json:"course_label"`
	Name        string `json:"name"`
	NameKana    string `json:"name_kana"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Requests    string `json:"requests"`
}

// Record is an immutable snapshot of a submitted reservation.
type Record struct {
	ReservationNumber string         `json:"reservation_number"`
	CreatedAt         time.Time      `json:"created_at"`
	DeliveryStatus    DeliveryStatus `json:"delivery_status,omitempty"`
	Reservation
}
