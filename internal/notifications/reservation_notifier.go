package notifications

import (
	"context"
	"errors"

	"tablebook/internal/submission"
)

// ReservationNotifier implements submission.Notifier on top of the publisher:
// the customer gets an acknowledgement and, when configured, the restaurant
// inbox gets an alert.
type ReservationNotifier struct {
	publisher       *NotificationPublisher
	restaurantEmail string
	phone           string
}

func NewReservationNotifier(publisher *NotificationPublisher, restaurantEmail, phone string) *ReservationNotifier {
	return &ReservationNotifier{
		publisher:       publisher,
		restaurantEmail: restaurantEmail,
		phone:           phone,
	}
}

// ReservationSubmitted publishes the notifications for rec
func (n *ReservationNotifier) ReservationSubmitted(ctx context.Context, rec submission.Record) error {
	data := ReservationTemplateData(rec, n.phone)

	var errs []error
	if rec.Email != "" {
		errs = append(errs, n.publisher.PublishReservationNotification(ctx,
			rec.Email, rec.Name, rec.ReservationNumber, NotificationTypeReservationReceived, data))
	}
	if n.restaurantEmail != "" {
		errs = append(errs, n.publisher.PublishReservationNotification(ctx,
			n.restaurantEmail, "", rec.ReservationNumber, NotificationTypeReservationAlert, data))
	}
	return errors.Join(errs...)
}

// ReservationTemplateData flattens a record into email template fields
func ReservationTemplateData(rec submission.Record, phone string) map[string]interface{} {
	return map[string]interface{}{
		"reservation_number": rec.ReservationNumber,
		"date":               submission.FormatDateLabel(rec.Date),
		"time":               rec.Time,
		"guests":             rec.GuestsLabel(),
		"course":             rec.CourseLabel,
		"name":               rec.Name,
		"name_kana":          rec.NameKana,
		"email":              rec.Email,
		"customer_phone":     rec.Phone,
		"requests":           rec.RequestsOrDefault(),
		"phone":              phone,
	}
}
