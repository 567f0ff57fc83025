package wizard

import (
	"context"
	"fmt"

	"tablebook/internal/submission"
)

// Gateway delivers a frozen reservation.
type Gateway interface {
	Submit(ctx context.Context, rec submission.Record) (submission.Record, error)
}

// BeginSubmit enters the submitting sub-state: the confirm control is
// disabled and relabeled, and the draft is frozen into a record.
func (m *Machine) BeginSubmit(s Session) (Session, submission.Record, []Effect, error) {
	if err := requireStep(s, StepConfirming); err != nil {
		return s, submission.Record{}, nil, err
	}
	if s.Submitting {
		return s, submission.Record{}, nil, fmt.Errorf("%w: submission already in progress", ErrInvalidState)
	}
	if !s.PolicyAgreed {
		return s, submission.Record{}, nil, ErrPolicyNotAgreed
	}

	rec := submission.NewRecord(m.Reservation(s), m.Today())
	s.Submitting = true
	return m.touch(s), rec, []Effect{confirmControl(s)}, nil
}

// CompleteSubmit leaves the submitting sub-state. On success the session is
// completed with the record's reservation number; on failure it stays on the
// confirmation step and the customer is pointed to the phone.
func (m *Machine) CompleteSubmit(s Session, rec submission.Record, submitErr error) (Session, []Effect) {
	s.Submitting = false

	if submitErr != nil {
		msg := fmt.Sprintf("予約の送信中にエラーが発生しました。お手数ですが、お電話（%s）にてご予約ください。", m.restaurant.Phone)
		return m.touch(s), []Effect{showMessage(msg), confirmControl(s)}
	}

	s.Step = StepCompleted
	s.ReservationNumber = rec.ReservationNumber
	return m.touch(s), []Effect{renderStep(StepCompleted)}
}

// Submit runs BeginSubmit, the gateway call and CompleteSubmit. The returned
// error is the gateway's, so callers can offer the phone fallback.
func (m *Machine) Submit(ctx context.Context, s Session, gw Gateway) (Session, []Effect, error) {
	s, rec, effects, err := m.BeginSubmit(s)
	if err != nil {
		return s, nil, err
	}

	rec, submitErr := gw.Submit(ctx, rec)
	s, done := m.CompleteSubmit(s, rec, submitErr)
	return s, append(effects, done...), submitErr
}
