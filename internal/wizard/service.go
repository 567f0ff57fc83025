package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"tablebook/pkg/logger"

	"github.com/google/uuid"
)

// FullyBookedSource reports dates at capacity. Both the in-process
// availability service and its HTTP client satisfy it.
type FullyBookedSource interface {
	GetFullyBookedDates(ctx context.Context) ([]string, error)
}

// Service drives stored sessions through the machine.
type Service interface {
	Create(ctx context.Context) (*SessionResponse, error)
	Get(ctx context.Context, id string) (*SessionResponse, error)
	// Apply runs one action. On a rejected transition the response still
	// carries the unchanged session and the effects of the rejection.
	Apply(ctx context.Context, id string, req ActionRequest) (*SessionResponse, error)
}

type service struct {
	machine      *Machine
	store        SessionStore
	availability FullyBookedSource
	gateway      Gateway
	log          *logger.Logger
}

func NewService(machine *Machine, store SessionStore, availability FullyBookedSource, gateway Gateway) Service {
	return &service{
		machine:      machine,
		store:        store,
		availability: availability,
		gateway:      gateway,
		log:          logger.GetDefault(),
	}
}

func (s *service) Create(ctx context.Context) (*SessionResponse, error) {
	session := s.machine.NewSession(uuid.New().String())
	if err := s.store.Save(ctx, session); err != nil {
		return nil, err
	}
	s.log.InfoContext(ctx, "Wizard session created", slog.String("session_id", session.ID))
	return s.machine.buildResponse(session, s.fullyBooked(ctx), []Effect{renderStep(StepSelectingSchedule), renderCalendar()}), nil
}

func (s *service) Get(ctx context.Context, id string) (*SessionResponse, error) {
	session, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.machine.buildResponse(session, s.fullyBooked(ctx), nil), nil
}

func (s *service) Apply(ctx context.Context, id string, req ActionRequest) (*SessionResponse, error) {
	if req.Type == ActionSubmit {
		return s.submit(ctx, id)
	}

	current, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}

	// only the first step shows the calendar
	var booked []string
	if current.Step == StepSelectingSchedule || req.Type == ActionRestart || req.Type == ActionBack {
		booked = s.fullyBooked(ctx)
	}

	next, effects, actionErr := s.apply(ctx, current, req, booked)

	save := actionErr == nil || keepOnError(actionErr)
	if save {
		if err := s.store.Save(ctx, next); err != nil {
			return nil, err
		}
		s.log.LogWizardTransition(ctx, id, req.Type, current.Step.String(), next.Step.String())
	}

	return s.machine.buildResponse(next, booked, effects), actionErr
}

func (s *service) apply(ctx context.Context, sess Session, req ActionRequest, booked []string) (Session, []Effect, error) {
	m := s.machine
	switch req.Type {
	case ActionSelectDate:
		return m.SelectDate(sess, req.Value, booked)
	case ActionPrevMonth:
		next, effects := m.PrevMonth(sess)
		return next, effects, nil
	case ActionNextMonth:
		next, effects := m.NextMonth(sess)
		return next, effects, nil
	case ActionSelectTimeSlot:
		return m.SelectTimeSlot(sess, req.Value)
	case ActionSelectPartySize:
		return m.SelectPartySize(sess, req.Value)
	case ActionSelectCourse:
		return m.SelectCourse(sess, req.Value)
	case ActionProceedToDetails:
		return m.ProceedToDetails(sess)
	case ActionUpdateDetails:
		if req.Details == nil {
			return sess, nil, fmt.Errorf("%w: details are required", ErrInvalidSelection)
		}
		return m.UpdateDetails(sess, *req.Details)
	case ActionProceedToConfirmation:
		if req.Details != nil {
			updated, _, err := m.UpdateDetails(sess, *req.Details)
			if err != nil {
				return sess, nil, err
			}
			sess = updated
		}
		return m.ProceedToConfirmation(sess)
	case ActionSetPolicyAgreement:
		return m.SetPolicyAgreement(sess, req.Agree)
	case ActionBack:
		return m.Back(sess)
	case ActionRestart:
		if sess.Submitting {
			return sess, nil, fmt.Errorf("%w: submission in progress", ErrInvalidState)
		}
		next, effects := m.Restart(sess)
		return next, effects, nil
	default:
		return sess, nil, fmt.Errorf("%w: unknown action %q", ErrInvalidSelection, req.Type)
	}
}

// keepOnError reports whether a failed action still changed the session.
// Typed details are kept when validation fails.
func keepOnError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}

// submit holds the session's submit claim for the whole gateway call and
// saves the submitting sub-state before dispatching, so a concurrent submit
// is rejected instead of sending the reservation twice.
func (s *service) submit(ctx context.Context, id string) (*SessionResponse, error) {
	release, err := s.store.ClaimSubmit(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrInvalidState) {
			return nil, err
		}
		current, loadErr := s.store.Load(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		s.log.WarnContext(ctx, "Submit rejected, another submission is in flight", slog.String("session_id", id))
		return s.machine.buildResponse(current, nil, []Effect{confirmControl(current)}), err
	}
	defer release()

	current, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Submitting {
		// left behind by a request that died after its claim expired
		s.log.WarnContext(ctx, "Clearing stale submitting state", slog.String("session_id", id))
		current.Submitting = false
	}

	sending, rec, effects, err := s.machine.BeginSubmit(current)
	if err != nil {
		return s.machine.buildResponse(current, nil, effects), err
	}
	if err := s.store.Save(ctx, sending); err != nil {
		return nil, err
	}

	rec, submitErr := s.gateway.Submit(ctx, rec)
	done, completed := s.machine.CompleteSubmit(sending, rec, submitErr)
	effects = append(effects, completed...)

	if err := s.store.Save(ctx, done); err != nil {
		return nil, err
	}
	s.log.LogWizardTransition(ctx, id, ActionSubmit, current.Step.String(), done.Step.String())
	return s.machine.buildResponse(done, nil, effects), submitErr
}

// fullyBooked asks the availability source, falling back to no booked dates
// when it cannot answer.
func (s *service) fullyBooked(ctx context.Context) []string {
	if s.availability == nil {
		return nil
	}
	dates, err := s.availability.GetFullyBookedDates(ctx)
	if err != nil {
		s.log.WarnContext(ctx, "Fully booked dates unavailable, rendering without them",
			slog.String("error", err.Error()))
		return nil
	}
	return dates
}
