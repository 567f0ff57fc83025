package submission

import (
	"context"
	"fmt"

	"tablebook/pkg/logger"
)

// Notifier is told about records that were dispatched without error.
type Notifier interface {
	ReservationSubmitted(ctx context.Context, rec Record) error
}

// Gateway delivers records to the form endpoint and always keeps a local copy.
type Gateway struct {
	dispatcher Dispatcher
	cache      LocalCache
	notifier   Notifier
	log        *logger.Logger
}

func NewGateway(dispatcher Dispatcher, cache LocalCache, notifier Notifier) *Gateway {
	return &Gateway{
		dispatcher: dispatcher,
		cache:      cache,
		notifier:   notifier,
		log:        logger.GetDefault(),
	}
}

// WithLogger replaces the gateway's logger.
func (g *Gateway) WithLogger(l *logger.Logger) *Gateway {
	g.log = l
	return g
}

// Submit dispatches rec and appends it to the local cache whatever the outcome.
// A failed dispatch returns an error wrapping ErrSubmissionDispatch. A dispatch
// that went out but could not be cached returns ErrLocalCache, since the
// cache is the only copy staff can recover from. Notifier failures are logged.
func (g *Gateway) Submit(ctx context.Context, rec Record) (Record, error) {
	dispatchErr := g.dispatcher.Dispatch(ctx, rec)

	rec.DeliveryStatus = StatusUnconfirmed
	if dispatchErr != nil {
		rec.DeliveryStatus = StatusDispatchFailed
	}

	cacheErr := g.cache.Append(ctx, rec)
	if cacheErr != nil {
		g.log.LogLocalCacheFailure(ctx, rec.ReservationNumber, cacheErr)
	}

	if dispatchErr != nil {
		g.log.LogReservationDispatchFailed(ctx, rec.ReservationNumber, dispatchErr)
		return rec, fmt.Errorf("%w: %v", ErrSubmissionDispatch, dispatchErr)
	}
	if cacheErr != nil {
		return rec, fmt.Errorf("%w: %v", ErrLocalCache, cacheErr)
	}

	g.log.LogReservationSubmitted(ctx, rec.ReservationNumber, rec.Date, rec.Time)

	if g.notifier != nil {
		if err := g.notifier.ReservationSubmitted(ctx, rec); err != nil {
			g.log.WarnContext(ctx, "Reservation notification failed",
				"reservation_number", rec.ReservationNumber, "error", err.Error())
		}
	}
	return rec, nil
}

// Records lists the local cache.
func (g *Gateway) Records(ctx context.Context) ([]Record, error) {
	return g.cache.List(ctx)
}
