// Package ledger owns the tickets_available counter of events.  Every
// debit and credit goes through a Ledger, which reads the event under
// a row lock, validates the change against the remaining inventory and
// writes the new value, all inside the transaction carried by ctx.
// Callers open that transaction (repository.Store.WithTx) and persist
// the matching reservation change in it, so inventory and reservations
// commit or roll back together.
package ledger

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventStore is the slice of the event repository the ledger needs.
// GetByIDForUpdate must hold the row lock until the transaction in ctx
// ends and report a missing row as model.ErrNotFound.
type EventStore interface {
	GetByIDForUpdate(ctx context.Context, id uint64) (model.Event, error)
	UpdateTicketsAvailable(ctx context.Context, id uint64, available int) error
}

type Ledger struct {
	events EventStore
	log    logrus.FieldLogger
}

func New(events EventStore, log logrus.FieldLogger) *Ledger {
	if log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		log = l
	}
	return &Ledger{events: events, log: log}
}

// Reserve takes delta more tickets from the event and returns the new
// availability.  Asking for more than is left fails with
// KindInsufficientInventory and leaves the event untouched.
func (l *Ledger) Reserve(ctx context.Context, eventID uint64, delta int) (int, error) {
	if delta < 0 {
		return 0, model.InvalidQuantity("ticket delta must not be negative, got %d", delta)
	}
	ev, err := l.lock(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if delta > ev.TicketsAvailable {
		return ev.TicketsAvailable, model.Insufficient(ev.TicketsAvailable, delta)
	}
	return l.apply(ctx, ev, -delta)
}

// Release hands delta tickets back to the event.  The only expected
// failure is a missing event.
func (l *Ledger) Release(ctx context.Context, eventID uint64, delta int) (int, error) {
	if delta < 0 {
		return 0, model.InvalidQuantity("ticket delta must not be negative, got %d", delta)
	}
	ev, err := l.lock(ctx, eventID)
	if err != nil {
		return 0, err
	}
	if ev.TicketsAvailable+delta > ev.TicketsTotal {
		// Only reachable when inventory and reservations already disagree.
		return ev.TicketsAvailable, &model.Error{
			Kind:    model.KindStorageFailure,
			Message: "inventory out of balance",
			Err:     errOverflow{event: ev.ID, available: ev.TicketsAvailable, total: ev.TicketsTotal, delta: delta},
		}
	}
	return l.apply(ctx, ev, delta)
}

// Resize moves an existing reservation from oldCount to newCount
// tickets: growing it reserves the difference, shrinking it releases
// the difference, and an unchanged count only confirms the event
// still exists.
func (l *Ledger) Resize(ctx context.Context, eventID uint64, oldCount, newCount int) (int, error) {
	if newCount < 1 {
		return 0, model.InvalidQuantity("tickets_reserved must be at least 1, got %d", newCount)
	}
	additional := newCount - oldCount
	switch {
	case additional > 0:
		return l.Reserve(ctx, eventID, additional)
	case additional < 0:
		return l.Release(ctx, eventID, -additional)
	default:
		ev, err := l.lock(ctx, eventID)
		if err != nil {
			return 0, err
		}
		return ev.TicketsAvailable, nil
	}
}

func (l *Ledger) lock(ctx context.Context, eventID uint64) (model.Event, error) {
	ev, err := l.events.GetByIDForUpdate(ctx, eventID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.Event{}, model.NotFound("Event does not exist")
		}
		return model.Event{}, model.Storage("failed to lock event", err)
	}
	return ev, nil
}

// apply writes available+change back to the locked event.
func (l *Ledger) apply(ctx context.Context, ev model.Event, change int) (int, error) {
	if change == 0 {
		return ev.TicketsAvailable, nil
	}
	available := ev.TicketsAvailable + change
	if err := l.events.UpdateTicketsAvailable(ctx, ev.ID, available); err != nil {
		return 0, model.Storage("failed to update ticket inventory", err)
	}
	l.log.WithFields(logrus.Fields{
		"event_id":  ev.ID,
		"change":    change,
		"available": available,
	}).Debug("inventory adjusted")
	return available, nil
}
