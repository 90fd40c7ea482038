// Package service implements the core operations of the ticketing
// service: the reservation lifecycle (create, resize, cancel), event
// and user management with their cascading deletes, and the read-only
// queries.  Every operation that touches inventory runs as one
// transaction through a TxRunner and changes tickets_available only via
// the Inventory (the ledger).
package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

// TxRunner runs fn as one atomic unit of work.  Repository calls made
// with the ctx passed to fn join the unit.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (model.User, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Delete(ctx context.Context, id uint64) error
}

type EventStore interface {
	Create(ctx context.Context, e *model.Event) error
	GetByID(ctx context.Context, id uint64) (model.Event, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.Event, error)
	List(ctx context.Context) ([]model.Event, error)
	Delete(ctx context.Context, id uint64) error
}

type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (model.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error)
	List(ctx context.Context) ([]model.Reservation, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error)
	ListByUserForUpdate(ctx context.Context, userID uint64) ([]model.Reservation, error)
	UpdateTickets(ctx context.Context, id uint64, tickets int) (model.Reservation, error)
	Delete(ctx context.Context, id uint64) error
	DeleteByEvent(ctx context.Context, eventID uint64) (int, error)
}

// Inventory is implemented by *ledger.Ledger.
type Inventory interface {
	Reserve(ctx context.Context, eventID uint64, delta int) (int, error)
	Release(ctx context.Context, eventID uint64, delta int) (int, error)
	Resize(ctx context.Context, eventID uint64, oldCount, newCount int) (int, error)
}

// Publisher announces committed changes.  Implementations must not
// block for long; a failed publish never undoes the committed change.
type Publisher interface {
	Publish(ctx context.Context, msg queue.LifecycleMessage) error
}

// Deps bundles the collaborators shared by the services.
type Deps struct {
	Tx           TxRunner
	Users        UserStore
	Events       EventStore
	Reservations ReservationStore
	Ledger       Inventory
	Publisher    Publisher
	Log          logrus.FieldLogger
	Now          func() time.Time
}

func (d Deps) withDefaults() Deps {
	if d.Publisher == nil {
		d.Publisher = NopPublisher{}
	}
	if d.Log == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		d.Log = l
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return d
}

// publish sends msg after a successful commit.  Failures are logged
// and swallowed.
func (d Deps) publish(ctx context.Context, msg queue.LifecycleMessage) {
	msg.OccurredAt = d.Now().Format(time.RFC3339)
	if err := d.Publisher.Publish(ctx, msg); err != nil {
		d.Log.WithFields(logrus.Fields{"type": msg.Type, "error": err}).Warn("lifecycle message not published")
	}
}

// fail converts whatever came out of a unit of work into an *model.Error.
// Typed errors pass through; anything else is a storage failure.
func fail(msg string, err error) error {
	return model.Storage(msg, err)
}

func isNotFound(err error) bool { return errors.Is(err, model.ErrNotFound) }

func intPtr(n int) *int { return &n }
