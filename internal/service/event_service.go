package service

import (
	"context"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

// EventInput carries the fields accepted when creating an event.
type EventInput struct {
	Name         string
	Description  string
	DateTime     time.Time
	TicketsTotal int
}

// Events is the event catalogue as seen by the transport.
type Events interface {
	CreateEvent(ctx context.Context, in EventInput) (model.Result[model.Event], error)
	GetEvent(ctx context.Context, id uint64) (model.Result[model.Event], error)
	ListEvents(ctx context.Context) (model.Result[[]model.Event], error)
	DeleteEvent(ctx context.Context, id uint64) (model.Result[model.Deletion], error)
}

type EventService struct {
	Deps
}

func NewEventService(d Deps) *EventService {
	return &EventService{Deps: d.withDefaults()}
}

// CreateEvent inserts a new event whose whole capacity is available.
func (s *EventService) CreateEvent(ctx context.Context, in EventInput) (model.Result[model.Event], error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Result[model.Event]{}, model.InvalidInput("Event name must not be empty")
	}
	if in.TicketsTotal < 0 {
		return model.Result[model.Event]{}, model.InvalidQuantity("tickets_total must not be negative, got %d", in.TicketsTotal)
	}
	if in.DateTime.IsZero() {
		return model.Result[model.Event]{}, model.InvalidInput("date_time is required")
	}

	ev := model.Event{
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		DateTime:     in.DateTime.UTC(),
		TicketsTotal: in.TicketsTotal,
	}
	if err := s.Events.Create(ctx, &ev); err != nil {
		return model.Result[model.Event]{}, fail("failed to create event", err)
	}

	s.Log.WithFields(logrus.Fields{"event_id": ev.ID, "tickets_total": ev.TicketsTotal}).Info("event created")
	s.publish(ctx, queue.LifecycleMessage{
		Type: queue.TypeEventCreated, EventID: ev.ID, Tickets: ev.TicketsTotal,
		TicketsAvailable: intPtr(ev.TicketsAvailable),
	})
	return model.OK(ev, "Event created successfully"), nil
}

func (s *EventService) GetEvent(ctx context.Context, id uint64) (model.Result[model.Event], error) {
	ev, err := s.Events.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return model.Result[model.Event]{}, model.NotFound("Event not found")
		}
		return model.Result[model.Event]{}, fail("failed to load event", err)
	}
	return model.OK(ev, "Event found"), nil
}

// ListEvents returns all events ordered by date.  It never modifies
// anything, so repeated calls return the same list.
func (s *EventService) ListEvents(ctx context.Context) (model.Result[[]model.Event], error) {
	list, err := s.Events.List(ctx)
	if err != nil {
		return model.Result[[]model.Event]{}, fail("failed to list events", err)
	}
	if len(list) == 0 {
		return model.Result[[]model.Event]{}, model.NotFound("No events found")
	}
	return model.OK(list, "Events retrieved successfully"), nil
}

// DeleteEvent removes an event together with every reservation made
// for it.  The tickets of those reservations disappear with the event,
// so no inventory is credited.
func (s *EventService) DeleteEvent(ctx context.Context, id uint64) (model.Result[model.Deletion], error) {
	var removed int
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Events.GetByIDForUpdate(ctx, id); err != nil {
			if isNotFound(err) {
				return model.NotFound("Event not found")
			}
			return fail("failed to lock event", err)
		}
		var err error
		removed, err = s.Reservations.DeleteByEvent(ctx, id)
		if err != nil {
			return fail("failed to delete event reservations", err)
		}
		if err := s.Events.Delete(ctx, id); err != nil {
			if isNotFound(err) {
				return model.NotFound("Event not found")
			}
			return fail("failed to delete event", err)
		}
		return nil
	})
	if err != nil {
		return model.Result[model.Deletion]{}, fail("failed to delete event", err)
	}

	s.Log.WithFields(logrus.Fields{"event_id": id, "reservations_removed": removed}).Info("event deleted")
	s.publish(ctx, queue.LifecycleMessage{Type: queue.TypeEventDeleted, EventID: id, Removed: removed})
	return model.OK(model.Deletion{ID: id, Removed: removed}, "Event deleted successfully"), nil
}
