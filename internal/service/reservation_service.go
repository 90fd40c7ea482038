package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

// Ownership mismatch and nonexistence share one message so callers
// cannot probe for other users' reservations.
const msgReservationMismatch = "Reservation not found or user mismatch"

// Reservations is the reservation lifecycle as seen by the transport.
type Reservations interface {
	CreateReservation(ctx context.Context, userID, eventID uint64, tickets int) (model.Result[model.Reservation], error)
	GetReservation(ctx context.Context, id uint64) (model.Result[model.Reservation], error)
	UpdateReservation(ctx context.Context, id, userID uint64, tickets int) (model.Result[model.Reservation], error)
	CancelReservation(ctx context.Context, id uint64) (model.Result[model.Deletion], error)
	ListReservations(ctx context.Context) (model.Result[[]model.Reservation], error)
	ListReservationsByUser(ctx context.Context, userID uint64) (model.Result[[]model.Reservation], error)
}

// ReservationService drives a reservation from creation through
// resizing to cancellation.  A reservation is active while its row
// exists; cancelling deletes the row and its ID is never reused.
type ReservationService struct {
	Deps
}

func NewReservationService(d Deps) *ReservationService {
	return &ReservationService{Deps: d.withDefaults()}
}

func validTickets(tickets int) error {
	if tickets < 1 {
		return model.InvalidQuantity("tickets_reserved must be at least 1, got %d", tickets)
	}
	return nil
}

// CreateReservation reserves tickets on an event for a user.  The event
// row is locked before anything else, so two concurrent requests for
// the same event are serialized and the second one sees the first
// one's debit.
func (s *ReservationService) CreateReservation(ctx context.Context, userID, eventID uint64, tickets int) (model.Result[model.Reservation], error) {
	if err := validTickets(tickets); err != nil {
		return model.Result[model.Reservation]{}, err
	}

	var created model.Reservation
	var left int
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.Events.GetByIDForUpdate(ctx, eventID); err != nil {
			if isNotFound(err) {
				return model.NotFound("Event does not exist")
			}
			return fail("failed to lock event", err)
		}
		if _, err := s.Users.GetByID(ctx, userID); err != nil {
			if isNotFound(err) {
				return model.NotFound("User %d not found", userID)
			}
			return fail("failed to load user", err)
		}
		var err error
		left, err = s.Ledger.Reserve(ctx, eventID, tickets)
		if err != nil {
			return err
		}
		res := model.Reservation{UserID: userID, EventID: eventID, TicketsReserved: tickets}
		if err := s.Reservations.Create(ctx, &res); err != nil {
			if isNotFound(err) {
				return model.NotFound("User %d or event %d no longer exists", userID, eventID)
			}
			return fail("failed to create reservation", err)
		}
		created = res
		return nil
	})
	if err != nil {
		return model.Result[model.Reservation]{}, fail("failed to create reservation", err)
	}

	s.Log.WithFields(logrus.Fields{
		"reservation_id": created.ID, "event_id": eventID, "user_id": userID,
		"tickets": tickets, "available": left,
	}).Info("reservation created")
	s.publish(ctx, queue.LifecycleMessage{
		Type: queue.TypeReservationCreated, ReservationID: created.ID, UserID: userID, EventID: eventID,
		Tickets: tickets, Delta: -tickets, TicketsAvailable: intPtr(left),
	})
	return model.OK(created, "Reservation created successfully"), nil
}

// GetReservation looks up a single reservation.
func (s *ReservationService) GetReservation(ctx context.Context, id uint64) (model.Result[model.Reservation], error) {
	res, err := s.Reservations.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return model.Result[model.Reservation]{}, model.NotFound("Reservation not found")
		}
		return model.Result[model.Reservation]{}, fail("failed to load reservation", err)
	}
	return model.OK(res, "Reservation found"), nil
}

// UpdateReservation changes the number of tickets held by a
// reservation owned by userID.  Growing it debits the difference,
// shrinking it credits the difference back.
func (s *ReservationService) UpdateReservation(ctx context.Context, id, userID uint64, tickets int) (model.Result[model.Reservation], error) {
	if err := validTickets(tickets); err != nil {
		return model.Result[model.Reservation]{}, err
	}

	var updated model.Reservation
	var old, left int
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		current, err := s.Reservations.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return model.NotFound(msgReservationMismatch)
			}
			return fail("failed to load reservation", err)
		}
		if current.UserID != userID {
			return model.NotFound(msgReservationMismatch)
		}
		// event row first, then the reservation row
		if _, err := s.Events.GetByIDForUpdate(ctx, current.EventID); err != nil {
			if isNotFound(err) {
				return model.NotFound("Event does not exist")
			}
			return fail("failed to lock event", err)
		}
		locked, err := s.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return model.NotFound(msgReservationMismatch)
			}
			return fail("failed to lock reservation", err)
		}
		old = locked.TicketsReserved
		left, err = s.Ledger.Resize(ctx, locked.EventID, old, tickets)
		if err != nil {
			return err
		}
		updated, err = s.Reservations.UpdateTickets(ctx, id, tickets)
		if err != nil {
			return fail("failed to update reservation", err)
		}
		return nil
	})
	if err != nil {
		return model.Result[model.Reservation]{}, fail("failed to update reservation", err)
	}

	s.Log.WithFields(logrus.Fields{
		"reservation_id": id, "event_id": updated.EventID, "from": old, "to": tickets, "available": left,
	}).Info("reservation updated")
	s.publish(ctx, queue.LifecycleMessage{
		Type: queue.TypeReservationUpdated, ReservationID: id, UserID: userID, EventID: updated.EventID,
		Tickets: tickets, Delta: old - tickets, TicketsAvailable: intPtr(left),
	})
	return model.OK(updated, "Reservation updated successfully"), nil
}

// CancelReservation releases the reservation's tickets and deletes it.
// If the event has already disappeared there is nothing to release and
// the reservation is removed anyway.
func (s *ReservationService) CancelReservation(ctx context.Context, id uint64) (model.Result[model.Deletion], error) {
	var cancelled model.Reservation
	var left *int
	err := s.Tx.WithTx(ctx, func(ctx context.Context) error {
		left = nil
		current, err := s.Reservations.GetByID(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return model.NotFound("Reservation not found")
			}
			return fail("failed to load reservation", err)
		}
		eventGone := false
		if _, err := s.Events.GetByIDForUpdate(ctx, current.EventID); err != nil {
			if !isNotFound(err) {
				return fail("failed to lock event", err)
			}
			eventGone = true
		}
		locked, err := s.Reservations.GetByIDForUpdate(ctx, id)
		if err != nil {
			if isNotFound(err) {
				return model.NotFound("Reservation not found")
			}
			return fail("failed to lock reservation", err)
		}
		if !eventGone {
			n, err := s.Ledger.Release(ctx, locked.EventID, locked.TicketsReserved)
			switch {
			case isNotFound(err):
				// event deleted between the two reads; already released
			case err != nil:
				return err
			default:
				left = intPtr(n)
			}
		}
		if err := s.Reservations.Delete(ctx, id); err != nil {
			if isNotFound(err) {
				return model.NotFound("Reservation not found")
			}
			return fail("failed to delete reservation", err)
		}
		cancelled = locked
		return nil
	})
	if err != nil {
		return model.Result[model.Deletion]{}, fail("failed to cancel reservation", err)
	}

	released := 0
	if left != nil {
		released = cancelled.TicketsReserved
	}
	s.Log.WithFields(logrus.Fields{
		"reservation_id": id, "event_id": cancelled.EventID, "released": released,
	}).Info("reservation cancelled")
	s.publish(ctx, queue.LifecycleMessage{
		Type: queue.TypeReservationCancelled, ReservationID: id, UserID: cancelled.UserID, EventID: cancelled.EventID,
		Tickets: cancelled.TicketsReserved, Delta: released, TicketsAvailable: left,
	})
	return model.OK(model.Deletion{ID: id, Released: released, Removed: 1}, "Reservation cancelled successfully"), nil
}

// ListReservations returns every live reservation.  An empty store is
// reported as not found.
func (s *ReservationService) ListReservations(ctx context.Context) (model.Result[[]model.Reservation], error) {
	list, err := s.Reservations.List(ctx)
	if err != nil {
		return model.Result[[]model.Reservation]{}, fail("failed to list reservations", err)
	}
	if len(list) == 0 {
		return model.Result[[]model.Reservation]{}, model.NotFound("No reservations found")
	}
	return model.OK(list, "Reservations retrieved successfully"), nil
}

// ListReservationsByUser returns the reservations of one user.
func (s *ReservationService) ListReservationsByUser(ctx context.Context, userID uint64) (model.Result[[]model.Reservation], error) {
	if _, err := s.Users.GetByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return model.Result[[]model.Reservation]{}, model.NotFound("User %d not found", userID)
		}
		return model.Result[[]model.Reservation]{}, fail("failed to load user", err)
	}
	list, err := s.Reservations.ListByUser(ctx, userID)
	if err != nil {
		return model.Result[[]model.Reservation]{}, fail("failed to list reservations", err)
	}
	if len(list) == 0 {
		return model.Result[[]model.Reservation]{}, model.NotFound("No reservations found for user %d", userID)
	}
	return model.OK(list, "Reservations retrieved successfully"), nil
}
