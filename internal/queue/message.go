// Package queue defines the lifecycle messages exchanged over RabbitMQ
// and the background consumer that turns them into an audit log.
package queue

// LifecycleQueue is the durable queue every lifecycle message is
// routed to through the default exchange.
const LifecycleQueue = "ticketing.lifecycle"

// Message types.
const (
	TypeReservationCreated   = "reservation.created"
	TypeReservationUpdated   = "reservation.updated"
	TypeReservationCancelled = "reservation.cancelled"
	TypeEventCreated         = "event.created"
	TypeEventDeleted         = "event.deleted"
	TypeUserCreated          = "user.created"
	TypeUserDeleted          = "user.deleted"
)

// LifecycleMessage is published after a committed change.  Delta is
// the change applied to the event inventory: negative when tickets were
// taken, positive when they were handed back.  TicketsAvailable is the
// inventory left after the change, when a single event was touched.
type LifecycleMessage struct {
	Type             string `json:"type"`
	ReservationID    uint64 `json:"reservation_id,omitempty"`
	UserID           uint64 `json:"user_id,omitempty"`
	EventID          uint64 `json:"event_id,omitempty"`
	Tickets          int    `json:"tickets,omitempty"`
	Delta            int    `json:"delta"`
	TicketsAvailable *int   `json:"tickets_available,omitempty"`
	Removed          int    `json:"reservations_removed,omitempty"`
	OccurredAt       string `json:"occurred_at"`
}
