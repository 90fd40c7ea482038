package model

import "time"

// Event represents a row in the `events` table.  TicketsTotal is fixed
// when the event is created while TicketsAvailable is the live
// inventory.  The ledger package is the only writer of
// TicketsAvailable; for every committed transaction it equals
// TicketsTotal minus the tickets held by live reservations.
//
// Fields:
//  ID               – primary key identifier.
//  Name             – event name (indexed).
//  Description      – free text description.
//  DateTime         – when the event takes place (UTC).
//  TicketsTotal     – capacity, >= 0.
//  TicketsAvailable – unsold tickets, 0 <= available <= total.
//  CreatedAt        – creation timestamp.
//  UpdatedAt        – last update timestamp.
type Event struct {
    ID               uint64    `json:"id"`                // events.id
    Name             string    `json:"name"`              // events.name
    Description      string    `json:"description"`       // events.description
    DateTime         time.Time `json:"date_time"`         // events.date_time
    TicketsTotal     int       `json:"tickets_total"`     // events.tickets_total
    TicketsAvailable int       `json:"tickets_available"` // events.tickets_available
    CreatedAt        time.Time `json:"created_at"`        // events.created_at
    UpdatedAt        time.Time `json:"updated_at"`        // events.updated_at
}

// TicketsSold returns the number of tickets currently held by
// reservations.
func (e Event) TicketsSold() int { return e.TicketsTotal - e.TicketsAvailable }
