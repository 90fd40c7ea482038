package model

import "time"

// Reservation records a user's claim on a number of tickets for one
// event.  A reservation is active while its row exists; modifying it
// keeps the same ID and cancelling it deletes the row.  IDs come from
// InnoDB AUTO_INCREMENT and are never handed out twice.
//
// Fields:
//  ID              – primary key identifier.
//  UserID          – owner of the reservation (users.id).
//  EventID         – event being reserved (events.id).
//  TicketsReserved – number of tickets held, >= 1.
//  CreatedAt       – creation timestamp.
//  UpdatedAt       – last update timestamp.
type Reservation struct {
    ID              uint64    `json:"id"`               // reservations.id
    UserID          uint64    `json:"user_id"`          // reservations.user_id
    EventID         uint64    `json:"event_id"`         // reservations.event_id
    TicketsReserved int       `json:"tickets_reserved"` // reservations.tickets_reserved
    CreatedAt       time.Time `json:"created_at"`       // reservations.created_at
    UpdatedAt       time.Time `json:"updated_at"`       // reservations.updated_at
}
