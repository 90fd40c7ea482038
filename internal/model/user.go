package model

import "time"

// User represents a row in the `users` table.  A user owns zero or more
// reservations; deleting the user releases the tickets held by those
// reservations before the user row itself is removed.
//
// Fields:
//  ID        – primary key identifier (AUTO_INCREMENT).
//  Name      – display name, never empty.
//  CreatedAt – creation timestamp.
type User struct {
    ID        uint64    `json:"id"`         // users.id
    Name      string    `json:"name"`       // users.name
    CreatedAt time.Time `json:"created_at"` // users.created_at
}
