package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// EventRepo manages persistence for events.  Only the ledger package
// should call UpdateTicketsAvailable.
type EventRepo struct {
	db *sql.DB
}

// NewEventRepo constructs an EventRepo with the given DB handle.
func NewEventRepo(db *sql.DB) *EventRepo {
	return &EventRepo{db: db}
}

const eventColumns = "id, name, description, date_time, tickets_total, tickets_available, created_at, updated_at"

// Create inserts a new event.  TicketsAvailable is always initialised
// to TicketsTotal regardless of what the caller put in it.  On success
// the generated ID and DB-default fields are populated on e.
func (r *EventRepo) Create(ctx context.Context, e *model.Event) error {
	const ins = `INSERT INTO events (name, description, date_time, tickets_total, tickets_available) VALUES (?, ?, ?, ?, ?)`
	q := conn(ctx, r.db)
	res, err := q.ExecContext(ctx, ins, e.Name, e.Description, e.DateTime.UTC(), e.TicketsTotal, e.TicketsTotal)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	// Query the inserted row to obtain timestamps as stored.
	created, err := scanEvent(q.QueryRowContext(ctx, "SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if err != nil {
		return fmt.Errorf("reload event %d: %w", id, err)
	}
	*e = created
	return nil
}

// GetByID retrieves an event by its ID.  It returns model.ErrNotFound
// if there is no matching row.
func (r *EventRepo) GetByID(ctx context.Context, id uint64) (model.Event, error) {
	e, err := scanEvent(conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ?", id))
	if err != nil {
		return model.Event{}, wrapLookup("get event", err)
	}
	return e, nil
}

// GetByIDForUpdate reads an event with an exclusive row lock held
// until the surrounding transaction commits or rolls back.  Concurrent
// ledger operations on the same event queue up behind this lock.
func (r *EventRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	q, err := lockConn(ctx)
	if err != nil {
		return model.Event{}, err
	}
	e, err := scanEvent(q.QueryRowContext(ctx,
		"SELECT "+eventColumns+" FROM events WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return model.Event{}, wrapLookup("lock event", err)
	}
	return e, nil
}

// List returns all events ordered by date and then id.
func (r *EventRepo) List(ctx context.Context) ([]model.Event, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+eventColumns+" FROM events ORDER BY date_time, id")
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()
	events := make([]model.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// UpdateTicketsAvailable overwrites the availability of an event.  It
// must run in the same transaction as the GetByIDForUpdate that read
// the previous value.  Rows affected is not checked: MySQL reports 0
// when the value is unchanged.
func (r *EventRepo) UpdateTicketsAvailable(ctx context.Context, id uint64, available int) error {
	q, err := lockConn(ctx)
	if err != nil {
		return err
	}
	if _, err := q.ExecContext(ctx,
		"UPDATE events SET tickets_available = ?, updated_at = ? WHERE id = ?",
		available, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update tickets_available of event %d: %w", id, err)
	}
	return nil
}

// Delete removes the event row.  Reservations referencing it must be
// deleted first.
func (r *EventRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM events WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete event %d: %w", id, err)
	}
	return requireAffected(res, "delete event")
}

func scanEvent(s scanner) (model.Event, error) {
	var e model.Event
	err := s.Scan(&e.ID, &e.Name, &e.Description, &e.DateTime,
		&e.TicketsTotal, &e.TicketsAvailable, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return model.Event{}, err
	}
	e.DateTime = e.DateTime.UTC()
	return e, nil
}
