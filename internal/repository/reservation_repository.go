package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/iliyamo/event-ticketing/internal/model"
)

// ReservationRepo provides CRUD operations for reservations.  Each row
// links one user to one event with a ticket count.  Writes are meant
// to run inside Store.WithTx next to the matching ledger operation so
// that reservations and event inventory change together.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = "id, user_id, event_id, tickets_reserved, created_at, updated_at"

// Create inserts a new reservation and populates the generated ID and
// timestamps on res.  A foreign key failure (user or event vanished
// concurrently) is reported as model.ErrNotFound.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const ins = `INSERT INTO reservations (user_id, event_id, tickets_reserved) VALUES (?, ?, ?)`
	q := conn(ctx, r.db)
	result, err := q.ExecContext(ctx, ins, res.UserID, res.EventID, res.TicketsReserved)
	if err != nil {
		if isForeignKeyViolation(err) {
			return model.ErrNotFound
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert reservation: %w", err)
	}
	// Query back the full row to populate timestamps
	created, err := scanReservation(q.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
	if err != nil {
		return fmt.Errorf("reload reservation %d: %w", id, err)
	}
	*res = created
	return nil
}

// GetByID returns a single reservation or model.ErrNotFound.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(conn(ctx, r.db).QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
	if err != nil {
		return model.Reservation{}, wrapLookup("get reservation", err)
	}
	return res, nil
}

// GetByIDForUpdate returns a reservation and locks its row for the
// rest of the transaction.
func (r *ReservationRepo) GetByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	q, err := lockConn(ctx)
	if err != nil {
		return model.Reservation{}, err
	}
	res, err := scanReservation(q.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ? FOR UPDATE", id))
	if err != nil {
		return model.Reservation{}, wrapLookup("lock reservation", err)
	}
	return res, nil
}

// List returns every reservation ordered by id.
func (r *ReservationRepo) List(ctx context.Context) ([]model.Reservation, error) {
	return r.query(ctx, conn(ctx, r.db), "list reservations",
		"SELECT "+reservationColumns+" FROM reservations ORDER BY id")
}

// ListByUser returns the reservations owned by userID ordered by id.
// When none exist an empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return r.query(ctx, conn(ctx, r.db), "list reservations by user",
		"SELECT "+reservationColumns+" FROM reservations WHERE user_id = ? ORDER BY id", userID)
}

// ListByUserForUpdate is ListByUser with row locks, ordered by event so
// that callers releasing tickets lock events in ascending order.
func (r *ReservationRepo) ListByUserForUpdate(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	q, err := lockConn(ctx)
	if err != nil {
		return nil, err
	}
	return r.query(ctx, q, "lock reservations by user",
		"SELECT "+reservationColumns+" FROM reservations WHERE user_id = ? ORDER BY event_id, id FOR UPDATE", userID)
}

// UpdateTickets sets the ticket count of a reservation.  Like the
// ledger write it must share a transaction with the locking read.
func (r *ReservationRepo) UpdateTickets(ctx context.Context, id uint64, tickets int) (model.Reservation, error) {
	q, err := lockConn(ctx)
	if err != nil {
		return model.Reservation{}, err
	}
	if _, err := q.ExecContext(ctx,
		"UPDATE reservations SET tickets_reserved = ?, updated_at = ? WHERE id = ?",
		tickets, time.Now().UTC(), id); err != nil {
		return model.Reservation{}, fmt.Errorf("update reservation %d: %w", id, err)
	}
	res, err := scanReservation(q.QueryRowContext(ctx,
		"SELECT "+reservationColumns+" FROM reservations WHERE id = ?", id))
	if err != nil {
		return model.Reservation{}, wrapLookup("reload reservation", err)
	}
	return res, nil
}

// Delete removes a single reservation.  model.ErrNotFound is returned
// when no row matched.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete reservation %d: %w", id, err)
	}
	return requireAffected(res, "delete reservation")
}

// DeleteByEvent removes every reservation of an event and reports how
// many rows were deleted.
func (r *ReservationRepo) DeleteByEvent(ctx context.Context, eventID uint64) (int, error) {
	res, err := conn(ctx, r.db).ExecContext(ctx, "DELETE FROM reservations WHERE event_id = ?", eventID)
	if err != nil {
		return 0, fmt.Errorf("delete reservations of event %d: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete reservations of event %d: %w", eventID, err)
	}
	return int(n), nil
}

func (r *ReservationRepo) query(ctx context.Context, q querier, op, stmt string, args ...any) ([]model.Reservation, error) {
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanReservation(s scanner) (model.Reservation, error) {
	var res model.Reservation
	err := s.Scan(&res.ID, &res.UserID, &res.EventID, &res.TicketsReserved, &res.CreatedAt, &res.UpdatedAt)
	return res, err
}
