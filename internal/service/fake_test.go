package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/ledger"
	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

type txMarker struct{}

var errNoTx = errors.New("locking read outside a transaction")

// memDB is an in-memory stand-in for the MySQL store.  Transactions are
// serialized by txMu, which models the event row lock, and roll back by
// restoring a snapshot.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	users        map[uint64]model.User
	events       map[uint64]model.Event
	reservations map[uint64]model.Reservation
	nextID       map[string]uint64

	fail map[string]error
	txs  int
}

func newMemDB() *memDB {
	return &memDB{
		users:        map[uint64]model.User{},
		events:       map[uint64]model.Event{},
		reservations: map[uint64]model.Reservation{},
		nextID:       map[string]uint64{},
		fail:         map[string]error{},
	}
}

type snapshot struct {
	users        map[uint64]model.User
	events       map[uint64]model.Event
	reservations map[uint64]model.Reservation
}

func copyMap[K comparable, V any](m map[K]V) map[K]V {
	out := make(map[K]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (db *memDB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txMarker{}) != nil {
		return fn(ctx)
	}
	db.txMu.Lock()
	defer db.txMu.Unlock()

	db.mu.Lock()
	db.txs++
	snap := snapshot{copyMap(db.users), copyMap(db.events), copyMap(db.reservations)}
	db.mu.Unlock()

	if err := fn(context.WithValue(ctx, txMarker{}, true)); err != nil {
		db.mu.Lock()
		db.users, db.events, db.reservations = snap.users, snap.events, snap.reservations
		db.mu.Unlock()
		return err
	}
	return nil
}

func (db *memDB) failure(op string) error { return db.fail[op] }

func (db *memDB) id(table string) uint64 {
	db.nextID[table]++
	return db.nextID[table]
}

func inTx(ctx context.Context) error {
	if ctx.Value(txMarker{}) == nil {
		return errNoTx
	}
	return nil
}

// seeding helpers

func (db *memDB) addUser(name string) model.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := model.User{ID: db.id("users"), Name: name, CreatedAt: time.Now().UTC()}
	db.users[u.ID] = u
	return u
}

func (db *memDB) addEvent(total, available int) model.Event {
	db.mu.Lock()
	defer db.mu.Unlock()
	e := model.Event{ID: db.id("events"), Name: "show", TicketsTotal: total, TicketsAvailable: available,
		DateTime: time.Date(2025, 6, 1, 20, 0, 0, 0, time.UTC)}
	db.events[e.ID] = e
	return e
}

func (db *memDB) addReservation(userID, eventID uint64, tickets int) model.Reservation {
	db.mu.Lock()
	defer db.mu.Unlock()
	r := model.Reservation{ID: db.id("reservations"), UserID: userID, EventID: eventID, TicketsReserved: tickets}
	db.reservations[r.ID] = r
	return r
}

func (db *memDB) available(id uint64) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.events[id].TicketsAvailable
}

func (db *memDB) reservationCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.reservations)
}

// requireBalanced checks that every event's availability equals its
// capacity minus the tickets held by its reservations.
func (db *memDB) requireBalanced(t *testing.T) {
	t.Helper()
	db.mu.Lock()
	defer db.mu.Unlock()
	held := map[uint64]int{}
	for _, r := range db.reservations {
		held[r.EventID] += r.TicketsReserved
	}
	for id, e := range db.events {
		require.Equal(t, e.TicketsTotal-held[id], e.TicketsAvailable, "event %d out of balance", id)
		require.GreaterOrEqual(t, e.TicketsAvailable, 0)
	}
}

// users

type memUsers struct{ db *memDB }

func (s memUsers) Create(_ context.Context, u *model.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("users.Create"); err != nil {
		return err
	}
	u.ID = s.db.id("users")
	u.CreatedAt = time.Now().UTC()
	s.db.users[u.ID] = *u
	return nil
}

func (s memUsers) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return model.User{}, model.ErrNotFound
	}
	return u, nil
}

func (s memUsers) GetByIDForUpdate(ctx context.Context, id uint64) (model.User, error) {
	if err := inTx(ctx); err != nil {
		return model.User{}, err
	}
	return s.GetByID(ctx, id)
}

func (s memUsers) List(_ context.Context) ([]model.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]model.User, 0, len(s.db.users))
	for _, u := range s.db.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memUsers) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("users.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.users[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.db.users, id)
	return nil
}

// events

type memEvents struct{ db *memDB }

func (s memEvents) Create(_ context.Context, e *model.Event) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("events.Create"); err != nil {
		return err
	}
	e.ID = s.db.id("events")
	e.TicketsAvailable = e.TicketsTotal
	s.db.events[e.ID] = *e
	return nil
}

func (s memEvents) GetByID(_ context.Context, id uint64) (model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e, ok := s.db.events[id]
	if !ok {
		return model.Event{}, model.ErrNotFound
	}
	return e, nil
}

func (s memEvents) GetByIDForUpdate(ctx context.Context, id uint64) (model.Event, error) {
	if err := inTx(ctx); err != nil {
		return model.Event{}, err
	}
	return s.GetByID(ctx, id)
}

func (s memEvents) List(_ context.Context) ([]model.Event, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("events.List"); err != nil {
		return nil, err
	}
	out := make([]model.Event, 0, len(s.db.events))
	for _, e := range s.db.events {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s memEvents) UpdateTicketsAvailable(ctx context.Context, id uint64, available int) error {
	if err := inTx(ctx); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	e := s.db.events[id]
	e.TicketsAvailable = available
	s.db.events[id] = e
	return nil
}

func (s memEvents) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.events[id]; !ok {
		return model.ErrNotFound
	}
	for _, r := range s.db.reservations {
		if r.EventID == id {
			return errors.New("foreign key: event still referenced")
		}
	}
	delete(s.db.events, id)
	return nil
}

// reservations

type memReservations struct{ db *memDB }

func (s memReservations) Create(_ context.Context, r *model.Reservation) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("reservations.Create"); err != nil {
		return err
	}
	if _, ok := s.db.users[r.UserID]; !ok {
		return model.ErrNotFound
	}
	if _, ok := s.db.events[r.EventID]; !ok {
		return model.ErrNotFound
	}
	r.ID = s.db.id("reservations")
	s.db.reservations[r.ID] = *r
	return nil
}

func (s memReservations) GetByID(_ context.Context, id uint64) (model.Reservation, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	r, ok := s.db.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	return r, nil
}

func (s memReservations) GetByIDForUpdate(ctx context.Context, id uint64) (model.Reservation, error) {
	if err := inTx(ctx); err != nil {
		return model.Reservation{}, err
	}
	return s.GetByID(ctx, id)
}

func (s memReservations) filter(keep func(model.Reservation) bool) []model.Reservation {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := make([]model.Reservation, 0)
	for _, r := range s.db.reservations {
		if keep(r) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventID != out[j].EventID {
			return out[i].EventID < out[j].EventID
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s memReservations) List(_ context.Context) ([]model.Reservation, error) {
	return s.filter(func(model.Reservation) bool { return true }), nil
}

func (s memReservations) ListByUser(_ context.Context, userID uint64) ([]model.Reservation, error) {
	return s.filter(func(r model.Reservation) bool { return r.UserID == userID }), nil
}

func (s memReservations) ListByUserForUpdate(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	if err := inTx(ctx); err != nil {
		return nil, err
	}
	return s.ListByUser(ctx, userID)
}

func (s memReservations) UpdateTickets(ctx context.Context, id uint64, tickets int) (model.Reservation, error) {
	if err := inTx(ctx); err != nil {
		return model.Reservation{}, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("reservations.UpdateTickets"); err != nil {
		return model.Reservation{}, err
	}
	r, ok := s.db.reservations[id]
	if !ok {
		return model.Reservation{}, model.ErrNotFound
	}
	r.TicketsReserved = tickets
	s.db.reservations[id] = r
	return r, nil
}

func (s memReservations) Delete(_ context.Context, id uint64) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if err := s.db.failure("reservations.Delete"); err != nil {
		return err
	}
	if _, ok := s.db.reservations[id]; !ok {
		return model.ErrNotFound
	}
	delete(s.db.reservations, id)
	return nil
}

func (s memReservations) DeleteByEvent(_ context.Context, eventID uint64) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n := 0
	for id, r := range s.db.reservations {
		if r.EventID == eventID {
			delete(s.db.reservations, id)
			n++
		}
	}
	return n, nil
}

// publisher

type recPublisher struct {
	mu   sync.Mutex
	msgs []queue.LifecycleMessage
	err  error
}

func (p *recPublisher) Publish(_ context.Context, msg queue.LifecycleMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func (p *recPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.msgs))
	for _, m := range p.msgs {
		out = append(out, m.Type)
	}
	return out
}

type fixture struct {
	db           *memDB
	pub          *recPublisher
	reservations *ReservationService
	events       *EventService
	users        *UserService
}

func newFixture() *fixture {
	db := newMemDB()
	pub := &recPublisher{}
	d := Deps{
		Tx:           db,
		Users:        memUsers{db},
		Events:       memEvents{db},
		Reservations: memReservations{db},
		Ledger:       ledger.New(memEvents{db}, nil),
		Publisher:    pub,
		Now:          func() time.Time { return time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC) },
	}
	return &fixture{
		db:           db,
		pub:          pub,
		reservations: NewReservationService(d),
		events:       NewEventService(d),
		users:        NewUserService(d),
	}
}

func requireKind(t *testing.T, err error, kind model.Kind) *model.Error {
	t.Helper()
	require.Error(t, err)
	var e *model.Error
	require.True(t, errors.As(err, &e), "expected *model.Error, got %T: %v", err, err)
	require.Equal(t, kind, e.Kind, "unexpected kind for %v", err)
	return e
}
