package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-ticketing/internal/model"
	"github.com/iliyamo/event-ticketing/internal/queue"
)

func TestCreateEvent(t *testing.T) {
	ctx := context.Background()
	when := time.Date(2025, 9, 1, 19, 30, 0, 0, time.UTC)

	t.Run("starts fully available", func(t *testing.T) {
		f := newFixture()
		res, err := f.events.CreateEvent(ctx, EventInput{Name: "  Jazz night ", DateTime: when, TicketsTotal: 10})
		require.NoError(t, err)
		assert.Equal(t, "Event created successfully", res.Message)
		assert.Equal(t, "Jazz night", res.Value.Name)
		assert.Equal(t, 10, res.Value.TicketsAvailable)
		assert.Equal(t, []string{queue.TypeEventCreated}, f.pub.types())
	})

	t.Run("zero capacity is allowed", func(t *testing.T) {
		f := newFixture()
		res, err := f.events.CreateEvent(ctx, EventInput{Name: "Private", DateTime: when})
		require.NoError(t, err)
		assert.Equal(t, 0, res.Value.TicketsAvailable)
	})

	tests := []struct {
		name string
		in   EventInput
		kind model.Kind
	}{
		{"blank name", EventInput{Name: "   ", DateTime: when, TicketsTotal: 1}, model.KindInvalidInput},
		{"negative capacity", EventInput{Name: "x", DateTime: when, TicketsTotal: -1}, model.KindInvalidQuantity},
		{"missing date", EventInput{Name: "x", TicketsTotal: 1}, model.KindInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.events.CreateEvent(ctx, tt.in)
			requireKind(t, err, tt.kind)
		})
	}

	t.Run("storage failure", func(t *testing.T) {
		f := newFixture()
		f.db.fail["events.Create"] = errors.New("boom")
		_, err := f.events.CreateEvent(ctx, EventInput{Name: "x", DateTime: when, TicketsTotal: 1})
		e := requireKind(t, err, model.KindStorageFailure)
		assert.Equal(t, "failed to create event", e.Message)
	})
}

func TestGetAndListEvents(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	_, err := f.events.ListEvents(ctx)
	e := requireKind(t, err, model.KindNotFound)
	assert.Equal(t, "No events found", e.Message)

	_, err = f.events.GetEvent(ctx, 1)
	e = requireKind(t, err, model.KindNotFound)
	assert.Equal(t, "Event not found", e.Message)

	ev := f.db.addEvent(10, 10)
	f.db.addEvent(5, 5)

	got, err := f.events.GetEvent(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, ev.ID, got.Value.ID)

	first, err := f.events.ListEvents(ctx)
	require.NoError(t, err)
	second, err := f.events.ListEvents(ctx)
	require.NoError(t, err)
	assert.Len(t, first.Value, 2)
	assert.Equal(t, first.Value, second.Value)

	f.db.fail["events.List"] = errors.New("gone away")
	_, err = f.events.ListEvents(ctx)
	requireKind(t, err, model.KindStorageFailure)
}

func TestDeleteEvent(t *testing.T) {
	ctx := context.Background()

	t.Run("removes the event and its reservations", func(t *testing.T) {
		f := newFixture()
		u := f.db.addUser("ann")
		ev := f.db.addEvent(10, 5)
		keep := f.db.addEvent(4, 3)
		f.db.addReservation(u.ID, ev.ID, 2)
		f.db.addReservation(u.ID, ev.ID, 3)
		other := f.db.addReservation(u.ID, keep.ID, 1)

		res, err := f.events.DeleteEvent(ctx, ev.ID)
		require.NoError(t, err)
		assert.Equal(t, "Event deleted successfully", res.Message)
		assert.Equal(t, 2, res.Value.Removed)

		_, err = f.events.GetEvent(ctx, ev.ID)
		requireKind(t, err, model.KindNotFound)
		list, err := f.reservations.ListReservations(ctx)
		require.NoError(t, err)
		require.Len(t, list.Value, 1)
		assert.Equal(t, other.ID, list.Value[0].ID)
		f.db.requireBalanced(t)
	})

	t.Run("unknown event", func(t *testing.T) {
		f := newFixture()
		_, err := f.events.DeleteEvent(ctx, 3)
		e := requireKind(t, err, model.KindNotFound)
		assert.Equal(t, "Event not found", e.Message)
		assert.Empty(t, f.pub.types())
	})
}
