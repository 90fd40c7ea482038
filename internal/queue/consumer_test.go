package queue

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatAuditLine(t *testing.T) {
	left := 2
	line := FormatAuditLine(LifecycleMessage{
		Type: TypeReservationCreated, ReservationID: 7, UserID: 1, EventID: 3,
		Tickets: 3, Delta: -3, TicketsAvailable: &left, OccurredAt: "2024-05-01T10:00:00Z",
	})
	assert.Equal(t, "[2024-05-01T10:00:00Z] reservation.created | reservation_id=7 | user_id=1 | event_id=3 | tickets=3 | delta=-3 | available=2\n", line)

	line = FormatAuditLine(LifecycleMessage{Type: TypeEventDeleted, EventID: 4, Removed: 2, OccurredAt: "t"})
	assert.Equal(t, "[t] event.deleted | event_id=4 | removed=2\n", line)
}

func TestAppendAudit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "ticketing.log")

	require.NoError(t, appendAudit(path, []byte(`{"type":"user.created","user_id":5,"delta":0,"occurred_at":"t1"}`)))
	require.NoError(t, appendAudit(path, []byte(`{"type":"user.deleted","user_id":5,"delta":4,"occurred_at":"t2"}`)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[t1] user.created | user_id=5\n[t2] user.deleted | user_id=5 | delta=+4\n", string(data))
}

func TestAppendAuditRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ticketing.log")
	assert.Error(t, appendAudit(path, []byte("not json")))
	assert.Error(t, appendAudit(path, []byte(`{"delta":1}`)))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
