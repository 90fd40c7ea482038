package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// StartAuditConsumer connects to the broker at url, declares the
// lifecycle queue and appends one line per message to the file at path.
// It reconnects with exponential backoff until ctx is cancelled, which
// is the only way it returns.  Malformed messages are rejected without
// requeueing.
func StartAuditConsumer(ctx context.Context, url, path string, log logrus.FieldLogger) error {
	log = log.WithField("component", "audit-consumer")
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("failed to dial broker; retrying in %s", backoff)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, path, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warn("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, path string, log logrus.FieldLogger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.WithError(err).Warn("set QoS failed")
	}
	if _, err := ch.QueueDeclare(LifecycleQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(LifecycleQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := appendAudit(path, d.Body); err != nil {
				log.WithError(err).WithField("message_id", d.MessageId).Error("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func appendAudit(path string, body []byte) error {
	var msg LifecycleMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if msg.Type == "" {
		return errors.New("message without type")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", filepath.Dir(path), err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatAuditLine(msg)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// FormatAuditLine renders msg as a single human readable log line,
// omitting fields the message does not carry.
func FormatAuditLine(msg LifecycleMessage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", msg.OccurredAt, msg.Type)
	if msg.ReservationID != 0 {
		fmt.Fprintf(&b, " | reservation_id=%d", msg.ReservationID)
	}
	if msg.UserID != 0 {
		fmt.Fprintf(&b, " | user_id=%d", msg.UserID)
	}
	if msg.EventID != 0 {
		fmt.Fprintf(&b, " | event_id=%d", msg.EventID)
	}
	if msg.Tickets != 0 {
		fmt.Fprintf(&b, " | tickets=%d", msg.Tickets)
	}
	if msg.Delta != 0 {
		fmt.Fprintf(&b, " | delta=%+d", msg.Delta)
	}
	if msg.TicketsAvailable != nil {
		fmt.Fprintf(&b, " | available=%d", *msg.TicketsAvailable)
	}
	if msg.Removed != 0 {
		fmt.Fprintf(&b, " | removed=%d", msg.Removed)
	}
	b.WriteByte('\n')
	return b.String()
}
