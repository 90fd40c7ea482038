package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticketing/internal/queue"
)

// NopPublisher drops every message.  It is used when lifecycle events
// are disabled.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, queue.LifecycleMessage) error { return nil }

// Broker connection limits for the publisher.  A dial never takes
// longer than publishDialTimeout, and after a failed dial the publisher
// waits publishRetryAfter before trying again.
const (
	publishDialTimeout = 2 * time.Second
	publishRetryAfter  = 5 * time.Second
	publishTimeout     = 5 * time.Second
)

var (
	errBrokerBackoff   = errors.New("rabbitmq unavailable, reconnect deferred")
	errBrokerDialing   = errors.New("rabbitmq reconnect in progress")
	errPublisherClosed = errors.New("publisher closed")
)

// AMQPPublisher publishes lifecycle messages to the durable lifecycle
// queue.  The connection is opened lazily on first use and reopened
// after a failure, so a broker outage only costs the messages sent
// while it lasts.  While the broker is down a Publish fails fast: one
// caller dials with a short timeout outside the lock, the others and
// everyone inside the retry window return an error at once.
type AMQPPublisher struct {
	url         string
	log         logrus.FieldLogger
	dialTimeout time.Duration
	retryAfter  time.Duration

	mu       sync.Mutex
	conn     *amqp.Connection
	ch       *amqp.Channel
	dialing  bool
	closed   bool
	nextDial time.Time
}

func NewAMQPPublisher(url string, log logrus.FieldLogger) *AMQPPublisher {
	return &AMQPPublisher{
		url:         url,
		log:         log.WithField("component", "publisher"),
		dialTimeout: publishDialTimeout,
		retryAfter:  publishRetryAfter,
	}
}

// channel returns the open channel, dialing when there is none.  It is
// called with p.mu held and returns with p.mu held, releasing it for
// the duration of the dial.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	p.closeLocked()
	if p.closed {
		return nil, errPublisherClosed
	}
	if p.dialing {
		return nil, errBrokerDialing
	}
	if time.Now().Before(p.nextDial) {
		return nil, errBrokerBackoff
	}

	p.dialing = true
	p.mu.Unlock()
	conn, ch, err := p.dial(ctx)
	p.mu.Lock()
	p.dialing = false

	if err != nil {
		p.nextDial = time.Now().Add(p.retryAfter)
		return nil, err
	}
	if p.closed {
		_ = ch.Close()
		_ = conn.Close()
		return nil, errPublisherClosed
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) dial(ctx context.Context) (*amqp.Connection, *amqp.Channel, error) {
	timeout := p.dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", context.DeadlineExceeded)
	}

	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue.LifecycleQueue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("rabbitmq queue declare: %w", err)
	}
	return conn, ch, nil
}

// Publish sends msg as a persistent JSON message with a fresh
// MessageId.  A failed publish drops the channel so the next call
// reconnects.
func (p *AMQPPublisher) Publish(ctx context.Context, msg queue.LifecycleMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", msg.Type, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	err = ch.PublishWithContext(ctx, "", queue.LifecycleQueue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         msg.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		p.closeLocked()
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	p.log.WithField("type", msg.Type).Debug("lifecycle message published")
	return nil
}

// Close shuts the broker connection down.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	p.closeLocked()
	return nil
}

func (p *AMQPPublisher) closeLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
