package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"net"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"

	"github.com/qmsworks/qms/internal/dbpool"
)

// validChannel matches safe PostgreSQL LISTEN channel names.
var validChannel = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// AuditChannel is the NOTIFY channel written after every committed audit append.
const AuditChannel = "qms_audit"

const (
	listenChannel     = AuditChannel
	initialBackoff    = 1 * time.Second
	maxBackoff        = 30 * time.Second
	backoffMultiplier = 2
)

// Broadcaster fans events out to stream subscribers.
type Broadcaster interface {
	BroadcastEvent(eventType string, data json.RawMessage)
}

// NotifyBridge LISTENs on the qms_audit channel and forwards each payload
// to the stream hub. Notifications are delivered only after commit, so
// subscribers never see an entry that was rolled back.
type NotifyBridge struct {
	log  *logrus.Logger
	pool *dbpool.Pool
	hub  Broadcaster
}

// NewNotifyBridge creates a NotifyBridge wired to the given pool and hub.
func NewNotifyBridge(log *logrus.Logger, pool *dbpool.Pool, hub Broadcaster) *NotifyBridge {
	return &NotifyBridge{
		log:  log,
		pool: pool,
		hub:  hub,
	}
}

// Start launches the LISTEN/NOTIFY loop in a background goroutine.
// It verifies the initial connection before returning. If the initial
// LISTEN fails, it returns an error. The background goroutine handles
// reconnection for subsequent failures.
func (b *NotifyBridge) Start(ctx context.Context) error {
	if !validChannel.MatchString(listenChannel) {
		return fmt.Errorf("notify bridge: invalid channel name %q", listenChannel)
	}

	if err := b.pool.Ping(ctx); err != nil {
		return fmt.Errorf("notify bridge: database not reachable: %w", err)
	}

	go b.listen(ctx)

	return nil
}

// listen is the main loop that acquires a connection, subscribes to the
// channel, and processes notifications until the context is cancelled.
func (b *NotifyBridge) listen(ctx context.Context) {
	backoff := initialBackoff

	for {
		if ctx.Err() != nil {
			return
		}

		err := b.subscribeAndForward(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		b.log.WithError(err).WithField("retry_in", backoff).
			Warn("notify bridge connection lost, reconnecting")

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		backoff = nextBackoff(backoff)
	}
}

// subscribeAndForward acquires a connection, issues LISTEN, and blocks on
// notifications until the connection fails or the context is cancelled.
func (b *NotifyBridge) subscribeAndForward(ctx context.Context) error {
	conn, err := b.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquiring connection: %w", err)
	}
	defer conn.Release()

	// LISTEN requires the channel name inline (not a parameter), so we use
	// pgx.Identifier to safely quote/sanitize the channel name.
	sanitizedChannel := pgx.Identifier{listenChannel}.Sanitize()
	if _, err := conn.Exec(ctx, "LISTEN "+sanitizedChannel); err != nil {
		return fmt.Errorf("executing LISTEN: %w", err)
	}

	b.log.WithField("channel", listenChannel).Info("notify bridge listening")

	for {
		// Set a 2-minute read deadline so we periodically check ctx cancellation.
		if err := conn.Conn().PgConn().Conn().SetReadDeadline(time.Now().Add(2 * time.Minute)); err != nil {
			return fmt.Errorf("setting read deadline: %w", err)
		}

		notification, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			// On timeout, loop back to check context and retry.
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}

			return fmt.Errorf("waiting for notification: %w", err)
		}

		b.handleNotification(notification)
	}
}

// AuditNotification is the payload published on AuditChannel.
type AuditNotification struct {
	Type       string `json:"type"`
	Seq        int64  `json:"seq"`
	ID         string `json:"id"`
	EntityType string `json:"entityType"`
	EntityID   string `json:"entityId"`
	Action     string `json:"action"`
	Hash       string `json:"hash"`
}

// EventAuditAppended is the event type for committed audit entries.
const EventAuditAppended = "audit.appended"

// handleNotification forwards a single notification payload to the hub.
func (b *NotifyBridge) handleNotification(n *pgconn.Notification) {
	b.log.WithFields(logrus.Fields{
		"channel": n.Channel,
		"pid":     n.PID,
	}).Debug("notification received")

	var payload AuditNotification
	if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil || payload.ID == "" {
		b.log.Warn("dropping malformed audit notification")
		return
	}

	eventType := payload.Type
	if eventType == "" {
		eventType = EventAuditAppended
	}

	b.hub.BroadcastEvent(eventType, json.RawMessage(n.Payload))
}

// nextBackoff doubles the current backoff duration with random jitter (±25%),
// capped at maxBackoff. Jitter prevents thundering herd on reconnect.
func nextBackoff(current time.Duration) time.Duration {
	next := current * backoffMultiplier
	if next > maxBackoff {
		next = maxBackoff
	}

	// Add ±25% jitter.
	jitter := float64(next) * (0.75 + rand.Float64()*0.5) //nolint:gosec // jitter doesn't need crypto rand.

	return time.Duration(jitter)
}
