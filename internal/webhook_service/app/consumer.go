package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/hookroom/webhook-gateway/internal/platform/messagebroker"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/domain"
	"github.com/hookroom/webhook-gateway/internal/webhook_service/repository"
)

// EventConsumer bridges NATS subjects into the dispatch engine: message
// events fan out to webhooks, tombstone events move registrations to the
// replacement room.
type EventConsumer struct {
	natsClient      messagebroker.NATSClient
	dispatcher      *Dispatcher
	outgoingRepo    repository.OutgoingRepository
	incomingRepo    repository.IncomingRepository
	dispatchTimeout time.Duration
	logger          *slog.Logger
	subs            []*nats.Subscription
}

// NewEventConsumer creates an EventConsumer. dispatchTimeout bounds the full
// per-event fan-out including every registration's retries and backoff.
func NewEventConsumer(
	natsClient messagebroker.NATSClient,
	dispatcher *Dispatcher,
	outgoingRepo repository.OutgoingRepository,
	incomingRepo repository.IncomingRepository,
	dispatchTimeout time.Duration,
	logger *slog.Logger,
) *EventConsumer {
	return &EventConsumer{
		natsClient:      natsClient,
		dispatcher:      dispatcher,
		outgoingRepo:    outgoingRepo,
		incomingRepo:    incomingRepo,
		dispatchTimeout: dispatchTimeout,
		logger:          logger.With("component", "event_consumer"),
	}
}

// StartConsuming subscribes to the message-event and tombstone subjects.
// The queue group load-balances events across service instances.
func (c *EventConsumer) StartConsuming(ctx context.Context, eventSubject, tombstoneSubject, queueGroup string) error {
	eventSub, err := c.natsClient.Subscribe(ctx, eventSubject, queueGroup, c.handleMessageEvent)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", eventSubject, err)
	}
	c.subs = append(c.subs, eventSub)
	c.logger.Info("Consuming chat message events", "subject", eventSubject, "queue_group", queueGroup)

	tombstoneSub, err := c.natsClient.Subscribe(ctx, tombstoneSubject, queueGroup, c.handleTombstone)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %q: %w", tombstoneSubject, err)
	}
	c.subs = append(c.subs, tombstoneSub)
	c.logger.Info("Consuming room tombstone events", "subject", tombstoneSubject, "queue_group", queueGroup)

	return nil
}

// Stop drains the subscriptions so in-flight handlers finish.
func (c *EventConsumer) Stop() {
	for _, sub := range c.subs {
		if err := sub.Drain(); err != nil {
			c.logger.Warn("Failed to drain subscription", "subject", sub.Subject, "error", err)
		}
	}
	c.subs = nil
}

func (c *EventConsumer) handleMessageEvent(msg *nats.Msg) {
	chatEventsReceivedCounter.WithLabelValues(msg.Subject).Inc()

	var evt domain.MessageEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		c.logger.Error("Failed to unmarshal chat message event", "subject", msg.Subject, "error", err)
		return
	}
	if evt.RoomID == "" {
		c.logger.Warn("Chat message event without room_id dropped", "event_id", evt.EventID)
		return
	}

	// Each event gets its own deadline so one slow fan-out cannot wedge the
	// consumer goroutine pool.
	ctx, cancel := context.WithTimeout(context.Background(), c.dispatchTimeout)
	defer cancel()

	if err := c.dispatcher.Dispatch(ctx, evt); err != nil {
		c.logger.ErrorContext(ctx, "Failed to dispatch chat event",
			"event_id", evt.EventID, "room_id", evt.RoomID, "error", err)
	}
}

func (c *EventConsumer) handleTombstone(msg *nats.Msg) {
	var evt domain.TombstoneEvent
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		c.logger.Error("Failed to unmarshal tombstone event", "subject", msg.Subject, "error", err)
		return
	}
	if evt.OldRoomID == "" || evt.NewRoomID == "" {
		c.logger.Warn("Tombstone event missing room IDs dropped")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	moved, err := c.outgoingRepo.UpdateRoomID(ctx, evt.OldRoomID, evt.NewRoomID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to move outgoing registrations to replacement room",
			"old_room_id", evt.OldRoomID, "new_room_id", evt.NewRoomID, "error", err)
	}
	movedIncoming, err := c.incomingRepo.UpdateRoomID(ctx, evt.OldRoomID, evt.NewRoomID)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to move incoming registrations to replacement room",
			"old_room_id", evt.OldRoomID, "new_room_id", evt.NewRoomID, "error", err)
	}

	c.logger.InfoContext(ctx, "Room upgrade processed",
		"old_room_id", evt.OldRoomID, "new_room_id", evt.NewRoomID,
		"outgoing_moved", moved, "incoming_moved", movedIncoming)
}
