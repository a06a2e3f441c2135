package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/tagdesk/ports"
)

// LogoutTopic is the topic logout events are published to
const LogoutTopic = "tagdesk.logout"

// LogoutEvent represents a logout event
type LogoutEvent struct {
	UserID   int64  `json:"user_id"`
	UserName string `json:"user_name"`
	Revoked  bool   `json:"revoked"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	topic     string
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) *WatermillPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		topic:     LogoutTopic,
	}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, userID int64, userName string, revoked bool) error {
	event := LogoutEvent{
		UserID:   userID,
		UserName: userName,
		Revoked:  revoked,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(p.topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event. Used when EVENTS_ENABLED is false.
type NopPublisher struct{}

func (NopPublisher) PublishLogout(context.Context, int64, string, bool) error { return nil }

var (
	_ ports.EventPublisher = (*WatermillPublisher)(nil)
	_ ports.EventPublisher = NopPublisher{}
)
