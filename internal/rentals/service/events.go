package service

import (
	"context"
	"time"

	"keiteki/pkg/config"
	"keiteki/pkg/kafka"
)

const (
	EventRentalStarted  = "rental.started"
	EventRentalEnded    = "rental.ended"
	EventOverageCharged = "billing.overage_charged"

	eventSource = "rentals"
)

// EventPublisher is the producer-side surface the service needs. A
// nil publisher disables events entirely.
type EventPublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type rentalEvent struct {
	RentalID       string     `json:"rental_id"`
	BikeID         string     `json:"bike_id"`
	ResidentKey    string     `json:"resident_key"`
	StartAt        time.Time  `json:"start_at"`
	EndAt          *time.Time `json:"end_at,omitempty"`
	TotalMinutes   int        `json:"total_minutes,omitempty"`
	OverageCharged int        `json:"overage_charged,omitempty"`
}

// publishEvent is best effort: rentals and billing are already
// committed by the time an event goes out, so a broker outage only
// costs the notification, never the charge.
func publishEvent(ctx context.Context, cfg *config.Config, events EventPublisher, eventType string, payload rentalEvent) {
	if events == nil {
		return
	}

	msg := kafka.NewMessage().
		WithKey(payload.BikeID).
		WithEventType(eventType).
		WithSource(eventSource).
		WithValue(payload).
		Build()

	if err := events.Publish(ctx, msg); err != nil {
		cfg.Log.Warn("Failed to publish event",
			"event_type", eventType,
			"rental_id", payload.RentalID,
			"error", err,
		)
	}
}
