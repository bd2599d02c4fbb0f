package model

import "time"

type OutboxStatus string

const (
	BookingStatusTopic        = "booking.status.v1"
	EventBookingStatusChanged = "booking.status_changed"
)

const (
	OutboxPending   OutboxStatus = "pending"
	OutboxPublished OutboxStatus = "published"
	OutboxFailed    OutboxStatus = "failed"
)

// OutboxMessage is written in the same transaction as the state change it
// describes and drained by the relay.
type OutboxMessage struct {
	ID          string       `json:"id" bson:"_id"`
	Topic       string       `json:"topic" bson:"topic"`
	Key         string       `json:"key" bson:"key"`
	EventType   string       `json:"event_type" bson:"event_type"`
	Event       BookingEvent `json:"event" bson:"event"`
	Status      OutboxStatus `json:"status" bson:"status"`
	Attempts    int          `json:"attempts" bson:"attempts"`
	LastError   string       `json:"last_error,omitempty" bson:"last_error,omitempty"`
	Traceparent string       `json:"traceparent,omitempty" bson:"traceparent,omitempty"`
	Tracestate  string       `json:"tracestate,omitempty" bson:"tracestate,omitempty"`
	CreatedAt   time.Time    `json:"created_at" bson:"created_at"`
	PublishedAt *time.Time   `json:"published_at,omitempty" bson:"published_at,omitempty"`
}
