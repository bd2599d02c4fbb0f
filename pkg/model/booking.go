package model

import (
	"strings"
	"time"
)

type BookingStatus string

const (
	StatusDraft          BookingStatus = "draft"
	StatusPending        BookingStatus = "pending"
	StatusConfirmed      BookingStatus = "confirmed"
	StatusInProgress     BookingStatus = "in_progress"
	StatusReadyForPickup BookingStatus = "ready_for_pickup"
	StatusCompleted      BookingStatus = "completed"
	StatusCancelled      BookingStatus = "cancelled"
)

var AllBookingStatuses = []BookingStatus{
	StatusDraft,
	StatusPending,
	StatusConfirmed,
	StatusInProgress,
	StatusReadyForPickup,
	StatusCompleted,
	StatusCancelled,
}

func (s BookingStatus) Valid() bool {
	for _, st := range AllBookingStatuses {
		if st == s {
			return true
		}
	}
	return false
}

func (s BookingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

type UrgencyLevel string

const (
	UrgencyLow    UrgencyLevel = "low"
	UrgencyNormal UrgencyLevel = "normal"
	UrgencyHigh   UrgencyLevel = "high"
	UrgencyUrgent UrgencyLevel = "urgent"
)

// NormalizeUrgency maps both the canonical and the legacy vocabulary
// (standard, priority, emergency) onto the canonical levels. Empty input
// means normal.
func NormalizeUrgency(raw string) (UrgencyLevel, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "normal", "standard":
		return UrgencyNormal, true
	case "low":
		return UrgencyLow, true
	case "high", "priority":
		return UrgencyHigh, true
	case "urgent", "emergency":
		return UrgencyUrgent, true
	}
	return "", false
}

type Booking struct {
	ID                   string           `json:"id" bson:"_id" validate:"required,uuid"`
	BookingNumber        string           `json:"booking_number" bson:"booking_number" validate:"required"`
	CustomerID           string           `json:"customer_id" bson:"customer_id" validate:"required,min=1,max=100"`
	DeviceID             string           `json:"device_id" bson:"device_id" validate:"required"`
	Device               DeviceAttributes `json:"device" bson:"device"`
	SelectedIssueIDs     []string         `json:"selected_issue_ids" bson:"selected_issue_ids" validate:"required,min=1,max=20"`
	ServiceTier          ServiceTier      `json:"service_tier" bson:"service_tier" validate:"required,oneof=standard express same_day"`
	CustomerClass        CustomerClass    `json:"customer_class" bson:"customer_class" validate:"required,oneof=individual business education"`
	UrgencyLevel         UrgencyLevel     `json:"urgency_level" bson:"urgency_level" validate:"required,oneof=low normal high urgent"`
	Status               BookingStatus    `json:"status" bson:"status" validate:"required"`
	Quote                PricingBreakdown `json:"quote" bson:"quote"`
	SlotID               string           `json:"slot_id,omitempty" bson:"slot_id,omitempty"`
	SlotRef              string           `json:"-" bson:"slot_ref,omitempty"`
	CompletionPercentage int              `json:"completion_percentage" bson:"completion_percentage" validate:"min=0,max=100"`
	TermsAccepted        bool             `json:"terms_accepted" bson:"terms_accepted"`
	Version              int64            `json:"version" bson:"version"`
	CreatedAt            time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" bson:"updated_at"`
	CompletedAt          *time.Time       `json:"completed_at,omitempty" bson:"completed_at,omitempty"`
	CancelledAt          *time.Time       `json:"cancelled_at,omitempty" bson:"cancelled_at,omitempty"`
}

type BookingTransition struct {
	ID         string        `json:"id" bson:"_id"`
	BookingID  string        `json:"booking_id" bson:"booking_id"`
	Sequence   int64         `json:"sequence" bson:"sequence"`
	FromState  BookingStatus `json:"from_state" bson:"from_state"`
	ToState    BookingStatus `json:"to_state" bson:"to_state"`
	Reason     string        `json:"reason,omitempty" bson:"reason,omitempty"`
	ActorID    string        `json:"actor_id" bson:"actor_id"`
	OccurredAt time.Time     `json:"occurred_at" bson:"occurred_at"`
}

// BookingEvent is published to external consumers after every transition.
type BookingEvent struct {
	EventID   string        `json:"event_id" bson:"event_id"`
	BookingID string        `json:"booking_id" bson:"booking_id"`
	FromState BookingStatus `json:"from_state" bson:"from_state"`
	ToState   BookingStatus `json:"to_state" bson:"to_state"`
	Timestamp time.Time     `json:"timestamp" bson:"timestamp"`
	Booking   Booking       `json:"booking" bson:"booking"`
}
