package model

// Request bodies use camelCase field names; stored documents and responses
// keep the snake_case names of the model types.

type QuoteRequest struct {
	DeviceID      string        `json:"deviceId" validate:"required,max=100"`
	IssueIDs      []string      `json:"issueIds" validate:"required,min=1,max=20,dive,required,max=100"`
	ServiceTier   ServiceTier   `json:"serviceTier" validate:"required,oneof=standard express same_day"`
	CustomerClass CustomerClass `json:"customerClass" validate:"required,oneof=individual business education"`
	SlotID        string        `json:"slotId,omitempty" validate:"omitempty,max=100"`
}

type CreateBookingRequest struct {
	CustomerID    string        `json:"customerId" validate:"required,min=1,max=100"`
	DeviceID      string        `json:"deviceId" validate:"required,max=100"`
	IssueIDs      []string      `json:"issueIds" validate:"required,min=1,max=20,dive,required,max=100"`
	ServiceTier   ServiceTier   `json:"serviceTier" validate:"required,oneof=standard express same_day"`
	CustomerClass CustomerClass `json:"customerClass" validate:"required,oneof=individual business education"`
	// UrgencyLevel accepts the legacy standard/priority/emergency names too.
	UrgencyLevel  string `json:"urgencyLevel,omitempty" validate:"omitempty,urgency"`
	SlotID        string `json:"slotId,omitempty" validate:"omitempty,max=100"`
	TermsAccepted bool   `json:"termsAccepted"`
	// Submit moves the new booking straight from draft to pending.
	Submit bool `json:"submit"`
}

func (r *CreateBookingRequest) Quote() QuoteRequest {
	return QuoteRequest{
		DeviceID:      r.DeviceID,
		IssueIDs:      r.IssueIDs,
		ServiceTier:   r.ServiceTier,
		CustomerClass: r.CustomerClass,
		SlotID:        r.SlotID,
	}
}

type TransitionRequest struct {
	ToState BookingStatus `json:"toState" validate:"required,oneof=draft pending confirmed in_progress ready_for_pickup completed cancelled"`
	ActorID string        `json:"actorId" validate:"required,min=1,max=100"`
	Reason  string        `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type ProgressRequest struct {
	CompletionPercentage *int `json:"completionPercentage" validate:"required,min=0,max=100"`
}
