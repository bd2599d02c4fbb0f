package validator

import (
	"encoding/json"
	"errors"
	"testing"

	"repairdesk/pkg/logger"
	"repairdesk/pkg/model"
	"repairdesk/pkg/validation"
)

func validCreate() *model.CreateBookingRequest {
	return &model.CreateBookingRequest{
		CustomerID:    "cust-1",
		DeviceID:      "iphone-15-pro",
		IssueIDs:      []string{"screen-crack"},
		ServiceTier:   model.TierStandard,
		CustomerClass: model.ClassIndividual,
	}
}

func TestValidateCreate(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	tests := []struct {
		name        string
		mutate      func(*model.CreateBookingRequest)
		expectValid bool
		field       string
	}{
		{"valid", func(r *model.CreateBookingRequest) {}, true, ""},
		{"legacy urgency", func(r *model.CreateBookingRequest) { r.UrgencyLevel = "emergency" }, true, ""},
		{"canonical urgency", func(r *model.CreateBookingRequest) { r.UrgencyLevel = "high" }, true, ""},
		{"unknown urgency", func(r *model.CreateBookingRequest) { r.UrgencyLevel = "asap" }, false, "urgencyLevel"},
		{"missing customer", func(r *model.CreateBookingRequest) { r.CustomerID = "" }, false, "customerId"},
		{"no issues", func(r *model.CreateBookingRequest) { r.IssueIDs = nil }, false, "issueIds"},
		{"bad tier", func(r *model.CreateBookingRequest) { r.ServiceTier = "overnight" }, false, "serviceTier"},
		{"bad class", func(r *model.CreateBookingRequest) { r.CustomerClass = "vip" }, false, "customerClass"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validCreate()
			tt.mutate(req)
			err := v.ValidateCreate(req)

			if tt.expectValid {
				if err != nil {
					t.Fatalf("expected valid, got %v", err)
				}
				return
			}

			var errs validation.ValidationErrors
			if !errors.As(err, &errs) {
				t.Fatalf("expected ValidationErrors, got %v", err)
			}
			if errs[0].Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, errs[0].Field)
			}
		})
	}
}

func TestValidateUrgencyMessage(t *testing.T) {
	v := NewBookingValidator(logger.Discard())
	req := validCreate()
	req.UrgencyLevel = "asap"

	var errs validation.ValidationErrors
	if !errors.As(v.ValidateCreate(req), &errs) {
		t.Fatalf("expected ValidationErrors")
	}
	if errs[0].Message != "urgencyLevel must be one of: low normal high urgent" {
		t.Errorf("unexpected message %q", errs[0].Message)
	}
}

func TestValidateTransitionAndProgress(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	if err := v.ValidateTransition(&model.TransitionRequest{ToState: model.StatusConfirmed, ActorID: "staff-1"}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if err := v.ValidateTransition(&model.TransitionRequest{ToState: "archived", ActorID: "staff-1"}); err == nil {
		t.Errorf("expected unknown state to fail")
	}
	if err := v.ValidateTransition(&model.TransitionRequest{ToState: model.StatusConfirmed}); err == nil {
		t.Errorf("expected missing actor to fail")
	}

	pct := 101
	if err := v.ValidateProgress(&model.ProgressRequest{CompletionPercentage: &pct}); err == nil {
		t.Errorf("expected 101 to fail")
	}
	pct = 0
	if err := v.ValidateProgress(&model.ProgressRequest{CompletionPercentage: &pct}); err != nil {
		t.Errorf("expected 0 to pass, got %v", err)
	}
	if err := v.ValidateProgress(&model.ProgressRequest{}); err == nil {
		t.Errorf("expected missing percentage to fail")
	}
}

func TestRequestBodiesDecodeAndValidate(t *testing.T) {
	v := NewBookingValidator(logger.Discard())

	var quote model.QuoteRequest
	if err := json.Unmarshal([]byte(`{"deviceId":"macbook-2025","issueIds":["screen-crack"],"serviceTier":"standard","customerClass":"individual"}`), &quote); err != nil {
		t.Fatalf("decode quote: %v", err)
	}
	if err := v.ValidateQuote(&quote); err != nil {
		t.Errorf("quote body rejected: %v", err)
	}

	var create model.CreateBookingRequest
	body := `{"customerId":"c1","deviceId":"macbook-2025","issueIds":["battery"],"serviceTier":"express",` +
		`"customerClass":"business","urgencyLevel":"priority","slotId":"slot-1","termsAccepted":true,"submit":true}`
	if err := json.Unmarshal([]byte(body), &create); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if err := v.ValidateCreate(&create); err != nil {
		t.Errorf("create body rejected: %v", err)
	}
	if create.SlotID != "slot-1" || !create.TermsAccepted || !create.Submit || create.CustomerClass != model.ClassBusiness {
		t.Errorf("create body decoded as %+v", create)
	}

	var transition model.TransitionRequest
	if err := json.Unmarshal([]byte(`{"toState":"cancelled","actorId":"staff-1","reason":"customer request"}`), &transition); err != nil {
		t.Fatalf("decode transition: %v", err)
	}
	if err := v.ValidateTransition(&transition); err != nil {
		t.Errorf("transition body rejected: %v", err)
	}

	var progress model.ProgressRequest
	if err := json.Unmarshal([]byte(`{"completionPercentage":40}`), &progress); err != nil {
		t.Fatalf("decode progress: %v", err)
	}
	if err := v.ValidateProgress(&progress); err != nil {
		t.Errorf("progress body rejected: %v", err)
	}
}
