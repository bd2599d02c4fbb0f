package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestNormalizeUrgency(t *testing.T) {
	tests := []struct {
		input    string
		expected UrgencyLevel
		ok       bool
	}{
		{"", UrgencyNormal, true},
		{"normal", UrgencyNormal, true},
		{"standard", UrgencyNormal, true},
		{"low", UrgencyLow, true},
		{"priority", UrgencyHigh, true},
		{" HIGH ", UrgencyHigh, true},
		{"emergency", UrgencyUrgent, true},
		{"urgent", UrgencyUrgent, true},
		{"whenever", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := NormalizeUrgency(tt.input)
			if ok != tt.ok || got != tt.expected {
				t.Errorf("NormalizeUrgency(%q) = (%q, %v), want (%q, %v)", tt.input, got, ok, tt.expected, tt.ok)
			}
		})
	}
}

func TestSpecialDate_EffectiveCapacity(t *testing.T) {
	tests := []struct {
		name     string
		override *SpecialDate
		max      int
		expected int
	}{
		{"no override", nil, 4, 4},
		{"closed", &SpecialDate{IsClosed: true, CapacityPercentage: Percent(100)}, 4, 0},
		{"half", &SpecialDate{CapacityPercentage: Percent(50)}, 4, 2},
		{"floors fraction", &SpecialDate{CapacityPercentage: Percent(50)}, 3, 1},
		{"zero percent", &SpecialDate{CapacityPercentage: Percent(0)}, 5, 0},
		{"full", &SpecialDate{CapacityPercentage: Percent(100)}, 7, 7},
		{"surcharge only", &SpecialDate{PriceModifier: 1.25}, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.override.EffectiveCapacity(tt.max); got != tt.expected {
				t.Errorf("EffectiveCapacity(%d) = %d, want %d", tt.max, got, tt.expected)
			}
		})
	}
}

func TestPricingBreakdown_IsExpired(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	q := PricingBreakdown{ValidUntil: now.Add(time.Hour)}

	if q.IsExpired(now) {
		t.Errorf("quote should still be valid")
	}
	if !q.IsExpired(now.Add(time.Hour)) {
		t.Errorf("quote should expire at ValidUntil")
	}
}

func TestBookingStatus(t *testing.T) {
	for _, s := range AllBookingStatuses {
		if !s.Valid() {
			t.Errorf("%s should be valid", s)
		}
	}
	if BookingStatus("archived").Valid() {
		t.Errorf("unknown status should be invalid")
	}
	if !StatusCompleted.IsTerminal() || !StatusCancelled.IsTerminal() {
		t.Errorf("completed and cancelled are terminal")
	}
	if StatusReadyForPickup.IsTerminal() {
		t.Errorf("ready_for_pickup is not terminal")
	}
}

func TestTierAndClassValid(t *testing.T) {
	if !TierSameDay.Valid() || ServiceTier("overnight").Valid() {
		t.Errorf("unexpected tier validity")
	}
	if !ClassEducation.Valid() || CustomerClass("vip").Valid() {
		t.Errorf("unexpected class validity")
	}
}

func TestBooking_JSONOmitsSlotToken(t *testing.T) {
	b := Booking{ID: "b-1", SlotID: "slot-1", SlotRef: "sealed-token", Status: StatusPending}

	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(data), "sealed-token") || strings.Contains(string(data), "slot_ref") {
		t.Errorf("reservation token leaked into JSON: %s", data)
	}
	if !strings.Contains(string(data), `"slot_id":"slot-1"`) {
		t.Errorf("slot_id missing from JSON: %s", data)
	}
}
