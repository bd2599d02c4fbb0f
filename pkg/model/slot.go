package model

import "time"

type SlotType string

const (
	SlotRegular SlotType = "regular"
	SlotExpress SlotType = "express"
	SlotSameDay SlotType = "same_day"
)

type AvailabilitySlot struct {
	ID              string    `json:"id" bson:"_id" validate:"required"`
	Date            string    `json:"date" bson:"date" validate:"required,datetime=2006-01-02"`
	StartTime       string    `json:"start_time" bson:"start_time" validate:"required,datetime=15:04"`
	EndTime         string    `json:"end_time" bson:"end_time" validate:"required,datetime=15:04"`
	MaxBookings     int       `json:"max_bookings" bson:"max_bookings" validate:"min=0,max=1000"`
	CurrentBookings int       `json:"current_bookings" bson:"current_bookings" validate:"min=0"`
	SlotType        SlotType  `json:"slot_type" bson:"slot_type" validate:"required,oneof=regular express same_day"`
	PriceModifier   float64   `json:"price_modifier" bson:"price_modifier" validate:"gt=0"`
	Blocked         bool      `json:"blocked" bson:"blocked"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

type SpecialDate struct {
	Date               string    `json:"date" bson:"_id" validate:"required,datetime=2006-01-02"`
	IsClosed           bool      `json:"is_closed" bson:"is_closed"`
	CapacityPercentage *int      `json:"capacity_percentage,omitempty" bson:"capacity_percentage" validate:"omitempty,min=0,max=100"`
	PriceModifier      float64   `json:"price_modifier" bson:"price_modifier" validate:"gt=0"`
	Note               string    `json:"note,omitempty" bson:"note,omitempty" validate:"omitempty,max=200"`
	UpdatedAt          time.Time `json:"updated_at" bson:"updated_at"`
}

// FullCapacity is the capacity percentage of a date that only changes prices.
const FullCapacity = 100

func Percent(n int) *int {
	return &n
}

// EffectiveCapacity scales maxBookings by the override. A nil override, or one
// without a capacity percentage, leaves the slot's own capacity in place.
func (d *SpecialDate) EffectiveCapacity(maxBookings int) int {
	if d == nil {
		return maxBookings
	}
	if d.IsClosed {
		return 0
	}
	if d.CapacityPercentage == nil {
		return maxBookings
	}
	return maxBookings * *d.CapacityPercentage / 100
}

type Reservation struct {
	ID         string     `json:"id" bson:"_id"`
	SlotID     string     `json:"slot_id" bson:"slot_id"`
	Released   bool       `json:"released" bson:"released"`
	CreatedAt  time.Time  `json:"created_at" bson:"created_at"`
	ReleasedAt *time.Time `json:"released_at,omitempty" bson:"released_at,omitempty"`
}

// DateModifiers are the price factors tied to the day a booking lands on.
type DateModifiers struct {
	SlotModifier        float64 `json:"slot_modifier"`
	SpecialDateModifier float64 `json:"special_date_modifier"`
}
