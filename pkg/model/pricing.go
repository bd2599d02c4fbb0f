package model

import "time"

type ServiceTier string

const (
	TierStandard ServiceTier = "standard"
	TierExpress  ServiceTier = "express"
	TierSameDay  ServiceTier = "same_day"
)

func (t ServiceTier) Valid() bool {
	switch t {
	case TierStandard, TierExpress, TierSameDay:
		return true
	}
	return false
}

type CustomerClass string

const (
	ClassIndividual CustomerClass = "individual"
	ClassBusiness   CustomerClass = "business"
	ClassEducation  CustomerClass = "education"
)

func (c CustomerClass) Valid() bool {
	switch c {
	case ClassIndividual, ClassBusiness, ClassEducation:
		return true
	}
	return false
}

type AdjustmentKind string

const (
	AdjustmentMultiplier AdjustmentKind = "multiplier"
	AdjustmentSurcharge  AdjustmentKind = "surcharge"
	AdjustmentDiscount   AdjustmentKind = "discount"
	AdjustmentDuration   AdjustmentKind = "duration"
)

// Adjustment records one pricing step. Factor is the rate that was applied and
// Amount the money it added (negative for discounts). Duration adjustments
// carry a zero Amount.
type Adjustment struct {
	Name   string         `json:"name" bson:"name"`
	Kind   AdjustmentKind `json:"kind" bson:"kind"`
	Factor float64        `json:"factor" bson:"factor"`
	Amount float64        `json:"amount" bson:"amount"`
}

type PricingBreakdown struct {
	BaseCost        float64      `json:"base_cost" bson:"base_cost"`
	Adjustments     []Adjustment `json:"adjustments" bson:"adjustments"`
	FinalCost       float64      `json:"final_cost" bson:"final_cost"`
	Currency        string       `json:"currency" bson:"currency"`
	DepositRequired float64      `json:"deposit_required" bson:"deposit_required"`
	EstimatedHours  int          `json:"estimated_hours" bson:"estimated_hours"`
	ValidUntil      time.Time    `json:"valid_until" bson:"valid_until"`
	QuotedAt        time.Time    `json:"quoted_at" bson:"quoted_at"`
}

func (p *PricingBreakdown) IsExpired(now time.Time) bool {
	return !now.Before(p.ValidUntil)
}
