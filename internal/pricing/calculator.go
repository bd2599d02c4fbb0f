package pricing

import (
	"time"

	"repairdesk/pkg/config"
	apperrors "repairdesk/pkg/errors"
	"repairdesk/pkg/model"
	"repairdesk/pkg/sanitizer"

	"github.com/shopspring/decimal"
)

const (
	AdjDeviceAge        = "device_age"
	AdjBrandPremium     = "brand_premium"
	AdjCategoryPremium  = "category_premium"
	AdjServiceTier      = "service_tier"
	AdjTurnaround       = "turnaround"
	AdjSlotSurcharge    = "slot_surcharge"
	AdjSpecialDate      = "special_date_surcharge"
	AdjCustomerDiscount = "customer_discount"
	moneyPlaces         = 2
)

// Calculator turns catalog data and customer choices into a PricingBreakdown.
// It holds no state besides its rules and never performs I/O, so one instance
// is safe for concurrent use.
type Calculator struct {
	currency          string
	depositRate       decimal.Decimal
	validity          time.Duration
	premiumBrands     map[string]struct{}
	premiumCategories map[string]struct{}
	now               func() time.Time
}

type Option func(*Calculator)

// WithClock fixes the time source, used for the device age and quote expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Calculator) {
		c.now = now
	}
}

func NewCalculator(rules config.PricingConfig, opts ...Option) *Calculator {
	c := &Calculator{
		currency:          rules.Currency,
		depositRate:       decimal.NewFromFloat(rules.DepositRate),
		validity:          rules.QuoteValidity,
		premiumBrands:     toSet(rules.PremiumBrands),
		premiumCategories: toSet(rules.PremiumCategories),
		now:               func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type QuoteOption func(*quoteInput)

type quoteInput struct {
	dates *model.DateModifiers
}

// WithDateModifiers applies the surcharges of the day the repair is booked on.
func WithDateModifiers(m model.DateModifiers) QuoteOption {
	return func(q *quoteInput) {
		q.dates = &m
	}
}

// Compute prices the given issues. The steps run in a fixed order: device
// multipliers, service tier, date surcharges, customer discount, rounding.
// Every applied step is recorded as an Adjustment.
func (c *Calculator) Compute(
	device model.DeviceAttributes,
	issues []model.RepairIssue,
	tier model.ServiceTier,
	class model.CustomerClass,
	opts ...QuoteOption,
) (*model.PricingBreakdown, error) {
	if err := validateInput(issues, tier, class); err != nil {
		return nil, err
	}

	in := quoteInput{}
	for _, opt := range opts {
		opt(&in)
	}

	now := c.now()

	rawCost := decimal.Zero
	rawMinutes := decimal.Zero
	for _, issue := range issues {
		rawCost = rawCost.Add(decimal.NewFromFloat(issue.BaseCost))
		rawMinutes = rawMinutes.Add(decimal.NewFromInt(int64(issue.BaseDurationMinutes)))
	}

	var adjustments []model.Adjustment
	running := rawCost

	multiply := func(name string, kind model.AdjustmentKind, factor decimal.Decimal) {
		before := running
		running = running.Mul(factor)
		adjustments = append(adjustments, newAdjustment(name, kind, factor, running.Sub(before)))
	}

	age := now.Year() - device.ReleaseYear
	if age < 0 {
		age = 0
	}
	if f := ageFactor(age); !f.Equal(one) {
		multiply(AdjDeviceAge, model.AdjustmentMultiplier, f)
	}
	if c.isPremiumBrand(device.Brand) {
		multiply(AdjBrandPremium, model.AdjustmentMultiplier, brandRate)
	}
	if c.isPremiumCategory(device.Category) {
		multiply(AdjCategoryPremium, model.AdjustmentMultiplier, premiumRate)
	}

	rule := tierRules[tier]
	multiply(AdjServiceTier, model.AdjustmentMultiplier, rule.cost)
	adjustments = append(adjustments, newAdjustment(AdjTurnaround, model.AdjustmentDuration, rule.time, decimal.Zero))

	if in.dates != nil {
		if f := positiveFactor(in.dates.SlotModifier); !f.Equal(one) {
			multiply(AdjSlotSurcharge, model.AdjustmentSurcharge, f)
		}
		if f := positiveFactor(in.dates.SpecialDateModifier); !f.Equal(one) {
			multiply(AdjSpecialDate, model.AdjustmentSurcharge, f)
		}
	}

	if rate := classDiscounts[class]; rate.IsPositive() {
		discount := running.Mul(rate)
		running = running.Sub(discount)
		adjustments = append(adjustments, newAdjustment(AdjCustomerDiscount, model.AdjustmentDiscount, rate, discount.Neg()))
	}

	finalCost := running.Round(moneyPlaces)
	deposit := finalCost.Mul(c.depositRate).Round(moneyPlaces)
	hours := rawMinutes.Mul(rule.time).Div(minutesPerHour).Ceil()

	return &model.PricingBreakdown{
		BaseCost:        rawCost.Round(moneyPlaces).InexactFloat64(),
		Adjustments:     adjustments,
		FinalCost:       finalCost.InexactFloat64(),
		Currency:        c.currency,
		DepositRequired: deposit.InexactFloat64(),
		EstimatedHours:  int(hours.IntPart()),
		ValidUntil:      now.Add(c.validity),
		QuotedAt:        now,
	}, nil
}

func (c *Calculator) isPremiumBrand(brand string) bool {
	_, ok := c.premiumBrands[sanitizer.SanitizeKey(brand)]
	return ok
}

func (c *Calculator) isPremiumCategory(category string) bool {
	_, ok := c.premiumCategories[sanitizer.SanitizeKey(category)]
	return ok
}

func validateInput(issues []model.RepairIssue, tier model.ServiceTier, class model.CustomerClass) error {
	if len(issues) == 0 {
		return apperrors.Validation("at least one known repair issue is required", map[string]any{
			"field": "issue_ids",
		})
	}
	if !tier.Valid() {
		return apperrors.Validation("unknown service tier", map[string]any{
			"field": "service_tier",
			"value": string(tier),
		})
	}
	if !class.Valid() {
		return apperrors.Validation("unknown customer class", map[string]any{
			"field": "customer_class",
			"value": string(class),
		})
	}
	for _, issue := range issues {
		if issue.BaseCost < 0 || issue.BaseDurationMinutes < 0 {
			return apperrors.Validation("repair issue has negative cost or duration", map[string]any{
				"field":    "issue_ids",
				"issue_id": issue.ID,
			})
		}
	}
	return nil
}

func newAdjustment(name string, kind model.AdjustmentKind, factor, amount decimal.Decimal) model.Adjustment {
	return model.Adjustment{
		Name:   name,
		Kind:   kind,
		Factor: factor.InexactFloat64(),
		Amount: amount.Round(moneyPlaces).InexactFloat64(),
	}
}

// positiveFactor treats unset (zero) or negative modifiers as neutral.
func positiveFactor(f float64) decimal.Decimal {
	if f <= 0 {
		return one
	}
	return decimal.NewFromFloat(f)
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range sanitizer.SanitizeKeys(values) {
		set[v] = struct{}{}
	}
	return set
}
