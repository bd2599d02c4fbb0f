package pricing

import (
	"repairdesk/pkg/model"

	"github.com/shopspring/decimal"
)

var (
	one = decimal.NewFromInt(1)

	ageNew      = decimal.RequireFromString("1.3")
	ageRecent   = decimal.RequireFromString("1.1")
	ageVintage  = decimal.RequireFromString("0.8")
	brandRate   = decimal.RequireFromString("1.2")
	premiumRate = decimal.RequireFromString("1.15")

	minutesPerHour = decimal.NewFromInt(60)
)

type tierRule struct {
	cost decimal.Decimal
	time decimal.Decimal
}

var tierRules = map[model.ServiceTier]tierRule{
	model.TierStandard: {cost: one, time: one},
	model.TierExpress:  {cost: decimal.RequireFromString("1.5"), time: decimal.RequireFromString("0.6")},
	model.TierSameDay:  {cost: decimal.NewFromInt(2), time: decimal.RequireFromString("0.3")},
}

var classDiscounts = map[model.CustomerClass]decimal.Decimal{
	model.ClassIndividual: decimal.Zero,
	model.ClassEducation:  decimal.RequireFromString("0.10"),
	model.ClassBusiness:   decimal.RequireFromString("0.05"),
}

// ageFactor prices newer devices higher (scarcer parts) and old ones lower.
// Ages of four and five years are neutral.
func ageFactor(age int) decimal.Decimal {
	switch {
	case age <= 1:
		return ageNew
	case age <= 3:
		return ageRecent
	case age >= 6:
		return ageVintage
	default:
		return one
	}
}
