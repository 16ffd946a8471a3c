package billing

import (
	"sort"
	"strings"

	"github.com/FitLifeApp/FitLife/app/models"
)

// Plan describes one gym membership tier sold through checkout. Prices are
// minor currency units (cents), billed monthly.
type Plan struct {
	Type        string
	Name        string
	Description string
	Amount      int64
	Interval    string
}

const trialPeriodDays = 7

var plans = map[string]Plan{
	models.PLAN_BASIC: {
		Type:        models.PLAN_BASIC,
		Name:        "Basic",
		Description: "Monthly Basic gym membership",
		Amount:      2900,
		Interval:    "month",
	},
	models.PLAN_STANDARD: {
		Type:        models.PLAN_STANDARD,
		Name:        "Standard",
		Description: "Monthly Standard gym membership",
		Amount:      4900,
		Interval:    "month",
	},
	models.PLAN_PREMIUM: {
		Type:        models.PLAN_PREMIUM,
		Name:        "Premium",
		Description: "Monthly Premium gym membership",
		Amount:      7900,
		Interval:    "month",
	},
}

// PlanByType resolves a plan type string to its catalog entry.
func PlanByType(planType string) (Plan, bool) {
	p, ok := plans[strings.ToLower(strings.TrimSpace(planType))]
	return p, ok
}

// Plans returns the catalog ordered from cheapest to priciest tier.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, p := range plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		return planRank(out[i].Type) < planRank(out[j].Type)
	})
	return out
}

func planRank(planType string) int {
	switch strings.ToLower(strings.TrimSpace(planType)) {
	case models.PLAN_PREMIUM:
		return 3
	case models.PLAN_STANDARD:
		return 2
	case models.PLAN_BASIC:
		return 1
	default:
		return 0
	}
}

// NormalizeStatus maps provider status spellings onto the membership status
// set. Unknown provider statuses are stored as reported.
func NormalizeStatus(status string) string {
	s := strings.ToLower(strings.TrimSpace(status))
	switch s {
	case "canceled", "cancelled":
		return models.MEMBERSHIP_CANCELLED
	case "":
		return models.MEMBERSHIP_NONE
	default:
		return s
	}
}
