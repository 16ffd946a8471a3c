package models

import "time"

// Subscription status values projected from the payment provider. MEMBERSHIP_NONE
// is the local default before a first completed checkout.
const (
	MEMBERSHIP_NONE      = "none"
	MEMBERSHIP_TRIALING  = "trialing"
	MEMBERSHIP_ACTIVE    = "active"
	MEMBERSHIP_PAST_DUE  = "past_due"
	MEMBERSHIP_CANCELLED = "cancelled"
)

// Gym membership plans sold through checkout.
const (
	PLAN_BASIC    = "basic"
	PLAN_STANDARD = "standard"
	PLAN_PREMIUM  = "premium"
)

// MembershipAccount is the local projection of a member's subscription state.
// Stripe owns the truth; this row is only ever written by the billing reconciler.
// StripeCustomerID stays empty until the first completed checkout; once set it is
// never moved to another member (guarded in the reconciler, which looks the
// customer up before linking).
type MembershipAccount struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             uint       `gorm:"not null;uniqueIndex" json:"user_id"`
	StripeCustomerID   string     `gorm:"type:varchar(191);default:'';index" json:"stripe_customer_id"`
	SubscriptionID     string     `gorm:"type:varchar(191);default:''" json:"subscription_id"`
	PlanType           string     `gorm:"type:varchar(50);default:''" json:"plan_type"`
	Trial              bool       `gorm:"default:false" json:"trial"`
	Status             string     `gorm:"type:varchar(32);not null;default:'none';index" json:"status"`
	CurrentPeriodStart *time.Time `gorm:"type:timestamp;default:null" json:"current_period_start,omitempty"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	TrialEnd           *time.Time `gorm:"type:timestamp;default:null" json:"trial_end,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}
