package billing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FitLifeApp/FitLife/app/models"
)

func TestPlanByType(t *testing.T) {
	t.Run("known plans resolve", func(t *testing.T) {
		basic, ok := PlanByType(models.PLAN_BASIC)
		require.True(t, ok)
		assert.Equal(t, int64(2900), basic.Amount)
		assert.Equal(t, "month", basic.Interval)

		standard, ok := PlanByType(models.PLAN_STANDARD)
		require.True(t, ok)
		assert.Equal(t, int64(4900), standard.Amount)

		premium, ok := PlanByType(models.PLAN_PREMIUM)
		require.True(t, ok)
		assert.Equal(t, int64(7900), premium.Amount)
	})

	t.Run("lookup is case and whitespace insensitive", func(t *testing.T) {
		p, ok := PlanByType("  Premium ")
		require.True(t, ok)
		assert.Equal(t, models.PLAN_PREMIUM, p.Type)
	})

	t.Run("unknown plan fails", func(t *testing.T) {
		_, ok := PlanByType("platinum")
		assert.False(t, ok)
	})
}

func TestPlansOrdering(t *testing.T) {
	all := Plans()
	require.Len(t, all, 3)
	assert.Equal(t, models.PLAN_BASIC, all[0].Type)
	assert.Equal(t, models.PLAN_STANDARD, all[1].Type)
	assert.Equal(t, models.PLAN_PREMIUM, all[2].Type)
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"active", models.MEMBERSHIP_ACTIVE},
		{"trialing", models.MEMBERSHIP_TRIALING},
		{"past_due", models.MEMBERSHIP_PAST_DUE},
		{"canceled", models.MEMBERSHIP_CANCELLED},
		{"cancelled", models.MEMBERSHIP_CANCELLED},
		{"Canceled", models.MEMBERSHIP_CANCELLED},
		{"", models.MEMBERSHIP_NONE},
		{"incomplete", "incomplete"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeStatus(tt.in), "input %q", tt.in)
	}
}
