package product_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbruckner/vinetrack/internal/fiscaldate"
	"github.com/mbruckner/vinetrack/internal/product"
)

func int64Ptr(v int64) *int64 { return &v }

func TestEffectiveFairValue(t *testing.T) {
	p := product.Product{}
	assert.Equal(t, int64(0), p.EffectiveFairValue())

	p.FairValue = int64Ptr(2000)
	assert.Equal(t, int64(2000), p.EffectiveFairValue())

	p.OverrideFairValue = int64Ptr(3500)
	assert.Equal(t, int64(3500), p.EffectiveFairValue())
}

func TestMinorValue(t *testing.T) {
	p := product.Product{ETV: 500}

	assert.True(t, p.MinorValue(true, 1190))
	assert.False(t, p.MinorValue(false, 1190))

	// The threshold itself is not minor.
	p.ETV = 1190
	assert.False(t, p.MinorValue(true, 1190))
}

func TestDeemedWithdrawn(t *testing.T) {
	tests := []struct {
		name      string
		usage     product.Usage
		defective bool
		want      bool
	}{
		{name: "ExplicitWithdrawal", usage: product.UsageWithdrawn, want: true},
		{name: "DefectiveWithdrawal", usage: product.UsageWithdrawn, defective: true, want: true},
		{name: "Unclassified", usage: product.UsageNone, want: true},
		{name: "UnclassifiedDefective", usage: product.UsageNone, defective: true, want: false},
		{name: "Inventory", usage: product.UsageInventory, want: false},
		{name: "Disposed", usage: product.UsageDisposed, want: false},
		{name: "Sold", usage: product.UsageSold, want: false},
		{name: "Cancelled", usage: product.UsageCancelled, want: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := product.Product{Usage: tc.usage, Defective: tc.defective}
			assert.Equal(t, tc.want, p.DeemedWithdrawn())
		})
	}
}

func TestEffectiveWithdrawalDate(t *testing.T) {
	orderDate := fiscaldate.New(2024, time.January, 10)

	t.Run("ExplicitDateWins", func(t *testing.T) {
		explicit := fiscaldate.New(2024, time.June, 1)
		p := product.Product{OrderDate: orderDate, WithdrawalDate: &explicit}

		got := p.EffectiveWithdrawalDate(14)
		require.NotNil(t, got)
		assert.Equal(t, explicit, *got)
	})

	t.Run("DerivedFromDelay", func(t *testing.T) {
		p := product.Product{OrderDate: orderDate}

		got := p.EffectiveWithdrawalDate(14)
		require.NotNil(t, got)
		assert.Equal(t, fiscaldate.New(2024, time.January, 24), *got)
	})

	t.Run("ZeroDelayIsOrderDate", func(t *testing.T) {
		p := product.Product{OrderDate: orderDate}

		got := p.EffectiveWithdrawalDate(0)
		require.NotNil(t, got)
		assert.Equal(t, orderDate, *got)
	})

	t.Run("SentinelOrderDateHasNoWithdrawal", func(t *testing.T) {
		p := product.Product{OrderDate: fiscaldate.Sentinel()}
		assert.Nil(t, p.EffectiveWithdrawalDate(0))
	})
}

func TestSplitStatusList(t *testing.T) {
	usage, defective := product.SplitStatusList([]string{"Privatentnahme", "defekt"})
	assert.Equal(t, product.UsageWithdrawn, usage)
	assert.True(t, defective)

	usage, defective = product.SplitStatusList(nil)
	assert.Equal(t, product.UsageNone, usage)
	assert.False(t, defective)

	// Unknown strings are ignored, first valid usage wins.
	usage, defective = product.SplitStatusList([]string{"unbekannt", "verkauft", "Lager"})
	assert.Equal(t, product.UsageSold, usage)
	assert.False(t, defective)
}

func TestJoinStatusList(t *testing.T) {
	assert.Equal(t, []string{"betriebliche Nutzung", "defekt"}, product.JoinStatusList(product.UsageBusinessUse, true))
	assert.Equal(t, []string{}, product.JoinStatusList(product.UsageNone, false))
	assert.Equal(t, []string{"defekt"}, product.JoinStatusList(product.UsageNone, true))
}

func TestClone_NoAliasing(t *testing.T) {
	p := product.Product{
		ASIN:      "B0TEST1",
		FairValue: int64Ptr(2000),
	}

	c := p.Clone()
	*c.FairValue = 9999

	assert.Equal(t, int64(2000), *p.FairValue)
}
