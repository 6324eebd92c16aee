package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateFraudConfig(t *testing.T) {
	err := validateFraudConfig(FraudConfig{Rules: []FraudRule{
		{Label: "large-usd", Currency: "USD", MaxAmount: 10000, Action: "hold"},
		{Label: "any-refuse", MaxAmount: 100000, Action: "refuse"},
	}})
	require.NoError(t, err)

	err = validateFraudConfig(FraudConfig{Rules: []FraudRule{
		{Label: "bad-action", MaxAmount: 100, Action: "quarantine"},
	}})
	require.Error(t, err)

	err = validateFraudConfig(FraudConfig{Rules: []FraudRule{
		{Label: "bad-amount", MaxAmount: 0, Action: "hold"},
	}})
	require.Error(t, err)
}

func TestStaticFraudConfigHolder(t *testing.T) {
	rules := []FraudRule{{Label: "large-usd", Currency: "USD", MaxAmount: 5000, Action: "refuse"}}
	holder := NewStaticFraudConfigHolder(FraudConfig{Rules: rules})

	got := holder.Get()
	require.Len(t, got.Rules, 1)
	require.Equal(t, "large-usd", got.Rules[0].Label)
	require.Equal(t, int64(5000), got.Rules[0].MaxAmount)
}
