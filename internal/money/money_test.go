package money_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbruckner/vinetrack/internal/money"
)

func TestFromEuros(t *testing.T) {
	assert.Equal(t, int64(1190), money.FromEuros(11.90))
	assert.Equal(t, int64(0), money.FromEuros(0))
	assert.Equal(t, int64(410), money.FromEuros(4.10))
	assert.Equal(t, int64(2346), money.FromEuros(23.456))
	assert.Equal(t, int64(-500), money.FromEuros(-5.00))
}

func TestToEuros(t *testing.T) {
	assert.Equal(t, 11.90, money.ToEuros(1190))
	assert.Equal(t, 0.0, money.ToEuros(0))
}

func TestParseEuroString(t *testing.T) {
	cents, err := money.ParseEuroString("11.90")
	require.NoError(t, err)
	assert.Equal(t, int64(1190), cents)

	cents, err = money.ParseEuroString("35")
	require.NoError(t, err)
	assert.Equal(t, int64(3500), cents)

	cents, err = money.ParseEuroString("35,50")
	require.NoError(t, err)
	assert.Equal(t, int64(3550), cents)

	_, err = money.ParseEuroString("abc")
	assert.Error(t, err)
}

func TestFormatEuro(t *testing.T) {
	assert.Equal(t, "35.00", money.FormatEuro(3500))
	assert.Equal(t, "11.90", money.FormatEuro(1190))
	assert.Equal(t, "0.00", money.FormatEuro(0))
}
