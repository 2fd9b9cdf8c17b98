package types

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAmount_String(t *testing.T) {
	cases := []struct {
		in   Amount
		want string
	}{
		{0, "0.0000"},
		{10000, "1.0000"},
		{-10000, "-1.0000"},
		{12345, "1.2345"},
		{-5, "-0.0005"},
		{10000000, "1000.0000"},
		{math.MaxInt64, "922337203685477.5807"},
		{math.MinInt64, "-922337203685477.5808"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.in.String())
	}
}

func TestAmountFromFloat(t *testing.T) {
	a, err := AmountFromFloat(1234.5678)
	assert.NoError(t, err)
	assert.Equal(t, Amount(12345678), a)

	a, err = AmountFromFloat(-0.00005)
	assert.NoError(t, err)
	assert.Equal(t, Amount(-1), a, "rounds away from zero at the midpoint")

	_, err = AmountFromFloat(math.NaN())
	assert.ErrorIs(t, err, ErrAmountOverflow)

	_, err = AmountFromFloat(math.MaxFloat64)
	assert.ErrorIs(t, err, ErrAmountOverflow)
}

func TestTransaction_Posted(t *testing.T) {
	assert.True(t, Transaction{Frequency: FrequencyPosted}.Posted())
	assert.False(t, Transaction{Frequency: 3}.Posted())
}
