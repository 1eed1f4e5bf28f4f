package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRound2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"2.345", "2.35"},
		{"99.999", "100.00"},
		{"0", "0.00"},
		{"14.4", "14.40"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Round2(decimal.RequireFromString(tt.in))
			assert.Equal(t, tt.want, got.StringFixed(2))
		})
	}
}

func TestMoneyRoundTrip(t *testing.T) {
	d := Money(194.4)
	assert.Equal(t, "194.40", d.StringFixed(2))
	assert.Equal(t, 194.4, ToFloat(Round2(d)))
}
