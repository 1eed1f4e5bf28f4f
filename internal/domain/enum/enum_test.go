package enum

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInvoiceStatus(t *testing.T) {
	tests := []struct {
		raw     string
		want    InvoiceStatus
		wantErr bool
	}{
		{"draft", InvoiceStatusDraft, false},
		{" Paid ", InvoiceStatusPaid, false},
		{"CANCELLED", InvoiceStatusCancelled, false},
		{"archived", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseInvoiceStatus(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInvoiceStatusScan(t *testing.T) {
	var s InvoiceStatus
	require.NoError(t, s.Scan(nil))
	assert.Equal(t, InvoiceStatusDraft, s)

	require.NoError(t, s.Scan([]byte("overdue")))
	assert.Equal(t, InvoiceStatusOverdue, s)

	assert.Error(t, s.Scan(42))
}

func TestDiscountType(t *testing.T) {
	assert.True(t, DiscountType("").IsValid())
	assert.True(t, DiscountType("").IsNone())
	assert.True(t, DiscountTypeAmount.IsValid())
	assert.False(t, DiscountType("bogo").IsValid())
	assert.Equal(t, "none", DiscountType("").String())

	v, err := DiscountTypeNone.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = DiscountTypePercentage.Value()
	require.NoError(t, err)
	assert.Equal(t, "percentage", v)
}

func TestDiscountTypeJSON(t *testing.T) {
	var payload struct {
		Kind DiscountType `json:"kind"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"kind":" Percentage "}`), &payload))
	assert.Equal(t, DiscountTypePercentage, payload.Kind)

	require.NoError(t, json.Unmarshal([]byte(`{"kind":null}`), &payload))
	assert.True(t, payload.Kind.IsNone())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":null}`, string(out))
}
