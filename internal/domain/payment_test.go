package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from    string
		to      string
		allowed bool
	}{
		{PaymentStatusPending, PaymentStatusProcessing, true},
		{PaymentStatusPending, PaymentStatusFailed, true},
		{PaymentStatusPending, PaymentStatusCompleted, false},
		{PaymentStatusProcessing, PaymentStatusCompleted, true},
		{PaymentStatusProcessing, PaymentStatusFailed, true},
		{PaymentStatusProcessing, PaymentStatusPending, false},
		{PaymentStatusCompleted, PaymentStatusRefunded, true},
		{PaymentStatusCompleted, PaymentStatusPartialRefund, true},
		{PaymentStatusCompleted, PaymentStatusFailed, false},
		{PaymentStatusFailed, PaymentStatusCompleted, false},
		{PaymentStatusFailed, PaymentStatusPending, false},
		{PaymentStatusRefunded, PaymentStatusCompleted, false},
		{PaymentStatusPartialRefund, PaymentStatusRefunded, false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestFeeBreakdownAccessors(t *testing.T) {
	var b FeeBreakdown
	for i, feeType := range AllFeeTypes() {
		b.SetAmount(feeType, decimal.NewFromInt(int64(i+1)))
	}

	total := decimal.Zero
	for _, feeType := range AllFeeTypes() {
		total = total.Add(b.Amount(feeType))
	}
	assert.True(t, b.Total().Equal(total))
	assert.True(t, b.Total().Equal(decimal.NewFromInt(15)))
}

func TestIsValidFeeType(t *testing.T) {
	for _, feeType := range AllFeeTypes() {
		assert.True(t, IsValidFeeType(feeType))
	}
	assert.False(t, IsValidFeeType("hostelFee"))
	assert.False(t, IsValidFeeType(""))
}
