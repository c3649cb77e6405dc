package payment

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		amount   string
		fee      string
		earnings string
	}{
		{"100", "40", "60"},
		{"49.99", "20", "29.99"},
		{"0.01", "0", "0.01"},
		{"0", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			fee, earnings := Split(amount)

			assert.True(t, fee.Equal(decimal.RequireFromString(tt.fee)), "fee=%s", fee)
			assert.True(t, earnings.Equal(decimal.RequireFromString(tt.earnings)), "earnings=%s", earnings)
			assert.True(t, fee.Add(earnings).Equal(amount))
		})
	}
}

func TestNewCompleted(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	p := NewCompleted("u1", "c1", decimal.NewFromInt(100), "card", now)

	require.True(t, p.IsCompleted())
	assert.True(t, p.PlatformFee.Equal(decimal.NewFromInt(40)))
	assert.True(t, p.InstructorEarnings.Equal(decimal.NewFromInt(60)))
	assert.True(t, strings.HasPrefix(p.TransactionID, "TXN-"))
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, now, p.CreatedAt)
	assert.NotEqual(t, p.TransactionID, NewTransactionID())
}

func TestParseStatus(t *testing.T) {
	assert.Equal(t, StatusRefunded, ParseStatus("refunded"))
	assert.Equal(t, StatusPending, ParseStatus(""))
	assert.Equal(t, StatusPending, ParseStatus("settled"))
}
