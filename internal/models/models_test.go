package models

import (
	"regexp"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewTransactionID(t *testing.T) {
	tests := []struct {
		kind   TransactionKind
		method PaymentMethod
		prefix string
	}{
		{KindPurchase, MethodMobileMoney, "VTB"},
		{KindDeposit, MethodMobileMoney, "DEP"},
		{KindPurchase, MethodBalance, "BAL"},
		{KindPurchase, MethodFree, "FREE"},
	}
	for _, tt := range tests {
		id := NewTransactionID(tt.kind, tt.method)
		assert.Regexp(t, regexp.MustCompile(`^`+tt.prefix+`\d{13}[0-9A-F]{6}$`), id)
	}

	assert.NotEqual(t, NewTransactionID(KindDeposit, MethodMobileMoney), NewTransactionID(KindDeposit, MethodMobileMoney))
}

func TestParseWebhookStatus(t *testing.T) {
	tests := []struct {
		in     string
		want   PaymentStatus
		wantOK bool
	}{
		{"success", StatusCompleted, true},
		{"COMPLETED", StatusCompleted, true},
		{" Success ", StatusCompleted, true},
		{"failed", StatusFailed, true},
		{"CANCELLED", StatusFailed, true},
		{"pending", "", false},
		{"processing", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseWebhookStatus(tt.in)
		assert.Equal(t, tt.wantOK, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestParseProviderStatus(t *testing.T) {
	got, ok := ParseProviderStatus("completed")
	assert.True(t, ok)
	assert.Equal(t, StatusCompleted, got)

	got, ok = ParseProviderStatus("FAILED")
	assert.True(t, ok)
	assert.Equal(t, StatusFailed, got)

	_, ok = ParseProviderStatus("PENDING")
	assert.False(t, ok)
}

func TestPaymentStatus(t *testing.T) {
	assert.False(t, StatusPending.Terminal())
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusFailed.Terminal())
	assert.False(t, PaymentStatus("refunded").Valid())
}

func TestTransactionRef_ProviderRouted(t *testing.T) {
	assert.True(t, TransactionRef{Method: MethodMobileMoney}.ProviderRouted())
	assert.False(t, TransactionRef{Method: MethodBalance}.ProviderRouted())
	assert.False(t, TransactionRef{Method: MethodFree}.ProviderRouted())
}

func TestSplitSale(t *testing.T) {
	tests := []struct {
		amount, share, fee string
	}{
		{"10000", "9000", "1000"},
		{"0", "0", "0"},
		{"999.99", "899.99", "100"},
		{"1", "0.9", "0.1"},
	}
	for _, tt := range tests {
		share, fee := SplitSale(decimal.RequireFromString(tt.amount))
		assert.True(t, share.Equal(decimal.RequireFromString(tt.share)), "share of %s: %s", tt.amount, share)
		assert.True(t, fee.Equal(decimal.RequireFromString(tt.fee)), "fee of %s: %s", tt.amount, fee)
		assert.True(t, share.Add(fee).Equal(decimal.RequireFromString(tt.amount)))
	}
}

func TestWithdrawalFee(t *testing.T) {
	fee, net := WithdrawalFee(decimal.NewFromInt(10000))
	assert.True(t, fee.Equal(decimal.NewFromInt(500)))
	assert.True(t, net.Equal(decimal.NewFromInt(9500)))

	fee, net = WithdrawalFee(decimal.RequireFromString("5001"))
	assert.True(t, fee.Equal(decimal.RequireFromString("250.05")))
	assert.True(t, net.Equal(decimal.RequireFromString("4750.95")))
}

func TestWholeAmount(t *testing.T) {
	for _, v := range []string{"1000", "1000.00", "0", "-5000"} {
		assert.True(t, WholeAmount(decimal.RequireFromString(v)), v)
	}
	for _, v := range []string{"1000.49", "5000.005", "0.01"} {
		assert.False(t, WholeAmount(decimal.RequireFromString(v)), v)
	}
}

func TestValidLocalPhone(t *testing.T) {
	for _, phone := range []string{"0712345678", "0612345678"} {
		assert.True(t, ValidLocalPhone(phone), phone)
	}
	for _, phone := range []string{"", "0812345678", "071234567", "07123456789", "255712345678", "+255712345678", "07-2345678"} {
		assert.False(t, ValidLocalPhone(phone), phone)
	}
}

func TestProviderPhone(t *testing.T) {
	assert.Equal(t, "255712345678", ProviderPhone("0712345678"))
	assert.Equal(t, "255712345678", ProviderPhone("255712345678"))
}

func TestPrincipal_IsAdmin(t *testing.T) {
	assert.True(t, Principal{Role: RoleAdmin}.IsAdmin())
	assert.False(t, Principal{Role: RoleSeller}.IsAdmin())
}
