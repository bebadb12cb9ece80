package models

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

const moneyPlaces int32 = 2

var (
	SellerShareRate   = decimal.RequireFromString("0.90")
	WithdrawalFeeRate = decimal.RequireFromString("0.05")
	MinWithdrawal     = decimal.NewFromInt(5000)
	MinDeposit        = decimal.NewFromInt(1000)
)

var localPhone = regexp.MustCompile(`^(07|06)\d{8}$`)

// SplitSale returns the seller's share and the platform fee for a sale amount.
func SplitSale(amount decimal.Decimal) (sellerShare, platformFee decimal.Decimal) {
	sellerShare = amount.Mul(SellerShareRate).Round(moneyPlaces)
	return sellerShare, amount.Sub(sellerShare)
}

// WithdrawalFee returns the fee and the amount paid out for a gross withdrawal.
func WithdrawalFee(amount decimal.Decimal) (fee, net decimal.Decimal) {
	fee = amount.Mul(WithdrawalFeeRate).Round(moneyPlaces)
	return fee, amount.Sub(fee)
}

// WholeAmount reports whether amount has no fractional part. Mobile-money
// collections and payouts are in whole shillings.
func WholeAmount(amount decimal.Decimal) bool {
	return amount.Equal(amount.Truncate(0))
}

func ValidLocalPhone(phone string) bool {
	return localPhone.MatchString(phone)
}

// ProviderPhone converts a local number (07xxxxxxxx) to the 255-prefixed form.
func ProviderPhone(phone string) string {
	if strings.HasPrefix(phone, "0") {
		return "255" + phone[1:]
	}
	return phone
}
