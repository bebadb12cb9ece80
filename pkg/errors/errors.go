package errors

import (
	"errors"
)

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrForbidden               = errors.New("forbidden")
	ErrAccountNotFound         = errors.New("account not found")
	ErrInsufficientFunds       = errors.New("insufficient funds")
	ErrBookNotFound            = errors.New("book not found")
	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrDuplicateTransaction    = errors.New("transaction id already exists")
	ErrWithdrawalNotFound      = errors.New("withdrawal not found")
	ErrWithdrawalNotPending    = errors.New("withdrawal is not pending")
	ErrNilPurchase             = errors.New("purchase is nil")
	ErrNilDeposit              = errors.New("deposit is nil")
	ErrNilWithdrawal           = errors.New("withdrawal is nil")
	ErrInvalidPaymentStatus    = errors.New("invalid payment status")
	ErrInvalidWithdrawalStatus = errors.New("invalid withdrawal status")
	ErrInvalidAmount           = errors.New("invalid amount")
	ErrAmountBelowMinimum      = errors.New("amount below minimum")
	ErrInvalidPhone            = errors.New("invalid phone number format")
	ErrInvalidName             = errors.New("name is required")
	ErrPriceMismatch           = errors.New("amount does not match book price")
	ErrProviderFailure         = errors.New("payment provider error")
	ErrProviderNotConfigured   = errors.New("payment provider not configured")
	ErrInvalidSignature        = errors.New("invalid webhook signature")
	ErrWebhookSecretMissing    = errors.New("webhook secret not configured")
	ErrPollInProgress          = errors.New("status poll already in progress")
	ErrInvalidInput            = errors.New("invalid input")
)
