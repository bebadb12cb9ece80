package handler

import (
	"context"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/models"
	service "github.com/honeynil/VitabuPayments/internal/services"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

type mockPayments struct{ mock.Mock }

func (m *mockPayments) InitiateDeposit(ctx context.Context, buyer models.Principal, amount decimal.Decimal, phone string) (*service.InitiateResult, error) {
	args := m.Called(ctx, buyer, amount, phone)
	res, _ := args.Get(0).(*service.InitiateResult)
	return res, args.Error(1)
}

func (m *mockPayments) InitiatePurchase(ctx context.Context, buyer *models.Principal, bookID uuid.UUID, phone string) (*service.InitiateResult, error) {
	args := m.Called(ctx, buyer, bookID, phone)
	res, _ := args.Get(0).(*service.InitiateResult)
	return res, args.Error(1)
}

func (m *mockPayments) ChargeFromBalance(ctx context.Context, buyer models.Principal, bookID uuid.UUID, amount decimal.Decimal) (*service.ChargeResult, error) {
	args := m.Called(ctx, buyer, bookID, amount)
	res, _ := args.Get(0).(*service.ChargeResult)
	return res, args.Error(1)
}

type mockWithdrawals struct{ mock.Mock }

func (m *mockWithdrawals) Request(ctx context.Context, seller models.Principal, amount decimal.Decimal, phone, name string) (*service.WithdrawalResult, error) {
	args := m.Called(ctx, seller, amount, phone, name)
	res, _ := args.Get(0).(*service.WithdrawalResult)
	return res, args.Error(1)
}

func (m *mockWithdrawals) Approve(ctx context.Context, admin models.Principal, id uuid.UUID, notes string) (*models.Withdrawal, error) {
	args := m.Called(ctx, admin, id, notes)
	res, _ := args.Get(0).(*models.Withdrawal)
	return res, args.Error(1)
}

func (m *mockWithdrawals) Reject(ctx context.Context, admin models.Principal, id uuid.UUID, notes string) (*models.Withdrawal, error) {
	args := m.Called(ctx, admin, id, notes)
	res, _ := args.Get(0).(*models.Withdrawal)
	return res, args.Error(1)
}

func (m *mockWithdrawals) ListByStatus(ctx context.Context, admin models.Principal, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	args := m.Called(ctx, admin, status, limit)
	res, _ := args.Get(0).([]models.Withdrawal)
	return res, args.Error(1)
}

type mockAccounts struct{ mock.Mock }

func (m *mockAccounts) GetBalance(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, accountID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *mockAccounts) PurchaseHistory(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Purchase, error) {
	args := m.Called(ctx, buyerID, limit)
	res, _ := args.Get(0).([]models.Purchase)
	return res, args.Error(1)
}

func (m *mockAccounts) DepositHistory(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Deposit, error) {
	args := m.Called(ctx, buyerID, limit)
	res, _ := args.Get(0).([]models.Deposit)
	return res, args.Error(1)
}

func (m *mockAccounts) WithdrawalHistory(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	args := m.Called(ctx, sellerID, limit)
	res, _ := args.Get(0).([]models.Withdrawal)
	return res, args.Error(1)
}

func (m *mockAccounts) SalesHistory(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Sale, error) {
	args := m.Called(ctx, sellerID, limit)
	res, _ := args.Get(0).([]models.Sale)
	return res, args.Error(1)
}

func (m *mockAccounts) BookAccess(ctx context.Context, buyerID, bookID uuid.UUID) (*service.AccessResult, error) {
	args := m.Called(ctx, buyerID, bookID)
	res, _ := args.Get(0).(*service.AccessResult)
	return res, args.Error(1)
}

type mockReconciler struct{ mock.Mock }

func (m *mockReconciler) HandleWebhook(ctx context.Context, body []byte, signature string) (*service.ReconcileResult, error) {
	args := m.Called(ctx, body, signature)
	res, _ := args.Get(0).(*service.ReconcileResult)
	return res, args.Error(1)
}

type mockStatus struct{ mock.Mock }

func (m *mockStatus) Check(ctx context.Context, transactionID string) (*service.StatusResult, error) {
	args := m.Called(ctx, transactionID)
	res, _ := args.Get(0).(*service.StatusResult)
	return res, args.Error(1)
}
