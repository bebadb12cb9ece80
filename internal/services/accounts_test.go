package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccountService_GetBalance(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	buyer := f.store.addAccount(models.AccountBuyer, 4200)
	svc := NewAccountService(f.store, f.cache)

	balance, err := svc.GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(4200)))

	cached, err := f.cache.Get(ctx, redis.BalanceKey(buyer.String()))
	require.NoError(t, err)
	assert.Equal(t, "4200", cached)

	// A deposit settles and writes the new balance through.
	txID := f.pendingDeposit(buyer, 1000)
	_, err = f.webhook(txID, "success")
	require.NoError(t, err)

	cached, err = f.cache.Get(ctx, redis.BalanceKey(buyer.String()))
	require.NoError(t, err)
	assert.Equal(t, "5200", cached)

	balance, err = svc.GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(5200)))

	_, err = svc.GetBalance(ctx, uuid.New())
	assert.ErrorIs(t, err, pkgerrors.ErrAccountNotFound)
}

// settleDuringRead runs afterRead between the balance read and the cache fill.
type settleDuringRead struct {
	*memStore
	afterRead func()
}

func (s settleDuringRead) Accounts() repository.AccountRepository {
	return settleDuringReadAccounts{memAccounts{s.memStore}, s.afterRead}
}

type settleDuringReadAccounts struct {
	memAccounts
	afterRead func()
}

func (r settleDuringReadAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	a, err := r.memAccounts.GetByID(ctx, id)
	if err == nil && r.afterRead != nil {
		r.afterRead()
	}
	return a, err
}

func TestAccountService_GetBalance_SettlementDuringFill(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	buyer := f.store.addAccount(models.AccountBuyer, 1000)
	txID := f.pendingDeposit(buyer, 5000)

	store := settleDuringRead{memStore: f.store, afterRead: func() {
		_, err := f.webhook(txID, "success")
		require.NoError(t, err)
	}}
	svc := NewAccountService(store, f.cache)

	// The read saw 1000; the deposit settled before the fill.
	balance, err := svc.GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(1000)))

	cached, err := f.cache.Get(ctx, redis.BalanceKey(buyer.String()))
	require.NoError(t, err)
	assert.Equal(t, "6000", cached)

	balance, err = NewAccountService(f.store, f.cache).GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.True(t, balance.Equal(dec(6000)))
}

func TestAccountService_BookAccess(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	seller := f.store.addAccount(models.AccountSeller, 0)
	buyer := f.store.addAccount(models.AccountBuyer, 0)
	book := f.store.addBook(seller, 5000)
	svc := NewAccountService(f.store, f.cache)

	res, err := svc.BookAccess(ctx, buyer, book)
	assert.ErrorIs(t, err, pkgerrors.ErrForbidden)
	assert.False(t, res.Authorized)

	txID := f.pendingPurchase(book, &buyer, 5000)
	_, err = f.webhook(txID, "success")
	require.NoError(t, err)

	res, err = svc.BookAccess(ctx, buyer, book)
	require.NoError(t, err)
	assert.True(t, res.Authorized)
	assert.Equal(t, f.store.book(book).Title, res.BookTitle)

	purchases, err := svc.PurchaseHistory(ctx, buyer, 10)
	require.NoError(t, err)
	assert.Len(t, purchases, 1)

	sales, err := svc.SalesHistory(ctx, seller, 10)
	require.NoError(t, err)
	require.Len(t, sales, 1)
	assert.True(t, sales[0].Amount.Equal(dec(5000)))

	_, err = svc.BookAccess(ctx, buyer, uuid.New())
	assert.ErrorIs(t, err, pkgerrors.ErrBookNotFound)
}
