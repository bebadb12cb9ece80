package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/redis"
	"github.com/honeynil/VitabuPayments/internal/infrastructure/zenopay"
	"github.com/honeynil/VitabuPayments/internal/models"
	"github.com/honeynil/VitabuPayments/internal/repository"
	pkgerrors "github.com/honeynil/VitabuPayments/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// memState is the full ledger; WithinTx snapshots it and restores the
// snapshot when the callback fails.
type memState struct {
	accounts    map[uuid.UUID]models.Account
	books       map[uuid.UUID]models.Book
	purchases   map[string]models.Purchase
	deposits    map[string]models.Deposit
	withdrawals map[uuid.UUID]models.Withdrawal
	revenue     []models.PlatformRevenue
}

func (s *memState) clone() *memState {
	c := &memState{
		accounts:    make(map[uuid.UUID]models.Account, len(s.accounts)),
		books:       make(map[uuid.UUID]models.Book, len(s.books)),
		purchases:   make(map[string]models.Purchase, len(s.purchases)),
		deposits:    make(map[string]models.Deposit, len(s.deposits)),
		withdrawals: make(map[uuid.UUID]models.Withdrawal, len(s.withdrawals)),
		revenue:     append([]models.PlatformRevenue(nil), s.revenue...),
	}
	for k, v := range s.accounts {
		c.accounts[k] = v
	}
	for k, v := range s.books {
		c.books[k] = v
	}
	for k, v := range s.purchases {
		c.purchases[k] = v
	}
	for k, v := range s.deposits {
		c.deposits[k] = v
	}
	for k, v := range s.withdrawals {
		c.withdrawals[k] = v
	}
	return c
}

type memRoot struct {
	mu    sync.Mutex
	state *memState

	failWithdrawalCreate error
}

type memStore struct {
	root *memRoot
	inTx bool
}

var _ repository.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{root: &memRoot{state: &memState{
		accounts:    map[uuid.UUID]models.Account{},
		books:       map[uuid.UUID]models.Book{},
		purchases:   map[string]models.Purchase{},
		deposits:    map[string]models.Deposit{},
		withdrawals: map[uuid.UUID]models.Withdrawal{},
	}}}
}

// exec runs fn against the state, locking unless already inside WithinTx.
func (s *memStore) exec(fn func(st *memState) error) error {
	if !s.inTx {
		s.root.mu.Lock()
		defer s.root.mu.Unlock()
	}
	return fn(s.root.state)
}

func (s *memStore) WithinTx(ctx context.Context, fn func(tx repository.Store) error) error {
	if s.inTx {
		return fn(s)
	}
	s.root.mu.Lock()
	defer s.root.mu.Unlock()
	snapshot := s.root.state.clone()
	if err := fn(&memStore{root: s.root, inTx: true}); err != nil {
		s.root.state = snapshot
		return err
	}
	return nil
}

func (s *memStore) ResolveTransaction(ctx context.Context, id string) (models.TransactionRef, error) {
	var ref models.TransactionRef
	err := s.exec(func(st *memState) error {
		if p, ok := st.purchases[id]; ok {
			ref = p.Ref()
			return nil
		}
		if d, ok := st.deposits[id]; ok {
			ref = d.Ref()
			return nil
		}
		return pkgerrors.ErrTransactionNotFound
	})
	return ref, err
}

func (s *memStore) Accounts() repository.AccountRepository       { return memAccounts{s} }
func (s *memStore) Books() repository.BookRepository             { return memBooks{s} }
func (s *memStore) Purchases() repository.PurchaseRepository     { return memPurchases{s} }
func (s *memStore) Deposits() repository.DepositRepository       { return memDeposits{s} }
func (s *memStore) Withdrawals() repository.WithdrawalRepository { return memWithdrawals{s} }
func (s *memStore) Revenue() repository.RevenueRepository        { return memRevenue{s} }

// seed helpers

func (s *memStore) addAccount(t models.AccountType, balance int64) uuid.UUID {
	id := uuid.New()
	_ = s.exec(func(st *memState) error {
		st.accounts[id] = models.Account{ID: id, Type: t, Name: "Test " + string(t), Phone: "0712345678", Balance: decimal.NewFromInt(balance)}
		return nil
	})
	return id
}

func (s *memStore) addBook(sellerID uuid.UUID, price int64) uuid.UUID {
	id := uuid.New()
	_ = s.exec(func(st *memState) error {
		st.books[id] = models.Book{ID: id, SellerID: sellerID, Title: "Book " + id.String()[:4], Price: decimal.NewFromInt(price)}
		return nil
	})
	return id
}

func (s *memStore) setBookPrice(id uuid.UUID, price decimal.Decimal) {
	_ = s.exec(func(st *memState) error {
		b := st.books[id]
		b.Price = price
		st.books[id] = b
		return nil
	})
}

func (s *memStore) account(id uuid.UUID) models.Account {
	var a models.Account
	_ = s.exec(func(st *memState) error { a = st.accounts[id]; return nil })
	return a
}

func (s *memStore) book(id uuid.UUID) models.Book {
	var b models.Book
	_ = s.exec(func(st *memState) error { b = st.books[id]; return nil })
	return b
}

func (s *memStore) purchase(txID string) (models.Purchase, bool) {
	var p models.Purchase
	var ok bool
	_ = s.exec(func(st *memState) error { p, ok = st.purchases[txID]; return nil })
	return p, ok
}

func (s *memStore) deposit(txID string) models.Deposit {
	var d models.Deposit
	_ = s.exec(func(st *memState) error { d = st.deposits[txID]; return nil })
	return d
}

func (s *memStore) withdrawal(id uuid.UUID) models.Withdrawal {
	var w models.Withdrawal
	_ = s.exec(func(st *memState) error { w = st.withdrawals[id]; return nil })
	return w
}

func (s *memStore) revenueRows() []models.PlatformRevenue {
	var rows []models.PlatformRevenue
	_ = s.exec(func(st *memState) error { rows = append(rows, st.revenue...); return nil })
	return rows
}

func (s *memStore) counts() (purchases, deposits, withdrawals int) {
	_ = s.exec(func(st *memState) error {
		purchases, deposits, withdrawals = len(st.purchases), len(st.deposits), len(st.withdrawals)
		return nil
	})
	return
}

type memAccounts struct{ s *memStore }

func (r memAccounts) GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var out *models.Account
	err := r.s.exec(func(st *memState) error {
		a, ok := st.accounts[id]
		if !ok {
			return pkgerrors.ErrAccountNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r memAccounts) ChangeBalance(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	var balance decimal.Decimal
	err := r.s.exec(func(st *memState) error {
		a, ok := st.accounts[id]
		if !ok {
			return pkgerrors.ErrAccountNotFound
		}
		next := a.Balance.Add(delta)
		if next.IsNegative() {
			return pkgerrors.ErrInsufficientFunds
		}
		a.Balance = next
		st.accounts[id] = a
		balance = next
		return nil
	})
	return balance, err
}

func (r memAccounts) AddTotalWithdrawn(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.s.exec(func(st *memState) error {
		a, ok := st.accounts[id]
		if !ok {
			return pkgerrors.ErrAccountNotFound
		}
		a.TotalWithdrawn = a.TotalWithdrawn.Add(amount)
		st.accounts[id] = a
		total = a.TotalWithdrawn
		return nil
	})
	return total, err
}

type memBooks struct{ s *memStore }

func (r memBooks) GetByID(ctx context.Context, id uuid.UUID) (*models.Book, error) {
	var out *models.Book
	err := r.s.exec(func(st *memState) error {
		b, ok := st.books[id]
		if !ok {
			return pkgerrors.ErrBookNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r memBooks) IncrementSales(ctx context.Context, id uuid.UUID) error {
	return r.s.exec(func(st *memState) error {
		b, ok := st.books[id]
		if !ok {
			return pkgerrors.ErrBookNotFound
		}
		b.Sales++
		st.books[id] = b
		return nil
	})
}

type memPurchases struct{ s *memStore }

func (r memPurchases) Create(ctx context.Context, p *models.Purchase) error {
	return r.s.exec(func(st *memState) error {
		if _, ok := st.purchases[p.TransactionID]; ok {
			return pkgerrors.ErrDuplicateTransaction
		}
		p.ID = uuid.New()
		p.CreatedAt = time.Now()
		p.UpdatedAt = p.CreatedAt
		st.purchases[p.TransactionID] = *p
		return nil
	})
}

func (r memPurchases) GetByTransactionID(ctx context.Context, txID string) (*models.Purchase, error) {
	var out *models.Purchase
	err := r.s.exec(func(st *memState) error {
		p, ok := st.purchases[txID]
		if !ok {
			return pkgerrors.ErrTransactionNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r memPurchases) Transition(ctx context.Context, txID string, status models.PaymentStatus) (*models.Purchase, bool, error) {
	var out *models.Purchase
	var applied bool
	err := r.s.exec(func(st *memState) error {
		p, ok := st.purchases[txID]
		if !ok {
			return pkgerrors.ErrTransactionNotFound
		}
		if p.Status == models.StatusPending {
			p.Status = status
			st.purchases[txID] = p
			applied = true
		}
		out = &p
		return nil
	})
	return out, applied, err
}

func (r memPurchases) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Purchase, error) {
	var out []models.Purchase
	_ = r.s.exec(func(st *memState) error {
		for _, p := range st.purchases {
			if p.BuyerID.Valid && p.BuyerID.UUID == buyerID {
				out = append(out, p)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r memPurchases) ListSalesBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Sale, error) {
	var out []models.Sale
	_ = r.s.exec(func(st *memState) error {
		for _, p := range st.purchases {
			b := st.books[p.BookID]
			if b.SellerID == sellerID && p.Status == models.StatusCompleted {
				out = append(out, models.Sale{Purchase: p, BookTitle: b.Title})
			}
		}
		return nil
	})
	return out, nil
}

func (r memPurchases) HasCompleted(ctx context.Context, buyerID, bookID uuid.UUID) (bool, error) {
	var found bool
	_ = r.s.exec(func(st *memState) error {
		for _, p := range st.purchases {
			if p.BuyerID.Valid && p.BuyerID.UUID == buyerID && p.BookID == bookID && p.Status == models.StatusCompleted {
				found = true
			}
		}
		return nil
	})
	return found, nil
}

type memDeposits struct{ s *memStore }

func (r memDeposits) Create(ctx context.Context, d *models.Deposit) error {
	return r.s.exec(func(st *memState) error {
		if _, ok := st.deposits[d.TransactionID]; ok {
			return pkgerrors.ErrDuplicateTransaction
		}
		d.ID = uuid.New()
		d.CreatedAt = time.Now()
		st.deposits[d.TransactionID] = *d
		return nil
	})
}

func (r memDeposits) GetByTransactionID(ctx context.Context, txID string) (*models.Deposit, error) {
	var out *models.Deposit
	err := r.s.exec(func(st *memState) error {
		d, ok := st.deposits[txID]
		if !ok {
			return pkgerrors.ErrTransactionNotFound
		}
		out = &d
		return nil
	})
	return out, err
}

func (r memDeposits) Transition(ctx context.Context, txID string, status models.PaymentStatus) (*models.Deposit, bool, error) {
	var out *models.Deposit
	var applied bool
	err := r.s.exec(func(st *memState) error {
		d, ok := st.deposits[txID]
		if !ok {
			return pkgerrors.ErrTransactionNotFound
		}
		if d.Status == models.StatusPending {
			d.Status = status
			st.deposits[txID] = d
			applied = true
		}
		out = &d
		return nil
	})
	return out, applied, err
}

func (r memDeposits) ListByBuyer(ctx context.Context, buyerID uuid.UUID, limit int) ([]models.Deposit, error) {
	var out []models.Deposit
	_ = r.s.exec(func(st *memState) error {
		for _, d := range st.deposits {
			if d.BuyerID == buyerID {
				out = append(out, d)
			}
		}
		return nil
	})
	return out, nil
}

type memWithdrawals struct{ s *memStore }

func (r memWithdrawals) Create(ctx context.Context, w *models.Withdrawal) error {
	return r.s.exec(func(st *memState) error {
		if r.s.root.failWithdrawalCreate != nil {
			return r.s.root.failWithdrawalCreate
		}
		w.ID = uuid.New()
		w.CreatedAt = time.Now()
		st.withdrawals[w.ID] = *w
		return nil
	})
}

func (r memWithdrawals) GetByID(ctx context.Context, id uuid.UUID) (*models.Withdrawal, error) {
	var out *models.Withdrawal
	err := r.s.exec(func(st *memState) error {
		w, ok := st.withdrawals[id]
		if !ok {
			return pkgerrors.ErrWithdrawalNotFound
		}
		out = &w
		return nil
	})
	return out, err
}

func (r memWithdrawals) Transition(ctx context.Context, id uuid.UUID, status models.WithdrawalStatus, notes string) (*models.Withdrawal, bool, error) {
	var out *models.Withdrawal
	var applied bool
	err := r.s.exec(func(st *memState) error {
		w, ok := st.withdrawals[id]
		if !ok {
			return pkgerrors.ErrWithdrawalNotFound
		}
		if w.Status == models.WithdrawalPending {
			w.Status = status
			w.AdminNotes = notes
			st.withdrawals[id] = w
			applied = true
		}
		out = &w
		return nil
	})
	return out, applied, err
}

func (r memWithdrawals) ListBySeller(ctx context.Context, sellerID uuid.UUID, limit int) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	_ = r.s.exec(func(st *memState) error {
		for _, w := range st.withdrawals {
			if w.SellerID == sellerID {
				out = append(out, w)
			}
		}
		return nil
	})
	return out, nil
}

func (r memWithdrawals) ListByStatus(ctx context.Context, status models.WithdrawalStatus, limit int) ([]models.Withdrawal, error) {
	var out []models.Withdrawal
	_ = r.s.exec(func(st *memState) error {
		for _, w := range st.withdrawals {
			if w.Status == status {
				out = append(out, w)
			}
		}
		return nil
	})
	return out, nil
}

type memRevenue struct{ s *memStore }

func (r memRevenue) Record(ctx context.Context, rev *models.PlatformRevenue) error {
	return r.s.exec(func(st *memState) error {
		rev.ID = uuid.New()
		rev.CreatedAt = time.Now()
		st.revenue = append(st.revenue, *rev)
		return nil
	})
}

// mockGateway is a testify mock of the provider.
type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) InitiatePayment(ctx context.Context, req zenopay.PaymentRequest) (*zenopay.PaymentResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*zenopay.PaymentResponse)
	return resp, args.Error(1)
}

func (m *mockGateway) OrderStatus(ctx context.Context, orderID string) (string, error) {
	args := m.Called(ctx, orderID)
	return args.String(0), args.Error(1)
}

type sentMessage struct {
	topic string
	key   string
	value []byte
}

type recordingProducer struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (p *recordingProducer) Send(ctx context.Context, topic string, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, sentMessage{topic: topic, key: key, value: value})
	return nil
}

func (p *recordingProducer) Close() error { return nil }

func (p *recordingProducer) topicCount(topic string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, m := range p.messages {
		if m.topic == topic {
			n++
		}
	}
	return n
}

type recordingPoller struct {
	mu      sync.Mutex
	started []string
}

func (p *recordingPoller) Start(ctx context.Context, transactionID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = append(p.started, transactionID)
	return nil
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

const testWebhookSecret = "whsec_test"

type fixture struct {
	store      *memStore
	gateway    *mockGateway
	producer   *recordingProducer
	cache      *redis.MemoryClient
	events     *eventPublisher
	settler    *settler
	reconciler *reconciler
	checker    *statusChecker
}

func newFixture() *fixture {
	f := &fixture{
		store:    newMemStore(),
		gateway:  &mockGateway{},
		producer: &recordingProducer{},
		cache:    redis.NewMemoryClient(),
	}
	f.events = NewEventPublisher(f.producer, f.cache)
	f.settler = NewSettler(f.store, f.events)
	f.reconciler = NewReconciler(f.store, f.settler, testWebhookSecret)
	f.checker = NewStatusChecker(f.store, f.gateway, f.settler)
	return f
}

func (f *fixture) webhook(orderID, status string) (*ReconcileResult, error) {
	body := []byte(`{"order_id":"` + orderID + `","status":"` + status + `"}`)
	return f.reconciler.HandleWebhook(context.Background(), body, zenopay.Sign(testWebhookSecret, body))
}

func (f *fixture) pendingPurchase(bookID uuid.UUID, buyerID *uuid.UUID, amount int64) string {
	p := &models.Purchase{
		BookID:        bookID,
		BuyerPhone:    "0712345678",
		Amount:        dec(amount),
		TransactionID: models.NewTransactionID(models.KindPurchase, models.MethodMobileMoney),
		Method:        models.MethodMobileMoney,
		Status:        models.StatusPending,
	}
	if buyerID != nil {
		p.BuyerID = uuid.NullUUID{UUID: *buyerID, Valid: true}
	}
	if err := f.store.Purchases().Create(context.Background(), p); err != nil {
		panic(err)
	}
	return p.TransactionID
}

func (f *fixture) pendingDeposit(buyerID uuid.UUID, amount int64) string {
	d := &models.Deposit{
		BuyerID:       buyerID,
		Phone:         "0712345678",
		Amount:        dec(amount),
		TransactionID: models.NewTransactionID(models.KindDeposit, models.MethodMobileMoney),
		Status:        models.StatusPending,
	}
	if err := f.store.Deposits().Create(context.Background(), d); err != nil {
		panic(err)
	}
	return d.TransactionID
}
