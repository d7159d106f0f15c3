package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"arbirupee/internal/models"
	"arbirupee/internal/repositories"
	"arbirupee/internal/services/chain"
	"arbirupee/internal/services/payment"

	"github.com/shopspring/decimal"
)

// memTransactionRepo mirrors the store's compare-and-set semantics in
// memory so the race-sensitive flows can be tested without a database.
type memTransactionRepo struct {
	mu  sync.Mutex
	txs map[string]*models.Transaction
}

func newMemTransactionRepo() *memTransactionRepo {
	return &memTransactionRepo{txs: make(map[string]*models.Transaction)}
}

func copyTx(tx *models.Transaction) *models.Transaction {
	clone := *tx
	if tx.Metadata != nil {
		clone.Metadata = models.JSON{}
		for k, v := range tx.Metadata {
			clone.Metadata[k] = v
		}
	}
	return &clone
}

func (r *memTransactionRepo) Create(_ context.Context, tx *models.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tx.TransactionID == "" {
		if err := tx.GenerateTransactionID(); err != nil {
			return err
		}
	}
	if _, ok := r.txs[tx.TransactionID]; ok {
		return repositories.ErrDuplicateTransaction
	}
	if tx.Status == "" {
		tx.Status = models.StatusPending
	}
	tx.CreatedAt = time.Now()
	r.txs[tx.TransactionID] = copyTx(tx)
	return nil
}

func (r *memTransactionRepo) applyPatch(current *models.Transaction, patch repositories.StatusPatch) error {
	if patch.Blockchain != nil && current.Blockchain.TxHash != "" &&
		patch.Blockchain.TxHash != current.Blockchain.TxHash {
		return repositories.ErrImmutableField
	}
	if patch.Payment != nil && current.Payment.OrderID != "" &&
		patch.Payment.OrderID != "" && patch.Payment.OrderID != current.Payment.OrderID {
		return repositories.ErrImmutableField
	}

	if p := patch.Payment; p != nil {
		if p.OrderID != "" {
			current.Payment.OrderID = p.OrderID
		}
		if p.PaymentID != "" {
			current.Payment.PaymentID = p.PaymentID
		}
		if p.PayoutID != "" {
			current.Payment.PayoutID = p.PayoutID
		}
		if !p.Amount.IsZero() {
			current.Payment.Amount = p.Amount
		}
		if p.Currency != "" {
			current.Payment.Currency = p.Currency
		}
		if p.Status != "" {
			current.Payment.Status = p.Status
		}
		if p.Method != "" {
			current.Payment.Method = p.Method
		}
		if p.Captured {
			current.Payment.Captured = true
		}
	}
	if b := patch.Blockchain; b != nil {
		current.Blockchain = *b
	}
	if e := patch.TxError; e != nil {
		current.TxError = *e
	}
	if patch.BankTransactionID != "" {
		current.Banking.BankTransactionID = patch.BankTransactionID
	}
	if patch.CompletedAt != nil {
		current.CompletedAt = patch.CompletedAt
	}
	if len(patch.Metadata) > 0 {
		if current.Metadata == nil {
			current.Metadata = models.JSON{}
		}
		for k, v := range patch.Metadata {
			current.Metadata[k] = v
		}
	}
	return nil
}

func (r *memTransactionRepo) UpdateStatus(_ context.Context, transactionID, fromStatus, toStatus string, patch repositories.StatusPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !models.CanTransition(fromStatus, toStatus) {
		return fmt.Errorf("%w: %s -> %s", repositories.ErrInvalidTransition, fromStatus, toStatus)
	}
	current, ok := r.txs[transactionID]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	if current.Status != fromStatus {
		return fmt.Errorf("%w: transaction %s is no longer %s", repositories.ErrInvalidTransition, transactionID, fromStatus)
	}
	if err := r.applyPatch(current, patch); err != nil {
		return err
	}
	current.Status = toStatus
	return nil
}

func (r *memTransactionRepo) Patch(_ context.Context, transactionID string, patch repositories.StatusPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	current, ok := r.txs[transactionID]
	if !ok {
		return repositories.ErrTransactionNotFound
	}
	return r.applyPatch(current, patch)
}

func (r *memTransactionRepo) FindByID(_ context.Context, transactionID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[transactionID]
	if !ok {
		return nil, repositories.ErrTransactionNotFound
	}
	return copyTx(tx), nil
}

func (r *memTransactionRepo) FindByIDForUser(_ context.Context, transactionID string, userID uint) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[transactionID]
	if !ok || tx.UserID != userID {
		return nil, repositories.ErrTransactionNotFound
	}
	return copyTx(tx), nil
}

func (r *memTransactionRepo) FindByPaymentOrder(_ context.Context, orderID string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, tx := range r.txs {
		if tx.Payment.OrderID == orderID {
			return copyTx(tx), nil
		}
	}
	return nil, repositories.ErrTransactionNotFound
}

func (r *memTransactionRepo) List(_ context.Context, filter repositories.TransactionFilter, page repositories.Page) ([]models.Transaction, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.txs {
		if filter.UserID != 0 && tx.UserID != filter.UserID {
			continue
		}
		if filter.Type != "" && tx.Type != filter.Type {
			continue
		}
		if filter.Status != "" && tx.Status != filter.Status {
			continue
		}
		out = append(out, *copyTx(tx))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	total := int64(len(out))
	if page.Offset > len(out) {
		return nil, total, nil
	}
	out = out[page.Offset:]
	if page.Limit > 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, total, nil
}

func (r *memTransactionRepo) Stats(_ context.Context, userID uint) ([]repositories.TypeStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	agg := map[string]*repositories.TypeStat{}
	for _, tx := range r.txs {
		if tx.UserID != userID || tx.Status != models.StatusCompleted {
			continue
		}
		st, ok := agg[tx.Type]
		if !ok {
			st = &repositories.TypeStat{Type: tx.Type}
			agg[tx.Type] = st
		}
		st.Count++
		st.TotalAmount = st.TotalAmount.Add(tx.Amount)
	}
	var out []repositories.TypeStat
	for _, st := range agg {
		out = append(out, *st)
	}
	return out, nil
}

func (r *memTransactionRepo) Recent(_ context.Context, userID uint, limit int) ([]models.Transaction, error) {
	txs, _, err := r.List(context.Background(), repositories.TransactionFilter{UserID: userID}, repositories.Page{Limit: limit})
	return txs, err
}

func (r *memTransactionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

func (r *memTransactionRepo) countByStatus(status string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, tx := range r.txs {
		if tx.Status == status {
			n++
		}
	}
	return n
}

// memUserRepo accumulates statistics deltas in memory.
type memUserRepo struct {
	mu    sync.Mutex
	users map[uint]*models.User
}

func newMemUserRepo(users ...*models.User) *memUserRepo {
	r := &memUserRepo{users: make(map[uint]*models.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *memUserRepo) FindByID(_ context.Context, id uint) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (r *memUserRepo) FindByWallet(_ context.Context, wallet string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.WalletAddress == wallet {
			clone := *u
			return &clone, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r *memUserRepo) FindOrCreateByWallet(ctx context.Context, wallet string) (*models.User, error) {
	return r.FindByWallet(ctx, wallet)
}

func (r *memUserRepo) ApplyStatistics(_ context.Context, userID uint, delta repositories.StatisticsDelta) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return repositories.ErrUserNotFound
	}
	u.Statistics.TotalDeposited = u.Statistics.TotalDeposited.Add(delta.Deposited)
	u.Statistics.TotalWithdrawn = u.Statistics.TotalWithdrawn.Add(delta.Withdrawn)
	u.Statistics.TotalTransferred = u.Statistics.TotalTransferred.Add(delta.Transferred)
	u.Statistics.TotalReceived = u.Statistics.TotalReceived.Add(delta.Received)
	u.Statistics.TransactionCount += delta.TransactionCount
	return nil
}

// fakeChain tracks balances and call counts. Mutations apply to the balance
// map so balance-race tests observe real drains.
type fakeChain struct {
	mu           sync.Mutex
	balances     map[string]decimal.Decimal
	mintErr      error
	burnErr      error
	transferErr  error
	mintCalls    int
	burnCalls    int
	transferCall int
}

func newFakeChain() *fakeChain {
	return &fakeChain{balances: make(map[string]decimal.Decimal)}
}

func (c *fakeChain) setBalance(address string, amount decimal.Decimal) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.balances[address] = amount
}

func (c *fakeChain) receipt(key string) *chain.Receipt {
	return &chain.Receipt{TxHash: "0xhash-" + key, BlockNumber: 100, GasUsed: 21000}
}

func (c *fakeChain) Mint(_ context.Context, to string, amount decimal.Decimal, key string) (*chain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.mintCalls++
	if c.mintErr != nil {
		return nil, c.mintErr
	}
	c.balances[to] = c.balances[to].Add(amount)
	return c.receipt(key), nil
}

func (c *fakeChain) Burn(_ context.Context, from string, amount decimal.Decimal, key string) (*chain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.burnCalls++
	if c.burnErr != nil {
		return nil, c.burnErr
	}
	c.balances[from] = c.balances[from].Sub(amount)
	return c.receipt(key), nil
}

func (c *fakeChain) Transfer(_ context.Context, from, to string, amount decimal.Decimal, key string) (*chain.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.transferCall++
	if c.transferErr != nil {
		return nil, c.transferErr
	}
	c.balances[from] = c.balances[from].Sub(amount)
	c.balances[to] = c.balances[to].Add(amount)
	return c.receipt(key), nil
}

func (c *fakeChain) BalanceOf(_ context.Context, address string) (decimal.Decimal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[address], nil
}

func (c *fakeChain) IsValidAddress(address string) bool {
	return chain.IsValidAddress(address)
}

// fakePayments answers gateway calls from fixtures.
type fakePayments struct {
	mu          sync.Mutex
	orderErr    error
	payoutErr   error
	payments    map[string]*payment.Payment
	webhook     *payment.WebhookEvent
	webhookErr  error
	orderCount  int
	payoutCount int
}

func newFakePayments() *fakePayments {
	return &fakePayments{payments: make(map[string]*payment.Payment)}
}

func (p *fakePayments) CreateOrder(_ context.Context, amount decimal.Decimal, currency string, notes map[string]string) (*payment.Order, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.orderErr != nil {
		return nil, p.orderErr
	}
	p.orderCount++
	return &payment.Order{
		OrderID:  fmt.Sprintf("order_%d", p.orderCount),
		Amount:   amount,
		Currency: currency,
		Status:   "created",
		Receipt:  notes["transactionId"],
	}, nil
}

func (p *fakePayments) VerifySignature(orderID, paymentID, signature string) bool {
	return signature == "sig:"+orderID+"|"+paymentID
}

func (p *fakePayments) GetPayment(_ context.Context, paymentID string) (*payment.Payment, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pay, ok := p.payments[paymentID]
	if !ok {
		return nil, payment.ErrPaymentNotFound
	}
	clone := *pay
	return &clone, nil
}

func (p *fakePayments) addCapturedPayment(paymentID, orderID string, amount decimal.Decimal) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payments[paymentID] = &payment.Payment{
		PaymentID: paymentID,
		OrderID:   orderID,
		Amount:    amount,
		Currency:  "INR",
		Status:    payment.StatusCaptured,
		Method:    "upi",
		Captured:  true,
	}
}

func (p *fakePayments) CreatePayout(_ context.Context, amount decimal.Decimal, bank payment.BankDetails, key string) (*payment.Payout, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.payoutErr != nil {
		return nil, p.payoutErr
	}
	p.payoutCount++
	return &payment.Payout{
		PayoutID: fmt.Sprintf("pout_%d", p.payoutCount),
		Amount:   amount,
		Currency: "INR",
		Status:   "queued",
	}, nil
}

func (p *fakePayments) DecodeWebhook(body []byte, signature string) (*payment.WebhookEvent, error) {
	if p.webhookErr != nil {
		return nil, p.webhookErr
	}
	if p.webhook != nil {
		clone := *p.webhook
		return &clone, nil
	}
	return nil, payment.ErrInvalidSignature
}

// memLocker is an in-process stand-in for the redis lock/dedup service.
type memLocker struct {
	mu    sync.Mutex
	locks map[string]bool
	seen  map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{locks: make(map[string]bool), seen: make(map[string]bool)}
}

func (l *memLocker) AcquireLock(_ context.Context, key string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks[key] {
		return false, nil
	}
	l.locks[key] = true
	return true, nil
}

func (l *memLocker) ReleaseLock(_ context.Context, key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.locks, key)
	return nil
}

func (l *memLocker) MarkEventSeen(_ context.Context, eventID string, _ time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.seen[eventID] {
		return false, nil
	}
	l.seen[eventID] = true
	return true, nil
}

func (l *memLocker) UnmarkEvent(_ context.Context, eventID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.seen, eventID)
	return nil
}
