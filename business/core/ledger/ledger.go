// Package ledger implements the funding ledger and all the business rules
// for accepting contributions and paying out held funds.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// EventHandler defines a function that is called when events occur in the
// processing of contributions and withdrawals.
type EventHandler func(v string, args ...any)

// Quoter represents the behavior required to be implemented by any package
// providing USD quotes for native currency amounts.
type Quoter interface {
	QuoteUSDValue(ctx context.Context, nativeAmount uint64) (uint64, error)
}

// Transferor represents the behavior required to be implemented by any
// package providing outbound transfer of native funds.
type Transferor interface {
	Transfer(ctx context.Context, to string, amount uint64) error
}

// =============================================================================

// Info represents information stored for an individual account. Balances
// reset to zero on withdrawal but the entry itself is kept, so the ledger
// remembers which accounts have contributed before and what nonce they
// used last.
type Info struct {
	Balance uint64
	Nonce   uint64
}

// Config represents the configuration required to construct the ledger.
type Config struct {
	Charter    Charter
	Oracle     Quoter
	Settlement Transferor
	EvHandler  EventHandler
}

// Ledger manages the balances of everyone who has contributed funds and
// pays everything out to the owner on request. All mutation happens under
// one mutex so contribute and withdraw are each indivisible.
type Ledger struct {
	charter    Charter
	oracle     Quoter
	settlement Transferor
	evHandler  EventHandler

	mu       sync.Mutex
	accounts map[AccountID]Info
	funders  []AccountID
	held     uint64
}

// New constructs a new funding ledger bound to the specified charter.
func New(cfg Config) (*Ledger, error) {
	if !cfg.Charter.OwnerID.IsAccountID() {
		return nil, fmt.Errorf("charter owner %q is not a valid account", cfg.Charter.OwnerID)
	}

	if cfg.Oracle == nil {
		return nil, errors.New("ledger requires a price oracle")
	}

	if cfg.Settlement == nil {
		return nil, errors.New("ledger requires a settlement transferor")
	}

	// Build a safe event handler function for use.
	ev := func(v string, args ...any) {
		if cfg.EvHandler != nil {
			cfg.EvHandler(v, args...)
		}
	}

	l := Ledger{
		charter:    cfg.Charter,
		oracle:     cfg.Oracle,
		settlement: cfg.Settlement,
		evHandler:  ev,
		accounts:   make(map[AccountID]Info),
	}

	return &l, nil
}

// Charter returns the charter the ledger was constructed with.
func (l *Ledger) Charter() Charter {
	return l.charter
}

// Owner returns the one account authorized to withdraw held funds.
func (l *Ledger) Owner() AccountID {
	return l.charter.OwnerID
}

// =============================================================================

// Contribute accepts a signed contribution into the ledger. The USD value
// of the amount must clear the charter minimum or the contribution is
// rejected with no state change.
func (l *Ledger) Contribute(ctx context.Context, cn SignedContribution) error {
	if err := cn.Validate(); err != nil {
		return err
	}

	from, err := cn.FromAccount()
	if err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}

	// Ask the oracle for the USD value before taking the lock. The quote
	// is read-only and must not hold up other ledger operations.
	quote, err := l.oracle.QuoteUSDValue(ctx, cn.Amount)
	if err != nil {
		return &OracleUnavailableError{Err: err}
	}

	if quote < l.charter.MinimumUSD {
		return &InsufficientContributionError{
			Amount:     cn.Amount,
			QuoteUSD:   quote,
			MinimumUSD: l.charter.MinimumUSD,
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	info, known := l.accounts[from]
	if cn.Nonce <= info.Nonce {
		return &ReplayError{Account: from, LastNonce: info.Nonce, OrderNonce: cn.Nonce}
	}

	// Record the funder in the ordered list. Under the unique policy an
	// account is only recorded on its first ever contribution.
	if l.charter.FunderPolicy == FundersEvery || !known {
		l.funders = append(l.funders, from)
	}

	info.Balance += cn.Amount
	info.Nonce = cn.Nonce
	l.accounts[from] = info
	l.held += cn.Amount

	l.evHandler("ledger: contribute: accepted: account[%s] amount[%d] usd[%d]", from, cn.Amount, quote)

	return nil
}

// WithdrawAll pays everything the ledger holds out to the owner and resets
// every balance to zero. The zeroing is committed before the settlement
// transfer runs so a re-entrant caller can never observe funds that are
// both marked withdrawn and still transferable. If the transfer fails the
// pre-withdrawal state is restored and the owner can retry. The returned
// amount is what was transferred.
func (l *Ledger) WithdrawAll(ctx context.Context, wo SignedWithdrawOrder) (uint64, error) {
	if err := wo.Validate(); err != nil {
		return 0, err
	}

	from, err := wo.FromAccount()
	if err != nil {
		return 0, fmt.Errorf("invalid signature: %w", err)
	}

	if from != l.charter.OwnerID {
		return 0, &NotOwnerError{Account: from}
	}

	// The lock is held across both phases, including the settlement call.
	// Nothing may interleave with a withdrawal, no matter how long the
	// external transfer takes.
	l.mu.Lock()
	defer l.mu.Unlock()

	// The owner shares one nonce sequence across every order they sign, so
	// a captured withdraw order can never be submitted a second time.
	info := l.accounts[from]
	if wo.Nonce <= info.Nonce {
		return 0, &ReplayError{Account: from, LastNonce: info.Nonce, OrderNonce: wo.Nonce}
	}

	// Nothing held means nothing to transfer. The operation still succeeds
	// so a fresh withdrawal against an empty ledger is a harmless no-op.
	// The nonce is still spent.
	if l.held == 0 {
		info.Nonce = wo.Nonce
		l.accounts[from] = info
		l.evHandler("ledger: withdraw: nothing held")
		return 0, nil
	}

	// Phase 1: commit the local state mutation. The order nonce is spent,
	// balances zero out and the funder list empties before any external
	// call is made.
	snapshot := l.snapshot()
	amount := l.held

	info.Nonce = wo.Nonce
	l.accounts[from] = info

	for account, acct := range l.accounts {
		acct.Balance = 0
		l.accounts[account] = acct
	}
	l.funders = nil
	l.held = 0

	// Phase 2: move the funds. On failure the whole withdrawal is rejected
	// and phase 1 is undone so no partial state is ever observable.
	if err := l.settlement.Transfer(ctx, string(l.charter.OwnerID), amount); err != nil {
		l.restore(snapshot)
		return 0, &TransferFailedError{Amount: amount, Err: err}
	}

	l.evHandler("ledger: withdraw: transferred: amount[%d] to[%s]", amount, l.charter.OwnerID)

	return amount, nil
}

// =============================================================================

// BalanceOf returns the balance currently held for the specified account.
// Accounts the ledger has never seen have a zero balance.
func (l *Ledger) BalanceOf(account AccountID) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.accounts[account].Balance
}

// TotalHeld returns the sum of native funds the ledger currently retains
// and that is available for withdrawal.
func (l *Ledger) TotalHeld() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.held
}

// Funders returns a copy of the ordered funder list.
func (l *Ledger) Funders() []AccountID {
	l.mu.Lock()
	defer l.mu.Unlock()

	funders := make([]AccountID, len(l.funders))
	copy(funders, l.funders)
	return funders
}

// Balances makes a copy of the current information for all accounts.
func (l *Ledger) Balances() map[AccountID]Info {
	l.mu.Lock()
	defer l.mu.Unlock()

	accounts := make(map[AccountID]Info, len(l.accounts))
	for account, info := range l.accounts {
		accounts[account] = info
	}
	return accounts
}

// =============================================================================

// memento captures the mutable ledger state so a failed withdrawal can be
// rolled back. Only taken and restored while holding the mutex.
type memento struct {
	accounts map[AccountID]Info
	funders  []AccountID
	held     uint64
}

func (l *Ledger) snapshot() memento {
	accounts := make(map[AccountID]Info, len(l.accounts))
	for account, info := range l.accounts {
		accounts[account] = info
	}

	funders := make([]AccountID, len(l.funders))
	copy(funders, l.funders)

	return memento{
		accounts: accounts,
		funders:  funders,
		held:     l.held,
	}
}

func (l *Ledger) restore(m memento) {
	l.accounts = m.accounts
	l.funders = m.funders
	l.held = m.held
}
