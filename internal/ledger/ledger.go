/*
This file contains the fungible-token ledger used for the reserve asset and
for both engine-issued tokens.

Balance mutation through Transfer/TransferFrom is open to any holder. Supply
mutation (Mint/Burn) is only reachable through the Supply handle returned by
New, which the wiring code hands to the engine and to nobody else. Transfers
between holders never touch engine state.
*/

package ledger

import (
	"errors"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrInvalidAmount         = errors.New("invalid amount")
	ErrInvalidAccount        = errors.New("invalid account")
)

// Ledger tracks balances and allowances for a single denom.
type Ledger struct {
	mu         sync.RWMutex
	denom      string
	supply     sdkmath.Int
	balances   map[string]sdkmath.Int
	allowances map[string]map[string]sdkmath.Int
}

// Supply is the mint/burn capability for one Ledger. Whoever holds it
// controls issuance; the ledger itself exposes no supply mutation.
type Supply struct {
	ledger *Ledger
}

// New creates an empty ledger and its issuance capability.
func New(denom string) (*Ledger, *Supply, error) {
	if denom == "" {
		return nil, nil, fmt.Errorf("%w: empty denom", ErrInvalidAccount)
	}
	l := &Ledger{
		denom:      denom,
		supply:     sdkmath.ZeroInt(),
		balances:   make(map[string]sdkmath.Int),
		allowances: make(map[string]map[string]sdkmath.Int),
	}
	return l, &Supply{ledger: l}, nil
}

// Denom returns the token denomination this ledger tracks.
func (l *Ledger) Denom() string {
	return l.denom
}

// TotalSupply returns the outstanding token amount.
func (l *Ledger) TotalSupply() sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.supply
}

// BalanceOf returns account's balance; unknown accounts hold zero.
func (l *Ledger) BalanceOf(account string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if bal, ok := l.balances[account]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// Transfer moves amount from one holder to another.
func (l *Ledger) Transfer(from, to string, amount sdkmath.Int) error {
	if err := validateAccounts(from, to); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// Approve lets spender move up to amount of owner's balance.
func (l *Ledger) Approve(owner, spender string, amount sdkmath.Int) error {
	if err := validateAccounts(owner, spender); err != nil {
		return err
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.allowances[owner]; !ok {
		l.allowances[owner] = make(map[string]sdkmath.Int)
	}
	l.allowances[owner][spender] = amount
	return nil
}

// Allowance returns the remaining amount spender may move from owner.
func (l *Ledger) Allowance(owner, spender string) sdkmath.Int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if grants, ok := l.allowances[owner]; ok {
		if amt, ok := grants[spender]; ok {
			return amt
		}
	}
	return sdkmath.ZeroInt()
}

// TransferFrom moves amount from owner to recipient on spender's authority,
// consuming allowance.
func (l *Ledger) TransferFrom(spender, owner, to string, amount sdkmath.Int) error {
	if err := validateAccounts(owner, to); err != nil {
		return err
	}
	if spender == "" {
		return fmt.Errorf("%w: empty spender", ErrInvalidAccount)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	allowed := sdkmath.ZeroInt()
	if grants, ok := l.allowances[owner]; ok {
		if amt, ok := grants[spender]; ok {
			allowed = amt
		}
	}
	if allowed.LT(amount) {
		return fmt.Errorf("%w: %s allowed %s, need %s", ErrInsufficientAllowance, spender, allowed, amount)
	}
	if err := l.move(owner, to, amount); err != nil {
		return err
	}
	l.allowances[owner][spender] = allowed.Sub(amount)
	return nil
}

// Mint credits amount to account and grows total supply.
func (s *Supply) Mint(to string, amount sdkmath.Int) error {
	if to == "" {
		return fmt.Errorf("%w: empty account", ErrInvalidAccount)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	l := s.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] = l.balanceLocked(to).Add(amount)
	l.supply = l.supply.Add(amount)
	return nil
}

// Burn debits amount from account and shrinks total supply.
func (s *Supply) Burn(from string, amount sdkmath.Int) error {
	if from == "" {
		return fmt.Errorf("%w: empty account", ErrInvalidAccount)
	}
	if err := validateAmount(amount); err != nil {
		return err
	}
	l := s.ledger
	l.mu.Lock()
	defer l.mu.Unlock()
	bal := l.balanceLocked(from)
	if bal.LT(amount) {
		return fmt.Errorf("%w: %s on %s holds %s, need %s", ErrInsufficientBalance, from, l.denom, bal, amount)
	}
	l.balances[from] = bal.Sub(amount)
	l.supply = l.supply.Sub(amount)
	return nil
}

// Ledger returns the ledger this capability issues on.
func (s *Supply) Ledger() *Ledger {
	return s.ledger
}

func (l *Ledger) move(from, to string, amount sdkmath.Int) error {
	bal := l.balanceLocked(from)
	if bal.LT(amount) {
		return fmt.Errorf("%w: %s on %s holds %s, need %s", ErrInsufficientBalance, from, l.denom, bal, amount)
	}
	l.balances[from] = bal.Sub(amount)
	l.balances[to] = l.balanceLocked(to).Add(amount)
	return nil
}

func (l *Ledger) balanceLocked(account string) sdkmath.Int {
	if bal, ok := l.balances[account]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

func validateAccounts(from, to string) error {
	if from == "" || to == "" {
		return fmt.Errorf("%w: empty account", ErrInvalidAccount)
	}
	return nil
}

func validateAmount(amount sdkmath.Int) error {
	if amount.IsNil() {
		return fmt.Errorf("%w: nil", ErrInvalidAmount)
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s is negative", ErrInvalidAmount, amount)
	}
	return nil
}
