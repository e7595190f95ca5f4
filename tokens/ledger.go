// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package tokens

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

var ErrInsufficientBalance = errors.New("insufficient token balance")

// Ledger is an in-process token backend keeping per-token account balances.
// Real deployments supply the hosting ledger's token primitives instead;
// this one backs single-process runs and tests.
type Ledger struct {
	mu       sync.Mutex
	balances map[common.Address]map[common.Address]*big.Int
}

func NewLedger() *Ledger {
	return &Ledger{
		balances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

// Mint credits amount of token to account out of thin air.
func (l *Ledger) Mint(token, account common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balanceOf(token, account)
	l.tokenBalances(token)[account] = new(big.Int).Add(balance, amount)
}

func (l *Ledger) BalanceOf(token, account common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balanceOf(token, account))
}

func (l *Ledger) Transfer(token, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	fromBalance := l.balanceOf(token, from)
	if fromBalance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}

	balances := l.tokenBalances(token)
	balances[from] = new(big.Int).Sub(fromBalance, amount)
	balances[to] = new(big.Int).Add(l.balanceOf(token, to), amount)
	return nil
}

func (l *Ledger) tokenBalances(token common.Address) map[common.Address]*big.Int {
	balances, ok := l.balances[token]
	if !ok {
		balances = make(map[common.Address]*big.Int)
		l.balances[token] = balances
	}
	return balances
}

func (l *Ledger) balanceOf(token, account common.Address) *big.Int {
	balance, ok := l.tokenBalances(token)[account]
	if !ok {
		return big.NewInt(0)
	}
	return balance
}
