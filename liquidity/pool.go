// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package liquidity

import (
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

var (
	ErrAssetNotRegistered    = errors.New("asset not registered with pool")
	ErrAssetAlreadyActive    = errors.New("asset already registered")
	ErrPoolInactive          = errors.New("pool inactive for asset")
	ErrExceedsMaxLiquidity   = errors.New("deposit would exceed max liquidity")
	ErrBelowMinLiquidity     = errors.New("withdrawal would leave pool below min liquidity")
	ErrInsufficientShares    = errors.New("provider shares insufficient")
	ErrInsufficientLiquidity = errors.New("available liquidity insufficient")
	ErrProviderBlacklisted   = errors.New("provider is blacklisted")
	ErrProviderNotPermitted  = errors.New("provider not permitted")
	ErrDuplicateLock         = errors.New("liquidity already locked for settlement")
	ErrUnknownLock           = errors.New("no liquidity locked for settlement")
	ErrLockAmountMismatch    = errors.New("amount does not match locked amount")
)

// TokenBackend moves token balances between accounts. Token primitives are an
// external collaborator; the pool only directs them.
type TokenBackend interface {
	Transfer(token common.Address, from, to common.Address, amount *big.Int) error
}

// PoolInfo is the per-asset accounting snapshot. Total always equals
// Available plus Locked.
type PoolInfo struct {
	Total     *big.Int `json:"total"`
	Available *big.Int `json:"available"`
	Locked    *big.Int `json:"locked"`
	Min       *big.Int `json:"min"`
	Max       *big.Int `json:"max"`
	Active    bool     `json:"active"`
}

type assetState struct {
	Info        PoolInfo                    `json:"info"`
	TotalShares *big.Int                    `json:"totalShares"`
	Shares      map[common.Address]*big.Int `json:"shares"`
	Locks       map[common.Hash]*big.Int    `json:"locks"`
}

// Pool guards the shared pooled funds used for settlement. All balance moves
// go through atomic lock/release/consume transitions under one mutex; there
// is no direct external mutation of balances. Competing settlements are
// resolved first-come-first-served by lock rejection, not queuing.
type Pool struct {
	mu      sync.Mutex
	address common.Address
	backend TokenBackend
	store   *Snapshotter

	assets         map[common.Address]*assetState
	permissionless bool
	allowed        map[common.Address]bool
	blacklisted    map[common.Address]bool
}

func NewPool(address common.Address, backend TokenBackend, store *Snapshotter) (*Pool, error) {
	p := &Pool{
		address:        address,
		backend:        backend,
		store:          store,
		assets:         make(map[common.Address]*assetState),
		permissionless: true,
		allowed:        make(map[common.Address]bool),
		blacklisted:    make(map[common.Address]bool),
	}

	if store != nil {
		assets, err := store.Load()
		if err != nil {
			return nil, err
		}
		p.assets = assets
	}
	return p, nil
}

func (p *Pool) RegisterAsset(token common.Address, min, max *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.assets[token]; ok {
		return ErrAssetAlreadyActive
	}

	p.assets[token] = &assetState{
		Info: PoolInfo{
			Total:     big.NewInt(0),
			Available: big.NewInt(0),
			Locked:    big.NewInt(0),
			Min:       new(big.Int).Set(min),
			Max:       new(big.Int).Set(max),
			Active:    true,
		},
		TotalShares: big.NewInt(0),
		Shares:      make(map[common.Address]*big.Int),
		Locks:       make(map[common.Hash]*big.Int),
	}
	return p.persist(token)
}

// AddLiquidity pulls amount of token from provider into the pool and mints
// proportional shares.
func (p *Pool) AddLiquidity(provider, token common.Address, amount *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.activeAsset(token)
	if err != nil {
		return nil, err
	}
	if p.blacklisted[provider] {
		return nil, ErrProviderBlacklisted
	}
	if !p.permissionless && !p.allowed[provider] {
		return nil, ErrProviderNotPermitted
	}

	newTotal := new(big.Int).Add(state.Info.Total, amount)
	if state.Info.Max.Sign() > 0 && newTotal.Cmp(state.Info.Max) > 0 {
		return nil, ErrExceedsMaxLiquidity
	}

	if err := p.backend.Transfer(token, provider, p.address, amount); err != nil {
		return nil, err
	}

	// Total can be zero with shares outstanding after settlements consume the
	// whole pool; such deposits are priced as fresh-pool deposits.
	shares := new(big.Int).Set(amount)
	if state.TotalShares.Sign() > 0 && state.Info.Total.Sign() > 0 {
		shares = new(big.Int).Div(
			new(big.Int).Mul(amount, state.TotalShares),
			state.Info.Total,
		)
	}

	state.Info.Total = newTotal
	state.Info.Available = new(big.Int).Add(state.Info.Available, amount)
	state.TotalShares = new(big.Int).Add(state.TotalShares, shares)
	p.creditShares(state, provider, shares)

	log.Debug().
		Str("token", token.Hex()).
		Str("provider", provider.Hex()).
		Str("amount", amount.String()).
		Msg("Liquidity added")
	return shares, p.persist(token)
}

// RemoveLiquidity burns shares and pays the provider their proportional
// amount. Locked liquidity cannot be withdrawn, and partial withdrawals
// cannot leave the pool below the asset's min liquidity.
func (p *Pool) RemoveLiquidity(provider, token common.Address, shares *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.activeAsset(token)
	if err != nil {
		return nil, err
	}

	held, ok := state.Shares[provider]
	if !ok || held.Cmp(shares) < 0 {
		return nil, ErrInsufficientShares
	}

	amount := new(big.Int).Div(
		new(big.Int).Mul(shares, state.Info.Total),
		state.TotalShares,
	)
	if state.Info.Available.Cmp(amount) < 0 {
		return nil, ErrInsufficientLiquidity
	}
	// the min floor blocks partial withdrawals that would strand the pool
	// below its working size; a full exit is still allowed
	newTotal := new(big.Int).Sub(state.Info.Total, amount)
	if state.Info.Min.Sign() > 0 && newTotal.Sign() > 0 && newTotal.Cmp(state.Info.Min) < 0 {
		return nil, ErrBelowMinLiquidity
	}

	if err := p.backend.Transfer(token, p.address, provider, amount); err != nil {
		return nil, err
	}

	state.Info.Total = new(big.Int).Sub(state.Info.Total, amount)
	state.Info.Available = new(big.Int).Sub(state.Info.Available, amount)
	state.TotalShares = new(big.Int).Sub(state.TotalShares, shares)
	state.Shares[provider] = new(big.Int).Sub(held, shares)

	return amount, p.persist(token)
}

// Lock moves amount from available to locked against settlementID. Rejection
// is the arbitration mechanism between settlements competing for the pool.
func (p *Pool) Lock(token common.Address, amount *big.Int, settlementID common.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.activeAsset(token)
	if err != nil {
		return err
	}
	if _, ok := state.Locks[settlementID]; ok {
		return ErrDuplicateLock
	}
	if state.Info.Available.Cmp(amount) < 0 {
		return ErrInsufficientLiquidity
	}

	state.Info.Available = new(big.Int).Sub(state.Info.Available, amount)
	state.Info.Locked = new(big.Int).Add(state.Info.Locked, amount)
	state.Locks[settlementID] = new(big.Int).Set(amount)

	return p.persist(token)
}

// Release returns the liquidity locked for settlementID back to available.
func (p *Pool) Release(token common.Address, amount *big.Int, settlementID common.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.asset(token)
	if err != nil {
		return err
	}
	locked, ok := state.Locks[settlementID]
	if !ok {
		return ErrUnknownLock
	}
	if locked.Cmp(amount) != 0 {
		return ErrLockAmountMismatch
	}

	state.Info.Locked = new(big.Int).Sub(state.Info.Locked, amount)
	state.Info.Available = new(big.Int).Add(state.Info.Available, amount)
	delete(state.Locks, settlementID)

	return p.persist(token)
}

// Settle consumes the liquidity locked for settlementID and credits the
// recipient. Consumed liquidity never returns to available.
func (p *Pool) Settle(token common.Address, amount *big.Int, settlementID common.Hash, recipient common.Address) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.asset(token)
	if err != nil {
		return err
	}
	if err := p.consumeLock(state, amount, settlementID); err != nil {
		return err
	}

	if err := p.backend.Transfer(token, p.address, recipient, amount); err != nil {
		// transfer failed, restore the lock so the settlement can be retried
		// or explicitly failed by the controller
		state.Info.Locked = new(big.Int).Add(state.Info.Locked, amount)
		state.Info.Total = new(big.Int).Add(state.Info.Total, amount)
		state.Locks[settlementID] = new(big.Int).Set(amount)
		return err
	}

	return p.persist(token)
}

// Consume burns the liquidity locked for settlementID without a local credit.
// Used when the matching credit happens on a remote chain through the bridge.
func (p *Pool) Consume(token common.Address, amount *big.Int, settlementID common.Hash) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.asset(token)
	if err != nil {
		return err
	}
	if err := p.consumeLock(state, amount, settlementID); err != nil {
		return err
	}
	return p.persist(token)
}

func (p *Pool) Info(token common.Address) (PoolInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.asset(token)
	if err != nil {
		return PoolInfo{}, err
	}

	return PoolInfo{
		Total:     new(big.Int).Set(state.Info.Total),
		Available: new(big.Int).Set(state.Info.Available),
		Locked:    new(big.Int).Set(state.Info.Locked),
		Min:       new(big.Int).Set(state.Info.Min),
		Max:       new(big.Int).Set(state.Info.Max),
		Active:    state.Info.Active,
	}, nil
}

func (p *Pool) SharesOf(provider, token common.Address) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.asset(token)
	if err != nil {
		return nil, err
	}
	held, ok := state.Shares[provider]
	if !ok {
		return big.NewInt(0), nil
	}
	return new(big.Int).Set(held), nil
}

func (p *Pool) SetAssetActive(token common.Address, active bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	state, err := p.asset(token)
	if err != nil {
		return err
	}
	state.Info.Active = active
	return p.persist(token)
}

// SetPermissionless gates whether arbitrary addresses may provide liquidity.
func (p *Pool) SetPermissionless(permissionless bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.permissionless = permissionless
}

func (p *Pool) AllowProvider(provider common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowed[provider] = true
}

func (p *Pool) SetBlacklisted(provider common.Address, blacklisted bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.blacklisted[provider] = blacklisted
}

func (p *Pool) creditShares(state *assetState, provider common.Address, shares *big.Int) {
	held, ok := state.Shares[provider]
	if !ok {
		held = big.NewInt(0)
	}
	state.Shares[provider] = new(big.Int).Add(held, shares)
}

func (p *Pool) consumeLock(state *assetState, amount *big.Int, settlementID common.Hash) error {
	locked, ok := state.Locks[settlementID]
	if !ok {
		return ErrUnknownLock
	}
	if locked.Cmp(amount) != 0 {
		return ErrLockAmountMismatch
	}

	state.Info.Locked = new(big.Int).Sub(state.Info.Locked, amount)
	state.Info.Total = new(big.Int).Sub(state.Info.Total, amount)
	delete(state.Locks, settlementID)
	return nil
}

func (p *Pool) asset(token common.Address) (*assetState, error) {
	state, ok := p.assets[token]
	if !ok {
		return nil, ErrAssetNotRegistered
	}
	return state, nil
}

func (p *Pool) activeAsset(token common.Address) (*assetState, error) {
	state, err := p.asset(token)
	if err != nil {
		return nil, err
	}
	if !state.Info.Active {
		return nil, ErrPoolInactive
	}
	return state, nil
}

func (p *Pool) persist(token common.Address) error {
	if p.store == nil {
		return nil
	}
	return p.store.Save(token, p.assets[token])
}
