// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package settlement

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Fintechain/gfs-core/events"
)

var (
	ErrDuplicateSettlement = errors.New("settlement with this id already exists")
	ErrInsufficientFee     = errors.New("attached fee below settlement fee quote")
	ErrNotCancellable      = errors.New("settlement can only be cancelled while pending")
)

// LiquidityLocker is the pool surface the controller drives. Lock reserves
// funds against a settlement id, Release returns them, Settle consumes them
// with a local credit and Consume without one.
type LiquidityLocker interface {
	Lock(token common.Address, amount *big.Int, settlementID common.Hash) error
	Release(token common.Address, amount *big.Int, settlementID common.Hash) error
	Settle(token common.Address, amount *big.Int, settlementID common.Hash, recipient common.Address) error
	Consume(token common.Address, amount *big.Int, settlementID common.Hash) error
}

// BridgeClient is the external token-bridge facility used for cross-chain
// settlement legs. SendTransfer only initiates the transfer; the outcome
// arrives later through ProcessIncoming.
type BridgeClient interface {
	SendTransfer(ctx context.Context, targetChain uint64, token common.Address, amount *big.Int, recipient common.Address, settlementID common.Hash) error
}

// FeeParams prices settlement initiation. Cross-chain settlements pay Base
// plus CrossChainBPS basis points of the transferred amount.
type FeeParams struct {
	Base          *big.Int
	CrossChainBPS int64
}

// Controller drives the settlement state machine:
//
//	pending --lock liquidity--> in_progress --transfer or bridge send--> completed
//
// with failed reachable from any step and cancelled only from pending. Guard
// conditions on status are what keep a late cross-chain confirmation from
// resurrecting a cancelled or failed settlement.
type Controller struct {
	mu sync.Mutex

	localChain uint64
	store      *Store
	pool       LiquidityLocker
	bridge     BridgeClient
	fees       FeeParams
	emitter    events.Emitter
}

func NewController(localChain uint64, store *Store, pool LiquidityLocker, bridge BridgeClient, fees FeeParams, emitter events.Emitter) *Controller {
	return &Controller{
		localChain: localChain,
		store:      store,
		pool:       pool,
		bridge:     bridge,
		fees:       fees,
		emitter:    emitter,
	}
}

// QuoteFee is side-effect free and upper-bounds what Initiate will require
// for the same inputs.
func (c *Controller) QuoteFee(targetChain uint64, amount *big.Int) *big.Int {
	fee := new(big.Int).Set(c.fees.Base)
	if targetChain != c.localChain {
		premium := new(big.Int).Mul(amount, big.NewInt(c.fees.CrossChainBPS))
		premium.Div(premium, big.NewInt(10000))
		fee.Add(fee, premium)
	}
	return fee
}

// Initiate derives the settlement id and runs the state machine as far as it
// can synchronously. Same-chain settlements complete in this call;
// cross-chain ones stay in_progress with liquidity locked until a
// confirmation arrives. A retried message with identical parameters collides
// on the id and is rejected, not double-spent.
func (c *Controller) Initiate(ctx context.Context, req Request) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id := SettlementID(req.MessageID, req.SourceToken, req.TargetToken, req.Amount, req.TargetChain, req.Recipient)

	exists, err := c.store.Exists(id)
	if err != nil {
		return common.Hash{}, err
	}
	if exists {
		return id, ErrDuplicateSettlement
	}

	if req.Fee == nil || req.Fee.Cmp(c.QuoteFee(req.TargetChain, req.Amount)) < 0 {
		return common.Hash{}, ErrInsufficientFee
	}

	settlement := &Settlement{
		ID:          id,
		MessageID:   req.MessageID,
		SourceToken: req.SourceToken,
		TargetToken: req.TargetToken,
		Amount:      new(big.Int).Set(req.Amount),
		SourceChain: c.localChain,
		TargetChain: req.TargetChain,
		Sender:      req.Sender,
		Recipient:   req.Recipient,
		Status:      StatusPending,
		Timestamp:   time.Now(),
	}
	if err := c.store.Create(settlement); err != nil {
		return common.Hash{}, err
	}
	c.emitStatus(settlement.ID, settlement.MessageID, StatusPending)

	if err := c.pool.Lock(req.SourceToken, req.Amount, id); err != nil {
		if failErr := c.store.UpdateStatus(id, StatusFailed); failErr != nil {
			return id, failErr
		}
		c.emitStatus(id, req.MessageID, StatusFailed)
		return id, err
	}
	if err := c.store.UpdateStatus(id, StatusInProgress); err != nil {
		return id, err
	}
	c.emitStatus(id, req.MessageID, StatusInProgress)

	if req.TargetChain == c.localChain {
		return id, c.completeLocal(settlement)
	}
	return id, c.forwardCrossChain(ctx, settlement)
}

// ProcessIncoming applies a remote-side settlement outcome. It is idempotent:
// confirmations for settlements already in a terminal status are no-ops, so
// relay redelivery and late confirmations after cancellation are harmless.
func (c *Controller) ProcessIncoming(ctx context.Context, conf Confirmation) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	settlement, err := c.store.Get(conf.SettlementID)
	if err != nil {
		return err
	}
	if settlement.Status.IsTerminal() {
		log.Debug().
			Str("settlementID", conf.SettlementID.Hex()).
			Str("status", string(settlement.Status)).
			Msg("Ignoring confirmation for terminal settlement")
		return nil
	}
	if settlement.Status != StatusInProgress {
		return nil
	}

	if !conf.Success {
		return c.fail(settlement)
	}

	if err := c.pool.Consume(settlement.SourceToken, settlement.Amount, settlement.ID); err != nil {
		return err
	}
	if err := c.store.UpdateStatus(settlement.ID, StatusCompleted); err != nil {
		return err
	}
	c.emitStatus(settlement.ID, settlement.MessageID, StatusCompleted)
	return nil
}

// Cancel is only legal from pending, before any liquidity is locked.
func (c *Controller) Cancel(id common.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	settlement, err := c.store.Get(id)
	if err != nil {
		return err
	}
	if settlement.Status != StatusPending {
		return ErrNotCancellable
	}

	if err := c.store.UpdateStatus(id, StatusCancelled); err != nil {
		return err
	}
	c.emitStatus(id, settlement.MessageID, StatusCancelled)
	return nil
}

// Get returns the settlement record for id.
func (c *Controller) Get(id common.Hash) (*Settlement, error) {
	return c.store.Get(id)
}

// ExpireStale fails every open settlement older than maxAge, releasing its
// locked liquidity. This is the remote-timeout path for cross-chain legs
// whose confirmation never arrived.
func (c *Controller) ExpireStale(ctx context.Context, maxAge time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	open, err := c.store.Open()
	if err != nil {
		return err
	}

	cutoff := time.Now().Add(-maxAge)
	for _, id := range open {
		settlement, err := c.store.Get(id)
		if err != nil {
			return err
		}
		if settlement.Timestamp.After(cutoff) {
			continue
		}

		log.Warn().
			Str("settlementID", id.Hex()).
			Str("status", string(settlement.Status)).
			Msg("Expiring stale settlement")
		switch settlement.Status {
		case StatusPending:
			if err := c.store.UpdateStatus(id, StatusCancelled); err != nil {
				return err
			}
			c.emitStatus(id, settlement.MessageID, StatusCancelled)
		case StatusInProgress:
			if err := c.fail(settlement); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Controller) completeLocal(settlement *Settlement) error {
	if err := c.pool.Settle(settlement.SourceToken, settlement.Amount, settlement.ID, settlement.Recipient); err != nil {
		if failErr := c.fail(settlement); failErr != nil {
			return failErr
		}
		return err
	}
	if err := c.store.UpdateStatus(settlement.ID, StatusCompleted); err != nil {
		return err
	}
	c.emitStatus(settlement.ID, settlement.MessageID, StatusCompleted)
	return nil
}

func (c *Controller) forwardCrossChain(ctx context.Context, settlement *Settlement) error {
	err := c.bridge.SendTransfer(ctx, settlement.TargetChain, settlement.TargetToken, settlement.Amount, settlement.Recipient, settlement.ID)
	if err != nil {
		if failErr := c.fail(settlement); failErr != nil {
			return failErr
		}
		return err
	}
	// stays in_progress until ProcessIncoming reports the remote outcome
	return nil
}

func (c *Controller) fail(settlement *Settlement) error {
	if err := c.pool.Release(settlement.SourceToken, settlement.Amount, settlement.ID); err != nil {
		return err
	}
	if err := c.store.UpdateStatus(settlement.ID, StatusFailed); err != nil {
		return err
	}
	c.emitStatus(settlement.ID, settlement.MessageID, StatusFailed)
	return nil
}

func (c *Controller) emitStatus(id, messageID common.Hash, status Status) {
	c.emitter.Emit(events.Event{
		Type:         events.SettlementStatusChanged,
		MessageID:    messageID,
		SettlementID: id,
		Attributes: map[string]string{
			"status": string(status),
		},
	})
}
