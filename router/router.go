// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package router

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Fintechain/gfs-core/events"
	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/store"
)

var (
	ErrUnknownChain     = errors.New("no fee parameters for target chain")
	ErrInsufficientFee  = errors.New("attached fee below routing fee quote")
	ErrExceedsGasLimit  = errors.New("payload exceeds target chain gas limit")
	ErrZeroGasLimit     = errors.New("gas limit must be non-zero")
	ErrNoDispatcher     = errors.New("no local dispatcher configured")
	ErrDeliveryNotFound = store.ErrDeliveryNotFound
)

// RelayClient is the external relay that carries opaque payloads to another
// chain. Submit only initiates delivery and returns the relay-assigned
// correlation hash; completion arrives later via MarkDeliveryCompleted.
type RelayClient interface {
	Submit(ctx context.Context, targetChain uint64, target common.Address, payload []byte, fee *big.Int) (common.Hash, error)
}

// LocalDispatcher executes a message that resolves on the local chain. The
// coordinator installs itself here so local routing is a direct synchronous
// call into the processing path.
type LocalDispatcher interface {
	DispatchLocal(ctx context.Context, msg *messages.Message) error
}

// ChainFees prices delivery to one chain: a flat base gas cost plus gas per
// payload byte, converted at GasPrice.
type ChainFees struct {
	BaseGas    uint64
	GasPerByte uint64
	GasPrice   *big.Int
}

// Router decides local vs. cross-chain delivery and computes delivery fees.
// Quotes are a hard lower bound on what Route requires for the same inputs,
// so a caller attaching the quoted fee never under-funds.
type Router struct {
	mu sync.RWMutex

	localChain uint64
	relay      RelayClient
	dispatcher LocalDispatcher
	deliveries *store.DeliveryStore
	emitter    events.Emitter

	fees      map[uint64]ChainFees
	gasLimits map[uint64]uint64
}

func NewRouter(localChain uint64, relay RelayClient, deliveries *store.DeliveryStore, emitter events.Emitter) *Router {
	return &Router{
		localChain: localChain,
		relay:      relay,
		deliveries: deliveries,
		emitter:    emitter,
		fees:       make(map[uint64]ChainFees),
		gasLimits:  make(map[uint64]uint64),
	}
}

// SetDispatcher installs the local processing path. Set once at wiring time.
func (r *Router) SetDispatcher(dispatcher LocalDispatcher) {
	r.dispatcher = dispatcher
}

// SetChainFees replaces fee parameters for chainID. Affects only future
// quotes and routes.
func (r *Router) SetChainFees(chainID uint64, fees ChainFees) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fees[chainID] = fees
}

func (r *Router) SetChainGasLimit(chainID uint64, limit uint64) error {
	if limit == 0 {
		return ErrZeroGasLimit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.gasLimits[chainID] = limit
	return nil
}

// Quote computes the delivery fee for a payload of payloadSize bytes to
// targetChain. It is side-effect free and safe to call before submission.
func (r *Router) Quote(targetChain uint64, payloadSize int) (*big.Int, error) {
	if targetChain == r.localChain {
		return big.NewInt(0), nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.quote(targetChain, payloadSize)
}

// Route delivers msg: a direct synchronous dispatch for the local chain, a
// relay submission otherwise. The returned delivery for a cross-chain route
// is incomplete until the relay confirms.
func (r *Router) Route(ctx context.Context, msg *messages.Message, fee *big.Int) (*store.Delivery, error) {
	if msg.TargetChain == r.localChain {
		return r.routeLocal(ctx, msg)
	}
	return r.routeCrossChain(ctx, msg, fee)
}

// MarkDeliveryCompleted is invoked by the relay callback. The relay may
// redeliver, so completing an already-completed delivery is a no-op.
func (r *Router) MarkDeliveryCompleted(hash common.Hash) error {
	delivery, err := r.deliveries.Get(hash)
	if err != nil {
		return err
	}
	if delivery.Completed {
		return nil
	}

	delivery.Completed = true
	delivery.Success = true
	if err := r.deliveries.Store(delivery); err != nil {
		return err
	}

	r.emitter.Emit(events.Event{
		Type:         events.DeliveryCompleted,
		MessageID:    delivery.MessageID,
		DeliveryHash: hash,
	})
	return nil
}

// DeliveryStatus is idempotent and safe to poll.
func (r *Router) DeliveryStatus(hash common.Hash) (bool, error) {
	delivery, err := r.deliveries.Get(hash)
	if err != nil {
		return false, err
	}
	return delivery.Completed, nil
}

// Delivery returns the full delivery record for hash.
func (r *Router) Delivery(hash common.Hash) (*store.Delivery, error) {
	return r.deliveries.Get(hash)
}

func (r *Router) routeLocal(ctx context.Context, msg *messages.Message) (*store.Delivery, error) {
	if r.dispatcher == nil {
		return nil, ErrNoDispatcher
	}

	err := r.dispatcher.DispatchLocal(ctx, msg)
	delivery := &store.Delivery{
		MessageID: msg.ID,
		Success:   err == nil,
		Completed: true,
		Timestamp: time.Now(),
	}

	r.emitter.Emit(events.Event{
		Type:      events.MessageRouted,
		MessageID: msg.ID,
		Attributes: map[string]string{
			"local":   "true",
			"success": boolString(err == nil),
		},
	})
	return delivery, err
}

func (r *Router) routeCrossChain(ctx context.Context, msg *messages.Message, fee *big.Int) (*store.Delivery, error) {
	r.mu.RLock()
	required, err := r.quote(msg.TargetChain, len(msg.Payload))
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if fee == nil || fee.Cmp(required) < 0 {
		return nil, ErrInsufficientFee
	}

	envelope := messages.PackEnvelope(msg.ID, msg.Sender, msg.Target, msg.Payload)
	hash, err := r.relay.Submit(ctx, msg.TargetChain, msg.Target, envelope, fee)
	if err != nil {
		return nil, err
	}

	delivery := &store.Delivery{
		Hash:      hash,
		MessageID: msg.ID,
		Completed: false,
		Timestamp: time.Now(),
	}
	if err := r.deliveries.Store(delivery); err != nil {
		return nil, err
	}

	log.Info().
		Str("messageID", msg.ID.Hex()).
		Str("deliveryHash", hash.Hex()).
		Uint64("targetChain", msg.TargetChain).
		Msg("Submitted message to relay")
	r.emitter.Emit(events.Event{
		Type:         events.MessageRouted,
		MessageID:    msg.ID,
		DeliveryHash: hash,
		Attributes: map[string]string{
			"local": "false",
		},
	})
	return delivery, nil
}

// quote expects r.mu to be held.
func (r *Router) quote(targetChain uint64, payloadSize int) (*big.Int, error) {
	fees, ok := r.fees[targetChain]
	if !ok {
		return nil, ErrUnknownChain
	}

	gas := fees.BaseGas + fees.GasPerByte*uint64(payloadSize)
	if limit, ok := r.gasLimits[targetChain]; ok && gas > limit {
		return nil, ErrExceedsGasLimit
	}

	return new(big.Int).Mul(new(big.Int).SetUint64(gas), fees.GasPrice), nil
}

func boolString(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
