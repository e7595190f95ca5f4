// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package coordinator

import (
	"context"
	"errors"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Fintechain/gfs-core/auth"
	"github.com/Fintechain/gfs-core/events"
	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/processor"
	"github.com/Fintechain/gfs-core/router"
	"github.com/Fintechain/gfs-core/settlement"
	"github.com/Fintechain/gfs-core/store"
)

var (
	ErrPaused             = errors.New("engine is paused")
	ErrEmptyPayload       = errors.New("payload is empty")
	ErrMessageTooLarge    = errors.New("payload exceeds max message size")
	ErrInvalidTarget      = errors.New("target is not a valid registered participant")
	ErrInvalidFormat      = errors.New("payload does not match registered message format")
	ErrInsufficientFee    = errors.New("attached fee below quoted message fee")
	ErrNotSender          = errors.New("only the original sender may cancel")
	ErrNotCancellable     = errors.New("message is not in a cancellable status")
	ErrNotRetryable       = errors.New("message is not in a retryable status")
	ErrProcessingFailed   = errors.New("message processing failed")
	ErrUnknownRelaySender = errors.New("source is not a registered relay sender for chain")
)

// Registry is the message store surface the coordinator drives.
type Registry interface {
	Register(msg *messages.Message) error
	UpdateStatus(id common.Hash, status messages.MessageStatus) error
	Get(id common.Hash) (*messages.Message, error)
	Status(id common.Hash) (messages.MessageStatus, error)
}

// Validator checks payload shape per message type.
type Validator interface {
	ValidateMessage(msgType messages.MessageType, payload []byte) bool
}

// TargetValidator checks that a (address, chain) pair is a registered, active
// participant.
type TargetValidator interface {
	IsValidTarget(addr common.Address, chainID uint64) (bool, error)
}

// MessageProcessor dispatches a message to its type-specific handler.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, msg *messages.Message) (*processor.Result, error)
}

// MessageRouter decides local vs. cross-chain delivery.
type MessageRouter interface {
	Route(ctx context.Context, msg *messages.Message, fee *big.Int) (*store.Delivery, error)
	Quote(targetChain uint64, payloadSize int) (*big.Int, error)
	MarkDeliveryCompleted(hash common.Hash) error
	DeliveryStatus(hash common.Hash) (bool, error)
	Delivery(hash common.Hash) (*store.Delivery, error)
	SetDispatcher(dispatcher router.LocalDispatcher)
}

// Settler drives the settlement state machine.
type Settler interface {
	Initiate(ctx context.Context, req settlement.Request) (common.Hash, error)
	QuoteFee(targetChain uint64, amount *big.Int) *big.Int
	ProcessIncoming(ctx context.Context, conf settlement.Confirmation) error
	Cancel(id common.Hash) error
	Get(id common.Hash) (*settlement.Settlement, error)
}

// Submission is the caller-facing message submission with fee payment
// attached.
type Submission struct {
	Type        messages.MessageType
	Sender      common.Address
	Target      common.Address
	TargetChain uint64
	Payload     []byte
	Fee         *big.Int
}

// Config carries the coordinator's own parameters; component dependencies
// are passed separately and hot-swappable.
type Config struct {
	LocalChain     uint64
	BaseFee        *big.Int
	MaxMessageSize int
}

// Coordinator is the single external entry point. It sequences registry →
// protocol validation → routing → processing → (conditional) settlement, and
// exposes the retry/cancel/emergency controls. Top-level calls are serialized
// under one mutex so each submission runs to completion before the next, the
// transactional model the registry and pool rely on.
type Coordinator struct {
	mu sync.Mutex

	localChain     uint64
	baseFee        *big.Int
	maxMessageSize int
	paused         bool

	registry Registry
	targets  TargetValidator
	protocol Validator
	proc     MessageProcessor
	router   MessageRouter
	settler  Settler

	auth    *auth.Table
	emitter events.Emitter

	results      map[common.Hash]*processor.Result
	relaySenders map[uint64]common.Address
}

func NewCoordinator(
	cfg Config,
	registry Registry,
	targets TargetValidator,
	protocol Validator,
	proc MessageProcessor,
	messageRouter MessageRouter,
	settler Settler,
	authTable *auth.Table,
	emitter events.Emitter,
) *Coordinator {
	c := &Coordinator{
		localChain:     cfg.LocalChain,
		baseFee:        new(big.Int).Set(cfg.BaseFee),
		maxMessageSize: cfg.MaxMessageSize,
		registry:       registry,
		targets:        targets,
		protocol:       protocol,
		proc:           proc,
		router:         messageRouter,
		settler:        settler,
		auth:           authTable,
		emitter:        emitter,
		results:        make(map[common.Hash]*processor.Result),
		relaySenders:   make(map[uint64]common.Address),
	}
	messageRouter.SetDispatcher(c)
	return c
}

// SubmitMessage validates, registers and routes a submission. All validation
// and fee checks run before any state is mutated, so a rejected submission
// leaves no trace and keeps no fee. Local messages are processed, and settled
// when required, within this call; cross-chain messages return with delivery
// initiated and complete asynchronously.
func (c *Coordinator) SubmitMessage(ctx context.Context, sub Submission) (common.Hash, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return common.Hash{}, ErrPaused
	}
	if len(sub.Payload) == 0 {
		return common.Hash{}, ErrEmptyPayload
	}
	if len(sub.Payload) > c.maxMessageSize {
		return common.Hash{}, ErrMessageTooLarge
	}
	if sub.Target == (common.Address{}) {
		return common.Hash{}, ErrInvalidTarget
	}

	valid, err := c.targets.IsValidTarget(sub.Target, sub.TargetChain)
	if err != nil {
		return common.Hash{}, err
	}
	if !valid {
		return common.Hash{}, ErrInvalidTarget
	}
	if !c.protocol.ValidateMessage(sub.Type, sub.Payload) {
		return common.Hash{}, ErrInvalidFormat
	}

	deliveryFee, err := c.router.Quote(sub.TargetChain, len(sub.Payload))
	if err != nil {
		return common.Hash{}, err
	}
	total := new(big.Int).Add(c.baseFee, deliveryFee)
	if sub.Fee == nil || sub.Fee.Cmp(total) < 0 {
		return common.Hash{}, ErrInsufficientFee
	}

	msg := messages.NewMessage(sub.Type, sub.Sender, sub.Target, sub.TargetChain, sub.Payload)
	if err := c.registry.Register(msg); err != nil {
		return common.Hash{}, err
	}
	c.emitter.Emit(events.Event{
		Type:      events.MessageSubmitted,
		MessageID: msg.ID,
		Actor:     sub.Sender,
		Attributes: map[string]string{
			"type":        string(msg.Type),
			"targetChain": chainString(msg.TargetChain),
		},
	})

	routingFee := new(big.Int).Sub(sub.Fee, c.baseFee)
	if _, err := c.router.Route(ctx, msg, routingFee); err != nil {
		// local processing failures are recorded against the message and
		// surface through GetMessageResult, not as a submission failure
		log.Debug().Err(err).Str("messageID", msg.ID.Hex()).Msg("Routing finished with failure")
	}
	return msg.ID, nil
}

// QuoteMessageFee returns the base fee and the delivery fee a submission of
// this shape must attach. The sum is a hard lower bound accepted by
// SubmitMessage.
func (c *Coordinator) QuoteMessageFee(sub Submission) (*big.Int, *big.Int, error) {
	deliveryFee, err := c.router.Quote(sub.TargetChain, len(sub.Payload))
	if err != nil {
		return nil, nil, err
	}
	return new(big.Int).Set(c.baseFee), deliveryFee, nil
}

// GetMessageResult reports the latest processing outcome for id. Messages
// without a recorded processing attempt derive success from their lifecycle
// status.
func (c *Coordinator) GetMessageResult(id common.Hash) (bool, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if result, ok := c.results[id]; ok {
		return result.Success, result.Data, nil
	}

	status, err := c.registry.Status(id)
	if err != nil {
		return false, nil, err
	}
	switch status {
	case messages.MessageProcessed, messages.MessageSettled:
		return true, nil, nil
	default:
		return false, nil, nil
	}
}

// GetMessageStatus returns the registry lifecycle status for id.
func (c *Coordinator) GetMessageStatus(id common.Hash) (messages.MessageStatus, error) {
	return c.registry.Status(id)
}

// RetryMessage re-attempts routing and processing for a message that is not
// yet terminal, against fresh fee payment. Identical parameters re-derive the
// same message and settlement ids, so a retry converges on existing records
// instead of forking state.
func (c *Coordinator) RetryMessage(ctx context.Context, id common.Hash, fee *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.paused {
		return ErrPaused
	}

	msg, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	if msg.Status != messages.MessagePending && msg.Status != messages.MessageFailed {
		return ErrNotRetryable
	}

	deliveryFee, err := c.router.Quote(msg.TargetChain, len(msg.Payload))
	if err != nil {
		return err
	}
	total := new(big.Int).Add(c.baseFee, deliveryFee)
	if fee == nil || fee.Cmp(total) < 0 {
		return ErrInsufficientFee
	}

	if msg.Status == messages.MessageFailed {
		if err := c.setStatus(id, messages.MessagePending); err != nil {
			return err
		}
		msg.Status = messages.MessagePending
	}

	routingFee := new(big.Int).Sub(fee, c.baseFee)
	if _, err := c.router.Route(ctx, msg, routingFee); err != nil {
		log.Debug().Err(err).Str("messageID", id.Hex()).Msg("Retry finished with failure")
	}
	return nil
}

// CancelMessage is restricted to the original sender and only legal while
// the message is still pending.
func (c *Coordinator) CancelMessage(ctx context.Context, id common.Hash, by common.Address) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	if msg.Sender != by {
		return ErrNotSender
	}
	if msg.Status != messages.MessagePending {
		return ErrNotCancellable
	}

	return c.setStatus(id, messages.MessageCancelled)
}

// EmergencyCancelMessage bypasses the sender and pending-only restrictions
// under the emergency role. Terminal messages stay terminal.
func (c *Coordinator) EmergencyCancelMessage(ctx context.Context, id common.Hash, by common.Address) error {
	if err := c.auth.Authorize(auth.OpEmergencyCancel, by); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	msg, err := c.registry.Get(id)
	if err != nil {
		return err
	}
	if msg.Status.IsTerminal() {
		return ErrNotCancellable
	}

	return c.setStatus(id, messages.MessageCancelled)
}

// DispatchLocal is the processing path for locally routed messages. The
// router calls it synchronously during Route. A handler or settlement
// failure marks the message failed and leaves it explicitly retryable; it is
// never reported as a submission error.
func (c *Coordinator) DispatchLocal(ctx context.Context, msg *messages.Message) error {
	if err := c.setStatus(msg.ID, messages.MessageDelivered); err != nil {
		return err
	}

	result, err := c.proc.ProcessMessage(ctx, msg)
	if err != nil {
		if statusErr := c.setStatus(msg.ID, messages.MessageFailed); statusErr != nil {
			return statusErr
		}
		return err
	}
	c.results[msg.ID] = result

	if !result.Success {
		if err := c.setStatus(msg.ID, messages.MessageFailed); err != nil {
			return err
		}
		return ErrProcessingFailed
	}

	if err := c.setStatus(msg.ID, messages.MessageProcessed); err != nil {
		return err
	}

	switch result.Action {
	case processor.ActionSettle:
		return c.settleFor(ctx, msg, result)
	case processor.ActionCancel:
		c.applyCancellation(msg, result)
	}
	return nil
}

// settleFor initiates the settlement a processed message requires and
// reconciles the message status with the actual settlement outcome.
func (c *Coordinator) settleFor(ctx context.Context, msg *messages.Message, result *processor.Result) error {
	req := *result.Settlement
	req.Fee = c.settler.QuoteFee(req.TargetChain, req.Amount)

	id, err := c.settler.Initiate(ctx, req)
	if err != nil && !errors.Is(err, settlement.ErrDuplicateSettlement) {
		log.Warn().Err(err).
			Str("messageID", msg.ID.Hex()).
			Str("settlementID", id.Hex()).
			Msg("Settlement failed")
		if statusErr := c.setStatus(msg.ID, messages.MessageFailed); statusErr != nil {
			return statusErr
		}
		return err
	}

	record, err := c.settler.Get(id)
	if err != nil {
		return err
	}
	switch record.Status {
	case settlement.StatusCompleted:
		return c.setStatus(msg.ID, messages.MessageSettled)
	case settlement.StatusFailed, settlement.StatusCancelled:
		return c.setStatus(msg.ID, messages.MessageFailed)
	default:
		// cross-chain leg still in flight, message advances on confirmation
		return nil
	}
}

// applyCancellation acts on a processed camt.056-style request: the
// referenced message is cancelled when it is still pending and was submitted
// by the same sender.
func (c *Coordinator) applyCancellation(msg *messages.Message, result *processor.Result) {
	originalID := common.BytesToHash(result.Data)
	original, err := c.registry.Get(originalID)
	if err != nil {
		log.Debug().Str("messageID", originalID.Hex()).Msg("Cancellation references unknown message")
		return
	}
	if original.Sender != msg.Sender || original.Status != messages.MessagePending {
		log.Debug().
			Str("messageID", originalID.Hex()).
			Str("status", string(original.Status)).
			Msg("Cancellation request not applicable")
		return
	}

	if err := c.setStatus(originalID, messages.MessageCancelled); err != nil {
		log.Err(err).Str("messageID", originalID.Hex()).Msg("Failed cancelling referenced message")
	}
}

func (c *Coordinator) setStatus(id common.Hash, status messages.MessageStatus) error {
	if err := c.registry.UpdateStatus(id, status); err != nil {
		return err
	}
	c.emitter.Emit(events.Event{
		Type:      events.MessageStatusChanged,
		MessageID: id,
		Attributes: map[string]string{
			"status": string(status),
		},
	})
	return nil
}

func chainString(chainID uint64) string {
	return new(big.Int).SetUint64(chainID).String()
}
