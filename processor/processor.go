// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Fintechain/gfs-core/events"
	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/settlement"
)

type Action string

const (
	ActionNotify       Action = "notification_only"
	ActionSettle       Action = "settlement_required"
	ActionCrossChain   Action = "cross_chain_action"
	ActionStatusUpdate Action = "status_update"
	ActionCancel       Action = "cancellation"
)

var ErrNoHandlerRegistered = errors.New("no handler registered for message type")

// Result is the outcome of one processing attempt. Retried attempts produce
// a fresh result keyed by the same message. SettlementID is set when the
// required action is settlement, before the settlement itself is confirmed;
// the coordinator reconciles it against actual settlement status.
type Result struct {
	Action       Action
	Success      bool
	Data         []byte
	SettlementID common.Hash
	Settlement   *settlement.Request
}

// Handler is a pluggable, message-type-specific business-logic unit.
type Handler interface {
	HandleMessage(ctx context.Context, msg *messages.Message) (*Result, error)
}

// Processor dispatches messages to registered per-type handlers and shapes
// their outcome into a Result. Handler failures, including panics, are
// captured in the result instead of aborting the surrounding call; the
// coordinator decides what a failure means for the message.
type Processor struct {
	mu       sync.RWMutex
	handlers map[messages.MessageType]Handler
	actions  map[messages.MessageType]Action
	emitter  events.Emitter
}

func NewProcessor(emitter events.Emitter) *Processor {
	return &Processor{
		handlers: make(map[messages.MessageType]Handler),
		actions:  make(map[messages.MessageType]Action),
		emitter:  emitter,
	}
}

// RegisterHandler maps a message type to its handler and required action.
func (p *Processor) RegisterHandler(msgType messages.MessageType, handler Handler, action Action) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers[msgType] = handler
	p.actions[msgType] = action
}

func (p *Processor) ProcessMessage(ctx context.Context, msg *messages.Message) (result *Result, err error) {
	p.mu.RLock()
	handler, ok := p.handlers[msg.Type]
	action := p.actions[msg.Type]
	p.mu.RUnlock()
	if !ok {
		return nil, ErrNoHandlerRegistered
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("messageID", msg.ID.Hex()).
				Msgf("Handler panicked: %v", r)
			result = &Result{
				Action:  action,
				Success: false,
				Data:    []byte(fmt.Sprintf("handler panic: %v", r)),
			}
			err = nil
		}
		p.emitter.Emit(events.Event{
			Type:      events.MessageProcessed,
			MessageID: msg.ID,
			Attributes: map[string]string{
				"action":  string(result.Action),
				"success": fmt.Sprintf("%t", result.Success),
			},
		})
	}()

	result, err = handler.HandleMessage(ctx, msg)
	if err != nil {
		result = &Result{
			Action:  action,
			Success: false,
			Data:    []byte(err.Error()),
		}
		return result, nil
	}
	// handlers may legally return (nil, nil) for a no-op
	if result == nil {
		result = &Result{Success: true}
	}
	result.Action = action

	if action == ActionSettle && result.Settlement != nil {
		req := result.Settlement
		result.SettlementID = settlement.SettlementID(
			msg.ID,
			req.SourceToken,
			req.TargetToken,
			req.Amount,
			req.TargetChain,
			req.Recipient,
		)
	}
	return result, nil
}
