// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package events

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"
)

type Type string

const (
	MessageSubmitted        Type = "MessageSubmitted"
	MessageRouted           Type = "MessageRouted"
	MessageStatusChanged    Type = "MessageStatusChanged"
	MessageProcessed        Type = "MessageProcessed"
	DeliveryCompleted       Type = "DeliveryCompleted"
	SettlementInitiated     Type = "SettlementInitiated"
	SettlementStatusChanged Type = "SettlementStatusChanged"
	LiquidityChanged        Type = "LiquidityChanged"
	FeeUpdated              Type = "FeeUpdated"
	RoleGranted             Type = "RoleGranted"
	RoleRevoked             Type = "RoleRevoked"
	ComponentUpdated        Type = "ComponentUpdated"
	EnginePaused            Type = "EnginePaused"
	EngineUnpaused          Type = "EngineUnpaused"
)

// Event is one audit-trail entry. Ids that do not apply to a given event type
// are left zero. Attributes carry event-specific detail as strings so the
// whole event serializes cleanly.
type Event struct {
	Type         Type
	MessageID    common.Hash
	SettlementID common.Hash
	DeliveryHash common.Hash
	Actor        common.Address
	Attributes   map[string]string
	Timestamp    time.Time
}

// Emitter receives every state transition in the engine. It is the audit log
// and the mechanism by which observers reconstruct message lifecycle.
type Emitter interface {
	Emit(event Event)
}

// Bus logs every event and fans it out to subscribers. Fan-out is
// non-blocking: a slow subscriber loses events rather than stalling the
// pipeline.
type Bus struct {
	mu     sync.RWMutex
	subs   []chan Event
	buffer int
}

func NewBus(buffer int) *Bus {
	return &Bus{
		buffer: buffer,
	}
}

func (b *Bus) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	logEvent := log.Info().Str("event", string(event.Type))
	if event.MessageID != (common.Hash{}) {
		logEvent = logEvent.Str("messageID", event.MessageID.Hex())
	}
	if event.SettlementID != (common.Hash{}) {
		logEvent = logEvent.Str("settlementID", event.SettlementID.Hex())
	}
	if event.DeliveryHash != (common.Hash{}) {
		logEvent = logEvent.Str("deliveryHash", event.DeliveryHash.Hex())
	}
	for k, v := range event.Attributes {
		logEvent = logEvent.Str(k, v)
	}
	logEvent.Msg("Engine event")

	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs {
		select {
		case sub <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving all future events.
func (b *Bus) Subscribe() <-chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := make(chan Event, b.buffer)
	b.subs = append(b.subs, sub)
	return sub
}
