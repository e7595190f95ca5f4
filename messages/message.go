// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type MessageType string

const (
	// CustomerCreditTransfer is a pacs.008-style customer credit transfer,
	// the canonical settlement-carrying instruction.
	CustomerCreditTransfer MessageType = "pacs.008"
	// FICreditTransfer is a pacs.009-style financial-institution transfer.
	FICreditTransfer MessageType = "pacs.009"
	// PaymentCancellationRequest is a camt.056-style cancellation request
	// referencing a previously submitted instruction.
	PaymentCancellationRequest MessageType = "camt.056"
	// PaymentStatusReport is a pacs.002-style status notification. It never
	// carries value.
	PaymentStatusReport MessageType = "pacs.002"
)

type MessageStatus string

const (
	MessagePending   MessageStatus = "pending"
	MessageDelivered MessageStatus = "delivered"
	MessageProcessed MessageStatus = "processed"
	MessageFailed    MessageStatus = "failed"
	MessageSettled   MessageStatus = "settled"
	MessageCancelled MessageStatus = "cancelled"
)

// statusTransitions is the full transition graph for message lifecycle
// statuses. Transitions move strictly forward except for cancellation and
// explicit retry of a failed message.
var statusTransitions = map[MessageStatus][]MessageStatus{
	MessagePending:   {MessageDelivered, MessageFailed, MessageCancelled},
	MessageDelivered: {MessageProcessed, MessageFailed, MessageCancelled},
	MessageProcessed: {MessageSettled, MessageFailed, MessageCancelled},
	MessageFailed:    {MessagePending, MessageCancelled},
	MessageSettled:   {},
	MessageCancelled: {},
}

// CanTransitionTo reports whether moving from s to next is a legal lifecycle
// transition.
func (s MessageStatus) CanTransitionTo(next MessageStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transitions are possible from s.
func (s MessageStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0
}

// Message is a structured financial instruction submitted for routing and
// processing. Messages are append-only: once registered they are never
// deleted, only their status advances.
type Message struct {
	ID          common.Hash    `json:"id"`
	Type        MessageType    `json:"type"`
	Hash        common.Hash    `json:"hash"`
	Sender      common.Address `json:"sender"`
	Target      common.Address `json:"target"`
	TargetChain uint64         `json:"targetChain"`
	Timestamp   time.Time      `json:"timestamp"`
	Payload     []byte         `json:"payload"`
	Status      MessageStatus  `json:"status"`
}

// NewMessage constructs a pending message with its content hash and
// deterministic id derived from the submission parameters.
func NewMessage(msgType MessageType, sender, target common.Address, targetChain uint64, payload []byte) *Message {
	contentHash := crypto.Keccak256Hash(payload)
	return &Message{
		ID:          MessageID(msgType, contentHash, sender, target, targetChain),
		Type:        msgType,
		Hash:        contentHash,
		Sender:      sender,
		Target:      target,
		TargetChain: targetChain,
		Timestamp:   time.Now(),
		Payload:     payload,
		Status:      MessagePending,
	}
}

// MessageID derives the message identity as a hash over type, content hash,
// sender, target and target chain. Byte-identical submissions collide into
// the same id, which is what makes duplicate detection and retry
// deduplication work.
func MessageID(msgType MessageType, contentHash common.Hash, sender, target common.Address, targetChain uint64) common.Hash {
	chain := make([]byte, 8)
	binary.BigEndian.PutUint64(chain, targetChain)
	return crypto.Keccak256Hash(
		[]byte(msgType),
		contentHash.Bytes(),
		sender.Bytes(),
		target.Bytes(),
		chain,
	)
}
