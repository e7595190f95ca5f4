// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package settlement

import (
	"encoding/binary"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether s permits no further transitions.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// Settlement is one value-transfer attempt spawned by a message. One message
// may spawn multiple attempts but identical parameters collide into the same
// id, so only one can reach completed.
type Settlement struct {
	ID          common.Hash    `json:"id"`
	MessageID   common.Hash    `json:"messageId"`
	SourceToken common.Address `json:"sourceToken"`
	TargetToken common.Address `json:"targetToken"`
	Amount      *big.Int       `json:"amount"`
	SourceChain uint64         `json:"sourceChain"`
	TargetChain uint64         `json:"targetChain"`
	Sender      common.Address `json:"sender"`
	Recipient   common.Address `json:"recipient"`
	Status      Status         `json:"status"`
	Timestamp   time.Time      `json:"timestamp"`
}

// Request carries the parameters of a settlement to initiate. Fee is the
// value attached to cover the settlement fee quote.
type Request struct {
	MessageID   common.Hash
	SourceToken common.Address
	TargetToken common.Address
	Amount      *big.Int
	TargetChain uint64
	Sender      common.Address
	Recipient   common.Address
	Fee         *big.Int
}

// Confirmation is the callback body reporting the remote-side outcome of a
// cross-chain settlement.
type Confirmation struct {
	SettlementID common.Hash `json:"settlementId"`
	Success      bool        `json:"success"`
}

// SettlementID derives the settlement identity from its parameters so that
// identical settlement requests collide deterministically.
func SettlementID(messageID common.Hash, sourceToken, targetToken common.Address, amount *big.Int, targetChain uint64, recipient common.Address) common.Hash {
	chain := make([]byte, 8)
	binary.BigEndian.PutUint64(chain, targetChain)
	return crypto.Keccak256Hash(
		messageID.Bytes(),
		sourceToken.Bytes(),
		targetToken.Bytes(),
		common.LeftPadBytes(amount.Bytes(), 32),
		chain,
		recipient.Bytes(),
	)
}
