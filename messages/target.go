// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package messages

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type TargetType string

const (
	TargetContract    TargetType = "contract"
	TargetInstitution TargetType = "institution"
	TargetBoth        TargetType = "both"
)

// Target is a registered participant eligible to receive messages. A target
// is only ever valid for the exact chain it was registered on.
type Target struct {
	Address      common.Address `json:"address"`
	ChainID      uint64         `json:"chainId"`
	Type         TargetType     `json:"type"`
	Active       bool           `json:"active"`
	Metadata     []byte         `json:"metadata"`
	RegisteredAt time.Time      `json:"registeredAt"`
}
