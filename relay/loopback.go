// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package relay

import (
	"context"
	"encoding/binary"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/rs/zerolog/log"

	"github.com/Fintechain/gfs-core/settlement"
)

// DeliveryConfirmer receives outbound delivery acknowledgements.
type DeliveryConfirmer interface {
	HandleDeliveryConfirmation(hash common.Hash) error
}

// SettlementConfirmer receives remote settlement outcomes.
type SettlementConfirmer interface {
	ProcessSettlementConfirmation(ctx context.Context, conf settlement.Confirmation) error
}

// Loopback is a single-process relay: it accepts payloads and bridge
// transfers and confirms them back after a delay, standing in for the real
// cross-chain transport in dev wiring and tests. Confirmations are
// asynchronous relative to submission, matching the two-phase protocol the
// engine is built around.
type Loopback struct {
	mu    sync.Mutex
	nonce uint64

	delay       time.Duration
	deliveries  DeliveryConfirmer
	settlements SettlementConfirmer
}

func NewLoopback(delay time.Duration) *Loopback {
	return &Loopback{
		delay: delay,
	}
}

// SetDeliveryConfirmer installs the outbound acknowledgement sink. Wired
// after the coordinator exists.
func (l *Loopback) SetDeliveryConfirmer(confirmer DeliveryConfirmer) {
	l.deliveries = confirmer
}

func (l *Loopback) SetSettlementConfirmer(confirmer SettlementConfirmer) {
	l.settlements = confirmer
}

// Submit assigns a delivery hash and confirms the delivery after the
// configured delay.
func (l *Loopback) Submit(ctx context.Context, targetChain uint64, target common.Address, payload []byte, fee *big.Int) (common.Hash, error) {
	l.mu.Lock()
	l.nonce++
	nonce := make([]byte, 8)
	binary.BigEndian.PutUint64(nonce, l.nonce)
	hash := crypto.Keccak256Hash(payload, nonce)
	l.mu.Unlock()

	go func() {
		time.Sleep(l.delay)
		if l.deliveries == nil {
			return
		}
		if err := l.deliveries.HandleDeliveryConfirmation(hash); err != nil {
			log.Err(err).Str("deliveryHash", hash.Hex()).Msg("Loopback delivery confirmation failed")
		}
	}()
	return hash, nil
}

// SendTransfer reports the transfer as completed on the remote side after
// the configured delay.
func (l *Loopback) SendTransfer(ctx context.Context, targetChain uint64, token common.Address, amount *big.Int, recipient common.Address, settlementID common.Hash) error {
	go func() {
		time.Sleep(l.delay)
		if l.settlements == nil {
			return
		}
		conf := settlement.Confirmation{
			SettlementID: settlementID,
			Success:      true,
		}
		if err := l.settlements.ProcessSettlementConfirmation(context.Background(), conf); err != nil {
			log.Err(err).Str("settlementID", settlementID.Hex()).Msg("Loopback settlement confirmation failed")
		}
	}()
	return nil
}
