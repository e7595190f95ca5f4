// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package coordinator

import (
	"context"
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog/log"

	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/settlement"
)

// HandleDeliveryConfirmation is the relay callback acknowledging an outbound
// cross-chain delivery. It is idempotent under relay redelivery, and a
// confirmation arriving after the message was cancelled leaves the message
// cancelled.
func (c *Coordinator) HandleDeliveryConfirmation(hash common.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.router.MarkDeliveryCompleted(hash); err != nil {
		return err
	}

	delivery, err := c.router.Delivery(hash)
	if err != nil {
		return err
	}

	status, err := c.registry.Status(delivery.MessageID)
	if err != nil {
		return err
	}
	if status != messages.MessagePending {
		// late or repeated confirmation, nothing left to advance
		return nil
	}
	return c.setStatus(delivery.MessageID, messages.MessageDelivered)
}

// HandleRelayMessage is the inbound relay surface. It verifies the source is
// a registered relay sender for that chain, decodes the envelope and forwards
// the inner payload to settlement processing. Redelivered confirmations
// no-op inside the settlement controller.
func (c *Coordinator) HandleRelayMessage(ctx context.Context, payload []byte, sourceAddr common.Address, sourceChain uint64, deliveryHash common.Hash) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	registered, ok := c.relaySenders[sourceChain]
	if !ok || registered != sourceAddr {
		return ErrUnknownRelaySender
	}

	env, err := messages.UnpackEnvelope(payload)
	if err != nil {
		return err
	}

	conf := settlement.Confirmation{}
	if err := json.Unmarshal(env.Payload, &conf); err != nil {
		return err
	}

	log.Info().
		Str("deliveryHash", deliveryHash.Hex()).
		Str("settlementID", conf.SettlementID.Hex()).
		Uint64("sourceChain", sourceChain).
		Msg("Received relay settlement confirmation")
	return c.processConfirmation(ctx, conf)
}

// ProcessSettlementConfirmation applies a settlement outcome delivered
// outside the enveloped relay surface, e.g. by an in-process bridge.
func (c *Coordinator) ProcessSettlementConfirmation(ctx context.Context, conf settlement.Confirmation) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processConfirmation(ctx, conf)
}

func (c *Coordinator) processConfirmation(ctx context.Context, conf settlement.Confirmation) error {
	if err := c.settler.ProcessIncoming(ctx, conf); err != nil {
		return err
	}
	return c.reconcileMessage(conf.SettlementID)
}

// reconcileMessage folds a settlement outcome back into the originating
// message's lifecycle status.
func (c *Coordinator) reconcileMessage(settlementID common.Hash) error {
	record, err := c.settler.Get(settlementID)
	if err != nil {
		return err
	}

	status, err := c.registry.Status(record.MessageID)
	if err != nil {
		return err
	}
	if status != messages.MessageProcessed {
		return nil
	}

	switch record.Status {
	case settlement.StatusCompleted:
		return c.setStatus(record.MessageID, messages.MessageSettled)
	case settlement.StatusFailed:
		return c.setStatus(record.MessageID, messages.MessageFailed)
	default:
		return nil
	}
}
