// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package processor

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/settlement"
)

// creditTransferInstruction is the decoded body of a pacs.008/pacs.009-style
// payload. Amount is a decimal string in the token's smallest unit.
type creditTransferInstruction struct {
	SourceToken string `json:"sourceToken"`
	TargetToken string `json:"targetToken"`
	Amount      string `json:"amount"`
	Recipient   string `json:"recipient"`
	Reference   string `json:"reference"`
}

// CreditTransferHandler handles customer credit transfers. A successful parse
// always implies a value transfer, so the result carries the settlement
// request for the coordinator to initiate.
type CreditTransferHandler struct{}

func (h *CreditTransferHandler) HandleMessage(ctx context.Context, msg *messages.Message) (*Result, error) {
	instruction := &creditTransferInstruction{}
	if err := json.Unmarshal(msg.Payload, instruction); err != nil {
		return nil, errors.New("malformed credit transfer payload")
	}

	amount, ok := new(big.Int).SetString(instruction.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, errors.New("credit transfer amount must be a positive integer")
	}
	if !common.IsHexAddress(instruction.Recipient) {
		return nil, errors.New("credit transfer recipient is not a valid address")
	}
	if !common.IsHexAddress(instruction.SourceToken) || !common.IsHexAddress(instruction.TargetToken) {
		return nil, errors.New("credit transfer token is not a valid address")
	}

	return &Result{
		Success: true,
		Data:    []byte(instruction.Reference),
		Settlement: &settlement.Request{
			MessageID:   msg.ID,
			SourceToken: common.HexToAddress(instruction.SourceToken),
			TargetToken: common.HexToAddress(instruction.TargetToken),
			Amount:      amount,
			TargetChain: msg.TargetChain,
			Sender:      msg.Sender,
			Recipient:   common.HexToAddress(instruction.Recipient),
		},
	}, nil
}

// FICreditTransferHandler handles financial-institution transfers. The wire
// shape matches customer credit transfers; the distinction is the message
// type and, downstream, the eligible targets.
type FICreditTransferHandler struct {
	CreditTransferHandler
}

// cancellationRequest is the decoded body of a camt.056-style payload,
// referencing the instruction to cancel.
type cancellationRequest struct {
	OriginalMessageID string `json:"originalMessageId"`
	Reason            string `json:"reason"`
}

// CancellationHandler handles payment cancellation requests. The referenced
// message id travels back in the result data for the coordinator to act on.
type CancellationHandler struct{}

func (h *CancellationHandler) HandleMessage(ctx context.Context, msg *messages.Message) (*Result, error) {
	request := &cancellationRequest{}
	if err := json.Unmarshal(msg.Payload, request); err != nil {
		return nil, errors.New("malformed cancellation payload")
	}

	originalID := common.HexToHash(request.OriginalMessageID)
	if originalID == (common.Hash{}) {
		return nil, errors.New("cancellation references no message")
	}

	return &Result{
		Success: true,
		Data:    originalID.Bytes(),
	}, nil
}

// StatusReportHandler handles status notifications. They carry no value and
// need no follow-up beyond the audit trail.
type StatusReportHandler struct{}

func (h *StatusReportHandler) HandleMessage(ctx context.Context, msg *messages.Message) (*Result, error) {
	return &Result{
		Success: true,
		Data:    msg.Payload,
	}, nil
}

// RegisterDefaultHandlers wires the built-in ISO20022-style handler set.
func RegisterDefaultHandlers(p *Processor) {
	p.RegisterHandler(messages.CustomerCreditTransfer, &CreditTransferHandler{}, ActionSettle)
	p.RegisterHandler(messages.FICreditTransfer, &FICreditTransferHandler{}, ActionSettle)
	p.RegisterHandler(messages.PaymentCancellationRequest, &CancellationHandler{}, ActionCancel)
	p.RegisterHandler(messages.PaymentStatusReport, &StatusReportHandler{}, ActionNotify)
}
