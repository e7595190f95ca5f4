// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package processor_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"github.com/Fintechain/gfs-core/events"
	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/processor"
	"github.com/Fintechain/gfs-core/settlement"
)

var (
	sender = common.HexToAddress("0x0000000000000000000000000000000000000011")
	target = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

type failingHandler struct {
	err   error
	panic bool
}

func (h *failingHandler) HandleMessage(ctx context.Context, msg *messages.Message) (*processor.Result, error) {
	if h.panic {
		panic("handler exploded")
	}
	return nil, h.err
}

type ProcessorTestSuite struct {
	suite.Suite
	processor *processor.Processor
}

func TestRunProcessorTestSuite(t *testing.T) {
	suite.Run(t, new(ProcessorTestSuite))
}

func (s *ProcessorTestSuite) SetupTest() {
	s.processor = processor.NewProcessor(events.NewBus(16))
	processor.RegisterDefaultHandlers(s.processor)
}

func (s *ProcessorTestSuite) creditTransfer(amount string) *messages.Message {
	payload := fmt.Sprintf(
		`{"sourceToken":"0x00000000000000000000000000000000000000bb","targetToken":"0x00000000000000000000000000000000000000cc","amount":"%s","recipient":"0x0000000000000000000000000000000000000033","reference":"INV-1"}`,
		amount,
	)
	return messages.NewMessage(messages.CustomerCreditTransfer, sender, target, 2, []byte(payload))
}

func (s *ProcessorTestSuite) Test_ProcessMessage_NoHandler() {
	p := processor.NewProcessor(events.NewBus(16))
	msg := s.creditTransfer("1000")

	_, err := p.ProcessMessage(context.Background(), msg)

	s.ErrorIs(err, processor.ErrNoHandlerRegistered)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_CreditTransfer() {
	msg := s.creditTransfer("1000")

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.True(result.Success)
	s.Equal(processor.ActionSettle, result.Action)
	s.Equal([]byte("INV-1"), result.Data)
	s.Require().NotNil(result.Settlement)
	s.Equal(msg.ID, result.Settlement.MessageID)
	s.Equal(uint64(2), result.Settlement.TargetChain)
	s.Equal(settlement.SettlementID(
		msg.ID,
		result.Settlement.SourceToken,
		result.Settlement.TargetToken,
		result.Settlement.Amount,
		result.Settlement.TargetChain,
		result.Settlement.Recipient,
	), result.SettlementID)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_HandlerErrorCaptured() {
	msg := s.creditTransfer("not-a-number")

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.False(result.Success)
	s.Equal(processor.ActionSettle, result.Action)
	s.NotEmpty(result.Data)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_ZeroAmountRejected() {
	msg := s.creditTransfer("0")

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.False(result.Success)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_PanicCaptured() {
	s.processor.RegisterHandler(messages.PaymentStatusReport, &failingHandler{panic: true}, processor.ActionNotify)
	msg := messages.NewMessage(messages.PaymentStatusReport, sender, target, 1, []byte("report"))

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.False(result.Success)
	s.Equal(processor.ActionNotify, result.Action)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_NilResultTreatedAsNoOp() {
	// a handler may legally return (nil, nil)
	s.processor.RegisterHandler(messages.PaymentStatusReport, &failingHandler{}, processor.ActionNotify)
	msg := messages.NewMessage(messages.PaymentStatusReport, sender, target, 1, []byte("report"))

	var result *processor.Result
	var err error
	s.NotPanics(func() {
		result, err = s.processor.ProcessMessage(context.Background(), msg)
	})

	s.Nil(err)
	s.Require().NotNil(result)
	s.True(result.Success)
	s.Equal(processor.ActionNotify, result.Action)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_ErrorReturnsFailedResult() {
	s.processor.RegisterHandler(messages.PaymentStatusReport, &failingHandler{err: errors.New("downstream unavailable")}, processor.ActionNotify)
	msg := messages.NewMessage(messages.PaymentStatusReport, sender, target, 1, []byte("report"))

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.False(result.Success)
	s.Equal([]byte("downstream unavailable"), result.Data)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_Cancellation() {
	original := s.creditTransfer("1000")
	payload := fmt.Sprintf(`{"originalMessageId":"%s","reason":"duplicate"}`, original.ID.Hex())
	msg := messages.NewMessage(messages.PaymentCancellationRequest, sender, target, 1, []byte(payload))

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.True(result.Success)
	s.Equal(processor.ActionCancel, result.Action)
	s.Equal(original.ID, common.BytesToHash(result.Data))
}

func (s *ProcessorTestSuite) Test_ProcessMessage_CancellationWithoutReference() {
	msg := messages.NewMessage(messages.PaymentCancellationRequest, sender, target, 1, []byte(`{"reason":"duplicate"}`))

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.False(result.Success)
}

func (s *ProcessorTestSuite) Test_ProcessMessage_StatusReport() {
	msg := messages.NewMessage(messages.PaymentStatusReport, sender, target, 1, []byte("acknowledged"))

	result, err := s.processor.ProcessMessage(context.Background(), msg)

	s.Nil(err)
	s.True(result.Success)
	s.Equal(processor.ActionNotify, result.Action)
	s.Equal(common.Hash{}, result.SettlementID)
}
