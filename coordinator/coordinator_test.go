// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package coordinator_test

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"
	"github.com/syndtr/goleveldb/leveldb"

	"github.com/Fintechain/gfs-core/auth"
	"github.com/Fintechain/gfs-core/coordinator"
	"github.com/Fintechain/gfs-core/events"
	"github.com/Fintechain/gfs-core/liquidity"
	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/mock"
	"github.com/Fintechain/gfs-core/processor"
	"github.com/Fintechain/gfs-core/router"
	"github.com/Fintechain/gfs-core/settlement"
	"github.com/Fintechain/gfs-core/store"
	"github.com/Fintechain/gfs-core/tokens"
)

const (
	localChain  uint64 = 1
	remoteChain uint64 = 2
)

var (
	admin        = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	sender       = common.HexToAddress("0x0000000000000000000000000000000000000011")
	otherSender  = common.HexToAddress("0x0000000000000000000000000000000000000012")
	localTarget  = common.HexToAddress("0x0000000000000000000000000000000000000021")
	remoteTarget = common.HexToAddress("0x0000000000000000000000000000000000000022")
	recipient    = common.HexToAddress("0x0000000000000000000000000000000000000033")
	provider     = common.HexToAddress("0x0000000000000000000000000000000000000044")
	relaySender  = common.HexToAddress("0x0000000000000000000000000000000000000055")
	poolAddress  = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token        = common.HexToAddress("0x00000000000000000000000000000000000000bb")
)

type memKV struct {
	data map[string][]byte
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string][]byte)}
}

func (kv *memKV) GetByKey(key []byte) ([]byte, error) {
	v, ok := kv.data[string(key)]
	if !ok {
		return nil, leveldb.ErrNotFound
	}
	return v, nil
}

func (kv *memKV) SetByKey(key []byte, value []byte) error {
	kv.data[string(key)] = value
	return nil
}

// CoordinatorTestSuite wires real stores, pool and settlement controller
// around the coordinator, mocking only the external relay and bridge.
type CoordinatorTestSuite struct {
	suite.Suite
	coordinator *coordinator.Coordinator
	controller  *settlement.Controller
	ledger      *tokens.Ledger
	relay       *mock.MockRelayClient
	bridge      *mock.MockBridgeClient
}

func TestRunCoordinatorTestSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorTestSuite))
}

func (s *CoordinatorTestSuite) SetupTest() {
	gomockController := gomock.NewController(s.T())
	s.relay = mock.NewMockRelayClient(gomockController)
	s.bridge = mock.NewMockBridgeClient(gomockController)

	kv := newMemKV()
	bus := events.NewBus(64)

	registry := store.NewMessageStore(kv)
	targets := store.NewTargetStore(kv)
	s.Require().Nil(targets.Register(&messages.Target{
		Address: localTarget, ChainID: localChain, Type: messages.TargetInstitution, Active: true,
	}))
	s.Require().Nil(targets.Register(&messages.Target{
		Address: remoteTarget, ChainID: remoteChain, Type: messages.TargetInstitution, Active: true,
	}))

	protocol := messages.NewProtocol()
	protocol.RegisterFormat(messages.CustomerCreditTransfer, messages.Format{
		MinLength:      2,
		RequiredFields: [][]byte{[]byte("amount"), []byte("recipient")},
	})
	protocol.RegisterFormat(messages.PaymentCancellationRequest, messages.Format{
		MinLength:      2,
		RequiredFields: [][]byte{[]byte("originalMessageId")},
	})
	protocol.RegisterFormat(messages.PaymentStatusReport, messages.Format{MinLength: 2})

	proc := processor.NewProcessor(bus)
	processor.RegisterDefaultHandlers(proc)

	s.ledger = tokens.NewLedger()
	s.ledger.Mint(token, provider, big.NewInt(10000))
	pool, err := liquidity.NewPool(poolAddress, s.ledger, nil)
	s.Require().Nil(err)
	s.Require().Nil(pool.RegisterAsset(token, big.NewInt(0), big.NewInt(0)))
	_, err = pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)

	messageRouter := router.NewRouter(localChain, s.relay, store.NewDeliveryStore(kv), bus)
	messageRouter.SetChainFees(remoteChain, router.ChainFees{
		BaseGas:    1000,
		GasPerByte: 1,
		GasPrice:   big.NewInt(1),
	})
	s.Require().Nil(messageRouter.SetChainGasLimit(remoteChain, 100000))

	s.controller = settlement.NewController(
		localChain,
		settlement.NewStore(kv),
		pool,
		s.bridge,
		settlement.FeeParams{Base: big.NewInt(100), CrossChainBPS: 10},
		bus,
	)

	s.coordinator = coordinator.NewCoordinator(
		coordinator.Config{LocalChain: localChain, BaseFee: big.NewInt(50), MaxMessageSize: 1024},
		registry,
		targets,
		protocol,
		proc,
		messageRouter,
		s.controller,
		auth.NewTable(admin),
		bus,
	)
	s.Require().Nil(s.coordinator.RegisterRelaySender(admin, remoteChain, relaySender))
}

func creditTransferPayload(amount string) []byte {
	return []byte(fmt.Sprintf(
		`{"sourceToken":"%s","targetToken":"%s","amount":"%s","recipient":"%s","reference":"INV-1"}`,
		token.Hex(), token.Hex(), amount, recipient.Hex(),
	))
}

func (s *CoordinatorTestSuite) localSubmission(amount string) coordinator.Submission {
	return coordinator.Submission{
		Type:        messages.CustomerCreditTransfer,
		Sender:      sender,
		Target:      localTarget,
		TargetChain: localChain,
		Payload:     creditTransferPayload(amount),
		Fee:         big.NewInt(50),
	}
}

func (s *CoordinatorTestSuite) remoteSubmission() coordinator.Submission {
	payload := creditTransferPayload("300")
	return coordinator.Submission{
		Type:        messages.CustomerCreditTransfer,
		Sender:      sender,
		Target:      remoteTarget,
		TargetChain: remoteChain,
		Payload:     payload,
		// base 50 plus (1000 + len(payload)) * 1
		Fee: big.NewInt(50 + 1000 + int64(len(payload))),
	}
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_EmptyPayload() {
	sub := s.localSubmission("300")
	sub.Payload = nil

	_, err := s.coordinator.SubmitMessage(context.Background(), sub)

	s.ErrorIs(err, coordinator.ErrEmptyPayload)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_TooLarge() {
	sub := s.localSubmission("300")
	sub.Payload = make([]byte, 2048)

	_, err := s.coordinator.SubmitMessage(context.Background(), sub)

	s.ErrorIs(err, coordinator.ErrMessageTooLarge)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_ZeroTarget() {
	sub := s.localSubmission("300")
	sub.Target = common.Address{}

	_, err := s.coordinator.SubmitMessage(context.Background(), sub)

	s.ErrorIs(err, coordinator.ErrInvalidTarget)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_UnregisteredTarget() {
	sub := s.localSubmission("300")
	sub.Target = common.HexToAddress("0x00000000000000000000000000000000000000ff")

	_, err := s.coordinator.SubmitMessage(context.Background(), sub)

	s.ErrorIs(err, coordinator.ErrInvalidTarget)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_TargetOnWrongChain() {
	sub := s.localSubmission("300")
	// remoteTarget is only registered on the remote chain
	sub.Target = remoteTarget

	_, err := s.coordinator.SubmitMessage(context.Background(), sub)

	s.ErrorIs(err, coordinator.ErrInvalidTarget)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_InvalidFormat() {
	sub := s.localSubmission("300")
	sub.Payload = []byte(`{"foo":"bar"}`)

	_, err := s.coordinator.SubmitMessage(context.Background(), sub)

	s.ErrorIs(err, coordinator.ErrInvalidFormat)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_InsufficientFee() {
	sub := s.localSubmission("300")
	sub.Fee = big.NewInt(49)

	_, err := s.coordinator.SubmitMessage(context.Background(), sub)

	s.ErrorIs(err, coordinator.ErrInsufficientFee)
}

func (s *CoordinatorTestSuite) Test_QuoteMessageFee_IsAcceptedLowerBound() {
	sub := s.remoteSubmission()
	base, delivery, err := s.coordinator.QuoteMessageFee(sub)
	s.Require().Nil(err)

	sub.Fee = new(big.Int).Add(base, delivery)
	s.relay.EXPECT().Submit(gomock.Any(), remoteChain, remoteTarget, gomock.Any(), gomock.Any()).
		Return(crypto.Keccak256Hash([]byte("delivery")), nil)

	_, err = s.coordinator.SubmitMessage(context.Background(), sub)

	s.Nil(err)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_LocalSettles() {
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))

	s.Nil(err)
	status, err := s.coordinator.GetMessageStatus(id)
	s.Nil(err)
	s.Equal(messages.MessageSettled, status)
	s.Equal(big.NewInt(300), s.ledger.BalanceOf(token, recipient))

	success, _, err := s.coordinator.GetMessageResult(id)
	s.Nil(err)
	s.True(success)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_Duplicate() {
	_, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))
	s.Require().Nil(err)

	_, err = s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))

	s.ErrorIs(err, store.ErrDuplicateMessage)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_ProcessingFailureRecorded() {
	// payload passes format validation but the handler rejects the amount
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("not-a-number"))

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageFailed, status)

	success, data, err := s.coordinator.GetMessageResult(id)
	s.Nil(err)
	s.False(success)
	s.NotEmpty(data)
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_InsufficientLiquidityFails() {
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("5000"))

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageFailed, status)
	s.Equal(big.NewInt(0), s.ledger.BalanceOf(token, recipient))
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_StatusReportProcessed() {
	id, err := s.coordinator.SubmitMessage(context.Background(), coordinator.Submission{
		Type:        messages.PaymentStatusReport,
		Sender:      sender,
		Target:      localTarget,
		TargetChain: localChain,
		Payload:     []byte("acknowledged"),
		Fee:         big.NewInt(50),
	})

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageProcessed, status)
}

func (s *CoordinatorTestSuite) submitRemote() common.Hash {
	deliveryHash := crypto.Keccak256Hash([]byte("delivery"))
	s.relay.EXPECT().Submit(gomock.Any(), remoteChain, remoteTarget, gomock.Any(), gomock.Any()).
		Return(deliveryHash, nil)

	id, err := s.coordinator.SubmitMessage(context.Background(), s.remoteSubmission())
	s.Require().Nil(err)
	return id
}

func (s *CoordinatorTestSuite) Test_SubmitMessage_CrossChainStaysPending() {
	id := s.submitRemote()

	status, err := s.coordinator.GetMessageStatus(id)
	s.Nil(err)
	s.Equal(messages.MessagePending, status)
}

func (s *CoordinatorTestSuite) Test_HandleDeliveryConfirmation_AdvancesMessage() {
	id := s.submitRemote()

	err := s.coordinator.HandleDeliveryConfirmation(crypto.Keccak256Hash([]byte("delivery")))

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageDelivered, status)
}

func (s *CoordinatorTestSuite) Test_HandleDeliveryConfirmation_AfterCancelKeepsCancelled() {
	id := s.submitRemote()
	s.Require().Nil(s.coordinator.CancelMessage(context.Background(), id, sender))

	err := s.coordinator.HandleDeliveryConfirmation(crypto.Keccak256Hash([]byte("delivery")))

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageCancelled, status)
}

func (s *CoordinatorTestSuite) Test_CancelMessage_NotSender() {
	id := s.submitRemote()

	err := s.coordinator.CancelMessage(context.Background(), id, otherSender)

	s.ErrorIs(err, coordinator.ErrNotSender)
}

func (s *CoordinatorTestSuite) Test_CancelMessage_NotPending() {
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))
	s.Require().Nil(err)

	err = s.coordinator.CancelMessage(context.Background(), id, sender)

	s.ErrorIs(err, coordinator.ErrNotCancellable)
}

func (s *CoordinatorTestSuite) Test_CancellationRequest_CancelsPendingMessage() {
	id := s.submitRemote()

	payload := []byte(fmt.Sprintf(`{"originalMessageId":"%s","reason":"duplicate"}`, id.Hex()))
	_, err := s.coordinator.SubmitMessage(context.Background(), coordinator.Submission{
		Type:        messages.PaymentCancellationRequest,
		Sender:      sender,
		Target:      localTarget,
		TargetChain: localChain,
		Payload:     payload,
		Fee:         big.NewInt(50),
	})

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageCancelled, status)
}

func (s *CoordinatorTestSuite) Test_CancellationRequest_DifferentSenderIgnored() {
	id := s.submitRemote()

	payload := []byte(fmt.Sprintf(`{"originalMessageId":"%s","reason":"duplicate"}`, id.Hex()))
	_, err := s.coordinator.SubmitMessage(context.Background(), coordinator.Submission{
		Type:        messages.PaymentCancellationRequest,
		Sender:      otherSender,
		Target:      localTarget,
		TargetChain: localChain,
		Payload:     payload,
		Fee:         big.NewInt(50),
	})

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessagePending, status)
}

func (s *CoordinatorTestSuite) Test_RetryMessage_NotRetryable() {
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))
	s.Require().Nil(err)

	err = s.coordinator.RetryMessage(context.Background(), id, big.NewInt(50))

	s.ErrorIs(err, coordinator.ErrNotRetryable)
}

func (s *CoordinatorTestSuite) Test_RetryMessage_InsufficientFee() {
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("not-a-number"))
	s.Require().Nil(err)

	err = s.coordinator.RetryMessage(context.Background(), id, big.NewInt(10))

	s.ErrorIs(err, coordinator.ErrInsufficientFee)
}

func (s *CoordinatorTestSuite) Test_RetryMessage_FailedMessageReprocessed() {
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("not-a-number"))
	s.Require().Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Require().Equal(messages.MessageFailed, status)

	err = s.coordinator.RetryMessage(context.Background(), id, big.NewInt(50))

	// the payload still fails processing, but the retry itself is accepted
	// and runs the full pipeline again
	s.Nil(err)
	status, _ = s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageFailed, status)
}

func (s *CoordinatorTestSuite) Test_RetryMessage_PendingRelayRetry() {
	sub := s.remoteSubmission()
	deliveryHash := crypto.Keccak256Hash([]byte("delivery"))
	gomock.InOrder(
		s.relay.EXPECT().Submit(gomock.Any(), remoteChain, remoteTarget, gomock.Any(), gomock.Any()).
			Return(common.Hash{}, fmt.Errorf("relay down")),
		s.relay.EXPECT().Submit(gomock.Any(), remoteChain, remoteTarget, gomock.Any(), gomock.Any()).
			Return(deliveryHash, nil),
	)

	id, err := s.coordinator.SubmitMessage(context.Background(), sub)
	s.Require().Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Require().Equal(messages.MessagePending, status)

	s.Require().Nil(s.coordinator.RetryMessage(context.Background(), id, sub.Fee))

	s.Nil(s.coordinator.HandleDeliveryConfirmation(deliveryHash))
	status, _ = s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageDelivered, status)
}

func (s *CoordinatorTestSuite) Test_EmergencyCancelMessage_Unauthorized() {
	id := s.submitRemote()

	err := s.coordinator.EmergencyCancelMessage(context.Background(), id, otherSender)

	s.ErrorIs(err, auth.ErrUnauthorized)
}

func (s *CoordinatorTestSuite) Test_EmergencyCancelMessage_CancelsNonTerminal() {
	id := s.submitRemote()

	err := s.coordinator.EmergencyCancelMessage(context.Background(), id, admin)

	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageCancelled, status)
}

func (s *CoordinatorTestSuite) Test_EmergencyCancelMessage_TerminalStaysTerminal() {
	id, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))
	s.Require().Nil(err)

	err = s.coordinator.EmergencyCancelMessage(context.Background(), id, admin)

	s.ErrorIs(err, coordinator.ErrNotCancellable)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageSettled, status)
}

func (s *CoordinatorTestSuite) Test_Pause_GatesSubmission() {
	s.Require().Nil(s.coordinator.Pause(admin))

	_, err := s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))
	s.ErrorIs(err, coordinator.ErrPaused)

	s.Require().Nil(s.coordinator.Unpause(admin))
	_, err = s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))
	s.Nil(err)
}

func (s *CoordinatorTestSuite) Test_Pause_Unauthorized() {
	err := s.coordinator.Pause(otherSender)

	s.ErrorIs(err, auth.ErrUnauthorized)
}

func (s *CoordinatorTestSuite) Test_UpdateBaseFee_AffectsQuotes() {
	s.Require().Nil(s.coordinator.UpdateBaseFee(admin, big.NewInt(75)))

	base, _, err := s.coordinator.QuoteMessageFee(s.localSubmission("300"))
	s.Nil(err)
	s.Equal(big.NewInt(75), base)

	_, err = s.coordinator.SubmitMessage(context.Background(), s.localSubmission("300"))
	s.ErrorIs(err, coordinator.ErrInsufficientFee)
}

func (s *CoordinatorTestSuite) Test_UpdateBaseFee_Unauthorized() {
	err := s.coordinator.UpdateBaseFee(otherSender, big.NewInt(75))

	s.ErrorIs(err, auth.ErrUnauthorized)
}

func (s *CoordinatorTestSuite) Test_UpdateComponent_UnknownName() {
	err := s.coordinator.UpdateComponent(admin, "bogus", nil)

	s.ErrorIs(err, coordinator.ErrUnknownComponent)
}

func (s *CoordinatorTestSuite) Test_UpdateComponent_InvalidComponent() {
	err := s.coordinator.UpdateComponent(admin, coordinator.ComponentProtocol, struct{}{})

	s.ErrorIs(err, coordinator.ErrInvalidComponent)
}

func (s *CoordinatorTestSuite) Test_UpdateComponent_SwapsProtocol() {
	permissive := messages.NewProtocol()
	permissive.RegisterFormat(messages.CustomerCreditTransfer, messages.Format{MinLength: 1})

	s.Require().Nil(s.coordinator.UpdateComponent(admin, coordinator.ComponentProtocol, permissive))

	// payload without the previously required fields now validates
	sub := s.localSubmission("300")
	sub.Payload = []byte(`{"foo":"bar"}`)
	id, err := s.coordinator.SubmitMessage(context.Background(), sub)
	s.Nil(err)
	status, _ := s.coordinator.GetMessageStatus(id)
	s.Equal(messages.MessageFailed, status)
}

func (s *CoordinatorTestSuite) Test_HandleRelayMessage_UnknownSender() {
	err := s.coordinator.HandleRelayMessage(
		context.Background(),
		messages.PackEnvelope(common.Hash{}, relaySender, localTarget, []byte("{}")),
		otherSender,
		remoteChain,
		common.Hash{},
	)

	s.ErrorIs(err, coordinator.ErrUnknownRelaySender)
}

func (s *CoordinatorTestSuite) Test_HandleRelayMessage_CompletesCrossChainSettlement() {
	id := s.submitRemote()

	s.bridge.EXPECT().SendTransfer(gomock.Any(), remoteChain, token, big.NewInt(300), recipient, gomock.Any()).Return(nil)
	settlementID, err := s.controller.Initiate(context.Background(), settlement.Request{
		MessageID:   id,
		SourceToken: token,
		TargetToken: token,
		Amount:      big.NewInt(300),
		TargetChain: remoteChain,
		Sender:      sender,
		Recipient:   recipient,
		Fee:         s.controller.QuoteFee(remoteChain, big.NewInt(300)),
	})
	s.Require().Nil(err)

	confPayload, err := json.Marshal(settlement.Confirmation{SettlementID: settlementID, Success: true})
	s.Require().Nil(err)
	err = s.coordinator.HandleRelayMessage(
		context.Background(),
		messages.PackEnvelope(id, relaySender, localTarget, confPayload),
		relaySender,
		remoteChain,
		crypto.Keccak256Hash([]byte("inbound")),
	)

	s.Nil(err)
	record, err := s.controller.Get(settlementID)
	s.Nil(err)
	s.Equal(settlement.StatusCompleted, record.Status)
}
