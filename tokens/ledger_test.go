// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package tokens_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/suite"

	"github.com/Fintechain/gfs-core/tokens"
)

var (
	token = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	alice = common.HexToAddress("0x0000000000000000000000000000000000000011")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

type LedgerTestSuite struct {
	suite.Suite
	ledger *tokens.Ledger
}

func TestRunLedgerTestSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (s *LedgerTestSuite) SetupTest() {
	s.ledger = tokens.NewLedger()
}

func (s *LedgerTestSuite) Test_BalanceOf_Empty() {
	s.Equal(big.NewInt(0), s.ledger.BalanceOf(token, alice))
}

func (s *LedgerTestSuite) Test_Mint_Accumulates() {
	s.ledger.Mint(token, alice, big.NewInt(100))
	s.ledger.Mint(token, alice, big.NewInt(50))

	s.Equal(big.NewInt(150), s.ledger.BalanceOf(token, alice))
}

func (s *LedgerTestSuite) Test_Transfer_InsufficientBalance() {
	err := s.ledger.Transfer(token, alice, bob, big.NewInt(1))

	s.ErrorIs(err, tokens.ErrInsufficientBalance)
}

func (s *LedgerTestSuite) Test_Transfer_MovesBalance() {
	s.ledger.Mint(token, alice, big.NewInt(100))

	err := s.ledger.Transfer(token, alice, bob, big.NewInt(60))

	s.Nil(err)
	s.Equal(big.NewInt(40), s.ledger.BalanceOf(token, alice))
	s.Equal(big.NewInt(60), s.ledger.BalanceOf(token, bob))
}
