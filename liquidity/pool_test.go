// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package liquidity_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/suite"

	"github.com/Fintechain/gfs-core/liquidity"
	"github.com/Fintechain/gfs-core/mock"
	"github.com/Fintechain/gfs-core/tokens"
)

var (
	poolAddress = common.HexToAddress("0x00000000000000000000000000000000000000aa")
	token       = common.HexToAddress("0x00000000000000000000000000000000000000bb")
	provider    = common.HexToAddress("0x0000000000000000000000000000000000000011")
	recipient   = common.HexToAddress("0x0000000000000000000000000000000000000022")
)

type PoolTestSuite struct {
	suite.Suite
	pool   *liquidity.Pool
	ledger *tokens.Ledger
}

func TestRunPoolTestSuite(t *testing.T) {
	suite.Run(t, new(PoolTestSuite))
}

func (s *PoolTestSuite) SetupTest() {
	s.ledger = tokens.NewLedger()
	s.ledger.Mint(token, provider, big.NewInt(10000))

	pool, err := liquidity.NewPool(poolAddress, s.ledger, nil)
	s.Require().Nil(err)
	s.pool = pool
	s.Require().Nil(s.pool.RegisterAsset(token, big.NewInt(0), big.NewInt(5000)))
}

// assertAccounting checks the pool accounting identity for the test asset.
func (s *PoolTestSuite) assertAccounting() {
	info, err := s.pool.Info(token)
	s.Require().Nil(err)
	s.Equal(info.Total, new(big.Int).Add(info.Available, info.Locked))
}

func (s *PoolTestSuite) Test_RegisterAsset_Duplicate() {
	err := s.pool.RegisterAsset(token, big.NewInt(0), big.NewInt(5000))

	s.ErrorIs(err, liquidity.ErrAssetAlreadyActive)
}

func (s *PoolTestSuite) Test_AddLiquidity_UnregisteredAsset() {
	_, err := s.pool.AddLiquidity(provider, common.HexToAddress("0xcc"), big.NewInt(100))

	s.ErrorIs(err, liquidity.ErrAssetNotRegistered)
}

func (s *PoolTestSuite) Test_AddLiquidity_FirstProvider() {
	shares, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))

	s.Nil(err)
	s.Equal(big.NewInt(1000), shares)
	s.Equal(big.NewInt(1000), s.ledger.BalanceOf(token, poolAddress))
	s.Equal(big.NewInt(9000), s.ledger.BalanceOf(token, provider))
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_AddLiquidity_ProportionalShares() {
	second := common.HexToAddress("0x0000000000000000000000000000000000000033")
	s.ledger.Mint(token, second, big.NewInt(1000))

	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	shares, err := s.pool.AddLiquidity(second, token, big.NewInt(500))

	s.Nil(err)
	s.Equal(big.NewInt(500), shares)
	held, _ := s.pool.SharesOf(second, token)
	s.Equal(big.NewInt(500), held)
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_AddLiquidity_RepeatDepositAccumulatesShares() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	_, err = s.pool.AddLiquidity(provider, token, big.NewInt(500))
	s.Require().Nil(err)

	held, _ := s.pool.SharesOf(provider, token)
	s.Equal(big.NewInt(1500), held)
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_AddLiquidity_DrainedPool() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(100))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	s.Require().Nil(s.pool.Lock(token, big.NewInt(100), settlementID))
	s.Require().Nil(s.pool.Consume(token, big.NewInt(100), settlementID))

	// shares remain outstanding while total is zero; the next deposit is
	// priced as a fresh-pool deposit
	shares, err := s.pool.AddLiquidity(provider, token, big.NewInt(100))

	s.Nil(err)
	s.Equal(big.NewInt(100), shares)
	info, _ := s.pool.Info(token)
	s.Equal(big.NewInt(100), info.Total)
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_AddLiquidity_ExceedsMax() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(5001))

	s.ErrorIs(err, liquidity.ErrExceedsMaxLiquidity)
}

func (s *PoolTestSuite) Test_AddLiquidity_Blacklisted() {
	s.pool.SetBlacklisted(provider, true)

	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(100))

	s.ErrorIs(err, liquidity.ErrProviderBlacklisted)
}

func (s *PoolTestSuite) Test_AddLiquidity_Permissioned() {
	s.pool.SetPermissionless(false)

	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(100))
	s.ErrorIs(err, liquidity.ErrProviderNotPermitted)

	s.pool.AllowProvider(provider)
	_, err = s.pool.AddLiquidity(provider, token, big.NewInt(100))
	s.Nil(err)
}

func (s *PoolTestSuite) Test_AddLiquidity_InactiveAsset() {
	s.Require().Nil(s.pool.SetAssetActive(token, false))

	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(100))

	s.ErrorIs(err, liquidity.ErrPoolInactive)
}

func (s *PoolTestSuite) Test_RemoveLiquidity_InsufficientShares() {
	_, err := s.pool.RemoveLiquidity(provider, token, big.NewInt(1))

	s.ErrorIs(err, liquidity.ErrInsufficientShares)
}

func (s *PoolTestSuite) Test_RemoveLiquidity_ReturnsProportionalAmount() {
	shares, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)

	amount, err := s.pool.RemoveLiquidity(provider, token, shares)

	s.Nil(err)
	s.Equal(big.NewInt(1000), amount)
	s.Equal(big.NewInt(10000), s.ledger.BalanceOf(token, provider))
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_RemoveLiquidity_LockedNotWithdrawable() {
	shares, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	s.Require().Nil(s.pool.Lock(token, big.NewInt(800), settlementID))

	_, err = s.pool.RemoveLiquidity(provider, token, shares)

	s.ErrorIs(err, liquidity.ErrInsufficientLiquidity)
}

func (s *PoolTestSuite) Test_RemoveLiquidity_BelowMin() {
	floored := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	s.ledger.Mint(floored, provider, big.NewInt(10000))
	s.Require().Nil(s.pool.RegisterAsset(floored, big.NewInt(500), big.NewInt(5000)))
	shares, err := s.pool.AddLiquidity(provider, floored, big.NewInt(1000))
	s.Require().Nil(err)

	_, err = s.pool.RemoveLiquidity(provider, floored, big.NewInt(600))
	s.ErrorIs(err, liquidity.ErrBelowMinLiquidity)

	// a full exit is still allowed
	amount, err := s.pool.RemoveLiquidity(provider, floored, shares)
	s.Nil(err)
	s.Equal(big.NewInt(1000), amount)
}

func (s *PoolTestSuite) Test_Lock_InsufficientLiquidity() {
	settlementID := crypto.Keccak256Hash([]byte("settlement"))

	err := s.pool.Lock(token, big.NewInt(100), settlementID)

	s.ErrorIs(err, liquidity.ErrInsufficientLiquidity)
}

func (s *PoolTestSuite) Test_Lock_Duplicate() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	s.Require().Nil(s.pool.Lock(token, big.NewInt(100), settlementID))

	err = s.pool.Lock(token, big.NewInt(100), settlementID)

	s.ErrorIs(err, liquidity.ErrDuplicateLock)
}

func (s *PoolTestSuite) Test_Lock_MovesAvailableToLocked() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))

	s.Require().Nil(s.pool.Lock(token, big.NewInt(300), settlementID))

	info, _ := s.pool.Info(token)
	s.Equal(big.NewInt(700), info.Available)
	s.Equal(big.NewInt(300), info.Locked)
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_Release_UnknownLock() {
	err := s.pool.Release(token, big.NewInt(100), crypto.Keccak256Hash([]byte("settlement")))

	s.ErrorIs(err, liquidity.ErrUnknownLock)
}

func (s *PoolTestSuite) Test_Release_AmountMismatch() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	s.Require().Nil(s.pool.Lock(token, big.NewInt(300), settlementID))

	err = s.pool.Release(token, big.NewInt(200), settlementID)

	s.ErrorIs(err, liquidity.ErrLockAmountMismatch)
}

func (s *PoolTestSuite) Test_Release_RestoresAvailable() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	s.Require().Nil(s.pool.Lock(token, big.NewInt(300), settlementID))

	s.Require().Nil(s.pool.Release(token, big.NewInt(300), settlementID))

	info, _ := s.pool.Info(token)
	s.Equal(big.NewInt(1000), info.Available)
	s.Equal(big.NewInt(0), info.Locked)
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_Settle_CreditsRecipient() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	s.Require().Nil(s.pool.Lock(token, big.NewInt(300), settlementID))

	s.Require().Nil(s.pool.Settle(token, big.NewInt(300), settlementID, recipient))

	s.Equal(big.NewInt(300), s.ledger.BalanceOf(token, recipient))
	info, _ := s.pool.Info(token)
	s.Equal(big.NewInt(700), info.Total)
	s.Equal(big.NewInt(0), info.Locked)
	s.assertAccounting()
}

func (s *PoolTestSuite) Test_Settle_TransferFailureRestoresLock() {
	gomockController := gomock.NewController(s.T())
	backend := mock.NewMockTokenBackend(gomockController)
	pool, err := liquidity.NewPool(poolAddress, backend, nil)
	s.Require().Nil(err)
	s.Require().Nil(pool.RegisterAsset(token, big.NewInt(0), big.NewInt(0)))

	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	backend.EXPECT().Transfer(token, provider, poolAddress, big.NewInt(1000)).Return(nil)
	_, err = pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	s.Require().Nil(pool.Lock(token, big.NewInt(300), settlementID))

	backend.EXPECT().Transfer(token, poolAddress, recipient, big.NewInt(300)).Return(errors.New("error"))
	err = pool.Settle(token, big.NewInt(300), settlementID, recipient)

	s.NotNil(err)
	info, _ := pool.Info(token)
	s.Equal(big.NewInt(300), info.Locked)
	s.Equal(big.NewInt(1000), info.Total)
	s.Nil(pool.Release(token, big.NewInt(300), settlementID))
}

func (s *PoolTestSuite) Test_Consume_BurnsWithoutCredit() {
	_, err := s.pool.AddLiquidity(provider, token, big.NewInt(1000))
	s.Require().Nil(err)
	settlementID := crypto.Keccak256Hash([]byte("settlement"))
	s.Require().Nil(s.pool.Lock(token, big.NewInt(300), settlementID))

	s.Require().Nil(s.pool.Consume(token, big.NewInt(300), settlementID))

	// pool still holds the tokens locally, the matching credit happens on the
	// remote chain
	s.Equal(big.NewInt(1000), s.ledger.BalanceOf(token, poolAddress))
	info, _ := s.pool.Info(token)
	s.Equal(big.NewInt(700), info.Total)
	s.Equal(big.NewInt(0), info.Locked)
	s.assertAccounting()
}
