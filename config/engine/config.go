// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: BUSL-1.1

package engine

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type EngineConfig struct {
	LogLevel                  zerolog.Level
	LogFile                   string
	HealthPort                uint16
	OpenTelemetryCollectorURL string
	Environment               string
	LocalChainID              uint64
	Admin                     common.Address
	BaseFee                   *big.Int
	MaxMessageSize            int
	PoolConfig                PoolConfig
	SettlementConfig          SettlementConfig
}

type PoolConfig struct {
	Address        common.Address
	Permissionless bool
	Assets         []AssetConfig
}

type AssetConfig struct {
	Token common.Address
	Min   *big.Int
	Max   *big.Int
}

type SettlementConfig struct {
	FeeBase       *big.Int
	FeeBPS        int64
	Timeout       time.Duration
	SweepInterval time.Duration
}

type RawEngineConfig struct {
	LogLevel                  string             `mapstructure:"LogLevel" json:"logLevel" default:"info"`
	LogFile                   string             `mapstructure:"LogFile" json:"logFile" default:"out.log"`
	HealthPort                uint16             `mapstructure:"HealthPort" json:"healthPort" default:"9001"`
	OpenTelemetryCollectorURL string             `mapstructure:"OpenTelemetryCollectorURL" json:"opentelemetryCollectorURL"`
	Environment               string             `mapstructure:"Environment" json:"environment" default:"dev"`
	LocalChainID              uint64             `mapstructure:"LocalChainID" json:"localChainId" default:"1"`
	Admin                     string             `mapstructure:"Admin" json:"admin"`
	BaseFee                   string             `mapstructure:"BaseFee" json:"baseFee" default:"1000"`
	MaxMessageSize            int                `mapstructure:"MaxMessageSize" json:"maxMessageSize" default:"65536"`
	PoolConfig                RawPoolConfig       `mapstructure:"PoolConfig" json:"poolConfig"`
	SettlementConfig          RawSettlementConfig `mapstructure:"SettlementConfig" json:"settlementConfig"`
}

type RawPoolConfig struct {
	Address        string           `mapstructure:"Address" json:"address"`
	Permissionless bool             `mapstructure:"Permissionless" json:"permissionless" default:"true"`
	Assets         []RawAssetConfig `mapstructure:"Assets" json:"assets"`
}

type RawAssetConfig struct {
	Token string `mapstructure:"Token" json:"token"`
	Min   string `mapstructure:"Min" json:"min" default:"0"`
	Max   string `mapstructure:"Max" json:"max" default:"0"`
}

type RawSettlementConfig struct {
	FeeBase       string `mapstructure:"FeeBase" json:"feeBase" default:"100"`
	FeeBPS        int64  `mapstructure:"FeeBPS" json:"feeBps" default:"10"`
	Timeout       string `mapstructure:"Timeout" json:"timeout" default:"30m"`
	SweepInterval string `mapstructure:"SweepInterval" json:"sweepInterval" default:"5m"`
}

func (c *RawEngineConfig) Validate() error {
	if !common.IsHexAddress(c.Admin) {
		return fmt.Errorf("invalid admin address: %s", c.Admin)
	}
	if c.PoolConfig.Address != "" && !common.IsHexAddress(c.PoolConfig.Address) {
		return fmt.Errorf("invalid pool address: %s", c.PoolConfig.Address)
	}
	return nil
}

// NewEngineConfig parses RawEngineConfig into EngineConfig
func NewEngineConfig(rawConfig RawEngineConfig) (EngineConfig, error) {
	config := EngineConfig{}
	err := rawConfig.Validate()
	if err != nil {
		return config, err
	}

	logLevel, err := zerolog.ParseLevel(rawConfig.LogLevel)
	if err != nil {
		return config, fmt.Errorf("unknown log level: %s", rawConfig.LogLevel)
	}

	baseFee, ok := new(big.Int).SetString(rawConfig.BaseFee, 10)
	if !ok {
		return config, fmt.Errorf("invalid base fee: %s", rawConfig.BaseFee)
	}

	settlementConfig, err := newSettlementConfig(rawConfig.SettlementConfig)
	if err != nil {
		return config, err
	}
	poolConfig, err := newPoolConfig(rawConfig.PoolConfig)
	if err != nil {
		return config, err
	}

	config.LogLevel = logLevel
	config.LogFile = rawConfig.LogFile
	config.HealthPort = rawConfig.HealthPort
	config.OpenTelemetryCollectorURL = rawConfig.OpenTelemetryCollectorURL
	config.Environment = rawConfig.Environment
	config.LocalChainID = rawConfig.LocalChainID
	config.Admin = common.HexToAddress(rawConfig.Admin)
	config.BaseFee = baseFee
	config.MaxMessageSize = rawConfig.MaxMessageSize
	config.PoolConfig = poolConfig
	config.SettlementConfig = settlementConfig
	return config, nil
}

func newPoolConfig(rawConfig RawPoolConfig) (PoolConfig, error) {
	config := PoolConfig{
		Address:        common.HexToAddress(rawConfig.Address),
		Permissionless: rawConfig.Permissionless,
	}

	for _, rawAsset := range rawConfig.Assets {
		if !common.IsHexAddress(rawAsset.Token) {
			return config, fmt.Errorf("invalid asset token address: %s", rawAsset.Token)
		}
		min, ok := new(big.Int).SetString(rawAsset.Min, 10)
		if !ok {
			return config, fmt.Errorf("invalid asset min liquidity: %s", rawAsset.Min)
		}
		max, ok := new(big.Int).SetString(rawAsset.Max, 10)
		if !ok {
			return config, fmt.Errorf("invalid asset max liquidity: %s", rawAsset.Max)
		}
		config.Assets = append(config.Assets, AssetConfig{
			Token: common.HexToAddress(rawAsset.Token),
			Min:   min,
			Max:   max,
		})
	}
	return config, nil
}

func newSettlementConfig(rawConfig RawSettlementConfig) (SettlementConfig, error) {
	config := SettlementConfig{
		FeeBPS: rawConfig.FeeBPS,
	}

	feeBase, ok := new(big.Int).SetString(rawConfig.FeeBase, 10)
	if !ok {
		return config, fmt.Errorf("invalid settlement fee base: %s", rawConfig.FeeBase)
	}
	timeout, err := time.ParseDuration(rawConfig.Timeout)
	if err != nil {
		return config, fmt.Errorf("invalid settlement timeout: %s", rawConfig.Timeout)
	}
	sweepInterval, err := time.ParseDuration(rawConfig.SweepInterval)
	if err != nil {
		return config, fmt.Errorf("invalid sweep interval: %s", rawConfig.SweepInterval)
	}

	config.FeeBase = feeBase
	config.Timeout = timeout
	config.SweepInterval = sweepInterval
	return config, nil
}
