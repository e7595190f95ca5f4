// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: BUSL-1.1

package config

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/imdario/mergo"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/Fintechain/gfs-core/config/engine"
)

type Config struct {
	EngineConfig engine.EngineConfig
	ChainConfigs []ChainConfig
	Targets      []TargetConfig

	sharedChainConfigs []map[string]interface{}
}

// ChainConfig describes one reachable remote chain: its routing fee
// parameters, execution gas limit and the address accepted as inbound relay
// sender.
type ChainConfig struct {
	ChainID     uint64
	GasLimit    uint64
	BaseGas     uint64
	GasPerByte  uint64
	GasPrice    *big.Int
	RelaySender common.Address
}

// TargetConfig pre-registers a participant at startup.
type TargetConfig struct {
	Address  common.Address
	ChainID  uint64
	Type     string
	Metadata []byte
}

type RawConfig struct {
	EngineConfig engine.RawEngineConfig   `mapstructure:"engine" json:"engine"`
	ChainConfigs []map[string]interface{} `mapstructure:"chains" json:"chains"`
	Targets      []map[string]interface{} `mapstructure:"targets" json:"targets"`
}

type RawChainConfig struct {
	ChainID     uint64 `mapstructure:"chainId" json:"chainId"`
	GasLimit    uint64 `mapstructure:"gasLimit" json:"gasLimit" default:"10000000"`
	BaseGas     uint64 `mapstructure:"baseGas" json:"baseGas" default:"100000"`
	GasPerByte  uint64 `mapstructure:"gasPerByte" json:"gasPerByte" default:"16"`
	GasPrice    string `mapstructure:"gasPrice" json:"gasPrice" default:"1"`
	RelaySender string `mapstructure:"relaySender" json:"relaySender"`
}

type RawTargetConfig struct {
	Address  string `mapstructure:"address" json:"address"`
	ChainID  uint64 `mapstructure:"chainId" json:"chainId"`
	Type     string `mapstructure:"type" json:"type" default:"institution"`
	Metadata string `mapstructure:"metadata" json:"metadata"`
}

// GetConfigFromENV reads config from Env variables, validates it and parses
// it into config suitable for application
//
// Properties of EngineConfig are expected to be defined as separate Env
// variables where Env variable name reflects properties position in
// structure. Each Env variable needs to be prefixed with GFS.
//
// For example, if you want to set Config.EngineConfig.HealthPort this would
// translate to Env variable named GFS_ENGINE_HEALTHPORT.
func GetConfigFromENV(config *Config) (*Config, error) {
	rawConfig, err := loadFromEnv()
	if err != nil {
		return config, err
	}

	return processRawConfig(rawConfig, config)
}

// GetConfigFromFile reads config from file, validates it and parses
// it into config suitable for application
func GetConfigFromFile(path string, config *Config) (*Config, error) {
	rawConfig := RawConfig{}

	viper.SetConfigFile(path)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return config, err
	}

	err = viper.Unmarshal(&rawConfig)
	if err != nil {
		return config, err
	}

	return processRawConfig(rawConfig, config)
}

// GetSharedConfigFromNetwork fetches shared chain configuration from URL and
// parses it. Entries merge over the local chain configs.
func GetSharedConfigFromNetwork(url string, config *Config) (*Config, error) {
	rawConfig := RawConfig{}

	resp, err := http.Get(url)
	if err != nil {
		return &Config{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Config{}, err
	}

	err = json.Unmarshal(body, &rawConfig)
	if err != nil {
		return &Config{}, err
	}

	config.sharedChainConfigs = rawConfig.ChainConfigs
	return config, nil
}

func processRawConfig(rawConfig RawConfig, config *Config) (*Config, error) {
	if err := defaults.Set(&rawConfig); err != nil {
		return config, err
	}

	engineConfig, err := engine.NewEngineConfig(rawConfig.EngineConfig)
	if err != nil {
		return config, err
	}

	chainConfigs, err := parseChainConfigs(rawConfig.ChainConfigs, config.sharedChainConfigs)
	if err != nil {
		return config, err
	}
	targets, err := parseTargetConfigs(rawConfig.Targets)
	if err != nil {
		return config, err
	}

	config.EngineConfig = engineConfig
	config.ChainConfigs = chainConfigs
	config.Targets = targets
	return config, nil
}

func parseChainConfigs(rawChains []map[string]interface{}, shared []map[string]interface{}) ([]ChainConfig, error) {
	chainConfigs := make([]ChainConfig, 0, len(rawChains))
	for i, chain := range rawChains {
		if i < len(shared) && shared[i] != nil {
			if err := mergo.Merge(&chain, shared[i]); err != nil {
				return nil, err
			}
		}

		rawChain := RawChainConfig{}
		if err := mapstructure.Decode(chain, &rawChain); err != nil {
			return nil, err
		}
		if err := defaults.Set(&rawChain); err != nil {
			return nil, err
		}
		if rawChain.ChainID == 0 {
			return nil, fmt.Errorf("chain 'chainId' must be provided for every configured chain")
		}

		gasPrice, ok := new(big.Int).SetString(rawChain.GasPrice, 10)
		if !ok {
			return nil, fmt.Errorf("invalid gas price for chain %d: %s", rawChain.ChainID, rawChain.GasPrice)
		}
		chainConfigs = append(chainConfigs, ChainConfig{
			ChainID:     rawChain.ChainID,
			GasLimit:    rawChain.GasLimit,
			BaseGas:     rawChain.BaseGas,
			GasPerByte:  rawChain.GasPerByte,
			GasPrice:    gasPrice,
			RelaySender: common.HexToAddress(rawChain.RelaySender),
		})
	}
	return chainConfigs, nil
}

func parseTargetConfigs(rawTargets []map[string]interface{}) ([]TargetConfig, error) {
	targets := make([]TargetConfig, 0, len(rawTargets))
	for _, target := range rawTargets {
		rawTarget := RawTargetConfig{}
		if err := mapstructure.Decode(target, &rawTarget); err != nil {
			return nil, err
		}
		if err := defaults.Set(&rawTarget); err != nil {
			return nil, err
		}
		if !common.IsHexAddress(rawTarget.Address) {
			return nil, fmt.Errorf("invalid target address: %s", rawTarget.Address)
		}

		targets = append(targets, TargetConfig{
			Address:  common.HexToAddress(rawTarget.Address),
			ChainID:  rawTarget.ChainID,
			Type:     rawTarget.Type,
			Metadata: []byte(rawTarget.Metadata),
		})
	}
	return targets, nil
}
