// The Licensed Work is (c) 2024 Fintechain
// SPDX-License-Identifier: LGPL-3.0-only

package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/Fintechain/gfs-core/auth"
	"github.com/Fintechain/gfs-core/config"
	"github.com/Fintechain/gfs-core/coordinator"
	"github.com/Fintechain/gfs-core/events"
	"github.com/Fintechain/gfs-core/health"
	"github.com/Fintechain/gfs-core/jobs"
	"github.com/Fintechain/gfs-core/liquidity"
	"github.com/Fintechain/gfs-core/logger"
	"github.com/Fintechain/gfs-core/lvldb"
	"github.com/Fintechain/gfs-core/messages"
	"github.com/Fintechain/gfs-core/metrics"
	"github.com/Fintechain/gfs-core/processor"
	"github.com/Fintechain/gfs-core/relay"
	"github.com/Fintechain/gfs-core/router"
	"github.com/Fintechain/gfs-core/settlement"
	"github.com/Fintechain/gfs-core/store"
	"github.com/Fintechain/gfs-core/tokens"
)

var loopbackDelay = time.Second

func Run() error {
	var err error

	configFlag := viper.GetString(config.ConfigFlagName)
	configURL := viper.GetString(config.ConfigURLFlagName)

	configuration := &config.Config{}
	if configURL != "" {
		configuration, err = config.GetSharedConfigFromNetwork(configURL, configuration)
		panicOnError(err)
	}

	if strings.ToLower(configFlag) == "env" {
		configuration, err = config.GetConfigFromENV(configuration)
		panicOnError(err)
	} else {
		configuration, err = config.GetConfigFromFile(configFlag, configuration)
		panicOnError(err)
	}

	engineConfig := configuration.EngineConfig
	err = logger.ConfigureLogger(engineConfig.LogLevel, os.Stdout, engineConfig.LogFile)
	panicOnError(err)

	log.Info().Msg("Successfully loaded configuration")

	db, err := lvldb.NewLvlDB(viper.GetString(config.BlockstoreFlagName))
	panicOnError(err)
	defer db.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	bus := events.NewBus(256)
	if engineConfig.OpenTelemetryCollectorURL != "" {
		meterProvider, err := metrics.InitMeterProvider(ctx, engineConfig.OpenTelemetryCollectorURL)
		panicOnError(err)
		engineMetrics, err := metrics.NewEngineMetrics(
			meterProvider.Meter("gfs-core"),
			engineConfig.Environment,
			viper.GetString("name"),
		)
		panicOnError(err)
		go engineMetrics.ObserveEvents(ctx, bus.Subscribe())
	}

	messageStore := store.NewMessageStore(db)
	targetStore := store.NewTargetStore(db)
	deliveryStore := store.NewDeliveryStore(db)
	settlementStore := settlement.NewStore(db)

	ledger := tokens.NewLedger()
	pool, err := liquidity.NewPool(engineConfig.PoolConfig.Address, ledger, liquidity.NewSnapshotter(db))
	panicOnError(err)
	pool.SetPermissionless(engineConfig.PoolConfig.Permissionless)
	for _, asset := range engineConfig.PoolConfig.Assets {
		err := pool.RegisterAsset(asset.Token, asset.Min, asset.Max)
		if err != nil && !errors.Is(err, liquidity.ErrAssetAlreadyActive) {
			panicOnError(err)
		}
	}

	protocol := messages.NewProtocol()
	registerDefaultFormats(protocol)

	proc := processor.NewProcessor(bus)
	processor.RegisterDefaultHandlers(proc)

	loopback := relay.NewLoopback(loopbackDelay)
	messageRouter := router.NewRouter(engineConfig.LocalChainID, loopback, deliveryStore, bus)
	for _, chain := range configuration.ChainConfigs {
		messageRouter.SetChainFees(chain.ChainID, router.ChainFees{
			BaseGas:    chain.BaseGas,
			GasPerByte: chain.GasPerByte,
			GasPrice:   chain.GasPrice,
		})
		err := messageRouter.SetChainGasLimit(chain.ChainID, chain.GasLimit)
		panicOnError(err)
	}

	controller := settlement.NewController(
		engineConfig.LocalChainID,
		settlementStore,
		pool,
		loopback,
		settlement.FeeParams{
			Base:          engineConfig.SettlementConfig.FeeBase,
			CrossChainBPS: engineConfig.SettlementConfig.FeeBPS,
		},
		bus,
	)

	authTable := auth.NewTable(engineConfig.Admin)
	coord := coordinator.NewCoordinator(
		coordinator.Config{
			LocalChain:     engineConfig.LocalChainID,
			BaseFee:        engineConfig.BaseFee,
			MaxMessageSize: engineConfig.MaxMessageSize,
		},
		messageStore,
		targetStore,
		protocol,
		proc,
		messageRouter,
		controller,
		authTable,
		bus,
	)
	loopback.SetDeliveryConfirmer(coord)
	loopback.SetSettlementConfirmer(coord)

	for _, chain := range configuration.ChainConfigs {
		err := coord.RegisterRelaySender(engineConfig.Admin, chain.ChainID, chain.RelaySender)
		panicOnError(err)
	}
	for _, target := range configuration.Targets {
		err := targetStore.Register(&messages.Target{
			Address:  target.Address,
			ChainID:  target.ChainID,
			Type:     messages.TargetType(target.Type),
			Active:   true,
			Metadata: target.Metadata,
		})
		panicOnError(err)
	}

	go health.StartHealthEndpoint(engineConfig.HealthPort)
	go jobs.StartSettlementSweepJob(
		ctx,
		controller,
		engineConfig.SettlementConfig.SweepInterval,
		engineConfig.SettlementConfig.Timeout,
	)

	log.Info().
		Uint64("localChain", engineConfig.LocalChainID).
		Msg("Started gfs-core engine")

	sysErr := make(chan os.Signal, 1)
	signal.Notify(sysErr, syscall.SIGTERM, syscall.SIGINT)
	sig := <-sysErr
	log.Info().Msgf("terminating got [%v] signal", sig)
	return nil
}

// registerDefaultFormats wires the minimal wire-shape checks for the
// built-in ISO20022-style message set.
func registerDefaultFormats(protocol *messages.Protocol) {
	protocol.RegisterFormat(messages.CustomerCreditTransfer, messages.Format{
		MinLength: 2,
		RequiredFields: [][]byte{
			[]byte("amount"),
			[]byte("recipient"),
		},
	})
	protocol.RegisterFormat(messages.FICreditTransfer, messages.Format{
		MinLength: 2,
		RequiredFields: [][]byte{
			[]byte("amount"),
			[]byte("recipient"),
		},
	})
	protocol.RegisterFormat(messages.PaymentCancellationRequest, messages.Format{
		MinLength: 2,
		RequiredFields: [][]byte{
			[]byte("originalMessageId"),
		},
	})
	protocol.RegisterFormat(messages.PaymentStatusReport, messages.Format{
		MinLength: 2,
	})
}

func panicOnError(err error) {
	if err != nil {
		panic(err)
	}
}
