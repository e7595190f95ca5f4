package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Fintechain/gfs-core/settlement"
)

// StartSettlementSweepJob periodically expires open settlements older than
// maxAge, releasing their locked liquidity. This is the recovery path for
// cross-chain legs whose confirmation never arrives.
func StartSettlementSweepJob(ctx context.Context, controller *settlement.Controller, interval, maxAge time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-time.After(interval):
		}

		log.Info().Msg("Starting settlement sweep")
		if err := controller.ExpireStale(ctx, maxAge); err != nil {
			log.Err(err).Msg("settlement sweep error")
		}
	}
}
