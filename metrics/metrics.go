// Package metrics exposes the in-process gauges the indexer updates
// as it runs: per-chain tip height, queue depth, and gap-fill retry
// counts, in the naming style of the teacher's chain-data-fetcher
// instrumentation (one package-level metrics.Gauge per concern,
// updated inline at the point of interest).
package metrics

import (
	"fmt"

	"github.com/rcrowley/go-metrics"
)

var (
	liveBlockGauge      = metrics.NewRegisteredGauge("indexer/live/blocks", nil)
	liveQueueDepthGauge = metrics.NewRegisteredGauge("indexer/live/queueDepth", nil)
	gapFillRetryGauge   = metrics.NewRegisteredGauge("indexer/gapfill/retries", nil)
	gapFillBlockGauge   = metrics.NewRegisteredGauge("indexer/gapfill/blocks", nil)
)

// tipGauges lazily holds one gauge per chain, registered on first use
// since the chain set is only known once config is read.
var tipGauges = make(map[string]metrics.Gauge)

func tipGauge(chain string) metrics.Gauge {
	g, ok := tipGauges[chain]
	if !ok {
		g = metrics.NewRegisteredGauge(fmt.Sprintf("indexer/chain/%s/tip", chain), nil)
		tipGauges[chain] = g
	}
	return g
}

// RecordTip updates the observed tip height for chain.
func RecordTip(chain string, height uint64) {
	tipGauge(chain).Update(int64(height))
}

// RecordLiveBlock increments the count of blocks consumed off the
// live stream and records the current live-channel queue depth.
func RecordLiveBlock(queueDepth int) {
	liveBlockGauge.Update(liveBlockGauge.Value() + 1)
	liveQueueDepthGauge.Update(int64(queueDepth))
}

// RecordGapFillBlock increments the count of blocks indexed by
// gap-fill tasks.
func RecordGapFillBlock() {
	gapFillBlockGauge.Update(gapFillBlockGauge.Value() + 1)
}

// RecordGapFillRetry increments the gap-fill retry counter, mirroring
// the teacher's getRetryGauge/updateGauge instrumentation around its
// own retry loop.
func RecordGapFillRetry() {
	gapFillRetryGauge.Update(gapFillRetryGauge.Value() + 1)
}
