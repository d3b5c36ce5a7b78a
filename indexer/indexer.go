// Package indexer orchestrates the chainweb client, the coordinator
// and the store into the running service: it loads configuration,
// provisions indexes, prunes out-of-range state, consumes the live
// block stream, and runs one gap-fill task per observed chain.
package indexer

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/kadena-io/chainweb-indexer/chainweb"
	"github.com/kadena-io/chainweb-indexer/config"
	"github.com/kadena-io/chainweb-indexer/coordinator"
	"github.com/kadena-io/chainweb-indexer/interval"
	"github.com/kadena-io/chainweb-indexer/log"
	"github.com/kadena-io/chainweb-indexer/metrics"
	"github.com/kadena-io/chainweb-indexer/store"
)

var logger = log.NewModuleLogger(log.Indexer)

// gapFillPeriod is how long a gap-fill task sleeps between passes
// over a chain's missing ranges, and how long it sleeps before
// retrying after an error.
const gapFillPeriod = 120 * time.Second

// progressLogInterval logs gap-fill progress every this many blocks
// within one interval.
const progressLogInterval = 1000

//go:generate mockgen -destination=./mocks/blocksource_mock.go -package=mocks github.com/kadena-io/chainweb-indexer/indexer BlockSource

// BlockSource is the subset of chainweb.Client the indexer depends
// on; satisfied by *chainweb.Client in production and by a hand
// written mock in tests.
type BlockSource interface {
	Open(ctx context.Context) error
	GetBlocks(ctx context.Context, chain, parentHash string, minHeight, maxHeight uint64) <-chan chainweb.BlockOrErr
	Stream(ctx context.Context) <-chan chainweb.BlockOrErr
	Close() error
}

// Publisher is the subset of publish.Publisher the indexer depends on,
// so the optional Kafka sink can be swapped for a no-op in tests.
type Publisher interface {
	Publish(doc store.EventDoc) error
}

// Indexer binds a BlockSource, a Coordinator and a Store into the
// running service described by the startup sequence and run loop.
type Indexer struct {
	cfg       *config.Config
	client    BlockSource
	store     store.Store
	coord     *coordinator.Coordinator
	publisher Publisher // nil unless config names a publish section

	tipsMu       sync.Mutex
	tips         map[string]*chainweb.Block
	startedChain map[string]bool

	wg sync.WaitGroup
}

// New wires an Indexer from already-constructed dependencies, letting
// cmd/indexer and tests substitute any BlockSource/Store
// implementation.
func New(cfg *config.Config, client BlockSource, s store.Store) *Indexer {
	return &Indexer{
		cfg:          cfg,
		client:       client,
		store:        s,
		coord:        coordinator.New(s),
		tips:         make(map[string]*chainweb.Block),
		startedChain: make(map[string]bool),
	}
}

// WithPublisher attaches the optional event republishing sink.
func (ix *Indexer) WithPublisher(p Publisher) *Indexer {
	ix.publisher = p
	return ix
}

// Run executes the full startup sequence, then the run loop, blocking
// until ctx is cancelled or an unrecoverable startup error occurs.
func (ix *Indexer) Run(ctx context.Context) error {
	if err := ix.startup(ctx); err != nil {
		return err
	}

	if err := ix.client.Open(ctx); err != nil {
		return errors.Wrap(err, "opening chainweb client")
	}
	defer ix.client.Close()

	for msg := range ix.client.Stream(ctx) {
		if msg.Err != nil {
			logger.Error("error reading live block", "err", msg.Err)
			continue
		}
		if err := ix.indexBlock(ctx, msg.Block); err != nil {
			logger.Error("failed to index live block", "chain", msg.Block.Header.Chain, "height", msg.Block.Header.Height, "err", err)
			continue
		}
		ix.recordTip(ctx, msg.Block)
	}

	ix.wg.Wait()
	return nil
}

func (ix *Indexer) startup(ctx context.Context) error {
	if err := ix.store.Connect(ctx); err != nil {
		return errors.Wrap(err, "connecting to store")
	}
	version, err := ix.store.ServerVersion(ctx)
	if err != nil {
		return errors.Wrap(err, "reading store server version")
	}
	logger.Info("connected to store", "version", version)

	eventNames := make(map[string]bool)
	for _, e := range ix.cfg.Events {
		eventNames[e.Name] = true
		for _, chain := range e.Chains {
			if err := ix.coord.RegisterEvent(ctx, chain, e.Name, coordinator.Range{Lo: e.Height[0], Hi: e.Height[1]}); err != nil {
				return errors.Wrapf(err, "registering %s on chain %s", e.Name, chain)
			}
		}
	}

	names := make([]string, 0, len(eventNames))
	for name := range eventNames {
		names = append(names, name)
	}
	if err := ix.store.EnsureIndexes(ctx, names); err != nil {
		return errors.Wrap(err, "provisioning indexes")
	}

	for _, w := range ix.coord.Wanted() {
		if err := ix.store.Prune(ctx, w.Name, w.Chain, w.Lo, w.Hi); err != nil {
			return errors.Wrapf(err, "pruning %s on chain %s", w.Name, w.Chain)
		}
	}
	return nil
}

// indexBlock persists a block's qualified events and advances
// coverage for the block's chain, all inside a single store
// transaction so the pair either both commit or both abort.
func (ix *Indexer) indexBlock(ctx context.Context, blk *chainweb.Block) error {
	events, err := blk.Events()
	if err != nil {
		return errors.Wrap(err, "decoding block events")
	}

	var indexed []store.EventDoc
	err = ix.store.WithTransaction(ctx, func(txn store.Txn) error {
		indexed = indexed[:0]
		for _, ev := range events {
			if !ix.coord.ShouldIndex(ev.Chain, ev.Name, ev.Height) {
				continue
			}
			params := make([]interface{}, len(ev.Params))
			for i, p := range ev.Params {
				params[i] = p.Native()
			}
			doc := store.EventDoc{
				Name:      ev.Name,
				ReqKey:    ev.ReqKey,
				Chain:     ev.Chain,
				Block:     ev.Block,
				Rank:      ev.Rank,
				Height:    ev.Height,
				Timestamp: ev.Timestamp,
				Params:    params,
			}
			if err := ix.store.InsertEvent(ctx, ev.Name, doc, txn); err != nil {
				return err
			}
			indexed = append(indexed, doc)
		}
		return ix.coord.ValidateBlock(ctx, blk.Header.Chain, blk.Header.Height, txn)
	})
	if err != nil {
		return err
	}
	if ix.publisher != nil {
		for _, doc := range indexed {
			if err := ix.publisher.Publish(doc); err != nil {
				logger.Warn("failed to publish event", "name", doc.Name, "height", doc.Height, "err", err)
			}
		}
	}
	return nil
}

func (ix *Indexer) recordTip(ctx context.Context, blk *chainweb.Block) {
	chain := blk.Header.Chain
	metrics.RecordTip(chain, blk.Header.Height)

	ix.tipsMu.Lock()
	prev, hadTip := ix.tips[chain]
	if !hadTip || blk.Header.Height > prev.Header.Height {
		ix.tips[chain] = blk
	}
	started := ix.startedChain[chain]
	if !started {
		ix.startedChain[chain] = true
	}
	ix.tipsMu.Unlock()

	if !started {
		ix.wg.Add(1)
		go func() {
			defer ix.wg.Done()
			ix.gapFill(ctx, chain)
		}()
	}
}

func (ix *Indexer) tip(chain string) *chainweb.Block {
	ix.tipsMu.Lock()
	defer ix.tipsMu.Unlock()
	return ix.tips[chain]
}

// gapFill runs until ctx is cancelled: each pass snapshots the
// chain's tip, asks the coordinator for the missing ranges below it,
// and walks them in descending order so the newest gap closes first.
func (ix *Indexer) gapFill(ctx context.Context, chain string) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := ix.gapFillOnce(ctx, chain); err != nil {
			logger.Error("gap fill pass failed", "chain", chain, "err", err)
			metrics.RecordGapFillRetry()
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(gapFillPeriod):
		}
	}
}

func (ix *Indexer) gapFillOnce(ctx context.Context, chain string) error {
	tip := ix.tip(chain)
	if tip == nil || tip.Header.Height == 0 {
		return nil
	}

	missing := ix.coord.Missing(chain, tip.Header.Height-1)
	ranges := append([]interval.Range{}, missing.Ranges()...)
	sort.Slice(ranges, func(i, j int) bool { return ranges[i].Lo > ranges[j].Lo })

	for _, r := range ranges {
		if ctx.Err() != nil {
			return nil
		}
		logger.Info("fill hole start", "chain", chain, "lo", r.Lo, "hi", r.Hi)
		count := 0
		for msg := range ix.client.GetBlocks(ctx, chain, tip.Header.Hash, uint64(r.Lo), uint64(r.Hi)) {
			if msg.Err != nil {
				return msg.Err
			}
			if err := ix.indexBlock(ctx, msg.Block); err != nil {
				return err
			}
			metrics.RecordGapFillBlock()
			count++
			if count%progressLogInterval == 0 {
				logger.Info("fill hole progress", "chain", chain, "lo", r.Lo, "hi", r.Hi, "blocksIndexed", count)
			}
		}
		logger.Info("fill hole done", "chain", chain, "lo", r.Lo, "hi", r.Hi, "blocksIndexed", count)
	}
	return nil
}
