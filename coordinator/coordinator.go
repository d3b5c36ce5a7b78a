// Package coordinator tracks, per (chain, event-name), how much of
// the chain has already been indexed (done) against how much the
// operator has asked for (wanted), gates individual event writes, and
// computes the gaps a gap-fill task still needs to close.
package coordinator

import (
	"context"
	"sync"

	"github.com/kadena-io/chainweb-indexer/interval"
	"github.com/kadena-io/chainweb-indexer/log"
	"github.com/kadena-io/chainweb-indexer/store"
)

var logger = log.NewModuleLogger(log.Coordinator)

// MinGlobalHeight is the lowest block height at which user events can
// occur on any chain; a nil/omitted lower bound in config clamps here.
const MinGlobalHeight int64 = 1138000

// MaxGlobalHeight clamps an omitted upper bound; effectively
// "no ceiling" for any height this system will see in its lifetime.
const MaxGlobalHeight int64 = 999999999

// Range is an optional [lo, hi] height bound as read from config: a
// nil Lo or Hi means "clamp to the global bound".
type Range struct {
	Lo *int64
	Hi *int64
}

// WantedTuple is one flattened (name, chain, lo, hi) entry, used for
// startup logging and index pruning.
type WantedTuple struct {
	Name  string
	Chain string
	Lo    int64
	Hi    int64
}

// Coordinator holds the wanted/done interval sets for every registered
// (chain, event-name) pair. All mutation and all reads consulted by
// ShouldIndex/Missing take the same mutex: the indexing path holding
// an active transaction and a chain's gap-fill task both mutate this
// state, so a single lock serializes them exactly as the teacher's
// checkpointMu serializes access to its checkpoint map.
type Coordinator struct {
	mu     sync.Mutex
	wanted map[string]map[string]*interval.Set
	done   map[string]map[string]*interval.Set

	store store.Store
}

// New returns an empty Coordinator backed by s for done-set
// persistence.
func New(s store.Store) *Coordinator {
	return &Coordinator{
		wanted: make(map[string]map[string]*interval.Set),
		done:   make(map[string]map[string]*interval.Set),
		store:  s,
	}
}

func clamp(r Range) *interval.Set {
	lo := MinGlobalHeight
	if r.Lo != nil {
		lo = *r.Lo
	}
	hi := MaxGlobalHeight
	if r.Hi != nil {
		hi = *r.Hi
	}
	return interval.Closed(lo, hi)
}

// RegisterEvent declares that name on chain should be indexed over
// rawRange, with a nil Lo replaced by MinGlobalHeight and a nil Hi by
// MaxGlobalHeight. Explicit bounds are used as given; they are not
// clamped into [MinGlobalHeight, MaxGlobalHeight]. Any
// previously-persisted done set is loaded, intersected down to the
// new wanted window (trimming coverage that falls outside a now
// tighter window), and immediately re-persisted.
func (c *Coordinator) RegisterEvent(ctx context.Context, chain, name string, rawRange Range) error {
	wanted := clamp(rawRange)

	persisted, found, err := c.store.LoadCoordinatorDoc(ctx, chain, name)
	if err != nil {
		return err
	}
	done := interval.Empty()
	if found {
		done = interval.FromPairs(persisted).Intersect(wanted)
	}

	c.mu.Lock()
	if c.wanted[chain] == nil {
		c.wanted[chain] = make(map[string]*interval.Set)
	}
	if c.done[chain] == nil {
		c.done[chain] = make(map[string]*interval.Set)
	}
	c.wanted[chain][name] = wanted
	c.done[chain][name] = done
	c.mu.Unlock()

	logger.Info("registered event", "name", name, "chain", chain, "range", wanted.ToPairs())
	return c.store.UpsertCoordinatorDoc(ctx, store.CoordinatorDoc{
		Chain: chain,
		Name:  name,
		Range: done.ToPairs(),
	})
}

// ShouldIndex reports whether an occurrence of name on chain at height
// is both wanted and not yet recorded as done.
func (c *Coordinator) ShouldIndex(chain, name string, height uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.wanted[chain][name]
	if !ok {
		return false
	}
	h := int64(height)
	if !w.Contains(h) {
		return false
	}
	d := c.done[chain][name]
	return d == nil || !d.Contains(h)
}

// ValidateBlock advances coverage for every event-name watched on
// chain to include height, regardless of whether that event actually
// fired in the block: a block that emits nothing still advances
// coverage for every watched event at that height. Changed coverage
// documents are queued and flushed in a single bulk-write under txn.
func (c *Coordinator) ValidateBlock(ctx context.Context, chain string, height uint64, txn store.Txn) error {
	return c.ValidateBlocks(ctx, chain, height, height, txn)
}

// ValidateBlocks is ValidateBlock generalized to the closed interval
// [lo, hi].
func (c *Coordinator) ValidateBlocks(ctx context.Context, chain string, lo, hi uint64, txn store.Txn) error {
	extension := interval.Closed(int64(lo), int64(hi))

	c.mu.Lock()
	var changed []store.CoordinatorDoc
	for name, wanted := range c.wanted[chain] {
		current := c.done[chain][name]
		if current == nil {
			current = interval.Empty()
		}
		next := current.Union(extension).Intersect(wanted)
		if next.Equal(current) {
			continue
		}
		c.done[chain][name] = next
		changed = append(changed, store.CoordinatorDoc{Chain: chain, Name: name, Range: next.ToPairs()})
	}
	c.mu.Unlock()

	if len(changed) == 0 {
		return nil
	}
	return c.store.BulkUpsertCoordinator(ctx, changed, txn)
}

// Missing returns the union, over every event-name watched on chain,
// of wanted-minus-done clipped to [0, maxHeight], in ascending order.
// The gap-fill caller walks the returned ranges in descending order so
// the newest gap closes first.
func (c *Coordinator) Missing(chain string, maxHeight uint64) *interval.Set {
	c.mu.Lock()
	defer c.mu.Unlock()

	ceiling := interval.Closed(0, int64(maxHeight))
	out := interval.Empty()
	for name, wanted := range c.wanted[chain] {
		done := c.done[chain][name]
		if done == nil {
			done = interval.Empty()
		}
		out = out.Union(wanted.Difference(done))
	}
	return out.Intersect(ceiling)
}

// Wanted flattens every registered (chain, event-name) pair to a
// WantedTuple, for startup logging and index pruning.
func (c *Coordinator) Wanted() []WantedTuple {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []WantedTuple
	for chain, byName := range c.wanted {
		for name, set := range byName {
			for _, r := range set.Ranges() {
				out = append(out, WantedTuple{Name: name, Chain: chain, Lo: r.Lo, Hi: r.Hi})
			}
		}
	}
	return out
}
