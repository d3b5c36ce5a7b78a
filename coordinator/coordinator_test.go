package coordinator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadena-io/chainweb-indexer/store"
)

// fakeStore is an in-memory store.Store good enough to exercise the
// coordinator's persistence calls without a real MongoDB instance.
type fakeStore struct {
	mu   sync.Mutex
	docs map[[2]string][][2]int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{docs: make(map[[2]string][][2]int64)}
}

func (f *fakeStore) Connect(ctx context.Context) error      { return nil }
func (f *fakeStore) ServerVersion(ctx context.Context) (string, error) { return "fake", nil }
func (f *fakeStore) Close(ctx context.Context) error         { return nil }
func (f *fakeStore) EnsureIndexes(ctx context.Context, names []string) error { return nil }
func (f *fakeStore) Prune(ctx context.Context, name, chain string, lo, hi int64) error { return nil }

func (f *fakeStore) LoadCoordinatorDoc(ctx context.Context, chain, name string) ([][2]int64, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.docs[[2]string{chain, name}]
	return v, ok, nil
}

func (f *fakeStore) UpsertCoordinatorDoc(ctx context.Context, doc store.CoordinatorDoc) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.docs[[2]string{doc.Chain, doc.Name}] = doc.Range
	return nil
}

func (f *fakeStore) BulkUpsertCoordinator(ctx context.Context, docs []store.CoordinatorDoc, txn store.Txn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range docs {
		f.docs[[2]string{doc.Chain, doc.Name}] = doc.Range
	}
	return nil
}

func (f *fakeStore) InsertEvent(ctx context.Context, eventName string, doc store.EventDoc, txn store.Txn) error {
	return nil
}

func (f *fakeStore) WithTransaction(ctx context.Context, fn func(txn store.Txn) error) error {
	return fn(nil)
}

func i64(v int64) *int64 { return &v }

func TestRegisterEventClampsAndTrimsPersistedDone(t *testing.T) {
	fs := newFakeStore()
	fs.docs[[2]string{"0", "transfer"}] = [][2]int64{{1000, 2000}}

	c := New(fs)
	require.NoError(t, c.RegisterEvent(context.Background(), "0", "transfer", Range{Lo: i64(1500), Hi: i64(1800)}))

	c.mu.Lock()
	done := c.done["0"]["transfer"]
	wanted := c.wanted["0"]["transfer"]
	c.mu.Unlock()

	assert.Equal(t, [][2]int64{{1500, 1800}}, done.ToPairs())
	assert.Equal(t, [][2]int64{{1500, 1800}}, wanted.ToPairs())
	assert.Equal(t, [][2]int64{{1500, 1800}}, fs.docs[[2]string{"0", "transfer"}])
}

func TestRegisterEventDefaultsOpenBoundsToGlobal(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)
	require.NoError(t, c.RegisterEvent(context.Background(), "1", "transfer", Range{}))

	c.mu.Lock()
	wanted := c.wanted["1"]["transfer"]
	c.mu.Unlock()
	assert.Equal(t, [][2]int64{{MinGlobalHeight, MaxGlobalHeight}}, wanted.ToPairs())
}

func TestShouldIndexGatesOnWantedAndDone(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)
	require.NoError(t, c.RegisterEvent(context.Background(), "0", "transfer", Range{Lo: i64(1000), Hi: i64(2000)}))

	assert.True(t, c.ShouldIndex("0", "transfer", 1500))
	assert.False(t, c.ShouldIndex("0", "transfer", 500))
	assert.False(t, c.ShouldIndex("0", "unknown-event", 1500))

	require.NoError(t, c.ValidateBlock(context.Background(), "0", 1500, nil))
	assert.False(t, c.ShouldIndex("0", "transfer", 1500))
}

func TestValidateBlockAdvancesEveryWatchedEventRegardlessOfFiring(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)
	require.NoError(t, c.RegisterEvent(context.Background(), "0", "transfer", Range{Lo: i64(1000), Hi: i64(2000)}))
	require.NoError(t, c.RegisterEvent(context.Background(), "0", "mint", Range{Lo: i64(1000), Hi: i64(2000)}))

	require.NoError(t, c.ValidateBlock(context.Background(), "0", 1200, nil))

	assert.False(t, c.ShouldIndex("0", "transfer", 1200))
	assert.False(t, c.ShouldIndex("0", "mint", 1200))
}

func TestMissingReturnsAscendingGapsForDescendingGapFill(t *testing.T) {
	fs := newFakeStore()
	fs.docs[[2]string{"0", "transfer"}] = [][2]int64{{1000, 1099}, {1200, 1299}}

	c := New(fs)
	require.NoError(t, c.RegisterEvent(context.Background(), "0", "transfer", Range{Lo: i64(1000), Hi: i64(1500)}))

	missing := c.Missing("0", 1499)
	assert.Equal(t, [][2]int64{{1100, 1199}, {1300, 1499}}, missing.ToPairs())
}

func TestValidateBlocksExtendsByClosedInterval(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)
	require.NoError(t, c.RegisterEvent(context.Background(), "0", "transfer", Range{Lo: i64(1000), Hi: i64(2000)}))

	require.NoError(t, c.ValidateBlocks(context.Background(), "0", 1300, 1499, nil))

	missing := c.Missing("0", 1499)
	assert.Equal(t, [][2]int64{{1000, 1299}}, missing.ToPairs())
}

func TestWantedFlattensRegisteredRanges(t *testing.T) {
	fs := newFakeStore()
	c := New(fs)
	require.NoError(t, c.RegisterEvent(context.Background(), "0", "transfer", Range{Lo: i64(1000), Hi: i64(2000)}))
	require.NoError(t, c.RegisterEvent(context.Background(), "1", "mint", Range{Lo: i64(5000), Hi: i64(6000)}))

	tuples := c.Wanted()
	require.Len(t, tuples, 2)
	assert.Contains(t, tuples, WantedTuple{Name: "transfer", Chain: "0", Lo: 1000, Hi: 2000})
	assert.Contains(t, tuples, WantedTuple{Name: "mint", Chain: "1", Lo: 5000, Hi: 6000})
}
