// Package store abstracts the persisted document layout (coordinator
// coverage documents plus per-event-name collections) behind an
// interface, so the coordinator and indexer packages depend on
// behaviour, not on go.mongodb.org/mongo-driver directly. mongo.go
// supplies the only production implementation.
package store

import (
	"context"
	"time"
)

// Txn is an opaque transaction handle a Store hands back from
// WithTransaction and expects unchanged in subsequent calls scoped to
// that transaction. Its concrete type is implementation-defined.
type Txn interface{}

// CoordinatorDoc is the persisted coverage record for one
// (chain, event-name) pair.
type CoordinatorDoc struct {
	Chain string
	Name  string
	Range [][2]int64
}

// EventDoc is one qualified, persisted contract event.
type EventDoc struct {
	Name      string
	ReqKey    string
	Chain     string
	Block     string
	Rank      int
	Height    uint64
	Timestamp time.Time
	Params    []interface{}
}

// Store is the persistence surface the coordinator and indexer
// packages need: coordinator coverage documents, event insertion,
// index provisioning, pruning, and a single-transaction envelope tying
// a block's event inserts to its coverage update.
type Store interface {
	// Connect establishes the underlying connection. ServerVersion
	// reports the connected server's version string for startup
	// logging.
	Connect(ctx context.Context) error
	ServerVersion(ctx context.Context) (string, error)
	Close(ctx context.Context) error

	// EnsureIndexes provisions the coordinator collection's
	// (name, chain) index and, for each named event collection, the
	// reqKey/height/block/ts single-field indexes plus the
	// (chain, height) compound pruning index. Existing indexes are
	// left alone.
	EnsureIndexes(ctx context.Context, eventNames []string) error

	// LoadCoordinatorDoc returns the persisted range for (chain, name),
	// or found=false if no document exists yet.
	LoadCoordinatorDoc(ctx context.Context, chain, name string) (rng [][2]int64, found bool, err error)

	// UpsertCoordinatorDoc writes a single coverage document outside
	// of any block transaction (used by RegisterEvent's startup trim).
	UpsertCoordinatorDoc(ctx context.Context, doc CoordinatorDoc) error

	// BulkUpsertCoordinator writes every given coverage document under
	// txn, in one bulk operation.
	BulkUpsertCoordinator(ctx context.Context, docs []CoordinatorDoc, txn Txn) error

	// InsertEvent inserts one event document into its name's
	// collection under txn.
	InsertEvent(ctx context.Context, eventName string, doc EventDoc, txn Txn) error

	// Prune deletes every document from eventName's collection with
	// chain==chain and height outside [lo, hi].
	Prune(ctx context.Context, eventName, chain string, lo, hi int64) error

	// WithTransaction runs fn inside a single store transaction,
	// committing iff fn returns nil and aborting otherwise.
	WithTransaction(ctx context.Context, fn func(txn Txn) error) error
}
