package store

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/kadena-io/chainweb-indexer/log"
)

var logger = log.NewModuleLogger(log.Store)

const coordinatorCollection = "coordinator"

// MongoStore is the production Store backed by go.mongodb.org/mongo-driver.
type MongoStore struct {
	uri    string
	dbName string

	client *mongo.Client
	db     *mongo.Database
}

// NewMongoStore returns a store that will connect to uri and operate
// against database dbName once Connect is called.
func NewMongoStore(uri, dbName string) *MongoStore {
	return &MongoStore{uri: uri, dbName: dbName}
}

func (s *MongoStore) Connect(ctx context.Context) error {
	opts := options.Client().ApplyURI(s.uri)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return errors.Wrap(err, "connecting to mongo")
	}
	if err := client.Ping(ctx, nil); err != nil {
		return errors.Wrap(err, "pinging mongo")
	}
	s.client = client
	s.db = client.Database(s.dbName)
	return nil
}

func (s *MongoStore) ServerVersion(ctx context.Context) (string, error) {
	var result bson.M
	err := s.db.RunCommand(ctx, bson.D{{Key: "buildInfo", Value: 1}}).Decode(&result)
	if err != nil {
		return "", errors.Wrap(err, "running buildInfo")
	}
	version, _ := result["version"].(string)
	return version, nil
}

func (s *MongoStore) Close(ctx context.Context) error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

func (s *MongoStore) coordinatorColl() *mongo.Collection {
	return s.db.Collection(coordinatorCollection)
}

func (s *MongoStore) eventColl(name string) *mongo.Collection {
	return s.db.Collection(name)
}

func (s *MongoStore) EnsureIndexes(ctx context.Context, eventNames []string) error {
	_, err := s.coordinatorColl().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}, {Key: "chain", Value: 1}},
		Options: options.Index().SetUnique(true).SetName("name_chain"),
	})
	if err != nil {
		return errors.Wrap(err, "creating coordinator index")
	}

	for _, name := range eventNames {
		coll := s.eventColl(name)
		models := []mongo.IndexModel{
			{Keys: bson.D{{Key: "reqKey", Value: 1}}, Options: options.Index().SetName("st_reqKey")},
			{Keys: bson.D{{Key: "height", Value: 1}}, Options: options.Index().SetName("st_height")},
			{Keys: bson.D{{Key: "block", Value: 1}}, Options: options.Index().SetName("st_block")},
			{Keys: bson.D{{Key: "ts", Value: 1}}, Options: options.Index().SetName("st_ts")},
			{
				Keys:    bson.D{{Key: "chain", Value: 1}, {Key: "height", Value: 1}},
				Options: options.Index().SetName("st_prune"),
			},
		}
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return errors.Wrapf(err, "creating indexes for %s", name)
		}
	}
	return nil
}

func (s *MongoStore) LoadCoordinatorDoc(ctx context.Context, chain, name string) ([][2]int64, bool, error) {
	var raw struct {
		Range [][2]int64 `bson:"range"`
	}
	filter := bson.D{{Key: "chain", Value: chain}, {Key: "name", Value: name}}
	err := s.coordinatorColl().FindOne(ctx, filter).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "loading coordinator doc chain=%s name=%s", chain, name)
	}
	return raw.Range, true, nil
}

func (s *MongoStore) UpsertCoordinatorDoc(ctx context.Context, doc CoordinatorDoc) error {
	filter := bson.D{{Key: "chain", Value: doc.Chain}, {Key: "name", Value: doc.Name}}
	update := bson.D{{Key: "$set", Value: bson.D{{Key: "range", Value: doc.Range}}}}
	_, err := s.coordinatorColl().UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return errors.Wrapf(err, "upserting coordinator doc chain=%s name=%s", doc.Chain, doc.Name)
	}
	return nil
}

func (s *MongoStore) BulkUpsertCoordinator(ctx context.Context, docs []CoordinatorDoc, txn Txn) error {
	if len(docs) == 0 {
		return nil
	}
	sc, err := sessionFromTxn(txn)
	if err != nil {
		return err
	}

	models := make([]mongo.WriteModel, 0, len(docs))
	for _, doc := range docs {
		filter := bson.D{{Key: "chain", Value: doc.Chain}, {Key: "name", Value: doc.Name}}
		update := bson.D{{Key: "$set", Value: bson.D{{Key: "range", Value: doc.Range}}}}
		models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}
	_, err = s.coordinatorColl().BulkWrite(sc, models)
	if err != nil {
		return errors.Wrap(err, "bulk upserting coordinator docs")
	}
	return nil
}

func (s *MongoStore) InsertEvent(ctx context.Context, eventName string, doc EventDoc, txn Txn) error {
	sc, err := sessionFromTxn(txn)
	if err != nil {
		return err
	}
	record := bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "reqKey", Value: doc.ReqKey},
		{Key: "chain", Value: doc.Chain},
		{Key: "block", Value: doc.Block},
		{Key: "rank", Value: doc.Rank},
		{Key: "height", Value: doc.Height},
		{Key: "ts", Value: doc.Timestamp},
		{Key: "params", Value: doc.Params},
	}
	_, err = s.eventColl(eventName).InsertOne(sc, record)
	if err != nil {
		return errors.Wrapf(err, "inserting event %s at height %d", eventName, doc.Height)
	}
	return nil
}

func (s *MongoStore) Prune(ctx context.Context, eventName, chain string, lo, hi int64) error {
	filter := bson.D{
		{Key: "chain", Value: chain},
		{Key: "$or", Value: bson.A{
			bson.D{{Key: "height", Value: bson.D{{Key: "$lt", Value: lo}}}},
			bson.D{{Key: "height", Value: bson.D{{Key: "$gt", Value: hi}}}},
		}},
	}
	res, err := s.eventColl(eventName).DeleteMany(ctx, filter)
	if err != nil {
		return errors.Wrapf(err, "pruning %s chain=%s", eventName, chain)
	}
	if res.DeletedCount > 0 {
		logger.Info("pruned out-of-range documents", "event", eventName, "chain", chain, "count", res.DeletedCount)
	}
	return nil
}

// WithTransaction runs fn inside a MongoDB session transaction,
// matching the original implementation's single-transaction-per-block
// atomicity: the session is passed back to fn as a Txn, threaded
// through InsertEvent/BulkUpsertCoordinator, and committed or aborted
// as a unit.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(txn Txn) error) error {
	session, err := s.client.StartSession()
	if err != nil {
		return errors.Wrap(err, "starting session")
	}
	defer session.EndSession(ctx)

	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Majority()).
		SetWriteConcern(writeconcern.Majority())

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	}, txnOpts)
	return err
}

func sessionFromTxn(txn Txn) (context.Context, error) {
	sc, ok := txn.(mongo.SessionContext)
	if !ok {
		return nil, errors.New("store: txn is not a mongo session context")
	}
	return sc, nil
}
