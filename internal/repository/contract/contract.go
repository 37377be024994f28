package contract

import (
	"context"
	"errors"

	"ble_gateway/internal/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const CollectionName = "contracts"

type (
	MongoStore struct {
		collection *mongo.Collection
	}
)

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection(CollectionName),
	}
}

func (r *MongoStore) Get(ctx context.Context, account string) (*model.ContractRecord, error) {
	filter := bson.M{
		"_id": model.AccountKey(account),
	}

	var record model.ContractRecord
	err := r.collection.FindOne(ctx, filter).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &record, nil
}

// Put creates the record or fully replaces an existing one.
func (r *MongoStore) Put(ctx context.Context, record *model.ContractRecord) error {
	if record == nil || record.ID == "" {
		return errors.New("contract: record id is required")
	}

	doc := *record
	doc.ID = model.AccountKey(record.ID)

	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": doc.ID}, &doc, options.Replace().SetUpsert(true))
	return err
}

// UpdateStatus reads, merges and writes back the record. Concurrent writers
// resolve last-write-wins; a missing record is left missing.
func (r *MongoStore) UpdateStatus(ctx context.Context, account string, update model.StatusUpdate) error {
	record, err := r.Get(ctx, account)
	if err != nil {
		return err
	}
	if record == nil {
		return nil
	}

	record.Apply(update)

	_, err = r.collection.ReplaceOne(ctx, bson.M{"_id": record.ID}, record)
	return err
}

func (r *MongoStore) Remove(ctx context.Context, account string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": model.AccountKey(account)})
	return err
}

func (r *MongoStore) Destroy(ctx context.Context) error {
	return r.collection.Drop(ctx)
}
