package storage

import (
	"context"
	"errors"
	"time"

	"flashcards-client/internal/session/domain/repository"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type storageDocument struct {
	Key       string    `bson:"_id"`
	Value     string    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStorage keeps one document per storage key.
type MongoStorage struct {
	collection *mongo.Collection
}

// NewMongoStorage creates a store on the given collection. The caller owns the client.
func NewMongoStorage(db *mongo.Database, collection string) *MongoStorage {
	return &MongoStorage{collection: db.Collection(collection)}
}

func (m *MongoStorage) Get(ctx context.Context, key string) (string, error) {
	var doc storageDocument
	err := m.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", repository.ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return doc.Value, nil
}

func (m *MongoStorage) Set(ctx context.Context, key, value string) error {
	_, err := m.collection.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value, "updated_at": time.Now().UTC()}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (m *MongoStorage) Remove(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := m.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	return err
}

func (m *MongoStorage) Close() error {
	return nil
}

// Ping checks that the MongoDB deployment answers.
func (m *MongoStorage) Ping(ctx context.Context) error {
	return m.collection.Database().Client().Ping(ctx, nil)
}
