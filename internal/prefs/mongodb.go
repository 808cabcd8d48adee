package prefs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type mongoPref struct {
	Key       string     `bson:"_id"`
	Value     string     `bson:"value"`
	ExpiresAt *time.Time `bson:"expires_at,omitempty"`
}

// MongoDBStore keeps entries in a MongoDB collection. A TTL index reclaims
// expired documents; reads still filter on expiry because the TTL monitor lags.
type MongoDBStore struct {
	collection *mongo.Collection
	now        func() time.Time
}

// NewMongoDBStore prepares the prefs collection and its TTL index.
func NewMongoDBStore(database *mongo.Database) (*MongoDBStore, error) {
	if database == nil {
		return nil, fmt.Errorf("database is required")
	}

	coll := database.Collection("prefs")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create prefs TTL index: %w", err)
	}

	return &MongoDBStore{collection: coll, now: time.Now}, nil
}

// Get returns the live value for key.
func (s *MongoDBStore) Get(ctx context.Context, key string) (string, bool, error) {
	filter := bson.M{
		"_id": key,
		"$or": bson.A{
			bson.M{"expires_at": bson.M{"$exists": false}},
			bson.M{"expires_at": bson.M{"$gt": s.now().UTC()}},
		},
	}

	var doc mongoPref
	if err := s.collection.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("find pref: %w", err)
	}
	return doc.Value, true, nil
}

// Set upserts value under key.
func (s *MongoDBStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	doc := mongoPref{Key: key, Value: value}
	if deadline := expiry(s.now(), ttl); !deadline.IsZero() {
		utc := deadline.UTC()
		doc.ExpiresAt = &utc
	}

	_, err := s.collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("upsert pref: %w", err)
	}
	return nil
}

// Close is a no-op; the client belongs to the storage layer.
func (s *MongoDBStore) Close() error {
	return nil
}
