package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBStore implements Store using MongoDB. Expiry is handled by TTL
// indexes on the expires_at fields, so no background cleanup is needed.
type MongoDBStore struct {
	client   *mongo.Client
	sessions *mongo.Collection
	events   *mongo.Collection
}

type eventMarker struct {
	EventID   string    `bson:"_id"`
	ExpiresAt time.Time `bson:"expires_at"`
}

// NewMongoDBStore creates a new MongoDB-backed store.
func NewMongoDBStore(connectionString, database string) (*MongoDBStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connectionString))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		// Disconnect() error during initialization cleanup is not actionable;
		// the connection failure is the error the caller needs.
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	db := client.Database(database)
	store := &MongoDBStore{
		client:   client,
		sessions: db.Collection("checkout_sessions"),
		events:   db.Collection("processed_events"),
	}

	if err := store.createIndexes(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}

	return store, nil
}

// createIndexes creates TTL indexes so MongoDB evicts expired records itself.
// _id is automatically unique, which is what makes the event insert atomic.
func (s *MongoDBStore) createIndexes(ctx context.Context) error {
	_, err := s.sessions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("create session indexes: %w", err)
	}

	_, err = s.events.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "expires_at", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
	})
	if err != nil {
		return fmt.Errorf("create event indexes: %w", err)
	}

	return nil
}

// SaveSession persists a session record, upserting on token.
func (s *MongoDBStore) SaveSession(ctx context.Context, session Session) error {
	filter := bson.M{"_id": session.Token}
	update := bson.M{"$set": session}
	opts := options.Update().SetUpsert(true)

	if _, err := s.sessions.UpdateOne(ctx, filter, update, opts); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token.
func (s *MongoDBStore) GetSession(ctx context.Context, token string) (Session, error) {
	var session Session
	err := s.sessions.FindOne(ctx, bson.M{"_id": token}).Decode(&session)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Session{}, ErrNotFound
		}
		return Session{}, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// DeleteSession removes a session. Idempotent.
func (s *MongoDBStore) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.sessions.DeleteOne(ctx, bson.M{"_id": token}); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// MarkEventProcessed inserts the event ID into a collection keyed by _id.
// The unique _id index makes the insert atomic: concurrent inserts of the
// same event ID produce exactly one success and duplicate-key errors for
// the rest.
func (s *MongoDBStore) MarkEventProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	marker := eventMarker{
		EventID:   eventID,
		ExpiresAt: time.Now().Add(ttl),
	}

	_, err := s.events.InsertOne(ctx, marker)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("mark event processed: %w", err)
	}
	return true, nil
}

// Close disconnects from MongoDB.
func (s *MongoDBStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}
