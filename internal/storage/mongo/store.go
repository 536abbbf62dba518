package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	DefaultDatabase   = "AstroMarket"
	DefaultCollection = "allowed_account_ids"
)

type accountDoc struct {
	AccountID string `bson:"account_id"`
}

// Store keeps the allow-list in a MongoDB collection of {account_id} documents.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
}

func NewStore(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongodb uri is required")
	}
	if database == "" {
		database = DefaultDatabase
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(DefaultCollection),
	}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) List(ctx context.Context) ([]string, error) {
	cursor, err := s.collection.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var ids []string
	for cursor.Next(ctx) {
		var doc accountDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode account document: %w", err)
		}
		if doc.AccountID == "" {
			continue
		}
		ids = append(ids, doc.AccountID)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) Exists(ctx context.Context, accountID string) (bool, error) {
	err := s.collection.FindOne(ctx, bson.D{{Key: "account_id", Value: accountID}}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Insert(ctx context.Context, accountID string) error {
	_, err := s.collection.InsertOne(ctx, accountDoc{AccountID: accountID})
	return err
}
