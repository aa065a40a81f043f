// Package mongo implements the account directory on MongoDB.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/canoed/lib/store"
)

// Database and collection holding the account directory.
const (
	Database   = "canoe"
	Collection = "accounts"
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// MongoAccount is an account directory document, keyed by account.
type MongoAccount struct {
	Account string `json:"account" bson:"_id"`
	Wallet  string `json:"wallet" bson:"wallet"`
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	// get a client
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}
	// connect client
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) //nolint:gomnd // 5 seconds timeout
	defer cancel()

	if err = c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// Close will close a database connection. Must be called at termination time.
func (m *Mongo) Close() error {
	return m.c.Disconnect(context.Background())
}

func (m *Mongo) col() *mgo.Collection {
	return m.c.Database(Database).Collection(Collection)
}

// Wallet returns the wallet owning account.
func (m *Mongo) Wallet(ctx context.Context, account string) (string, error) {
	var ma MongoAccount

	err := m.col().FindOne(ctx, bson.M{"_id": account}).Decode(&ma)
	if errors.Is(err, mgo.ErrNoDocuments) {
		return "", store.ErrNotFound
	}

	if err != nil {
		return "", fmt.Errorf("cannot get wallet for %s: %w", account, err)
	}

	return ma.Wallet, nil
}

// Register sets wallet as the owner of account, inserting the document if it does not exist.
func (m *Mongo) Register(ctx context.Context, account, wallet string) error {
	_, err := m.col().UpdateOne(ctx,
		bson.M{"_id": account}, // filter
		bson.D{{Key: "$set", Value: bson.D{{Key: "wallet", Value: wallet}}}}, // update
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cannot set wallet for %s: %w", account, err)
	}

	return nil
}

var _ store.Directory = (*Mongo)(nil)
