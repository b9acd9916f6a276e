// Package mongo implements the discovery index for MongoDB.
package mongo

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	mgo "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/tarancss/adpscan/lib/store"
)

const (
	database   = "scan"
	collection = "discoveries"
	timeout    = 5 * time.Second
)

// Mongo implements a connection to a MongoDB database.
type Mongo struct {
	c *mgo.Client
}

// MongoDiscovery implements a store discovery to MongoDB.
type MongoDiscovery struct {
	ID       primitive.ObjectID `bson:"_id,omitempty"`
	Address  string             `bson:"address"`
	Balances []store.Balance    `bson:"balances"`
	Found    time.Time          `bson:"found"`
}

// Discovery converts a MongoDiscovery to store.Discovery type.
func (d MongoDiscovery) Discovery() store.Discovery {
	return store.Discovery{ID: d.ID[:], Address: d.Address, Balances: d.Balances, Found: d.Found}
}

// New returns a Mongo client connection to the specified MongoDB database uri.
func New(uri string) (*Mongo, error) {
	c, err := mgo.NewClient(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("cannot connect to mongo DB in %s: %w", uri, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err = c.Connect(ctx); err != nil {
		return nil, fmt.Errorf("error connecting to mongo DB: %w", err)
	}

	return &Mongo{c: c}, nil
}

// Close will close a database connection. Must be called at termination time.
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return m.c.Disconnect(ctx)
}

// SaveDiscovery inserts a discovery and returns its object id.
func (m *Mongo) SaveDiscovery(d store.Discovery) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	md := MongoDiscovery{Address: d.Address, Balances: d.Balances, Found: d.Found}

	res, err := m.c.Database(database).Collection(collection).InsertOne(ctx, md)
	if err != nil {
		return nil, fmt.Errorf("could not insert discovery in db: %w", err)
	}

	id, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("unexpected inserted id %v", res.InsertedID)
	}

	return hex.DecodeString(id.Hex())
}

// GetDiscoveries returns the discoveries funded on any of the networks in net, or all when net is empty.
func (m *Mongo) GetDiscoveries(net []string) ([]store.Discovery, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cur, err := m.c.Database(database).Collection(collection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "found", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("error getting mongo DB object: %w", err)
	}
	defer cur.Close(ctx)

	ds := []store.Discovery{}

	for cur.Next(ctx) {
		var md MongoDiscovery
		if err = cur.Decode(&md); err != nil {
			return nil, fmt.Errorf("error decoding discovery: %w", err)
		}

		d := md.Discovery()
		if len(net) == 0 || d.FundedOn(net) {
			ds = append(ds, d)
		}
	}

	if err = cur.Err(); err != nil && !errors.Is(err, mgo.ErrNoDocuments) {
		return nil, fmt.Errorf("error reading discoveries: %w", err)
	}

	return ds, nil
}

// Drop deletes the discovery collection.
func (m *Mongo) Drop() error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return m.c.Database(database).Collection(collection).Drop(ctx)
}
