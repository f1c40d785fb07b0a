package db

import (
	"context"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Connect dials the document store named by mongoURI; the database name
// is taken from the URI path.
func Connect(mongoURI string) (*mongo.Database, context.CancelFunc, error) {
	uri, err := url.Parse(mongoURI)
	if err != nil {
		return nil, nil, err
	}

	dbName := strings.TrimPrefix(uri.Path, "/")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		cancel()
		return nil, nil, err
	}

	return client.Database(dbName), cancel, nil
}

// EnsureDeviceIndexes creates the unique indexes that close the
// create/update race on the constrained device fields. The pre-check in
// the service is advisory; these indexes are the invariant.
func EnsureDeviceIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection("devices")

	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.M{"imei": 1},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.M{"serial_no": 1},
			Options: options.Index().SetUnique(true),
		},
	})
	return err
}
