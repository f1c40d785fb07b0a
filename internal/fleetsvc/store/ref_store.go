package store

import (
	"context"
	"fmt"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// RefStore batch-fetches public projections of referenced records, one
// round trip per collection. Results come back created_at ascending so
// that if a key somehow matches several documents the first (oldest)
// one wins on every call.
type RefStore struct {
	db *mongo.Database
}

func NewRefStore(db *mongo.Database) *RefStore {
	return &RefStore{db: db}
}

var createdAsc = bson.D{{Key: "created_at", Value: 1}}

func batchByIds[T any](ctx context.Context, db *mongo.Database, collection string, ids []primitive.ObjectID, idOf func(*T) primitive.ObjectID) (map[primitive.ObjectID]*T, error) {
	out := make(map[primitive.ObjectID]*T, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	opts := options.Find().SetSort(createdAsc)
	cur, err := db.Collection(collection).Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, fmt.Errorf("batch fetch %s: %w", collection, err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		ref := new(T)
		if err := cur.Decode(ref); err != nil {
			return nil, fmt.Errorf("decode %s ref: %w", collection, err)
		}
		id := idOf(ref)
		if _, ok := out[id]; !ok {
			out[id] = ref
		}
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("batch fetch %s: %w", collection, err)
	}
	return out, nil
}

func (s *RefStore) AccountRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.AccountRef, error) {
	return batchByIds(ctx, s.db, "accounts", ids, func(r *models.AccountRef) primitive.ObjectID { return r.ID })
}

func (s *RefStore) VehicleRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.VehicleRef, error) {
	return batchByIds(ctx, s.db, "vehicles", ids, func(r *models.VehicleRef) primitive.ObjectID { return r.ID })
}

func (s *RefStore) RegistrationRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.RegistrationRef, error) {
	return batchByIds(ctx, s.db, "registrations", ids, func(r *models.RegistrationRef) primitive.ObjectID { return r.ID })
}

func (s *RefStore) DriverRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.DriverRef, error) {
	return batchByIds(ctx, s.db, "drivers", ids, func(r *models.DriverRef) primitive.ObjectID { return r.ID })
}

func (s *RefStore) IconRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.IconRef, error) {
	return batchByIds(ctx, s.db, "icons", ids, func(r *models.IconRef) primitive.ObjectID { return r.ID })
}
