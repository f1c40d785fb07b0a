package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type VehicleStore struct {
	coll *mongo.Collection
}

func NewVehicleStore(db *mongo.Database) *VehicleStore {
	return &VehicleStore{coll: db.Collection("vehicles")}
}

func (s *VehicleStore) Insert(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error) {
	res, err := s.coll.InsertOne(ctx, v)
	if err != nil {
		return nil, fmt.Errorf("insert vehicle: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		v.ID = oid
	}
	return v, nil
}

func (s *VehicleStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error) {
	v := &models.Vehicle{}
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find vehicle: %w", err)
	}
	return v, nil
}

func (s *VehicleStore) UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Vehicle, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	v := &models.Vehicle{}
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(v)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update vehicle: %w", err)
	}
	return v, nil
}

func (s *VehicleStore) DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete vehicle: %w", err)
	}
	return res.DeletedCount > 0, nil
}

func (s *VehicleStore) FindMatching(ctx context.Context, match bson.M) ([]*models.Vehicle, error) {
	cur, err := s.coll.Find(ctx, match, options.Find().SetSort(createdDesc))
	if err != nil {
		return nil, fmt.Errorf("find vehicles: %w", err)
	}
	var out []*models.Vehicle
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode vehicles: %w", err)
	}
	return out, nil
}

func (s *VehicleStore) FindPage(ctx context.Context, match bson.M, skip, limit int64) ([]*models.Vehicle, int64, error) {
	total, err := s.coll.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, fmt.Errorf("count vehicles: %w", err)
	}

	opts := options.Find().SetSort(createdDesc).SetSkip(skip).SetLimit(limit)
	cur, err := s.coll.Find(ctx, match, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find vehicles: %w", err)
	}
	var rows []*models.Vehicle
	if err := cur.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("decode vehicles: %w", err)
	}
	return rows, total, nil
}

func (s *VehicleStore) CountMatching(ctx context.Context, match bson.M) (int64, error) {
	total, err := s.coll.CountDocuments(ctx, match)
	if err != nil {
		return 0, fmt.Errorf("count vehicles: %w", err)
	}
	return total, nil
}
