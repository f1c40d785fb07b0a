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

type DeviceStore struct {
	coll *mongo.Collection
}

func NewDeviceStore(db *mongo.Database) *DeviceStore {
	return &DeviceStore{coll: db.Collection("devices")}
}

var createdDesc = bson.D{{Key: "created_at", Value: -1}}

func (s *DeviceStore) Insert(ctx context.Context, d *models.Device) (*models.Device, error) {
	res, err := s.coll.InsertOne(ctx, d)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: imei or serial_no", ErrDuplicateKey)
		}
		return nil, fmt.Errorf("insert device: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		d.ID = oid
	}
	return d, nil
}

func (s *DeviceStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Device, error) {
	d := &models.Device{}
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find device: %w", err)
	}
	return d, nil
}

// FindConflicting returns a device holding the given imei or serial in
// either constrained field, excluding the record under update. nil, nil
// when the values are free.
func (s *DeviceStore) FindConflicting(ctx context.Context, imei, serial string, exclude *primitive.ObjectID) (*models.Device, error) {
	var or []bson.M
	if imei != "" {
		or = append(or, bson.M{"imei": imei})
	}
	if serial != "" {
		or = append(or, bson.M{"serial_no": serial})
	}
	if len(or) == 0 {
		return nil, nil
	}

	match := bson.M{"$or": or}
	if exclude != nil {
		match["_id"] = bson.M{"$ne": *exclude}
	}

	d := &models.Device{}
	err := s.coll.FindOne(ctx, match).Decode(d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("conflict pre-check: %w", err)
	}
	return d, nil
}

func (s *DeviceStore) UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Device, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	d := &models.Device{}
	err := s.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: imei or serial_no", ErrDuplicateKey)
		}
		return nil, fmt.Errorf("update device: %w", err)
	}
	return d, nil
}

func (s *DeviceStore) DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("delete device: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// FindMatching returns every device matching the filter, created_at
// descending, without windowing. Used by the export path.
func (s *DeviceStore) FindMatching(ctx context.Context, f DeviceFilter) ([]*models.Device, error) {
	if f.WithRefs {
		rows, _, err := s.aggregatePage(ctx, f.Match, 0, 0, false)
		return rows, err
	}

	cur, err := s.coll.Find(ctx, f.Match, options.Find().SetSort(createdDesc))
	if err != nil {
		return nil, fmt.Errorf("find devices: %w", err)
	}
	var out []*models.Device
	if err := cur.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode devices: %w", err)
	}
	return out, nil
}

// FindPage returns one window plus the total matching count. The plain
// path reuses one predicate across the count and the fetch; the
// ref-search path computes both in a single aggregation pass.
func (s *DeviceStore) FindPage(ctx context.Context, f DeviceFilter, skip, limit int64) ([]*models.Device, int64, error) {
	if f.WithRefs {
		return s.aggregatePage(ctx, f.Match, skip, limit, true)
	}

	total, err := s.coll.CountDocuments(ctx, f.Match)
	if err != nil {
		return nil, 0, fmt.Errorf("count devices: %w", err)
	}

	opts := options.Find().SetSort(createdDesc).SetSkip(skip).SetLimit(limit)
	cur, err := s.coll.Find(ctx, f.Match, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find devices: %w", err)
	}
	var rows []*models.Device
	if err := cur.All(ctx, &rows); err != nil {
		return nil, 0, fmt.Errorf("decode devices: %w", err)
	}
	return rows, total, nil
}

// CountMatching supports the size-zero page: a correct total with no
// data round trip.
func (s *DeviceStore) CountMatching(ctx context.Context, f DeviceFilter) (int64, error) {
	if f.WithRefs {
		_, total, err := s.aggregatePage(ctx, f.Match, 0, 1, true)
		return total, err
	}
	total, err := s.coll.CountDocuments(ctx, f.Match)
	if err != nil {
		return 0, fmt.Errorf("count devices: %w", err)
	}
	return total, nil
}

// deviceRefPipeline joins the referenced collections so the match stage
// can see denormalized fields. The joined arrays are stripped again
// before decoding: enrichment is the resolver's job, the pipeline only
// filters. driver_id is textual and is converted to an ObjectID inside
// the lookup; a malformed value converts to null and matches nothing.
func deviceRefPipeline(match bson.M) []bson.M {
	return []bson.M{
		{"$lookup": bson.M{
			"from":         "accounts",
			"localField":   "account_id",
			"foreignField": "_id",
			"as":           "account",
		}},
		{"$lookup": bson.M{
			"from":         "vehicles",
			"localField":   "vehicle_id",
			"foreignField": "_id",
			"as":           "vehicle",
		}},
		{"$lookup": bson.M{
			"from": "drivers",
			"let": bson.M{"did": bson.M{"$convert": bson.M{
				"input": "$driver_id", "to": "objectId",
				"onError": nil, "onNull": nil,
			}}},
			"pipeline": []bson.M{
				{"$match": bson.M{"$expr": bson.M{"$eq": []interface{}{"$_id", "$$did"}}}},
			},
			"as": "driver",
		}},
		{"$match": match},
		{"$unset": []string{"account", "vehicle", "driver"}},
		{"$sort": bson.M{"created_at": -1}},
	}
}

func (s *DeviceStore) aggregatePage(ctx context.Context, match bson.M, skip, limit int64, counted bool) ([]*models.Device, int64, error) {
	pipeline := deviceRefPipeline(match)

	if !counted {
		cur, err := s.coll.Aggregate(ctx, pipeline)
		if err != nil {
			return nil, 0, fmt.Errorf("aggregate devices: %w", err)
		}
		var rows []*models.Device
		if err := cur.All(ctx, &rows); err != nil {
			return nil, 0, fmt.Errorf("decode devices: %w", err)
		}
		return rows, int64(len(rows)), nil
	}

	window := []bson.M{{"$skip": skip}}
	if limit > 0 {
		window = append(window, bson.M{"$limit": limit})
	}
	pipeline = append(pipeline, bson.M{"$facet": bson.M{
		"rows":  window,
		"total": []bson.M{{"$count": "count"}},
	}})

	cur, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, 0, fmt.Errorf("aggregate devices: %w", err)
	}

	var facets []struct {
		Rows  []*models.Device `bson:"rows"`
		Total []struct {
			Count int64 `bson:"count"`
		} `bson:"total"`
	}
	if err := cur.All(ctx, &facets); err != nil {
		return nil, 0, fmt.Errorf("decode devices: %w", err)
	}
	if len(facets) == 0 {
		return nil, 0, nil
	}
	total := int64(0)
	if len(facets[0].Total) > 0 {
		total = facets[0].Total[0].Count
	}
	return facets[0].Rows, total, nil
}
