package service

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/models"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/resolve"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type VehicleStore interface {
	Insert(ctx context.Context, v *models.Vehicle) (*models.Vehicle, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Vehicle, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Vehicle, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error)
	FindMatching(ctx context.Context, match bson.M) ([]*models.Vehicle, error)
	FindPage(ctx context.Context, match bson.M, skip, limit int64) ([]*models.Vehicle, int64, error)
	CountMatching(ctx context.Context, match bson.M) (int64, error)
}

type VehicleService struct {
	store    VehicleStore
	resolver *resolve.Resolver
}

func NewVehicleService(vehicleStore VehicleStore, resolver *resolve.Resolver) *VehicleService {
	return &VehicleService{store: vehicleStore, resolver: resolver}
}

type CreateVehicleInput struct {
	Brand    string `json:"brand"`
	Model    string `json:"model"`
	Category string `json:"category"`
	IconID   string `json:"icon_id"`
	Status   string `json:"status"`
}

type UpdateVehicleInput struct {
	Brand    *string `json:"brand"`
	Model    *string `json:"model"`
	Category *string `json:"category"`
	IconID   *string `json:"icon_id"`
	Status   *string `json:"status"`
}

type VehicleList struct {
	Rows  []*models.VehicleView `json:"rows"`
	Total int64                 `json:"total"`
	Page  int                   `json:"page"`
	Limit int                   `json:"limit"`
}

func (s *VehicleService) Create(ctx context.Context, in CreateVehicleInput) (*models.Vehicle, error) {
	if in.Brand == "" || in.Model == "" {
		return nil, fmt.Errorf("%w: brand and model are required", store.ErrInvalidInput)
	}
	if !models.ValidCategory(in.Category) {
		return nil, fmt.Errorf("%w: category %q", store.ErrInvalidInput, in.Category)
	}

	iconID, err := parseOptionalRef("icon_id", in.IconID)
	if err != nil {
		return nil, err
	}

	status := in.Status
	if status == "" {
		status = "active"
	}

	now := time.Now().UTC()
	v := &models.Vehicle{
		Brand:     in.Brand,
		Model:     in.Model,
		Category:  in.Category,
		IconID:    iconID,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.store.Insert(ctx, v)
}

func (s *VehicleService) List(ctx context.Context, params store.VehicleFilterParams, page store.Page) (*VehicleList, error) {
	if params.Category != "" && !models.ValidCategory(params.Category) {
		return nil, fmt.Errorf("%w: category %q", store.ErrInvalidInput, params.Category)
	}
	match, err := store.BuildVehicleFilter(params)
	if err != nil {
		return nil, err
	}

	out := &VehicleList{Page: page.Number, Limit: page.Size}
	if out.Page < 1 {
		out.Page = 1
	}

	skip, limit := page.Window()
	if limit == 0 {
		total, err := s.store.CountMatching(ctx, match)
		if err != nil {
			return nil, err
		}
		out.Rows = []*models.VehicleView{}
		out.Total = total
		return out, nil
	}

	rows, total, err := s.store.FindPage(ctx, match, skip, limit)
	if err != nil {
		return nil, err
	}
	views, err := s.resolver.VehicleViews(ctx, rows)
	if err != nil {
		return nil, err
	}
	out.Rows = views
	out.Total = total
	return out, nil
}

func (s *VehicleService) Get(ctx context.Context, id string) (*models.VehicleView, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	v, err := s.store.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	views, err := s.resolver.VehicleViews(ctx, []*models.Vehicle{v})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (s *VehicleService) Update(ctx context.Context, id string, in UpdateVehicleInput) (*models.Vehicle, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	if in.Brand != nil {
		set["brand"] = *in.Brand
	}
	if in.Model != nil {
		set["model"] = *in.Model
	}
	if in.Category != nil {
		if !models.ValidCategory(*in.Category) {
			return nil, fmt.Errorf("%w: category %q", store.ErrInvalidInput, *in.Category)
		}
		set["category"] = *in.Category
	}
	if in.Status != nil {
		set["status"] = *in.Status
	}
	if in.IconID != nil {
		iconID, err := parseOptionalRef("icon_id", *in.IconID)
		if err != nil {
			return nil, err
		}
		if iconID == nil {
			set["icon_id"] = nil
		} else {
			set["icon_id"] = *iconID
		}
	}

	set["updated_at"] = time.Now().UTC()
	return s.store.UpdateByID(ctx, oid, set)
}

func (s *VehicleService) SetStatus(ctx context.Context, id, status string) (*models.Vehicle, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateByID(ctx, oid, bson.M{
		"status":     status,
		"updated_at": time.Now().UTC(),
	})
}

func (s *VehicleService) Delete(ctx context.Context, id string) error {
	oid, err := parseID(id)
	if err != nil {
		return err
	}
	deleted, err := s.store.DeleteByID(ctx, oid)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrNotFound
	}
	return nil
}

func (s *VehicleService) Export(ctx context.Context, params store.VehicleFilterParams) ([]*models.VehicleView, error) {
	match, err := store.BuildVehicleFilter(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.FindMatching(ctx, match)
	if err != nil {
		return nil, err
	}
	return s.resolver.VehicleViews(ctx, rows)
}
