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

// DeviceStore is the persistence surface the service needs; implemented
// by store.DeviceStore, faked in tests.
type DeviceStore interface {
	Insert(ctx context.Context, d *models.Device) (*models.Device, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Device, error)
	FindConflicting(ctx context.Context, imei, serial string, exclude *primitive.ObjectID) (*models.Device, error)
	UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Device, error)
	DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error)
	FindMatching(ctx context.Context, f store.DeviceFilter) ([]*models.Device, error)
	FindPage(ctx context.Context, f store.DeviceFilter, skip, limit int64) ([]*models.Device, int64, error)
	CountMatching(ctx context.Context, f store.DeviceFilter) (int64, error)
}

type DeviceService struct {
	store    DeviceStore
	resolver *resolve.Resolver
}

func NewDeviceService(deviceStore DeviceStore, resolver *resolve.Resolver) *DeviceService {
	return &DeviceService{store: deviceStore, resolver: resolver}
}

type CreateDeviceInput struct {
	Imei           string `json:"imei"`
	SerialNo       string `json:"serial_no"`
	Sim1No         string `json:"sim1_no"`
	Sim1Carrier    string `json:"sim1_carrier"`
	Sim2No         string `json:"sim2_no"`
	Sim2Carrier    string `json:"sim2_carrier"`
	Description    string `json:"description"`
	AccountID      string `json:"account_id"`
	VehicleID      string `json:"vehicle_id"`
	RegistrationID string `json:"registration_id"`
	DriverID       string `json:"driver_id"`
}

type UpdateDeviceInput struct {
	Imei           *string `json:"imei"`
	SerialNo       *string `json:"serial_no"`
	Sim1No         *string `json:"sim1_no"`
	Sim1Carrier    *string `json:"sim1_carrier"`
	Sim2No         *string `json:"sim2_no"`
	Sim2Carrier    *string `json:"sim2_carrier"`
	Description    *string `json:"description"`
	AccountID      *string `json:"account_id"`
	VehicleID      *string `json:"vehicle_id"`
	RegistrationID *string `json:"registration_id"`
	DriverID       *string `json:"driver_id"`
}

type DeviceList struct {
	Rows  []*models.DeviceView `json:"rows"`
	Total int64                `json:"total"`
	Page  int                  `json:"page"`
	Limit int                  `json:"limit"`
}

// Create inserts a new device. The imei/serial pre-check and the unique
// index on the write report the same ErrDuplicateKey, so callers see
// one error kind no matter which side of the race caught it.
func (s *DeviceService) Create(ctx context.Context, in CreateDeviceInput) (*models.Device, error) {
	if in.Imei == "" || in.SerialNo == "" {
		return nil, fmt.Errorf("%w: imei and serial_no are required", store.ErrInvalidInput)
	}

	accountID, err := parseOptionalRef("account_id", in.AccountID)
	if err != nil {
		return nil, err
	}
	vehicleID, err := parseOptionalRef("vehicle_id", in.VehicleID)
	if err != nil {
		return nil, err
	}
	registrationID, err := parseOptionalRef("registration_id", in.RegistrationID)
	if err != nil {
		return nil, err
	}
	if in.DriverID != "" {
		if _, err := primitive.ObjectIDFromHex(in.DriverID); err != nil {
			return nil, fmt.Errorf("%w: driver_id %q", store.ErrInvalidReference, in.DriverID)
		}
	}

	if conflict, err := s.store.FindConflicting(ctx, in.Imei, in.SerialNo, nil); err != nil {
		return nil, err
	} else if conflict != nil {
		return nil, fmt.Errorf("%w: imei or serial_no already onboarded", store.ErrDuplicateKey)
	}

	now := time.Now().UTC()
	d := &models.Device{
		Imei:           in.Imei,
		SerialNo:       in.SerialNo,
		Sim1No:         in.Sim1No,
		Sim1Carrier:    in.Sim1Carrier,
		Sim2No:         in.Sim2No,
		Sim2Carrier:    in.Sim2Carrier,
		Description:    in.Description,
		Active:         true,
		AccountID:      accountID,
		VehicleID:      vehicleID,
		RegistrationID: registrationID,
		DriverID:       in.DriverID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	return s.store.Insert(ctx, d)
}

func (s *DeviceService) List(ctx context.Context, params store.DeviceFilterParams, page store.Page) (*DeviceList, error) {
	f, err := store.BuildDeviceFilter(params)
	if err != nil {
		return nil, err
	}

	out := &DeviceList{Page: page.Number, Limit: page.Size}
	if out.Page < 1 {
		out.Page = 1
	}

	skip, limit := page.Window()
	if limit == 0 {
		total, err := s.store.CountMatching(ctx, f)
		if err != nil {
			return nil, err
		}
		out.Rows = []*models.DeviceView{}
		out.Total = total
		return out, nil
	}

	rows, total, err := s.store.FindPage(ctx, f, skip, limit)
	if err != nil {
		return nil, err
	}

	views, err := s.resolver.DeviceViews(ctx, rows, resolve.AllDeviceFields)
	if err != nil {
		return nil, err
	}
	out.Rows = views
	out.Total = total
	return out, nil
}

func (s *DeviceService) Get(ctx context.Context, id string) (*models.DeviceView, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	d, err := s.store.FindByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	return s.resolver.DeviceView(ctx, d, resolve.AllDeviceFields)
}

// Update applies a partial mutation. When a constrained field changes
// the uniqueness pre-check runs first with the record itself excluded,
// so a duplicate leaves the record untouched.
func (s *DeviceService) Update(ctx context.Context, id string, in UpdateDeviceInput) (*models.Device, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}

	set := bson.M{}
	setString := func(field string, v *string) {
		if v != nil {
			set[field] = *v
		}
	}
	setString("imei", in.Imei)
	setString("serial_no", in.SerialNo)
	setString("sim1_no", in.Sim1No)
	setString("sim1_carrier", in.Sim1Carrier)
	setString("sim2_no", in.Sim2No)
	setString("sim2_carrier", in.Sim2Carrier)
	setString("description", in.Description)

	refs := []struct {
		field string
		raw   *string
	}{
		{"account_id", in.AccountID},
		{"vehicle_id", in.VehicleID},
		{"registration_id", in.RegistrationID},
	}
	for _, r := range refs {
		if r.raw == nil {
			continue
		}
		oid, err := parseOptionalRef(r.field, *r.raw)
		if err != nil {
			return nil, err
		}
		if oid == nil {
			set[r.field] = nil
		} else {
			set[r.field] = *oid
		}
	}
	if in.DriverID != nil {
		if *in.DriverID != "" {
			if _, err := primitive.ObjectIDFromHex(*in.DriverID); err != nil {
				return nil, fmt.Errorf("%w: driver_id %q", store.ErrInvalidReference, *in.DriverID)
			}
		}
		set["driver_id"] = *in.DriverID
	}

	var imei, serial string
	if in.Imei != nil {
		imei = *in.Imei
	}
	if in.SerialNo != nil {
		serial = *in.SerialNo
	}
	if imei != "" || serial != "" {
		if conflict, err := s.store.FindConflicting(ctx, imei, serial, &oid); err != nil {
			return nil, err
		} else if conflict != nil {
			return nil, fmt.Errorf("%w: imei or serial_no already onboarded", store.ErrDuplicateKey)
		}
	}

	set["updated_at"] = time.Now().UTC()
	return s.store.UpdateByID(ctx, oid, set)
}

func (s *DeviceService) SetActive(ctx context.Context, id string, active bool) (*models.Device, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return s.store.UpdateByID(ctx, oid, bson.M{
		"active":     active,
		"updated_at": time.Now().UTC(),
	})
}

func (s *DeviceService) Delete(ctx context.Context, id string) error {
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

// Export returns the full matching set, resolved and unpaginated, for
// the encoders.
func (s *DeviceService) Export(ctx context.Context, params store.DeviceFilterParams) ([]*models.DeviceView, error) {
	f, err := store.BuildDeviceFilter(params)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.FindMatching(ctx, f)
	if err != nil {
		return nil, err
	}
	return s.resolver.DeviceViews(ctx, rows, resolve.AllDeviceFields)
}

func parseID(raw string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", store.ErrInvalidReference, raw)
	}
	return oid, nil
}

func parseOptionalRef(field, raw string) (*primitive.ObjectID, error) {
	if raw == "" {
		return nil, nil
	}
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %q", store.ErrInvalidReference, field, raw)
	}
	return &oid, nil
}
