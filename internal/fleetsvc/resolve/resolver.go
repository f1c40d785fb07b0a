package resolve

import (
	"context"
	"sync"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Field selects which reference fields a resolution call should fill.
type Field uint8

const (
	FieldAccount Field = 1 << iota
	FieldVehicle
	FieldRegistration
	FieldDriver

	AllDeviceFields = FieldAccount | FieldVehicle | FieldRegistration | FieldDriver
)

// RefFetcher is the batch lookup surface the resolver needs: one round
// trip per referenced collection, keyed by canonical id. Implemented by
// store.RefStore; faked in tests.
type RefFetcher interface {
	AccountRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.AccountRef, error)
	VehicleRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.VehicleRef, error)
	RegistrationRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.RegistrationRef, error)
	DriverRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.DriverRef, error)
	IconRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.IconRef, error)
}

// Resolver turns primary records into denormalized views. One batched
// lookup per declared reference field per call, never one per record;
// independent fields resolve concurrently. A reference that is absent,
// malformed, or dangling yields a nil snapshot, never an error.
type Resolver struct {
	refs RefFetcher
}

func NewResolver(refs RefFetcher) *Resolver {
	return &Resolver{refs: refs}
}

func (r *Resolver) DeviceView(ctx context.Context, d *models.Device, fields Field) (*models.DeviceView, error) {
	views, err := r.DeviceViews(ctx, []*models.Device{d}, fields)
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

func (r *Resolver) DeviceViews(ctx context.Context, devices []*models.Device, fields Field) ([]*models.DeviceView, error) {
	var (
		accounts      map[primitive.ObjectID]*models.AccountRef
		vehicles      map[primitive.ObjectID]*models.VehicleRef
		registrations map[primitive.ObjectID]*models.RegistrationRef
		drivers       map[primitive.ObjectID]*models.DriverRef
	)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
		}
		mu.Unlock()
	}

	if fields&FieldAccount != 0 {
		ids := distinctIDs(devices, func(d *models.Device) *primitive.ObjectID { return d.AccountID })
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.refs.AccountRefs(ctx, ids)
			if err != nil {
				fail(err)
				return
			}
			accounts = m
		}()
	}
	if fields&FieldVehicle != 0 {
		ids := distinctIDs(devices, func(d *models.Device) *primitive.ObjectID { return d.VehicleID })
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.refs.VehicleRefs(ctx, ids)
			if err != nil {
				fail(err)
				return
			}
			vehicles = m
		}()
	}
	if fields&FieldRegistration != 0 {
		ids := distinctIDs(devices, func(d *models.Device) *primitive.ObjectID { return d.RegistrationID })
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.refs.RegistrationRefs(ctx, ids)
			if err != nil {
				fail(err)
				return
			}
			registrations = m
		}()
	}
	if fields&FieldDriver != 0 {
		ids := distinctDriverIDs(devices)
		wg.Add(1)
		go func() {
			defer wg.Done()
			m, err := r.refs.DriverRefs(ctx, ids)
			if err != nil {
				fail(err)
				return
			}
			drivers = m
		}()
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	views := make([]*models.DeviceView, len(devices))
	for i, d := range devices {
		v := &models.DeviceView{Device: *d}
		if d.AccountID != nil {
			v.Account = accounts[*d.AccountID]
		}
		if d.VehicleID != nil {
			v.Vehicle = vehicles[*d.VehicleID]
		}
		if d.RegistrationID != nil {
			v.Registration = registrations[*d.RegistrationID]
		}
		if did, ok := driverKey(d.DriverID); ok {
			v.Driver = drivers[did]
		}
		views[i] = v
	}
	return views, nil
}

func (r *Resolver) VehicleViews(ctx context.Context, vehicles []*models.Vehicle) ([]*models.VehicleView, error) {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, v := range vehicles {
		if v.IconID == nil {
			continue
		}
		if _, ok := seen[*v.IconID]; ok {
			continue
		}
		seen[*v.IconID] = struct{}{}
		ids = append(ids, *v.IconID)
	}

	icons, err := r.refs.IconRefs(ctx, ids)
	if err != nil {
		return nil, err
	}

	views := make([]*models.VehicleView, len(vehicles))
	for i, v := range vehicles {
		view := &models.VehicleView{Vehicle: *v}
		if v.IconID != nil {
			view.Icon = icons[*v.IconID]
		}
		views[i] = view
	}
	return views, nil
}

func distinctIDs(devices []*models.Device, pick func(*models.Device) *primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, d := range devices {
		p := pick(d)
		if p == nil {
			continue
		}
		if _, ok := seen[*p]; ok {
			continue
		}
		seen[*p] = struct{}{}
		ids = append(ids, *p)
	}
	return ids
}

// distinctDriverIDs normalizes the textual driver keys. Malformed values
// are skipped here and resolve to "no match" downstream.
func distinctDriverIDs(devices []*models.Device) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, d := range devices {
		id, ok := driverKey(d.DriverID)
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

func driverKey(raw string) (primitive.ObjectID, bool) {
	if raw == "" {
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, false
	}
	return id, true
}
