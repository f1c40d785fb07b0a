package resolve

import (
	"context"
	"testing"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/models"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeRefFetcher struct {
	accounts      map[primitive.ObjectID]*models.AccountRef
	vehicles      map[primitive.ObjectID]*models.VehicleRef
	registrations map[primitive.ObjectID]*models.RegistrationRef
	drivers       map[primitive.ObjectID]*models.DriverRef
	icons         map[primitive.ObjectID]*models.IconRef

	accountCalls int
	driverCalls  int
	driverIDs    []primitive.ObjectID
}

func (f *fakeRefFetcher) AccountRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.AccountRef, error) {
	f.accountCalls++
	return pick(f.accounts, ids), nil
}

func (f *fakeRefFetcher) VehicleRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.VehicleRef, error) {
	return pick(f.vehicles, ids), nil
}

func (f *fakeRefFetcher) RegistrationRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.RegistrationRef, error) {
	return pick(f.registrations, ids), nil
}

func (f *fakeRefFetcher) DriverRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.DriverRef, error) {
	f.driverCalls++
	f.driverIDs = append(f.driverIDs, ids...)
	return pick(f.drivers, ids), nil
}

func (f *fakeRefFetcher) IconRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.IconRef, error) {
	return pick(f.icons, ids), nil
}

func pick[T any](all map[primitive.ObjectID]*T, ids []primitive.ObjectID) map[primitive.ObjectID]*T {
	out := make(map[primitive.ObjectID]*T)
	for _, id := range ids {
		if v, ok := all[id]; ok {
			out[id] = v
		}
	}
	return out
}

func TestDeviceViewsResolvesDeclaredFields(t *testing.T) {
	accountID := primitive.NewObjectID()
	vehicleID := primitive.NewObjectID()
	driverID := primitive.NewObjectID()

	refs := &fakeRefFetcher{
		accounts: map[primitive.ObjectID]*models.AccountRef{
			accountID: {ID: accountID, Name: "Acme Logistics"},
		},
		vehicles: map[primitive.ObjectID]*models.VehicleRef{
			vehicleID: {ID: vehicleID, Brand: "Volvo", Model: "FH16", Category: "truck"},
		},
		drivers: map[primitive.ObjectID]*models.DriverRef{
			driverID: {ID: driverID, Name: "Sara T.", LicenseNo: "DL-4411"},
		},
	}
	r := NewResolver(refs)

	devices := []*models.Device{
		{Imei: "IMEI-001", AccountID: &accountID, VehicleID: &vehicleID, DriverID: driverID.Hex()},
		{Imei: "IMEI-002", AccountID: &accountID},
	}

	views, err := r.DeviceViews(context.Background(), devices, AllDeviceFields)
	require.NoError(t, err)
	require.Len(t, views, 2)

	require.Equal(t, "Acme Logistics", views[0].Account.Name)
	require.Equal(t, "Volvo", views[0].Vehicle.Brand)
	require.Equal(t, "Sara T.", views[0].Driver.Name)

	require.Equal(t, "Acme Logistics", views[1].Account.Name)
	require.Nil(t, views[1].Vehicle)
	require.Nil(t, views[1].Driver)
}

func TestDeviceViewsOneRoundTripPerCollection(t *testing.T) {
	accountID := primitive.NewObjectID()
	refs := &fakeRefFetcher{
		accounts: map[primitive.ObjectID]*models.AccountRef{
			accountID: {ID: accountID, Name: "Acme"},
		},
	}
	r := NewResolver(refs)

	devices := make([]*models.Device, 50)
	for i := range devices {
		devices[i] = &models.Device{AccountID: &accountID}
	}

	_, err := r.DeviceViews(context.Background(), devices, FieldAccount)
	require.NoError(t, err)
	require.Equal(t, 1, refs.accountCalls)
}

func TestDeviceViewsDanglingReferenceIsEmptyMarker(t *testing.T) {
	gone := primitive.NewObjectID()
	r := NewResolver(&fakeRefFetcher{})

	views, err := r.DeviceViews(context.Background(), []*models.Device{
		{Imei: "IMEI-001", AccountID: &gone, DriverID: gone.Hex()},
	}, AllDeviceFields)
	require.NoError(t, err)
	require.Nil(t, views[0].Account)
	require.Nil(t, views[0].Driver)
}

func TestDeviceViewsMalformedDriverIDIsNoMatch(t *testing.T) {
	refs := &fakeRefFetcher{}
	r := NewResolver(refs)

	views, err := r.DeviceViews(context.Background(), []*models.Device{
		{Imei: "IMEI-001", DriverID: "not-hex"},
	}, FieldDriver)
	require.NoError(t, err)
	require.Nil(t, views[0].Driver)
	require.Empty(t, refs.driverIDs)
}

func TestDeviceViewsDeduplicatesIDs(t *testing.T) {
	driverID := primitive.NewObjectID()
	refs := &fakeRefFetcher{
		drivers: map[primitive.ObjectID]*models.DriverRef{
			driverID: {ID: driverID, Name: "Sam"},
		},
	}
	r := NewResolver(refs)

	devices := []*models.Device{
		{DriverID: driverID.Hex()},
		{DriverID: driverID.Hex()},
		{DriverID: driverID.Hex()},
	}
	views, err := r.DeviceViews(context.Background(), devices, FieldDriver)
	require.NoError(t, err)
	require.Len(t, refs.driverIDs, 1)
	for _, v := range views {
		require.Equal(t, "Sam", v.Driver.Name)
	}
}

func TestDeviceViewsUndeclaredFieldsStayEmpty(t *testing.T) {
	accountID := primitive.NewObjectID()
	refs := &fakeRefFetcher{
		accounts: map[primitive.ObjectID]*models.AccountRef{
			accountID: {ID: accountID, Name: "Acme"},
		},
	}
	r := NewResolver(refs)

	views, err := r.DeviceViews(context.Background(), []*models.Device{
		{AccountID: &accountID},
	}, FieldVehicle)
	require.NoError(t, err)
	require.Nil(t, views[0].Account)
	require.Equal(t, 0, refs.accountCalls)
}

func TestVehicleViewsResolveIcons(t *testing.T) {
	iconID := primitive.NewObjectID()
	refs := &fakeRefFetcher{
		icons: map[primitive.ObjectID]*models.IconRef{
			iconID: {ID: iconID, Name: "truck-blue"},
		},
	}
	r := NewResolver(refs)

	views, err := r.VehicleViews(context.Background(), []*models.Vehicle{
		{Brand: "Volvo", IconID: &iconID},
		{Brand: "Scania"},
	})
	require.NoError(t, err)
	require.Equal(t, "truck-blue", views[0].Icon.Name)
	require.Nil(t, views[1].Icon)
}
