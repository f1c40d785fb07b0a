package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fleetwise/fleet-services/internal/fleetsvc/export"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/models"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/resolve"
	"github.com/fleetwise/fleet-services/internal/fleetsvc/store"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// fakeDeviceStore holds devices in a slice and enforces the imei/serial
// uniqueness the mongo indexes would.
type fakeDeviceStore struct {
	devices     []*models.Device
	updateCalls int
}

func (f *fakeDeviceStore) Insert(ctx context.Context, d *models.Device) (*models.Device, error) {
	for _, e := range f.devices {
		if e.Imei == d.Imei || e.SerialNo == d.SerialNo {
			return nil, fmt.Errorf("%w: write conflict", store.ErrDuplicateKey)
		}
	}
	d.ID = primitive.NewObjectID()
	f.devices = append(f.devices, d)
	return d, nil
}

func (f *fakeDeviceStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Device, error) {
	for _, e := range f.devices {
		if e.ID == id {
			return e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDeviceStore) FindConflicting(ctx context.Context, imei, serial string, exclude *primitive.ObjectID) (*models.Device, error) {
	for _, e := range f.devices {
		if exclude != nil && e.ID == *exclude {
			continue
		}
		if (imei != "" && e.Imei == imei) || (serial != "" && e.SerialNo == serial) {
			return e, nil
		}
	}
	return nil, nil
}

func (f *fakeDeviceStore) UpdateByID(ctx context.Context, id primitive.ObjectID, set bson.M) (*models.Device, error) {
	f.updateCalls++
	for _, e := range f.devices {
		if e.ID != id {
			continue
		}
		if v, ok := set["imei"].(string); ok {
			e.Imei = v
		}
		if v, ok := set["serial_no"].(string); ok {
			e.SerialNo = v
		}
		if v, ok := set["active"].(bool); ok {
			e.Active = v
		}
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (f *fakeDeviceStore) DeleteByID(ctx context.Context, id primitive.ObjectID) (bool, error) {
	for i, e := range f.devices {
		if e.ID == id {
			f.devices = append(f.devices[:i], f.devices[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeDeviceStore) FindMatching(ctx context.Context, _ store.DeviceFilter) ([]*models.Device, error) {
	return f.devices, nil
}

func (f *fakeDeviceStore) FindPage(ctx context.Context, _ store.DeviceFilter, skip, limit int64) ([]*models.Device, int64, error) {
	total := int64(len(f.devices))
	if skip >= total {
		return nil, total, nil
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return f.devices[skip:end], total, nil
}

func (f *fakeDeviceStore) CountMatching(ctx context.Context, _ store.DeviceFilter) (int64, error) {
	return int64(len(f.devices)), nil
}

func newTestService(fetcher resolve.RefFetcher) (*DeviceService, *fakeDeviceStore) {
	fs := &fakeDeviceStore{}
	return NewDeviceService(fs, resolve.NewResolver(fetcher)), fs
}

func TestCreateThenDuplicateImei(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateDeviceInput{Imei: "IMEI-001", SerialNo: "SN-1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateDeviceInput{Imei: "IMEI-001", SerialNo: "SN-2"})
	require.True(t, errors.Is(err, store.ErrDuplicateKey))
}

func TestCreateMapsWriteConflictToDuplicateKey(t *testing.T) {
	// two creates that both pass the pre-check; the second fails on the
	// write itself and must still surface ErrDuplicateKey
	fs := &fakeDeviceStore{}
	svc := NewDeviceService(&precheckBlindStore{fs}, resolve.NewResolver(&stubRefs{}))
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateDeviceInput{Imei: "IMEI-001", SerialNo: "SN-1"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, CreateDeviceInput{Imei: "IMEI-001", SerialNo: "SN-2"})
	require.True(t, errors.Is(err, store.ErrDuplicateKey))
}

// precheckBlindStore simulates the race window: the pre-check never
// sees a conflict, only the write does.
type precheckBlindStore struct {
	*fakeDeviceStore
}

func (p *precheckBlindStore) FindConflicting(ctx context.Context, imei, serial string, exclude *primitive.ObjectID) (*models.Device, error) {
	return nil, nil
}

func TestUpdateToConflictingSerialLeavesRecordUnchanged(t *testing.T) {
	svc, fs := newTestService(&stubRefs{})
	ctx := context.Background()

	a, err := svc.Create(ctx, CreateDeviceInput{Imei: "IMEI-A", SerialNo: "SN-A"})
	require.NoError(t, err)
	b, err := svc.Create(ctx, CreateDeviceInput{Imei: "IMEI-B", SerialNo: "SN-B"})
	require.NoError(t, err)

	serial := a.SerialNo
	_, err = svc.Update(ctx, b.ID.Hex(), UpdateDeviceInput{SerialNo: &serial})
	require.True(t, errors.Is(err, store.ErrDuplicateKey))
	require.Equal(t, 0, fs.updateCalls)

	got, err := svc.Get(ctx, b.ID.Hex())
	require.NoError(t, err)
	require.Equal(t, "SN-B", got.SerialNo)
}

func TestCreateRejectsMalformedReference(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})

	_, err := svc.Create(context.Background(), CreateDeviceInput{
		Imei: "IMEI-001", SerialNo: "SN-1", AccountID: "nope",
	})
	require.True(t, errors.Is(err, store.ErrInvalidReference))
}

func TestListZeroPageSizeReturnsTotalOnly(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Create(ctx, CreateDeviceInput{
			Imei:     fmt.Sprintf("IMEI-%d", i),
			SerialNo: fmt.Sprintf("SN-%d", i),
		})
		require.NoError(t, err)
	}

	list, err := svc.List(ctx, store.DeviceFilterParams{}, store.Page{Number: 1, Size: 0})
	require.NoError(t, err)
	require.Empty(t, list.Rows)
	require.Equal(t, int64(3), list.Total)
}

func TestListClampsPageNumber(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})

	list, err := svc.List(context.Background(), store.DeviceFilterParams{}, store.Page{Number: -2, Size: 10})
	require.NoError(t, err)
	require.Equal(t, 1, list.Page)
}

// stubRefs resolves accounts and vehicles but knows no drivers, which
// is exactly the dangling-driver shape the end-to-end scenario needs.
type stubRefs struct {
	accounts map[primitive.ObjectID]*models.AccountRef
	vehicles map[primitive.ObjectID]*models.VehicleRef
}

func (s *stubRefs) AccountRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.AccountRef, error) {
	out := map[primitive.ObjectID]*models.AccountRef{}
	for _, id := range ids {
		if v, ok := s.accounts[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *stubRefs) VehicleRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.VehicleRef, error) {
	out := map[primitive.ObjectID]*models.VehicleRef{}
	for _, id := range ids {
		if v, ok := s.vehicles[id]; ok {
			out[id] = v
		}
	}
	return out, nil
}

func (s *stubRefs) RegistrationRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.RegistrationRef, error) {
	return map[primitive.ObjectID]*models.RegistrationRef{}, nil
}

func (s *stubRefs) DriverRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.DriverRef, error) {
	return map[primitive.ObjectID]*models.DriverRef{}, nil
}

func (s *stubRefs) IconRefs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*models.IconRef, error) {
	return map[primitive.ObjectID]*models.IconRef{}, nil
}

// A device referencing a live account and vehicle plus a driver that no
// longer exists: the list still returns the device with the two
// resolvable snapshots, and a spreadsheet export carries one data row
// with the driver columns as the placeholder.
func TestListAndExportWithDanglingDriver(t *testing.T) {
	accountID := primitive.NewObjectID()
	vehicleID := primitive.NewObjectID()
	goneDriver := primitive.NewObjectID()

	refs := &stubRefs{
		accounts: map[primitive.ObjectID]*models.AccountRef{
			accountID: {ID: accountID, Name: "Acme Logistics"},
		},
		vehicles: map[primitive.ObjectID]*models.VehicleRef{
			vehicleID: {ID: vehicleID, Brand: "Volvo", Model: "FH16", Category: "truck"},
		},
	}
	svc, _ := newTestService(refs)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateDeviceInput{
		Imei:      "IMEI-900",
		SerialNo:  "SN-900",
		AccountID: accountID.Hex(),
		VehicleID: vehicleID.Hex(),
		DriverID:  goneDriver.Hex(),
	})
	require.NoError(t, err)

	list, err := svc.List(ctx, store.DeviceFilterParams{}, store.Page{Number: 1, Size: 10})
	require.NoError(t, err)
	require.Len(t, list.Rows, 1)
	require.Equal(t, "Acme Logistics", list.Rows[0].Account.Name)
	require.Equal(t, "Volvo", list.Rows[0].Vehicle.Brand)
	require.Nil(t, list.Rows[0].Driver)

	views, err := svc.Export(ctx, store.DeviceFilterParams{})
	require.NoError(t, err)

	rows := make([][]string, len(views))
	for i, v := range views {
		rows[i] = export.DeviceRow(v)
	}

	var buf bytes.Buffer
	enc := &export.XLSXEncoder{}
	n, err := enc.Encode(ctx, &buf, export.DeviceTable(), rows)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	sheetRows, err := f.GetRows("Devices")
	require.NoError(t, err)
	require.Len(t, sheetRows, 2) // header + one data row

	driver, err := f.GetCellValue("Devices", "L2")
	require.NoError(t, err)
	require.Equal(t, export.Placeholder, driver)

	account, err := f.GetCellValue("Devices", "I2")
	require.NoError(t, err)
	require.Equal(t, "Acme Logistics", account)
}

// Walking every page must visit each matching record exactly once; the
// concatenation equals the unpaginated set.
func TestPagesConcatenateToFullMatch(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		_, err := svc.Create(ctx, CreateDeviceInput{
			Imei:     fmt.Sprintf("IMEI-%d", i),
			SerialNo: fmt.Sprintf("SN-%d", i),
		})
		require.NoError(t, err)
	}

	const size = 3
	var paged []string
	for page := 1; ; page++ {
		list, err := svc.List(ctx, store.DeviceFilterParams{}, store.Page{Number: page, Size: size})
		require.NoError(t, err)
		require.Equal(t, int64(7), list.Total)
		for _, v := range list.Rows {
			paged = append(paged, v.Imei)
		}
		if len(list.Rows) < size {
			break
		}
	}

	full, err := svc.Export(ctx, store.DeviceFilterParams{})
	require.NoError(t, err)
	require.Len(t, paged, len(full))
	for i, v := range full {
		require.Equal(t, v.Imei, paged[i])
	}
}

func TestSetActive(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateDeviceInput{Imei: "IMEI-1", SerialNo: "SN-1"})
	require.NoError(t, err)
	require.True(t, d.Active)

	updated, err := svc.SetActive(ctx, d.ID.Hex(), false)
	require.NoError(t, err)
	require.False(t, updated.Active)
}

func TestDeleteMissingDevice(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})

	err := svc.Delete(context.Background(), primitive.NewObjectID().Hex())
	require.True(t, errors.Is(err, store.ErrNotFound))
}

func TestCreateSetsTimestamps(t *testing.T) {
	svc, _ := newTestService(&stubRefs{})

	before := time.Now().UTC().Add(-time.Second)
	d, err := svc.Create(context.Background(), CreateDeviceInput{Imei: "IMEI-1", SerialNo: "SN-1"})
	require.NoError(t, err)
	require.True(t, d.CreatedAt.After(before))
	require.Equal(t, d.CreatedAt, d.UpdatedAt)
}
