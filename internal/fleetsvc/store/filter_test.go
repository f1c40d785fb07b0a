package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestBuildDeviceFilterEmpty(t *testing.T) {
	f, err := BuildDeviceFilter(DeviceFilterParams{})
	require.NoError(t, err)
	require.Equal(t, bson.M{}, f.Match)
	require.False(t, f.WithRefs)
}

func TestBuildDeviceFilterExactRefs(t *testing.T) {
	accountID := primitive.NewObjectID()
	vehicleID := primitive.NewObjectID()

	f, err := BuildDeviceFilter(DeviceFilterParams{
		AccountID: accountID.Hex(),
		VehicleID: vehicleID.Hex(),
	})
	require.NoError(t, err)
	require.Equal(t, accountID, f.Match["account_id"])
	require.Equal(t, vehicleID, f.Match["vehicle_id"])
}

func TestBuildDeviceFilterMalformedRef(t *testing.T) {
	_, err := BuildDeviceFilter(DeviceFilterParams{AccountID: "not-an-id"})
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrInvalidReference))

	_, err = BuildDeviceFilter(DeviceFilterParams{DriverID: "zzz"})
	require.True(t, errors.Is(err, ErrInvalidReference))
}

func TestBuildDeviceFilterDriverStaysTextual(t *testing.T) {
	id := primitive.NewObjectID().Hex()
	f, err := BuildDeviceFilter(DeviceFilterParams{DriverID: id})
	require.NoError(t, err)
	require.Equal(t, id, f.Match["driver_id"])
}

func TestBuildDeviceFilterActiveFlag(t *testing.T) {
	active := false
	f, err := BuildDeviceFilter(DeviceFilterParams{Active: &active})
	require.NoError(t, err)
	require.Equal(t, false, f.Match["active"])
}

func TestBuildDeviceFilterCarrierClause(t *testing.T) {
	f, err := BuildDeviceFilter(DeviceFilterParams{Carriers: []string{"Vodafone", "MTN"}})
	require.NoError(t, err)

	and, ok := f.Match["$and"].([]bson.M)
	require.True(t, ok)
	require.Len(t, and, 1)

	or := and[0]["$or"].([]bson.M)
	// both carrier fields per requested carrier
	require.Len(t, or, 4)
	rx := or[0]["sim1_carrier"].(primitive.Regex)
	require.Equal(t, "Vodafone", rx.Pattern)
	require.Equal(t, "i", rx.Options)
}

func TestBuildDeviceFilterSearchAndCarriersStayIndependent(t *testing.T) {
	f, err := BuildDeviceFilter(DeviceFilterParams{
		Search:   "IMEI-0",
		Carriers: []string{"MTN"},
	})
	require.NoError(t, err)

	and := f.Match["$and"].([]bson.M)
	require.Len(t, and, 2)
	require.False(t, f.WithRefs)
}

func TestBuildDeviceFilterSearchSpansDeviceFields(t *testing.T) {
	f, err := BuildDeviceFilter(DeviceFilterParams{Search: "fleet"})
	require.NoError(t, err)

	and := f.Match["$and"].([]bson.M)
	or := and[0]["$or"].([]bson.M)
	require.Len(t, or, len(deviceSearchFields))
}

func TestBuildDeviceFilterSearchRefsAddsLookupPaths(t *testing.T) {
	f, err := BuildDeviceFilter(DeviceFilterParams{Search: "john", SearchRefs: true})
	require.NoError(t, err)
	require.True(t, f.WithRefs)

	and := f.Match["$and"].([]bson.M)
	or := and[0]["$or"].([]bson.M)
	require.Len(t, or, len(deviceSearchFields)+len(deviceRefSearchFields))

	fields := make(map[string]bool)
	for _, clause := range or {
		for k := range clause {
			fields[k] = true
		}
	}
	require.True(t, fields["account.name"])
	require.True(t, fields["driver.license_no"])
	require.True(t, fields["vehicle.brand"])
}

func TestBuildDeviceFilterEscapesRegexMeta(t *testing.T) {
	f, err := BuildDeviceFilter(DeviceFilterParams{Search: "a.b(c"})
	require.NoError(t, err)

	and := f.Match["$and"].([]bson.M)
	or := and[0]["$or"].([]bson.M)
	rx := or[0]["imei"].(primitive.Regex)
	require.Equal(t, `a\.b\(c`, rx.Pattern)
}

func TestBuildVehicleFilter(t *testing.T) {
	match, err := BuildVehicleFilter(VehicleFilterParams{Search: "Volvo", Category: "truck"})
	require.NoError(t, err)
	require.Equal(t, "truck", match["category"])
	require.Len(t, match["$or"].([]bson.M), 3)
}
