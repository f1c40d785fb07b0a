package store

import (
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DeviceFilterParams are the optional query parameters a list/export
// request may carry. Zero value matches every device.
type DeviceFilterParams struct {
	Search         string // free text over device and, with SearchRefs, referenced fields
	SearchRefs     bool
	AccountID      string
	VehicleID      string
	RegistrationID string
	DriverID       string
	Active         *bool
	Carriers       []string // substring matches, OR'd
}

// DeviceFilter is the normalized predicate. WithRefs marks predicates
// that touch $lookup'd paths and therefore need the aggregation path.
type DeviceFilter struct {
	Match    bson.M
	WithRefs bool
}

// deviceSearchFields are the device-owned fields free-text search spans.
var deviceSearchFields = []string{
	"imei", "serial_no", "sim1_no", "sim2_no",
	"description", "sim1_carrier", "sim2_carrier",
}

// deviceRefSearchFields are the denormalized paths available after the
// reference lookups (see deviceRefPipeline).
var deviceRefSearchFields = []string{
	"account.name",
	"driver.name", "driver.license_no", "driver.phone",
	"vehicle.brand", "vehicle.model",
}

// BuildDeviceFilter translates the raw parameters into one match
// predicate. Malformed reference identifiers are rejected here, before
// anything reaches the store.
func BuildDeviceFilter(p DeviceFilterParams) (DeviceFilter, error) {
	match := bson.M{}
	var and []bson.M

	refs := []struct {
		field string
		raw   string
	}{
		{"account_id", p.AccountID},
		{"vehicle_id", p.VehicleID},
		{"registration_id", p.RegistrationID},
	}
	for _, r := range refs {
		if r.raw == "" {
			continue
		}
		oid, err := primitive.ObjectIDFromHex(r.raw)
		if err != nil {
			return DeviceFilter{}, fmt.Errorf("%w: %s %q", ErrInvalidReference, r.field, r.raw)
		}
		match[r.field] = oid
	}
	if p.DriverID != "" {
		// driver_id is stored textually but must still be a valid key
		if _, err := primitive.ObjectIDFromHex(p.DriverID); err != nil {
			return DeviceFilter{}, fmt.Errorf("%w: driver_id %q", ErrInvalidReference, p.DriverID)
		}
		match["driver_id"] = p.DriverID
	}

	if p.Active != nil {
		match["active"] = *p.Active
	}

	if len(p.Carriers) > 0 {
		var or []bson.M
		for _, c := range p.Carriers {
			rx := primitive.Regex{Pattern: regexEscape(c), Options: "i"}
			or = append(or,
				bson.M{"sim1_carrier": rx},
				bson.M{"sim2_carrier": rx},
			)
		}
		and = append(and, bson.M{"$or": or})
	}

	withRefs := false
	if p.Search != "" {
		rx := primitive.Regex{Pattern: regexEscape(p.Search), Options: "i"}
		fields := deviceSearchFields
		if p.SearchRefs {
			fields = append(append([]string{}, fields...), deviceRefSearchFields...)
			withRefs = true
		}
		or := make([]bson.M, 0, len(fields))
		for _, f := range fields {
			or = append(or, bson.M{f: rx})
		}
		and = append(and, bson.M{"$or": or})
	}

	if len(and) > 0 {
		match["$and"] = and
	}

	return DeviceFilter{Match: match, WithRefs: withRefs}, nil
}

// VehicleFilterParams filter the vehicle catalog.
type VehicleFilterParams struct {
	Search   string // brand, model, status
	Category string // exact, closed set
	Status   string
}

func BuildVehicleFilter(p VehicleFilterParams) (bson.M, error) {
	match := bson.M{}

	if p.Category != "" {
		match["category"] = p.Category
	}
	if p.Status != "" {
		match["status"] = p.Status
	}
	if p.Search != "" {
		rx := primitive.Regex{Pattern: regexEscape(p.Search), Options: "i"}
		match["$or"] = []bson.M{
			{"brand": rx},
			{"model": rx},
			{"status": rx},
		}
	}

	return match, nil
}

// regexEscape neutralizes regex metacharacters so user input only ever
// means a literal substring match.
func regexEscape(s string) string {
	const meta = `\.+*?()|[]{}^$`
	out := make([]rune, 0, len(s))
	for _, r := range s {
		for _, m := range meta {
			if r == m {
				out = append(out, '\\')
				break
			}
		}
		out = append(out, r)
	}
	return string(out)
}
