package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Device is an onboarded telematics unit. Reference fields hold foreign
// identifiers only; denormalized snapshots live in DeviceView.
//
// driver_id is kept as the hex string the onboarding import produced, not
// as an ObjectID. Lookups normalize it; a malformed value resolves to no
// match.
type Device struct {
	ID             primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Imei           string              `bson:"imei" json:"imei"`
	SerialNo       string              `bson:"serial_no" json:"serial_no"`
	Sim1No         string              `bson:"sim1_no,omitempty" json:"sim1_no"`
	Sim1Carrier    string              `bson:"sim1_carrier,omitempty" json:"sim1_carrier"`
	Sim2No         string              `bson:"sim2_no,omitempty" json:"sim2_no"`
	Sim2Carrier    string              `bson:"sim2_carrier,omitempty" json:"sim2_carrier"`
	Description    string              `bson:"description,omitempty" json:"description"`
	Active         bool                `bson:"active" json:"active"`
	AccountID      *primitive.ObjectID `bson:"account_id,omitempty" json:"account_id,omitempty"`
	VehicleID      *primitive.ObjectID `bson:"vehicle_id,omitempty" json:"vehicle_id,omitempty"`
	RegistrationID *primitive.ObjectID `bson:"registration_id,omitempty" json:"registration_id,omitempty"`
	DriverID       string              `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	CreatedAt      time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time           `bson:"updated_at" json:"updated_at"`
}

// DeviceView is the per-request read structure: the device plus one
// resolved snapshot per reference field. A nil snapshot means the
// reference was absent or dangling. Views are never persisted.
type DeviceView struct {
	Device       `bson:",inline"`
	Account      *AccountRef      `json:"account,omitempty"`
	Vehicle      *VehicleRef      `json:"vehicle,omitempty"`
	Registration *RegistrationRef `json:"registration,omitempty"`
	Driver       *DriverRef       `json:"driver,omitempty"`
}
