package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// Public projections of referenced records. Only these subsets ever leave
// their owning collections; the full documents stay behind their own APIs.

type AccountRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

type VehicleRef struct {
	ID       primitive.ObjectID `bson:"_id" json:"id"`
	Brand    string             `bson:"brand" json:"brand"`
	Model    string             `bson:"model" json:"model"`
	Category string             `bson:"category" json:"category"`
}

type RegistrationRef struct {
	ID      primitive.ObjectID `bson:"_id" json:"id"`
	PlateNo string             `bson:"plate_no" json:"plate_no"`
}

type DriverRef struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	Name      string             `bson:"name" json:"name"`
	LicenseNo string             `bson:"license_no" json:"license_no"`
	Phone     string             `bson:"phone" json:"phone"`
}

type IconRef struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
	Path string             `bson:"path" json:"path"`
}
