package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Vehicle catalog categories, closed set.
const (
	CategoryCar        = "car"
	CategoryMotorcycle = "motorcycle"
	CategoryTruck      = "truck"
	CategoryBus        = "bus"
	CategoryVan        = "van"
	CategorySUV        = "suv"
)

var Categories = []string{
	CategoryCar, CategoryMotorcycle, CategoryTruck,
	CategoryBus, CategoryVan, CategorySUV,
}

func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

type Vehicle struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Brand     string              `bson:"brand" json:"brand"`
	Model     string              `bson:"model" json:"model"`
	Category  string              `bson:"category" json:"category"`
	IconID    *primitive.ObjectID `bson:"icon_id,omitempty" json:"icon_id,omitempty"`
	Status    string              `bson:"status" json:"status"`
	CreatedAt time.Time           `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time           `bson:"updated_at" json:"updated_at"`
}

type VehicleView struct {
	Vehicle `bson:",inline"`
	Icon    *IconRef `json:"icon,omitempty"`
}
