package export

import (
	"github.com/fleetwise/fleet-services/internal/fleetsvc/models"
)

// Table is the fixed column layout for one entity type. Width is the
// printed column width in millimeters (PDF); the spreadsheet derives
// character widths from it. StatusCol points at the cell the
// spreadsheet's conditional highlight keys on, -1 for none.
type Table struct {
	Name      string
	Columns   []Column
	StatusCol int
}

type Column struct {
	Title string
	Width float64
}

const timeLayout = "2006-01-02 15:04"

// DeviceTable is the documented device export layout: device fields
// first, then the denormalized reference columns.
func DeviceTable() Table {
	return Table{
		Name:      "Devices",
		StatusCol: 7,
		Columns: []Column{
			{Title: "IMEI", Width: 20},
			{Title: "Serial No", Width: 20},
			{Title: "SIM 1", Width: 18},
			{Title: "SIM 1 Carrier", Width: 16},
			{Title: "SIM 2", Width: 18},
			{Title: "SIM 2 Carrier", Width: 16},
			{Title: "Description", Width: 24},
			{Title: "Status", Width: 12},
			{Title: "Account", Width: 20},
			{Title: "Vehicle", Width: 22},
			{Title: "Plate No", Width: 16},
			{Title: "Driver", Width: 20},
			{Title: "License No", Width: 18},
			{Title: "Driver Phone", Width: 16},
			{Title: "Created", Width: 20},
		},
	}
}

func DeviceRow(v *models.DeviceView) []string {
	status := "inactive"
	if v.Active {
		status = "active"
	}

	var account, vehicle, plate, driver, license, phone string
	if v.Account != nil {
		account = v.Account.Name
	}
	if v.Vehicle != nil {
		vehicle = v.Vehicle.Brand + " " + v.Vehicle.Model
	}
	if v.Registration != nil {
		plate = v.Registration.PlateNo
	}
	if v.Driver != nil {
		driver = v.Driver.Name
		license = v.Driver.LicenseNo
		phone = v.Driver.Phone
	}

	return []string{
		v.Imei,
		v.SerialNo,
		v.Sim1No,
		v.Sim1Carrier,
		v.Sim2No,
		v.Sim2Carrier,
		v.Description,
		status,
		account,
		vehicle,
		plate,
		driver,
		license,
		phone,
		v.CreatedAt.Format(timeLayout),
	}
}

func VehicleTable() Table {
	return Table{
		Name:      "Vehicles",
		StatusCol: 3,
		Columns: []Column{
			{Title: "Brand", Width: 40},
			{Title: "Model", Width: 40},
			{Title: "Category", Width: 30},
			{Title: "Status", Width: 25},
			{Title: "Icon", Width: 40},
			{Title: "Created", Width: 30},
			{Title: "Updated", Width: 30},
		},
	}
}

func VehicleRow(v *models.VehicleView) []string {
	var icon string
	if v.Icon != nil {
		icon = v.Icon.Name
	}
	return []string{
		v.Brand,
		v.Model,
		v.Category,
		v.Status,
		icon,
		v.CreatedAt.Format(timeLayout),
		v.UpdatedAt.Format(timeLayout),
	}
}
