package fleet

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"

	"car-rental/internal/api"
	"car-rental/internal/geo"
	"car-rental/pkg/validation"
)

// CarForm is the add/edit car form.
type CarForm struct {
	Brand           string        `json:"brand"`
	Model           string        `json:"model"`
	Year            int           `json:"year"`
	LicensePlate    string        `json:"licensePlate"`
	RentalRate      float64       `json:"rentalRate"`
	Status          api.CarStatus `json:"status"`
	Category        string        `json:"category"`
	Mileage         float64       `json:"mileage"`
	LastMaintenance *time.Time    `json:"lastMaintenance,omitempty"`
	MaintenanceDue  *time.Time    `json:"maintenanceDue,omitempty"`
	Location        geo.Point     `json:"location"`
}

func (f CarForm) Validate() error {
	return validation.FromOzzo(ozzo.ValidateStruct(&f,
		ozzo.Field(&f.Brand, validation.Required),
		ozzo.Field(&f.Model, validation.Required),
		ozzo.Field(&f.Year, validation.Year),
		ozzo.Field(&f.LicensePlate, validation.Plate),
		ozzo.Field(&f.RentalRate, validation.Amount),
		ozzo.Field(&f.Status, ozzo.In(api.CarAvailable, api.CarRented, api.CarMaintenance, api.CarOutOfService)),
		ozzo.Field(&f.Mileage, ozzo.Min(0.0)),
		ozzo.Field(&f.Location, ozzo.By(func(v interface{}) error {
			p, _ := v.(geo.Point)
			if !validation.ValidateCoordinates(p.Lat, p.Lng) {
				return ozzo.NewError("validation_invalid", "latitude must be in [-90, 90] and longitude in [-180, 180]")
			}
			return nil
		})),
	))
}

// Car converts the form into the backend's car shape. A missing status means
// the car is available.
func (f CarForm) Car() *api.Car {
	status := f.Status
	if status == "" {
		status = api.CarAvailable
	}
	return &api.Car{
		Brand:           f.Brand,
		Model:           f.Model,
		Year:            f.Year,
		LicensePlate:    f.LicensePlate,
		RentalRate:      f.RentalRate,
		Status:          status,
		Category:        f.Category,
		Mileage:         f.Mileage,
		LastMaintenance: f.LastMaintenance,
		MaintenanceDue:  f.MaintenanceDue,
		Location:        f.Location,
	}
}

// Filter narrows the fleet list. Empty fields match everything.
type Filter struct {
	Status   api.CarStatus
	Category string
}

func (f Filter) match(c api.Car) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.Category != "" && c.Category != f.Category {
		return false
	}
	return true
}

// Summary is the fleet dashboard: counts per status plus the cars overdue
// for maintenance.
type Summary struct {
	Total          int                   `json:"total"`
	ByStatus       map[api.CarStatus]int `json:"byStatus"`
	ByCategory     map[string]int        `json:"byCategory"`
	MaintenanceDue []api.Car             `json:"maintenanceDue"`
}

// StatusRequest is the body for PATCH /fleet/{id}/status.
type StatusRequest struct {
	Status api.CarStatus `json:"status"`
}
