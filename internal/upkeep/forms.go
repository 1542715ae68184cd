// Package upkeep backs the insurance and maintenance screens.
package upkeep

import (
	"time"

	ozzo "github.com/go-ozzo/ozzo-validation/v4"

	"car-rental/internal/api"
	"car-rental/pkg/validation"
)

// InsuranceForm is the add/edit insurance policy form.
type InsuranceForm struct {
	CarID         string  `json:"carID"`
	CompanyName   string  `json:"companyName"`
	ContactPerson string  `json:"contactPerson"`
	ContactNumber string  `json:"contactNumber"`
	CoverageType  string  `json:"coverageType"`
	CostPerMonth  float64 `json:"costPerMonth"`
	Description   string  `json:"description"`
}

func (f InsuranceForm) Validate() error {
	return validation.FromOzzo(ozzo.ValidateStruct(&f,
		ozzo.Field(&f.CarID, validation.Required),
		ozzo.Field(&f.CompanyName, validation.Required),
		ozzo.Field(&f.ContactPerson, validation.Name),
		ozzo.Field(&f.ContactNumber, validation.Phone),
		ozzo.Field(&f.CoverageType, validation.Required),
		ozzo.Field(&f.CostPerMonth, validation.Amount),
		ozzo.Field(&f.Description, ozzo.Length(0, 500)),
	))
}

func (f InsuranceForm) record() *api.Insurance {
	return &api.Insurance{
		CarID:         f.CarID,
		CompanyName:   f.CompanyName,
		ContactPerson: f.ContactPerson,
		ContactNumber: f.ContactNumber,
		CoverageType:  f.CoverageType,
		CostPerMonth:  f.CostPerMonth,
		Description:   f.Description,
	}
}

// MaintenanceForm is the add/edit service record form.
type MaintenanceForm struct {
	CarID         string     `json:"carID"`
	CompanyName   string     `json:"companyName"`
	ContactPerson string     `json:"contactPerson"`
	ContactNumber string     `json:"contactNumber"`
	ServiceType   string     `json:"serviceType"`
	Cost          float64    `json:"cost"`
	Description   string     `json:"description"`
	ServiceDate   *time.Time `json:"serviceDate,omitempty"`
}

func (f MaintenanceForm) Validate() error {
	return validation.FromOzzo(ozzo.ValidateStruct(&f,
		ozzo.Field(&f.CarID, validation.Required),
		ozzo.Field(&f.CompanyName, validation.Required),
		ozzo.Field(&f.ContactPerson, validation.Name),
		ozzo.Field(&f.ContactNumber, validation.Phone),
		ozzo.Field(&f.ServiceType, validation.Required),
		ozzo.Field(&f.Cost, validation.Amount),
		ozzo.Field(&f.Description, ozzo.Length(0, 500)),
	))
}

func (f MaintenanceForm) record() *api.Maintenance {
	return &api.Maintenance{
		CarID:         f.CarID,
		CompanyName:   f.CompanyName,
		ContactPerson: f.ContactPerson,
		ContactNumber: f.ContactNumber,
		ServiceType:   f.ServiceType,
		Cost:          f.Cost,
		Description:   f.Description,
		ServiceDate:   f.ServiceDate,
	}
}
