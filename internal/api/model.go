package api

import (
	"time"

	"car-rental/internal/geo"
)

// CarStatus enumerates the fleet states the backend reports.
type CarStatus string

const (
	CarAvailable    CarStatus = "available"
	CarRented       CarStatus = "rented"
	CarMaintenance  CarStatus = "maintenance"
	CarOutOfService CarStatus = "out-of-service"
)

// Valid reports whether s is one of the known statuses.
func (s CarStatus) Valid() bool {
	switch s {
	case CarAvailable, CarRented, CarMaintenance, CarOutOfService:
		return true
	}
	return false
}

// Car is a fleet vehicle.
type Car struct {
	ID              string     `json:"id"`
	Brand           string     `json:"brand"`
	Model           string     `json:"model"`
	Year            int        `json:"year"`
	LicensePlate    string     `json:"licensePlate"`
	RentalRate      float64    `json:"rentalRate"`
	Status          CarStatus  `json:"status"`
	Category        string     `json:"category"`
	Mileage         float64    `json:"mileage"`
	LastMaintenance *time.Time `json:"lastMaintenance,omitempty"`
	MaintenanceDue  *time.Time `json:"maintenanceDue,omitempty"`
	Location        geo.Point  `json:"location"`
}

// CarLocationUpdate is the body for PUT /api/cars/{id}/location.
type CarLocationUpdate struct {
	Latitude          float64 `json:"latitude"`
	Longitude         float64 `json:"longitude"`
	DistanceTravelled float64 `json:"distanceTravelled"` // metres
}

// ProfileStatus is the approval state of a customer profile.
type ProfileStatus string

const (
	ProfilePending  ProfileStatus = "pending"
	ProfileApproved ProfileStatus = "approved"
)

// Profile is a customer identity record awaiting or holding approval.
type Profile struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	IDNumber      string        `json:"idNumber"`
	LicenseNumber string        `json:"licenseNumber"`
	PhoneNumber   string        `json:"phoneNumber"`
	Address       string        `json:"address"`
	Status        ProfileStatus `json:"status"`
	Documents     []string      `json:"documents,omitempty"`
}

// Rental is a booked use of a car.
type Rental struct {
	ID                string    `json:"id,omitempty"`
	CarID             string    `json:"carID"`
	CustomerID        string    `json:"customerID"`
	Date              time.Time `json:"date"`
	PickupLocationID  string    `json:"pickupLocationID"`
	DropoffLocationID string    `json:"dropoffLocationID"`
	DistanceInKm      float64   `json:"distanceInKm"`
	TotalCost         float64   `json:"totalCost"`
}

// RentalView is a rental with its car resolved, as the rentals list shows it.
type RentalView struct {
	Rental
	Car *Car `json:"car,omitempty"`
}

// Payment settles a rental.
type Payment struct {
	ID            string    `json:"id,omitempty"`
	RentalID      string    `json:"rentalID"`
	PaymentAmount float64   `json:"paymentAmount"`
	PaymentMethod string    `json:"paymentMethod"`
	PaymentDate   time.Time `json:"paymentDate"`
	PaymentStatus string    `json:"paymentStatus"`
}

// Location is a named pickup/dropoff point known to the backend.
type Location struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Insurance is a policy held for a car.
type Insurance struct {
	ID            string  `json:"id,omitempty"`
	CarID         string  `json:"carID"`
	CompanyName   string  `json:"companyName"`
	ContactPerson string  `json:"contactPerson"`
	ContactNumber string  `json:"contactNumber"`
	CoverageType  string  `json:"coverageType"`
	CostPerMonth  float64 `json:"costPerMonth"`
	Description   string  `json:"description"`
}

// Maintenance is a service record for a car.
type Maintenance struct {
	ID            string     `json:"id,omitempty"`
	CarID         string     `json:"carID"`
	CompanyName   string     `json:"companyName"`
	ContactPerson string     `json:"contactPerson"`
	ContactNumber string     `json:"contactNumber"`
	ServiceType   string     `json:"serviceType"`
	Cost          float64    `json:"cost"`
	Description   string     `json:"description"`
	ServiceDate   *time.Time `json:"serviceDate,omitempty"`
}

// FinancialReport is a backend-generated revenue/expense summary.
type FinancialReport struct {
	ReportID     string    `json:"reportID"`
	GenerateDate time.Time `json:"generateDate"`
	TimePeriod   string    `json:"timePeriod"`
	ExportFormat string    `json:"exportFormat"`
	TotalRevenue float64   `json:"totalRevenue"`
	TotalExpense float64   `json:"totalExpense"`
	NetProfit    float64   `json:"netProfit"`
}

// ReportRequest is the body for POST /reports/generate.
type ReportRequest struct {
	TimePeriod   string `json:"timePeriod"`
	ExportFormat string `json:"exportFormat"`
}
