package events

// LatLng is a coordinate pair used in event payloads.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// RideCompletedEvent is published to ride.completed once rental and payment
// both went through.
type RideCompletedEvent struct {
	RideID      string  `json:"ride_id"`
	CarID       string  `json:"car_id"`
	CustomerID  string  `json:"customer_id"`
	RentalID    string  `json:"rental_id"`
	PaymentID   string  `json:"payment_id"`
	Pickup      LatLng  `json:"pickup"`
	Dropoff     LatLng  `json:"dropoff"`
	DistanceKm  float64 `json:"distance_km"`
	TotalCost   float64 `json:"total_cost"`
	CompletedAt string  `json:"completed_at"`
}

// CarLocationUpdatedEvent is published to car.location.updated after the
// backend accepted a car's new position.
type CarLocationUpdatedEvent struct {
	CarID          string  `json:"car_id"`
	Location       LatLng  `json:"location"`
	DistanceMeters float64 `json:"distance_meters"`
	UpdatedAt      string  `json:"updated_at"`
}
