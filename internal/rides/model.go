package rides

import (
	"errors"
	"time"

	"car-rental/internal/api"
	"car-rental/internal/geo"
)

// State is where a ride is in its lifecycle.
type State string

const (
	StateIdle           State = "idle"
	StateChoosingCar    State = "choosing-car"
	StateWalkingToCar   State = "walking-to-car"
	StateCarSelected    State = "car-selected"
	StateDriving        State = "driving"
	StateAnimatingDrive State = "animating-drive"
	StateComplete       State = "ride-complete"
	StateFailed         State = "ride-failed"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool { return s == StateComplete || s == StateFailed }

var transitions = map[State][]State{
	StateIdle:           {StateChoosingCar},
	StateChoosingCar:    {StateWalkingToCar},
	StateWalkingToCar:   {StateCarSelected},
	StateCarSelected:    {StateDriving},
	StateDriving:        {StateAnimatingDrive},
	StateAnimatingDrive: {StateComplete, StateFailed},
}

// CanTransition reports whether from → to is a legal move.
func CanTransition(from, to State) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

var (
	ErrRideNotFound      = errors.New("ride not found")
	ErrInvalidTransition = errors.New("invalid ride state transition")
	ErrCarNotAvailable   = errors.New("car is not available")
)

// FailureMessage is what the user sees when any completion step fails.
const FailureMessage = "We could not complete your ride. Please try again later."

// Ride is a snapshot of one simulated ride.
type Ride struct {
	ID          string     `json:"id"`
	CustomerID  string     `json:"customer_id"`
	State       State      `json:"state"`
	UserPos     geo.Point  `json:"user_position"`
	Car         *api.Car   `json:"car,omitempty"`
	Pickup      *geo.Point `json:"pickup,omitempty"`
	Destination *geo.Point `json:"destination,omitempty"`
	Position    *geo.Point `json:"position,omitempty"`
	Step        int        `json:"step"`
	TotalSteps  int        `json:"total_steps"`
	Summary     *Summary   `json:"summary,omitempty"`
	Error       string     `json:"error,omitempty"`
	StartedAt   time.Time  `json:"started_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Summary is shown once a ride completes.
type Summary struct {
	DistanceKm float64 `json:"distance_km"`
	TotalCost  float64 `json:"total_cost"`
	RentalID   string  `json:"rental_id"`
	PaymentID  string  `json:"payment_id"`
}

// StartRequest opens a ride from the user's position.
type StartRequest struct {
	CustomerID string    `json:"customer_id"`
	Position   geo.Point `json:"position"`
}

// SelectRequest picks a car for an open ride.
type SelectRequest struct {
	CarID string `json:"car_id"`
}

// AcceptRequest confirms the drive to a destination.
type AcceptRequest struct {
	Destination geo.Point `json:"destination"`
}

// StartResult is the ride plus the cars offered for it.
type StartResult struct {
	Ride *Ride     `json:"ride"`
	Cars []api.Car `json:"cars"`
}
