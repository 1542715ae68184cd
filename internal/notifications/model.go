package notifications

import "time"

// Kinds of notification pushed by the ride flow and the admin screens.
const (
	KindRideCompleted = "ride_completed"
	KindRideFailed    = "ride_failed"
	KindInfo          = "info"
)

// Notification is one entry on the notifications page.
type Notification struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	RideID    string    `json:"ride_id,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}
