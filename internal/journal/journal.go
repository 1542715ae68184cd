// Package journal records every simulated ride and the outcome of each
// completion step in PostgreSQL. Nothing is rolled back on failure; the
// journal is where a half-finished ride shows up.
package journal

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"car-rental/internal/geo"
)

// Ride outcomes as stored in ride_journal.outcome.
const (
	OutcomeInProgress = "in_progress"
	OutcomeCompleted  = "completed"
	OutcomeFailed     = "failed"
)

// DB is the subset of *pgxpool.Pool the journal uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Entry opens a journal row when a ride starts driving.
type Entry struct {
	RideID     string
	CustomerID string
	CarID      string
	Pickup     geo.Point
	Dropoff    geo.Point
}

// Outcome closes a journal row.
type Outcome struct {
	RideID     string
	Outcome    string
	DistanceKm float64
	TotalCost  float64
	RentalID   string
	PaymentID  string
	FailedStep string
}

// Record is a journal row as read back.
type Record struct {
	RideID     string     `json:"ride_id"`
	CustomerID string     `json:"customer_id"`
	CarID      string     `json:"car_id"`
	Outcome    string     `json:"outcome"`
	FailedStep string     `json:"failed_step,omitempty"`
	RentalID   string     `json:"rental_id,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Repo writes the ride journal.
type Repo struct {
	db DB
}

func New(db DB) *Repo { return &Repo{db: db} }

func (r *Repo) Begin(ctx context.Context, e Entry) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO ride_journal (ride_id,customer_id,car_id,pickup_lat,pickup_lng,dropoff_lat,dropoff_lng,outcome)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		 ON CONFLICT (ride_id) DO NOTHING`,
		e.RideID, e.CustomerID, e.CarID, e.Pickup.Lat, e.Pickup.Lng, e.Dropoff.Lat, e.Dropoff.Lng, OutcomeInProgress)
	return err
}

// Step records one completion step; stepErr nil means it succeeded.
func (r *Repo) Step(ctx context.Context, rideID, step string, stepErr error) error {
	detail := ""
	if stepErr != nil {
		detail = stepErr.Error()
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO ride_steps (ride_id,step,ok,detail) VALUES ($1,$2,$3,$4)`,
		rideID, step, stepErr == nil, detail)
	return err
}

func (r *Repo) Finish(ctx context.Context, o Outcome) error {
	_, err := r.db.Exec(ctx,
		`UPDATE ride_journal
		 SET outcome=$1, distance_km=$2, total_cost=$3, rental_id=NULLIF($4,''),
		     payment_id=NULLIF($5,''), failed_step=NULLIF($6,''), finished_at=NOW()
		 WHERE ride_id=$7`,
		o.Outcome, o.DistanceKm, o.TotalCost, o.RentalID, o.PaymentID, o.FailedStep, o.RideID)
	return err
}

// Failed lists the most recent failed rides, newest first.
func (r *Repo) Failed(ctx context.Context, limit int) ([]Record, error) {
	rows, err := r.db.Query(ctx,
		`SELECT ride_id::text, customer_id, car_id, outcome,
		        COALESCE(failed_step,''), COALESCE(rental_id,''), started_at, finished_at
		 FROM ride_journal
		 WHERE outcome=$1
		 ORDER BY started_at DESC
		 LIMIT $2`, OutcomeFailed, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.RideID, &rec.CustomerID, &rec.CarID, &rec.Outcome,
			&rec.FailedStep, &rec.RentalID, &rec.StartedAt, &rec.FinishedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
