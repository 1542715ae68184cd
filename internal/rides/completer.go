package rides

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"car-rental/internal/api"
	"car-rental/internal/events"
	"car-rental/internal/geo"
	"car-rental/internal/journal"
	"car-rental/internal/notifications"
	"car-rental/pkg/kafka"
	"car-rental/pkg/logger"
	"car-rental/pkg/metrics"
)

// Completion step names, used in StepError, logs, metrics and the journal.
const (
	StepDistance         = "distance"
	StepUpdateLocation   = "update_location"
	StepResolveLocations = "resolve_locations"
	StepCreateRental     = "create_rental"
	StepCreatePayment    = "create_payment"
)

const bookkeepingTimeout = 5 * time.Second

var (
	errNoRentalID   = errors.New("backend returned a rental without an id")
	errNoLocationID = errors.New("backend returned a location without an id")
)

// StepError names the completion step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string { return fmt.Sprintf("ride step %s: %v", e.Step, e.Err) }
func (e *StepError) Unwrap() error { return e.Err }

// Backend is the part of the fleet API the completion sequence calls.
type Backend interface {
	UpdateCarLocation(ctx context.Context, id string, upd api.CarLocationUpdate) error
	SearchLocation(ctx context.Context, p geo.Point) (*api.Location, error)
	CreateRental(ctx context.Context, r *api.Rental) (*api.Rental, error)
	CreatePayment(ctx context.Context, p *api.Payment) (*api.Payment, error)
}

// Journal records ride progress. *journal.Repo satisfies it.
type Journal interface {
	Begin(ctx context.Context, e journal.Entry) error
	Step(ctx context.Context, rideID, step string, stepErr error) error
	Finish(ctx context.Context, o journal.Outcome) error
}

// Publisher sends ride events. *kafka.Client satisfies it.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, value any) error
}

// CarLocator keeps the nearby-car index current. *redis.Client satisfies it.
type CarLocator interface {
	SetCarLocation(ctx context.Context, carID string, lat, lng float64) error
}

type nopJournal struct{}

func (nopJournal) Begin(context.Context, journal.Entry) error { return nil }
func (nopJournal) Step(context.Context, string, string, error) error { return nil }
func (nopJournal) Finish(context.Context, journal.Outcome) error { return nil }

// Job is everything the completion sequence needs about a finished drive.
type Job struct {
	RideID     string
	CustomerID string
	Car        api.Car
	Pickup     geo.Point
	Dropoff    geo.Point
}

// Completer runs the steps that turn a finished drive into a paid rental.
type Completer struct {
	backend       Backend
	notes         notifications.Store
	journal       Journal
	events        Publisher
	locator       CarLocator
	paymentMethod string
	log           logger.Logger
	now           func() time.Time
}

// CompleterOption configures optional collaborators.
type CompleterOption func(*Completer)

func WithJournal(j Journal) CompleterOption { return func(c *Completer) { c.journal = j } }
func WithPublisher(p Publisher) CompleterOption { return func(c *Completer) { c.events = p } }
func WithCarLocator(l CarLocator) CompleterOption { return func(c *Completer) { c.locator = l } }

func NewCompleter(backend Backend, notes notifications.Store, paymentMethod string, log logger.Logger, opts ...CompleterOption) *Completer {
	c := &Completer{
		backend:       backend,
		notes:         notes,
		journal:       nopJournal{},
		paymentMethod: paymentMethod,
		log:           log,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RentalCost is distanceKm × rate rounded to cents.
func RentalCost(distanceKm, rate float64) float64 {
	return decimal.NewFromFloat(distanceKm).
		Mul(decimal.NewFromFloat(rate)).
		Round(2).
		InexactFloat64()
}

// Complete runs the sequence in order and stops at the first failure.
// Nothing already done is undone. Journal writes, notifications and events
// outlive a cancelled ctx, so a ride cancelled mid-sequence still closes its
// journal row.
func (c *Completer) Complete(ctx context.Context, job Job) (*Summary, error) {
	log := c.log.With(logger.String("ride_id", job.RideID), logger.String("car_id", job.Car.ID))

	sum, km, err := c.run(ctx, job, log)
	if err != nil {
		step := StepDistance
		var se *StepError
		if errors.As(err, &se) {
			step = se.Step
		}
		log.Error("ride completion failed", logger.String("step", step), logger.Error(err))
		metrics.RideStepFailures.WithLabelValues(step).Inc()
		metrics.RidesCompleted.WithLabelValues("failed").Inc()

		c.finish(ctx, journal.Outcome{RideID: job.RideID, Outcome: journal.OutcomeFailed, DistanceKm: km, FailedStep: step}, log)
		c.notify(ctx, notifications.Notification{
			Kind:    notifications.KindRideFailed,
			Title:   "Ride failed",
			Message: FailureMessage,
			RideID:  job.RideID,
		}, log)
		return nil, err
	}

	metrics.RidesCompleted.WithLabelValues("completed").Inc()
	c.finish(ctx, journal.Outcome{
		RideID:     job.RideID,
		Outcome:    journal.OutcomeCompleted,
		DistanceKm: sum.DistanceKm,
		TotalCost:  sum.TotalCost,
		RentalID:   sum.RentalID,
		PaymentID:  sum.PaymentID,
	}, log)
	c.notify(ctx, notifications.Notification{
		Kind:    notifications.KindRideCompleted,
		Title:   "Ride completed",
		Message: completionMessage(job.Car, sum),
		RideID:  job.RideID,
	}, log)
	c.publish(ctx, kafka.TopicRideCompleted, job.RideID, events.RideCompletedEvent{
		RideID:      job.RideID,
		CarID:       job.Car.ID,
		CustomerID:  job.CustomerID,
		RentalID:    sum.RentalID,
		PaymentID:   sum.PaymentID,
		Pickup:      events.LatLng{Lat: job.Pickup.Lat, Lng: job.Pickup.Lng},
		Dropoff:     events.LatLng{Lat: job.Dropoff.Lat, Lng: job.Dropoff.Lng},
		DistanceKm:  sum.DistanceKm,
		TotalCost:   sum.TotalCost,
		CompletedAt: c.now().UTC().Format(time.RFC3339),
	}, log)

	log.Info("ride completed",
		logger.Float64("distance_km", sum.DistanceKm),
		logger.Float64("total_cost", sum.TotalCost),
		logger.String("rental_id", sum.RentalID))
	return sum, nil
}

// run returns the distance even on failure, once it is known.
func (c *Completer) run(ctx context.Context, job Job, log logger.Logger) (*Summary, float64, error) {
	// 1. distance
	km := geo.Distance(job.Pickup, job.Dropoff)
	cost := RentalCost(km, job.Car.RentalRate)
	c.step(ctx, job.RideID, StepDistance, nil, log)

	// 2. car location, awaited before anything else
	err := c.backend.UpdateCarLocation(ctx, job.Car.ID, api.CarLocationUpdate{
		Latitude:          job.Dropoff.Lat,
		Longitude:         job.Dropoff.Lng,
		DistanceTravelled: km * 1000,
	})
	c.step(ctx, job.RideID, StepUpdateLocation, err, log)
	if err != nil {
		return nil, km, &StepError{Step: StepUpdateLocation, Err: err}
	}
	c.carMoved(ctx, job, km, log)

	// 3. rental
	pickup, err := c.location(ctx, job.Pickup)
	var dropoff *api.Location
	if err == nil {
		dropoff, err = c.location(ctx, job.Dropoff)
	}
	c.step(ctx, job.RideID, StepResolveLocations, err, log)
	if err != nil {
		return nil, km, &StepError{Step: StepResolveLocations, Err: err}
	}

	rental, err := c.backend.CreateRental(ctx, &api.Rental{
		CarID:             job.Car.ID,
		CustomerID:        job.CustomerID,
		Date:              c.now().UTC(),
		PickupLocationID:  pickup.ID,
		DropoffLocationID: dropoff.ID,
		DistanceInKm:      km,
		TotalCost:         cost,
	})
	if err == nil && (rental == nil || rental.ID == "") {
		err = errNoRentalID
	}
	c.step(ctx, job.RideID, StepCreateRental, err, log)
	if err != nil {
		return nil, km, &StepError{Step: StepCreateRental, Err: err}
	}

	// 4. payment, only ever reached with a created rental
	payment, err := c.backend.CreatePayment(ctx, &api.Payment{
		RentalID:      rental.ID,
		PaymentAmount: cost,
		PaymentMethod: c.paymentMethod,
		PaymentDate:   c.now().UTC(),
		PaymentStatus: "completed",
	})
	c.step(ctx, job.RideID, StepCreatePayment, err, log)
	if err != nil {
		return nil, km, &StepError{Step: StepCreatePayment, Err: err}
	}
	sum := &Summary{DistanceKm: km, TotalCost: cost, RentalID: rental.ID}
	if payment != nil {
		sum.PaymentID = payment.ID
	}
	return sum, km, nil
}

func (c *Completer) location(ctx context.Context, p geo.Point) (*api.Location, error) {
	loc, err := c.backend.SearchLocation(ctx, p)
	if err != nil {
		return nil, err
	}
	if loc == nil || loc.ID == "" {
		return nil, fmt.Errorf("%w at %.5f,%.5f", errNoLocationID, p.Lat, p.Lng)
	}
	return loc, nil
}

func (c *Completer) carMoved(ctx context.Context, job Job, km float64, log logger.Logger) {
	if c.locator != nil {
		if err := c.locator.SetCarLocation(ctx, job.Car.ID, job.Dropoff.Lat, job.Dropoff.Lng); err != nil {
			log.Warn("failed to update nearby-car index", logger.Error(err))
		}
	}
	c.publish(ctx, kafka.TopicCarLocationUpdated, job.Car.ID, events.CarLocationUpdatedEvent{
		CarID:          job.Car.ID,
		Location:       events.LatLng{Lat: job.Dropoff.Lat, Lng: job.Dropoff.Lng},
		DistanceMeters: km * 1000,
		UpdatedAt:      c.now().UTC().Format(time.RFC3339),
	}, log)
}

// detached keeps ctx values such as the bearer token but drops its
// cancellation, for writes that must land after a ride is cancelled.
func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), bookkeepingTimeout)
}

func (c *Completer) step(ctx context.Context, rideID, step string, stepErr error, log logger.Logger) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := c.journal.Step(ctx, rideID, step, stepErr); err != nil {
		log.Warn("journal step write failed", logger.String("step", step), logger.Error(err))
	}
}

func (c *Completer) finish(ctx context.Context, o journal.Outcome, log logger.Logger) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := c.journal.Finish(ctx, o); err != nil {
		log.Warn("journal finish write failed", logger.Error(err))
	}
}

func (c *Completer) notify(ctx context.Context, n notifications.Notification, log logger.Logger) {
	ctx, cancel := detached(ctx)
	defer cancel()
	if _, err := c.notes.Push(ctx, n); err != nil {
		log.Warn("failed to push notification", logger.Error(err))
	}
}

func (c *Completer) publish(ctx context.Context, topic, key string, value any, log logger.Logger) {
	if c.events == nil {
		return
	}
	ctx, cancel := detached(ctx)
	defer cancel()
	if err := c.events.Publish(ctx, topic, key, value); err != nil {
		log.Warn("failed to publish event", logger.String("topic", topic), logger.Error(err))
	}
}

func completionMessage(car api.Car, s *Summary) string {
	return fmt.Sprintf("You drove %s km in the %s %s. %s was charged for rental %s.",
		humanize.CommafWithDigits(s.DistanceKm, 2), car.Brand, car.Model,
		humanize.CommafWithDigits(s.TotalCost, 2), s.RentalID)
}
