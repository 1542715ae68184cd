// Package rides simulates a customer walking to a car and driving it to a
// destination, then settles the drive as a rental and payment.
package rides

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"car-rental/internal/api"
	"car-rental/internal/geo"
	"car-rental/internal/journal"
	"car-rental/internal/tracking"
	"car-rental/pkg/jwt"
	"car-rental/pkg/logger"
	"car-rental/pkg/metrics"
	"car-rental/pkg/validation"
)

// Fleet is the part of the fleet API the ride screens read.
type Fleet interface {
	ListCars(ctx context.Context) ([]api.Car, error)
	GetCar(ctx context.Context, id string) (*api.Car, error)
}

// Nearby looks up car ids around a point. *redis.Client satisfies it.
type Nearby interface {
	GetNearbyCars(ctx context.Context, lat, lng, radiusKm float64, count int) ([]string, error)
}

// Broadcaster receives animation frames. *tracking.Hub satisfies it.
type Broadcaster interface {
	Broadcast(f tracking.Frame)
}

// Options tune the animation and the nearby search.
type Options struct {
	StepDelay      time.Duration
	WalkSteps      int
	NearbyRadiusKm float64
	NearbyLimit    int
	// Rand, when set, drives route detours.
	Rand *rand.Rand
}

type entry struct {
	ride   Ride
	ctx    context.Context
	cancel context.CancelFunc
}

// Service holds every ride in memory and runs their animations.
type Service struct {
	fleet     Fleet
	nearby    Nearby
	hub       Broadcaster
	completer *Completer
	journal   Journal
	opts      Options
	log       logger.Logger

	root   context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.RWMutex
	rides  map[string]*entry
	randMu sync.Mutex
}

// NewService wires the ride flow. nearby and j may be nil.
func NewService(fleet Fleet, nearby Nearby, hub Broadcaster, completer *Completer, j Journal, opts Options, log logger.Logger) *Service {
	if opts.StepDelay <= 0 {
		opts.StepDelay = 100 * time.Millisecond
	}
	if opts.WalkSteps <= 0 {
		opts.WalkSteps = 20
	}
	if opts.NearbyRadiusKm <= 0 {
		opts.NearbyRadiusKm = 5
	}
	if opts.NearbyLimit <= 0 {
		opts.NearbyLimit = 10
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if j == nil {
		j = nopJournal{}
	}
	root, stop := context.WithCancel(context.Background())
	return &Service{
		fleet:     fleet,
		nearby:    nearby,
		hub:       hub,
		completer: completer,
		journal:   j,
		opts:      opts,
		log:       log,
		root:      root,
		stop:      stop,
		rides:     make(map[string]*entry),
	}
}

// Start opens a ride at the user's position and offers the available cars,
// nearest first.
func (s *Service) Start(ctx context.Context, customerID string, userPos geo.Point) (*StartResult, error) {
	verr := validation.Errors{}
	if strings.TrimSpace(customerID) == "" {
		verr["customer_id"] = "cannot be blank"
	}
	if !validation.ValidateCoordinates(userPos.Lat, userPos.Lng) {
		verr["position"] = "latitude must be in [-90, 90] and longitude in [-180, 180]"
	}
	if len(verr) > 0 {
		return nil, verr
	}

	cars, err := s.availableCars(ctx, userPos)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	ride := Ride{
		ID:         uuid.New().String(),
		CustomerID: customerID,
		State:      StateChoosingCar,
		UserPos:    userPos,
		StartedAt:  now,
		UpdatedAt:  now,
	}

	rideCtx, cancel := context.WithCancel(s.root)
	s.mu.Lock()
	s.rides[ride.ID] = &entry{ride: ride, ctx: rideCtx, cancel: cancel}
	s.mu.Unlock()
	metrics.RidesActive.Inc()

	s.log.Info("ride started", logger.String("ride_id", ride.ID), logger.Int("cars_offered", len(cars)))
	return &StartResult{Ride: &ride, Cars: cars}, nil
}

func (s *Service) availableCars(ctx context.Context, at geo.Point) ([]api.Car, error) {
	var cars []api.Car
	if s.nearby != nil {
		ids, err := s.nearby.GetNearbyCars(ctx, at.Lat, at.Lng, s.opts.NearbyRadiusKm, s.opts.NearbyLimit)
		if err != nil {
			s.log.Warn("nearby lookup failed, using full fleet", logger.Error(err))
		}
		for _, id := range ids {
			car, err := s.fleet.GetCar(ctx, id)
			if err != nil {
				if errors.Is(err, api.ErrNotFound) {
					continue
				}
				return nil, fmt.Errorf("car %s: %w", id, err)
			}
			if car.Status == api.CarAvailable {
				cars = append(cars, *car)
			}
		}
	}

	if len(cars) == 0 {
		all, err := s.fleet.ListCars(ctx)
		if err != nil {
			return nil, err
		}
		for _, car := range all {
			if car.Status == api.CarAvailable {
				cars = append(cars, car)
			}
		}
	}

	sort.SliceStable(cars, func(i, j int) bool {
		return geo.Distance(at, cars[i].Location) < geo.Distance(at, cars[j].Location)
	})
	return cars, nil
}

// SelectCar picks a car and starts the walk towards it.
func (s *Service) SelectCar(ctx context.Context, rideID, carID string) (*Ride, error) {
	if _, err := s.Get(rideID); err != nil {
		return nil, err
	}
	car, err := s.fleet.GetCar(ctx, carID)
	if err != nil {
		return nil, err
	}
	if car.Status != api.CarAvailable {
		return nil, ErrCarNotAvailable
	}

	var path []geo.Point
	ride, rideCtx, err := s.advance(ctx, rideID, StateChoosingCar, StateWalkingToCar, func(r *Ride) {
		pickup := car.Location
		r.Car = car
		r.Pickup = &pickup
		path = geo.Walk(r.UserPos, pickup, s.opts.WalkSteps)
		r.Step, r.TotalSteps = 0, len(path)
	})
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.animate(rideCtx, rideID, "walk", path, func(context.Context) {
		if _, _, err := s.advance(rideCtx, rideID, StateWalkingToCar, StateCarSelected, nil); err != nil {
			s.log.Debug("walk finished on a changed ride", logger.String("ride_id", rideID), logger.Error(err))
		}
	})
	return ride, nil
}

// Accept confirms the destination and starts the drive. Once the car
// arrives the completion sequence runs.
func (s *Service) Accept(ctx context.Context, rideID string, dest geo.Point) (*Ride, error) {
	if !validation.ValidateCoordinates(dest.Lat, dest.Lng) {
		return nil, validation.Errors{"destination": "latitude must be in [-90, 90] and longitude in [-180, 180]"}
	}

	var job Job
	ride, rideCtx, err := s.advance(ctx, rideID, StateCarSelected, StateDriving, func(r *Ride) {
		d := dest
		r.Destination = &d
		job = Job{RideID: r.ID, CustomerID: r.CustomerID, Car: *r.Car, Pickup: *r.Pickup, Dropoff: dest}
	})
	if err != nil {
		return nil, err
	}

	if err := s.journal.Begin(ctx, journal.Entry{
		RideID: job.RideID, CustomerID: job.CustomerID, CarID: job.Car.ID,
		Pickup: job.Pickup, Dropoff: job.Dropoff,
	}); err != nil {
		s.log.Warn("journal begin failed", logger.String("ride_id", rideID), logger.Error(err))
	}

	s.randMu.Lock()
	path := geo.Route(job.Pickup, dest, s.opts.Rand)
	s.randMu.Unlock()

	ride, _, err = s.advance(ctx, rideID, StateDriving, StateAnimatingDrive, func(r *Ride) {
		r.Step, r.TotalSteps = 0, len(path)
	})
	if err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.animate(rideCtx, rideID, "drive", path, func(ctx context.Context) {
		s.complete(ctx, job)
	})
	return ride, nil
}

func (s *Service) complete(ctx context.Context, job Job) {
	sum, err := s.completer.Complete(ctx, job)
	to := StateComplete
	if err != nil {
		to = StateFailed
	}
	ride, _, terr := s.advance(ctx, job.RideID, StateAnimatingDrive, to, func(r *Ride) {
		r.Summary = sum
		if err != nil {
			r.Error = FailureMessage
		}
	})
	if terr != nil {
		s.log.Debug("ride changed during completion", logger.String("ride_id", job.RideID), logger.Error(terr))
		return
	}
	s.hub.Broadcast(tracking.Frame{
		RideID: job.RideID,
		Phase:  "drive",
		Step:   ride.Step,
		Total:  ride.TotalSteps,
		Lat:    job.Dropoff.Lat,
		Lng:    job.Dropoff.Lng,
		State:  string(ride.State),
		Final:  true,
	})
}

// animate moves the ride along path, one point per StepDelay, and calls done
// after the last point unless ctx is cancelled first.
func (s *Service) animate(ctx context.Context, rideID, phase string, path []geo.Point, done func(context.Context)) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.opts.StepDelay)
	defer ticker.Stop()

	for i, p := range path {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		pos := p
		var state State
		ok := s.update(rideID, func(r *Ride) {
			r.Position = &pos
			r.Step = i + 1
			state = r.State
		})
		if !ok {
			return
		}
		s.hub.Broadcast(tracking.Frame{
			RideID: rideID,
			Phase:  phase,
			Step:   i + 1,
			Total:  len(path),
			Lat:    p.Lat,
			Lng:    p.Lng,
			State:  string(state),
		})
	}

	if ctx.Err() == nil {
		done(ctx)
	}
}

// advance moves a ride from one state to the next, applying fn under the
// lock. It returns the updated snapshot and the ride's own context.
func (s *Service) advance(ctx context.Context, rideID string, from, to State, fn func(*Ride)) (*Ride, context.Context, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.rides[rideID]
	if !ok {
		return nil, nil, ErrRideNotFound
	}
	if e.ride.State != from || !CanTransition(from, to) {
		return nil, nil, fmt.Errorf("%w: %s → %s (ride is %s)", ErrInvalidTransition, from, to, e.ride.State)
	}
	if fn != nil {
		fn(&e.ride)
	}
	e.ride.State = to
	e.ride.UpdatedAt = time.Now().UTC()

	snap := e.ride
	return &snap, carryToken(ctx, e.ctx), nil
}

// carryToken returns the ride context with the request's bearer token, so
// backend calls made after the request ends are still authorised.
func carryToken(req, ride context.Context) context.Context {
	if token := jwt.TokenFrom(req); token != "" {
		return jwt.WithToken(ride, token)
	}
	return ride
}

// update applies fn to a ride without changing its state. It reports false
// once the ride is gone.
func (s *Service) update(rideID string, fn func(*Ride)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.rides[rideID]
	if !ok {
		return false
	}
	fn(&e.ride)
	e.ride.UpdatedAt = time.Now().UTC()
	return true
}

// Get returns a snapshot of a ride.
func (s *Service) Get(rideID string) (*Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.rides[rideID]
	if !ok {
		return nil, ErrRideNotFound
	}
	snap := e.ride
	return &snap, nil
}

// Exists reports whether the ride is still held.
func (s *Service) Exists(rideID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.rides[rideID]
	return ok
}

// Cancel stops any running animation and forgets the ride. A completion
// sequence already in flight is cancelled with it.
func (s *Service) Cancel(rideID string) error {
	s.mu.Lock()
	e, ok := s.rides[rideID]
	if ok {
		delete(s.rides, rideID)
	}
	s.mu.Unlock()
	if !ok {
		return ErrRideNotFound
	}
	e.cancel()
	metrics.RidesActive.Dec()
	s.hub.Broadcast(tracking.Frame{RideID: rideID, Phase: "cancelled", State: string(e.ride.State), Final: true})
	s.log.Info("ride cancelled", logger.String("ride_id", rideID), logger.String("state", string(e.ride.State)))
	return nil
}

// Shutdown cancels every ride and waits for their goroutines to exit.
func (s *Service) Shutdown(ctx context.Context) error {
	s.stop()
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
