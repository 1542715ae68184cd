// Package fleet backs the vehicle management screens: list and filter the
// fleet, edit cars, change their status and keep the nearby-car index in step.
package fleet

import (
	"context"
	"errors"
	"sort"
	"time"

	"car-rental/internal/api"
	"car-rental/pkg/logger"
	"car-rental/pkg/validation"
)

// ErrIndexDisabled is returned by Nearby when Redis is not configured.
var ErrIndexDisabled = errors.New("nearby index is disabled")

// Backend is the cars part of the fleet API.
type Backend interface {
	ListCars(ctx context.Context) ([]api.Car, error)
	GetCar(ctx context.Context, id string) (*api.Car, error)
	CreateCar(ctx context.Context, car *api.Car) (*api.Car, error)
	UpdateCar(ctx context.Context, id string, car *api.Car) (*api.Car, error)
	DeleteCar(ctx context.Context, id string) error
}

// Index is the Redis GEO set of available cars. *redis.Client satisfies it.
type Index interface {
	SetCarLocation(ctx context.Context, carID string, lat, lng float64) error
	RemoveCarLocation(ctx context.Context, carID string) error
	GetNearbyCars(ctx context.Context, lat, lng, radiusKm float64, count int) ([]string, error)
}

// Service contains fleet screen logic.
type Service struct {
	backend Backend
	index   Index
	log     logger.Logger
	now     func() time.Time
}

// NewService creates a fleet service. index may be nil.
func NewService(backend Backend, index Index, log logger.Logger) *Service {
	return &Service{backend: backend, index: index, log: log, now: time.Now}
}

func (s *Service) List(ctx context.Context, f Filter) ([]api.Car, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, validation.Errors{"status": "unknown car status"}
	}
	cars, err := s.backend.ListCars(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.Car, 0, len(cars))
	for _, c := range cars {
		if f.match(c) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*api.Car, error) {
	return s.backend.GetCar(ctx, id)
}

func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	cars, err := s.backend.ListCars(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	sum := &Summary{
		Total:          len(cars),
		ByStatus:       make(map[api.CarStatus]int),
		ByCategory:     make(map[string]int),
		MaintenanceDue: []api.Car{},
	}
	for _, c := range cars {
		sum.ByStatus[c.Status]++
		if c.Category != "" {
			sum.ByCategory[c.Category]++
		}
		if c.MaintenanceDue != nil && c.MaintenanceDue.Before(now) {
			sum.MaintenanceDue = append(sum.MaintenanceDue, c)
		}
	}
	sort.Slice(sum.MaintenanceDue, func(i, j int) bool {
		return sum.MaintenanceDue[i].MaintenanceDue.Before(*sum.MaintenanceDue[j].MaintenanceDue)
	})
	return sum, nil
}

func (s *Service) Create(ctx context.Context, form CarForm) (*api.Car, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	car, err := s.backend.CreateCar(ctx, form.Car())
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, car)
	return car, nil
}

func (s *Service) Update(ctx context.Context, id string, form CarForm) (*api.Car, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	car := form.Car()
	car.ID = id
	updated, err := s.backend.UpdateCar(ctx, id, car)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, updated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteCar(ctx, id); err != nil {
		return err
	}
	if s.index != nil {
		if err := s.index.RemoveCarLocation(ctx, id); err != nil {
			s.log.Warn("failed to drop car from nearby index", logger.String("car_id", id), logger.Error(err))
		}
	}
	return nil
}

// SetStatus changes only the status of a car.
func (s *Service) SetStatus(ctx context.Context, id string, status api.CarStatus) (*api.Car, error) {
	if !status.Valid() {
		return nil, validation.Errors{"status": "unknown car status"}
	}
	car, err := s.backend.GetCar(ctx, id)
	if err != nil {
		return nil, err
	}
	car.Status = status
	updated, err := s.backend.UpdateCar(ctx, id, car)
	if err != nil {
		return nil, err
	}
	s.reindex(ctx, updated)
	s.log.Info("car status changed", logger.String("car_id", id), logger.String("status", string(status)))
	return updated, nil
}

// Nearby returns the available cars within radiusKm of a point, as indexed.
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusKm float64) ([]string, error) {
	if s.index == nil {
		return nil, ErrIndexDisabled
	}
	if !validation.ValidateCoordinates(lat, lng) {
		return nil, validation.Errors{"position": "latitude must be in [-90, 90] and longitude in [-180, 180]"}
	}
	return s.index.GetNearbyCars(ctx, lat, lng, radiusKm, 10)
}

// Reindex rebuilds the nearby index from the backend's fleet and returns the
// number of available cars indexed.
func (s *Service) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, nil
	}
	cars, err := s.backend.ListCars(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range cars {
		if err := s.indexCar(ctx, &cars[i]); err != nil {
			return n, err
		}
		if cars[i].Status == api.CarAvailable {
			n++
		}
	}
	s.log.Info("nearby index rebuilt", logger.Int("available", n), logger.Int("total", len(cars)))
	return n, nil
}

func (s *Service) reindex(ctx context.Context, car *api.Car) {
	if s.index == nil || car == nil {
		return
	}
	if err := s.indexCar(ctx, car); err != nil {
		s.log.Warn("failed to update nearby index", logger.String("car_id", car.ID), logger.Error(err))
	}
}

// indexCar keeps only available cars in the index.
func (s *Service) indexCar(ctx context.Context, car *api.Car) error {
	if car.Status == api.CarAvailable {
		return s.index.SetCarLocation(ctx, car.ID, car.Location.Lat, car.Location.Lng)
	}
	return s.index.RemoveCarLocation(ctx, car.ID)
}
