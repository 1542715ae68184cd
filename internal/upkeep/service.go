package upkeep

import (
	"context"
	"sort"

	"car-rental/internal/api"
	"car-rental/pkg/logger"
)

// Backend is the insurance and maintenance part of the fleet API.
type Backend interface {
	ListInsurance(ctx context.Context) ([]api.Insurance, error)
	CreateInsurance(ctx context.Context, in *api.Insurance) (*api.Insurance, error)
	UpdateInsurance(ctx context.Context, id string, in *api.Insurance) (*api.Insurance, error)
	DeleteInsurance(ctx context.Context, id string) error

	ListMaintenance(ctx context.Context) ([]api.Maintenance, error)
	CreateMaintenance(ctx context.Context, m *api.Maintenance) (*api.Maintenance, error)
	UpdateMaintenance(ctx context.Context, id string, m *api.Maintenance) (*api.Maintenance, error)
	DeleteMaintenance(ctx context.Context, id string) error
}

// Service validates upkeep forms before they reach the backend.
type Service struct {
	backend Backend
	log     logger.Logger
}

func NewService(backend Backend, log logger.Logger) *Service {
	return &Service{backend: backend, log: log}
}

// Insurance lists policies, only those of carID when it is set.
func (s *Service) Insurance(ctx context.Context, carID string) ([]api.Insurance, error) {
	all, err := s.backend.ListInsurance(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.Insurance, 0, len(all))
	for _, in := range all {
		if carID == "" || in.CarID == carID {
			out = append(out, in)
		}
	}
	return out, nil
}

func (s *Service) CreateInsurance(ctx context.Context, f InsuranceForm) (*api.Insurance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return s.backend.CreateInsurance(ctx, f.record())
}

func (s *Service) UpdateInsurance(ctx context.Context, id string, f InsuranceForm) (*api.Insurance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	rec := f.record()
	rec.ID = id
	return s.backend.UpdateInsurance(ctx, id, rec)
}

func (s *Service) DeleteInsurance(ctx context.Context, id string) error {
	return s.backend.DeleteInsurance(ctx, id)
}

// Maintenance lists service records, latest service first, only those of
// carID when it is set.
func (s *Service) Maintenance(ctx context.Context, carID string) ([]api.Maintenance, error) {
	all, err := s.backend.ListMaintenance(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.Maintenance, 0, len(all))
	for _, m := range all {
		if carID == "" || m.CarID == carID {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].ServiceDate, out[j].ServiceDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})
	return out, nil
}

func (s *Service) CreateMaintenance(ctx context.Context, f MaintenanceForm) (*api.Maintenance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	m, err := s.backend.CreateMaintenance(ctx, f.record())
	if err != nil {
		return nil, err
	}
	s.log.Info("maintenance recorded", logger.String("car_id", f.CarID), logger.Float64("cost", f.Cost))
	return m, nil
}

func (s *Service) UpdateMaintenance(ctx context.Context, id string, f MaintenanceForm) (*api.Maintenance, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	rec := f.record()
	rec.ID = id
	return s.backend.UpdateMaintenance(ctx, id, rec)
}

func (s *Service) DeleteMaintenance(ctx context.Context, id string) error {
	return s.backend.DeleteMaintenance(ctx, id)
}
