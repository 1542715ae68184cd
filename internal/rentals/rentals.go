// Package rentals backs the rental history and payments screens.
package rentals

import (
	"context"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"car-rental/internal/api"
	"car-rental/internal/respond"
)

// Backend is the rentals and payments part of the fleet API.
type Backend interface {
	ListRentals(ctx context.Context) ([]api.Rental, error)
	GetRental(ctx context.Context, id string) (*api.Rental, error)
	ListCustomerRentals(ctx context.Context, customerID string) ([]api.Rental, error)
	ListPayments(ctx context.Context) ([]api.Payment, error)
	EnrichRentals(ctx context.Context, rentals []api.Rental) ([]api.RentalView, error)
}

// Service contains rental screen logic.
type Service struct{ backend Backend }

func NewService(backend Backend) *Service { return &Service{backend: backend} }

// List returns every rental with its car, newest first.
func (s *Service) List(ctx context.Context) ([]api.RentalView, error) {
	rentals, err := s.backend.ListRentals(ctx)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, rentals)
}

func (s *Service) Get(ctx context.Context, id string) (*api.RentalView, error) {
	rental, err := s.backend.GetRental(ctx, id)
	if err != nil {
		return nil, err
	}
	views, err := s.enrich(ctx, []api.Rental{*rental})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *Service) ForCustomer(ctx context.Context, customerID string) ([]api.RentalView, error) {
	rentals, err := s.backend.ListCustomerRentals(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return s.enrich(ctx, rentals)
}

// Payments lists payments, only those of rentalID when it is set.
func (s *Service) Payments(ctx context.Context, rentalID string) ([]api.Payment, error) {
	all, err := s.backend.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.Payment, 0, len(all))
	for _, p := range all {
		if rentalID == "" || p.RentalID == rentalID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) enrich(ctx context.Context, rentals []api.Rental) ([]api.RentalView, error) {
	views, err := s.backend.EnrichRentals(ctx, rentals)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(views, func(i, j int) bool { return views[i].Date.After(views[j].Date) })
	return views, nil
}

// Handler exposes the rental screens.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all rental routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/payments", h.Payments)
	r.Get("/customer/{customerID}", h.ForCustomer)
	r.Get("/{id}", h.Get)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

func (h *Handler) ForCustomer(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.ForCustomer(r.Context(), chi.URLParam(r, "customerID"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, views)
}

func (h *Handler) Payments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.Payments(r.Context(), r.URL.Query().Get("rental"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, payments)
}
