// Package customers backs the customer screens: profile forms and the
// approval queue.
package customers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	ozzo "github.com/go-ozzo/ozzo-validation/v4"

	"car-rental/internal/api"
	"car-rental/internal/respond"
	"car-rental/pkg/logger"
	"car-rental/pkg/validation"
)

// ProfileForm is the customer registration/edit form.
type ProfileForm struct {
	Name          string   `json:"name"`
	IDNumber      string   `json:"idNumber"`
	LicenseNumber string   `json:"licenseNumber"`
	PhoneNumber   string   `json:"phoneNumber"`
	Address       string   `json:"address"`
	Documents     []string `json:"documents,omitempty"`
}

func (f ProfileForm) Validate() error {
	return validation.FromOzzo(ozzo.ValidateStruct(&f,
		ozzo.Field(&f.Name, validation.Name),
		ozzo.Field(&f.IDNumber, validation.Required),
		ozzo.Field(&f.LicenseNumber, validation.Required),
		ozzo.Field(&f.PhoneNumber, validation.Phone),
		ozzo.Field(&f.Address, validation.Required),
	))
}

func (f ProfileForm) profile() *api.Profile {
	return &api.Profile{
		Name:          f.Name,
		IDNumber:      f.IDNumber,
		LicenseNumber: f.LicenseNumber,
		PhoneNumber:   f.PhoneNumber,
		Address:       f.Address,
		Documents:     f.Documents,
	}
}

// Backend is the profiles part of the fleet API.
type Backend interface {
	ListProfiles(ctx context.Context) ([]api.Profile, error)
	GetProfile(ctx context.Context, id string) (*api.Profile, error)
	CreateProfile(ctx context.Context, p *api.Profile) (*api.Profile, error)
	UpdateProfile(ctx context.Context, id string, p *api.Profile) (*api.Profile, error)
	ApproveProfile(ctx context.Context, id string) (*api.Profile, error)
}

// Service contains customer screen logic.
type Service struct {
	backend Backend
	log     logger.Logger
}

func NewService(backend Backend, log logger.Logger) *Service {
	return &Service{backend: backend, log: log}
}

// List returns every profile, or only those in status when it is set.
func (s *Service) List(ctx context.Context, status api.ProfileStatus) ([]api.Profile, error) {
	if status != "" && status != api.ProfilePending && status != api.ProfileApproved {
		return nil, validation.Errors{"status": "must be pending or approved"}
	}
	all, err := s.backend.ListProfiles(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]api.Profile, 0, len(all))
	for _, p := range all {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*api.Profile, error) {
	return s.backend.GetProfile(ctx, id)
}

// Create registers a profile. New profiles wait for approval.
func (s *Service) Create(ctx context.Context, form ProfileForm) (*api.Profile, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	p := form.profile()
	p.Status = api.ProfilePending
	return s.backend.CreateProfile(ctx, p)
}

func (s *Service) Update(ctx context.Context, id string, form ProfileForm) (*api.Profile, error) {
	if err := form.Validate(); err != nil {
		return nil, err
	}
	p := form.profile()
	p.ID = id
	return s.backend.UpdateProfile(ctx, id, p)
}

func (s *Service) Approve(ctx context.Context, id string) (*api.Profile, error) {
	p, err := s.backend.ApproveProfile(ctx, id)
	if err != nil {
		return nil, err
	}
	s.log.Info("profile approved", logger.String("profile_id", id))
	return p, nil
}

// Handler exposes the customer screens.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with all customer routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/pending", h.Pending)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Put("/{id}/approve", h.Approve)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, api.ProfileStatus(r.URL.Query().Get("status")))
}

// Pending is the approval queue.
func (h *Handler) Pending(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, api.ProfilePending)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, status api.ProfileStatus) {
	profiles, err := h.svc.List(r.Context(), status)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, profiles)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form ProfileForm
	if err := respond.Decode(r, &form); err != nil {
		respond.Error(w, err)
		return
	}
	p, err := h.svc.Create(r.Context(), form)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, p)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var form ProfileForm
	if err := respond.Decode(r, &form); err != nil {
		respond.Error(w, err)
		return
	}
	p, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, p)
}
