package upkeep

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"car-rental/internal/respond"
)

// Handler exposes the insurance and maintenance screens.
type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

// Routes returns a chi.Router with /insurance and /maintenance sub-routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/insurance", func(r chi.Router) {
		r.Get("/", h.ListInsurance)
		r.Post("/", h.CreateInsurance)
		r.Put("/{id}", h.UpdateInsurance)
		r.Delete("/{id}", h.DeleteInsurance)
	})
	r.Route("/maintenance", func(r chi.Router) {
		r.Get("/", h.ListMaintenance)
		r.Post("/", h.CreateMaintenance)
		r.Put("/{id}", h.UpdateMaintenance)
		r.Delete("/{id}", h.DeleteMaintenance)
	})
	return r
}

func (h *Handler) ListInsurance(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Insurance(r.Context(), r.URL.Query().Get("car"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) CreateInsurance(w http.ResponseWriter, r *http.Request) {
	var f InsuranceForm
	if err := respond.Decode(r, &f); err != nil {
		respond.Error(w, err)
		return
	}
	rec, err := h.svc.CreateInsurance(r.Context(), f)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) UpdateInsurance(w http.ResponseWriter, r *http.Request) {
	var f InsuranceForm
	if err := respond.Decode(r, &f); err != nil {
		respond.Error(w, err)
		return
	}
	rec, err := h.svc.UpdateInsurance(r.Context(), chi.URLParam(r, "id"), f)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteInsurance(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteInsurance(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Maintenance(r.Context(), r.URL.Query().Get("car"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

func (h *Handler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var f MaintenanceForm
	if err := respond.Decode(r, &f); err != nil {
		respond.Error(w, err)
		return
	}
	rec, err := h.svc.CreateMaintenance(r.Context(), f)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, rec)
}

func (h *Handler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	var f MaintenanceForm
	if err := respond.Decode(r, &f); err != nil {
		respond.Error(w, err)
		return
	}
	rec, err := h.svc.UpdateMaintenance(r.Context(), chi.URLParam(r, "id"), f)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rec)
}

func (h *Handler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteMaintenance(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
