package fleet

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"car-rental/internal/api"
	"car-rental/internal/respond"
	"car-rental/pkg/validation"
)

// Handler exposes the fleet screens.
type Handler struct {
	svc            *Service
	nearbyRadiusKm float64
}

func NewHandler(svc *Service, nearbyRadiusKm float64) *Handler {
	return &Handler{svc: svc, nearbyRadiusKm: nearbyRadiusKm}
}

// Routes returns a chi.Router with all fleet routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/summary", h.Summary)
	r.Get("/nearby", h.Nearby)
	r.Post("/reindex", h.Reindex)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Patch("/{id}/status", h.SetStatus)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	cars, err := h.svc.List(r.Context(), Filter{
		Status:   api.CarStatus(r.URL.Query().Get("status")),
		Category: r.URL.Query().Get("category"),
	})
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, cars)
}

func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.Summary(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, sum)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	car, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, car)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form CarForm
	if err := respond.Decode(r, &form); err != nil {
		respond.Error(w, err)
		return
	}
	car, err := h.svc.Create(r.Context(), form)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, car)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var form CarForm
	if err := respond.Decode(r, &form); err != nil {
		respond.Error(w, err)
		return
	}
	car, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), form)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, car)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		respond.Error(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	var req StatusRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	car, err := h.svc.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, car)
}

// Nearby answers GET /fleet/nearby?lat=&lng=[&radius=].
func (h *Handler) Nearby(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	lat, errLat := strconv.ParseFloat(q.Get("lat"), 64)
	lng, errLng := strconv.ParseFloat(q.Get("lng"), 64)
	if errLat != nil || errLng != nil {
		respond.Error(w, validation.Errors{"position": "lat and lng query parameters are required"})
		return
	}
	radius := h.nearbyRadiusKm
	if v, err := strconv.ParseFloat(q.Get("radius"), 64); err == nil && v > 0 {
		radius = v
	}

	ids, err := h.svc.Nearby(r.Context(), lat, lng, radius)
	switch {
	case errors.Is(err, ErrIndexDisabled):
		respond.Message(w, http.StatusNotImplemented, err.Error())
	case err != nil:
		respond.Error(w, err)
	default:
		if ids == nil {
			ids = []string{}
		}
		respond.JSON(w, http.StatusOK, map[string]any{"car_ids": ids, "radius_km": radius})
	}
}

func (h *Handler) Reindex(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.Reindex(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int{"indexed": n})
}
