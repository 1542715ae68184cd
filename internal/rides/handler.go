package rides

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"car-rental/internal/journal"
	"car-rental/internal/respond"
	"car-rental/pkg/jwt"
)

// FailedLister lists rides whose completion stopped part way.
// *journal.Repo satisfies it.
type FailedLister interface {
	Failed(ctx context.Context, limit int) ([]journal.Record, error)
}

// Handler exposes ride HTTP endpoints.
type Handler struct {
	svc    *Service
	failed FailedLister
}

// NewHandler wires a handler to the ride service. failed may be nil when the
// journal is disabled.
func NewHandler(svc *Service, failed FailedLister) *Handler {
	return &Handler{svc: svc, failed: failed}
}

// Routes returns a chi.Router with all ride routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.Start)
	r.Get("/failed", h.Failed)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/select", h.Select)
	r.Post("/{id}/accept", h.Accept)
	r.Delete("/{id}", h.Cancel)
	return r
}

func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	// The customer defaults to the profile on the caller's token.
	if req.CustomerID == "" {
		if c := jwt.GetClaims(r.Context()); c != nil {
			req.CustomerID = c.ProfileID
		}
	}

	res, err := h.svc.Start(r.Context(), req.CustomerID, req.Position)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, res)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	ride, err := h.svc.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ride)
}

func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	ride, err := h.svc.SelectCar(r.Context(), chi.URLParam(r, "id"), req.CarID)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, ride)
}

func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	var req AcceptRequest
	if err := respond.Decode(r, &req); err != nil {
		respond.Error(w, err)
		return
	}
	ride, err := h.svc.Accept(r.Context(), chi.URLParam(r, "id"), req.Destination)
	if err != nil {
		writeError(w, err)
		return
	}
	respond.JSON(w, http.StatusAccepted, ride)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Cancel(chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Failed lists rides whose completion sequence stopped, including the step
// it stopped at.
func (h *Handler) Failed(w http.ResponseWriter, r *http.Request) {
	if h.failed == nil {
		respond.Message(w, http.StatusNotImplemented, "ride journal is disabled")
		return
	}
	recs, err := h.failed.Failed(r.Context(), 50)
	if err != nil {
		respond.Error(w, err)
		return
	}
	if recs == nil {
		recs = []journal.Record{}
	}
	respond.JSON(w, http.StatusOK, recs)
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrRideNotFound):
		respond.Message(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrCarNotAvailable):
		respond.Message(w, http.StatusConflict, err.Error())
	default:
		respond.Error(w, err)
	}
}
