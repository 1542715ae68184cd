package notifications

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"car-rental/internal/respond"
)

// Handler exposes the notifications page endpoints.
type Handler struct{ store Store }

func NewHandler(store Store) *Handler { return &Handler{store: store} }

// Routes returns a chi.Router with all notification routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Get("/unread", h.UnreadCount)
	r.Patch("/{id}/read", h.MarkRead)
	r.Delete("/", h.Clear)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		respond.Message(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"notifications": items,
		"unread":        Unread(items),
	})
}

func (h *Handler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		respond.Message(w, http.StatusInternalServerError, err.Error())
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int{"unread": Unread(items)})
}

func (h *Handler) MarkRead(w http.ResponseWriter, r *http.Request) {
	err := h.store.MarkRead(r.Context(), chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrNotFound):
		respond.Message(w, http.StatusNotFound, err.Error())
	case err != nil:
		respond.Message(w, http.StatusInternalServerError, err.Error())
	default:
		respond.JSON(w, http.StatusOK, map[string]string{"status": "read"})
	}
}

func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Clear(r.Context()); err != nil {
		respond.Message(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
