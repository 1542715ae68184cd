package reports

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"

	"car-rental/internal/respond"
)

// Handler exposes the reporting screens. tally may be nil.
type Handler struct {
	svc   *Service
	tally *Tally
}

func NewHandler(svc *Service, tally *Tally) *Handler {
	return &Handler{svc: svc, tally: tally}
}

// Routes returns a chi.Router with all report routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/generate", h.Generate)
	r.Get("/today", h.Today)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/export", h.Export)
	return r
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	reps, err := h.svc.List(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, reps)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	rep, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, rep)
}

func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var f GenerateForm
	if err := respond.Decode(r, &f); err != nil {
		respond.Error(w, err)
		return
	}
	rep, err := h.svc.Generate(r.Context(), f)
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusCreated, rep)
}

// Export downloads a report as ?format=csv or ?format=json (the default).
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	rep, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, err)
		return
	}

	var buf bytes.Buffer
	if err := Export(&buf, rep, format); err != nil {
		respond.Error(w, err)
		return
	}
	contentType := "application/json"
	if format == "csv" {
		contentType = "text/csv"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="report-`+rep.ReportID+`.`+format+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *Handler) Today(w http.ResponseWriter, r *http.Request) {
	if h.tally == nil {
		respond.Message(w, http.StatusNotImplemented, "revenue tally is disabled")
		return
	}
	today, err := h.tally.Today(r.Context())
	if err != nil {
		respond.Error(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, today)
}
