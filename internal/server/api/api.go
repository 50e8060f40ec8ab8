// Package api provides the JSON handlers for the table state.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/cardsight/internal/app"
	"github.com/ayusman/cardsight/internal/detection"
	"github.com/ayusman/cardsight/internal/tracker"
)

// errorResponse is the JSON body of an error response.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// TableHandler serves the ledger, tick and shoe endpoints of an App.
type TableHandler struct {
	app *app.App
}

// NewTableHandler creates a TableHandler for a.
func NewTableHandler(a *app.App) *TableHandler {
	return &TableHandler{app: a}
}

// Routes registers the handler's endpoints on r.
func (h *TableHandler) Routes(r chi.Router) {
	r.Get("/ledger", h.ledger)
	r.Post("/ticks", h.tick)
	r.Post("/shoe", h.newShoe)
	r.Get("/identities", h.identities)
	r.Get("/advice", h.advice)
	r.Get("/capture", h.captureState)
	r.Put("/capture", h.setCapture)
}

// tickRequest is one detector batch in parallel-array form.
type tickRequest struct {
	Boxes       [][4]float64 `json:"boxes"`
	Labels      []string     `json:"labels"`
	Confidences []float64    `json:"confidences"`
}

type shoeResponse struct {
	Session string `json:"session"`
}

type identitiesResponse struct {
	Session    string                     `json:"session"`
	Identities []tracker.IdentitySnapshot `json:"identities"`
}

type captureState struct {
	Enabled bool `json:"enabled"`
	Running bool `json:"running"`
}

// ledger handles GET /api/ledger.
func (h *TableHandler) ledger(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.app.Ledger())
}

// tick handles POST /api/ticks and runs one tick.
func (h *TableHandler) tick(w http.ResponseWriter, r *http.Request) {
	var req tickRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	result, err := h.app.ProcessParallel(req.Boxes, req.Labels, req.Confidences)
	switch {
	case errors.Is(err, detection.ErrLengthMismatch), errors.Is(err, detection.ErrInvalidConfidence):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "Failed to process tick")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// newShoe handles POST /api/shoe.
func (h *TableHandler) newShoe(w http.ResponseWriter, r *http.Request) {
	session, err := h.app.NewShoe()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to start new shoe")
		return
	}
	writeJSON(w, http.StatusCreated, shoeResponse{Session: session})
}

// identities handles GET /api/identities.
func (h *TableHandler) identities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, identitiesResponse{
		Session:    h.app.Session(),
		Identities: h.app.Identities(),
	})
}

// advice handles GET /api/advice.
func (h *TableHandler) advice(w http.ResponseWriter, r *http.Request) {
	adv := h.app.Advice()
	if adv == nil {
		writeError(w, http.StatusNotFound, "No advice for this shoe")
		return
	}
	writeJSON(w, http.StatusOK, adv)
}

// captureState handles GET /api/capture.
func (h *TableHandler) captureState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, captureState{
		Enabled: h.app.IsEnabled(),
		Running: h.app.Running(),
	})
}

// setCapture handles PUT /api/capture and pauses or resumes the loop.
func (h *TableHandler) setCapture(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if req.Enabled == nil {
		writeError(w, http.StatusBadRequest, "enabled is required")
		return
	}

	h.app.SetEnabled(*req.Enabled)
	h.captureState(w, r)
}
