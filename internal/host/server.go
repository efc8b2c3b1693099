package host

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/Sternrassler/listpager/pkg/metrics"
	"github.com/Sternrassler/listpager/pkg/paging"
	"github.com/go-chi/chi/v5"
)

// maxParamsBody bounds the parameters_changed request body.
const maxParamsBody = 64 << 10

type intentResponse struct {
	Screen  string `json:"screen"`
	Intent  string `json:"intent"`
	Started bool   `json:"started"`
}

type sessionResponse struct {
	Invalidated bool `json:"invalidated"`
}

// NewHandler returns the HTTP API of h.
func NewHandler(h *Host) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", healthHandler)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Get("/session", h.getSession)
	r.Post("/session/reset", h.resetSession)

	r.Route("/screens", func(r chi.Router) {
		r.Get("/", h.listScreens)
		r.Get("/{name}", h.getScreen)
		r.Post("/{name}/visible", h.showScreen)
		r.Post("/{name}/hidden", h.hideScreen)
		r.Post("/{name}/intents/{intent}", h.sendIntent)
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK")
}

func (h *Host) listScreens(w http.ResponseWriter, r *http.Request) {
	names := h.Names()
	out := make([]ScreenStatus, 0, len(names))
	for _, name := range names {
		status, err := h.Status(name)
		if err != nil {
			continue
		}
		out = append(out, status)
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Host) getScreen(w http.ResponseWriter, r *http.Request) {
	status, err := h.Status(chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *Host) showScreen(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	started, err := h.SetVisible(name)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, intentResponse{Screen: name, Intent: string(paging.IntentInitialLoad), Started: started})
}

func (h *Host) hideScreen(w http.ResponseWriter, r *http.Request) {
	if err := h.SetHidden(chi.URLParam(r, "name")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Host) sendIntent(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	intent := paging.Intent(chi.URLParam(r, "intent"))

	var params paging.Params
	if intent == paging.IntentParametersChanged {
		params = paging.Params{}
		err := json.NewDecoder(io.LimitReader(r.Body, maxParamsBody)).Decode(&params)
		if err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, fmt.Sprintf("invalid params body: %v", err), http.StatusBadRequest)
			return
		}
	}

	started, err := h.Intent(name, intent, params)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, intentResponse{Screen: name, Intent: string(intent), Started: started})
}

func (h *Host) getSession(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, sessionResponse{Invalidated: h.SessionInvalidated()})
}

func (h *Host) resetSession(w http.ResponseWriter, r *http.Request) {
	if err := h.ResetSession(r.Context()); err != nil {
		h.logger.Error().Err(err).Msg("Session reset failed")
		http.Error(w, fmt.Sprintf("session reset failed: %v", err), http.StatusBadGateway)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Host) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrUnknownScreen):
		status = http.StatusNotFound
	case errors.Is(err, ErrNotVisible):
		status = http.StatusConflict
	case errors.Is(err, ErrUnknownIntent):
		status = http.StatusBadRequest
	}
	http.Error(w, err.Error(), status)
}

func (h *Host) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn().Err(err).Msg("Failed to write response")
	}
}
