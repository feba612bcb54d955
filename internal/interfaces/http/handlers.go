package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/aftershock/internal/application/tokendata"
	"github.com/sawpanic/aftershock/internal/domain/aftershock"
)

const maxBodyBytes = 8 << 20

// TokenService is what the handlers need from the application layer
type TokenService interface {
	Fetch(ctx context.Context, token string) (*tokendata.AggregatedTokenData, error)
	Analyze(ctx context.Context, token string, overrides aftershock.ThresholdOverrides) (aftershock.Result, error)
	Score(in aftershock.Input) aftershock.Result
}

// Handlers manages all HTTP endpoint handlers
type Handlers struct {
	service TokenService
}

// NewHandlers creates a new handlers instance
func NewHandlers(service TokenService) *Handlers {
	return &Handlers{service: service}
}

// Raw returns the aggregated upstream data for a token
func (h *Handlers) Raw(w http.ResponseWriter, r *http.Request) {
	data, err := h.service.Fetch(r.Context(), tokenParam(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, data)
}

// Analyze fetches a token and scores it. Threshold overrides come from the
// minLiquidity, minVolume, minPriceChange and minHolders query parameters.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Analyze(r.Context(), tokenParam(r), overridesFromQuery(r))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// Score runs the engine on a posted input without touching the network
func (h *Handlers) Score(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "Failed to read request body.")
		return
	}

	var in aftershock.Input
	if err := json.Unmarshal(body, &in); err != nil {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid JSON body: %v", err))
		return
	}
	h.writeJSON(w, http.StatusOK, h.service.Score(in))
}

// NotFound handles 404 responses
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusNotFound, "Not found.")
}

// MethodNotAllowed handles 405 responses
func (h *Handlers) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.writeError(w, http.StatusMethodNotAllowed, "Method not allowed.")
}

// writeJSON writes JSON response with proper error handling
func (h *Handlers) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
		status = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{Error: "Failed to encode response."})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, ErrorResponse{Error: message})
}

func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusForError(err)
	if status >= http.StatusInternalServerError {
		log.Warn().
			Err(err).
			Str("request_id", RequestID(r.Context())).
			Int("status", status).
			Msg("Token request failed")
	}
	h.writeError(w, status, err.Error())
}

// statusForError maps application errors onto response codes. Anything that
// is not a caller mistake or local misconfiguration is an upstream failure.
func statusForError(err error) int {
	switch {
	case errors.Is(err, tokendata.ErrTokenRequired):
		return http.StatusBadRequest
	case errors.Is(err, tokendata.ErrAPIKeyMissing):
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func tokenParam(r *http.Request) string {
	if token, ok := mux.Vars(r)["token"]; ok && token != "" {
		return token
	}
	return r.URL.Query().Get("token")
}

func overridesFromQuery(r *http.Request) aftershock.ThresholdOverrides {
	q := r.URL.Query()
	param := func(name string) any {
		if !q.Has(name) {
			return nil
		}
		return q.Get(name)
	}
	return aftershock.ThresholdOverrides{
		MinLiquidity:   param("minLiquidity"),
		MinVolume:      param("minVolume"),
		MinPriceChange: param("minPriceChange"),
		MinHolders:     param("minHolders"),
	}
}
