package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"

	"resolvd/internal/resolver"
	"resolvd/internal/services"
	"resolvd/internal/shared"
)

// EngineFactory builds a resolution engine authenticated with the caller's
// bearer token. The server holds no credentials of its own.
type EngineFactory func(ctx context.Context, token string) (*resolver.Engine, error)

// ResolveRequest is the JSON body accepted by the resolution endpoints.
type ResolveRequest struct {
	Queries   []resolver.Query `json:"queries"`
	Threshold float64          `json:"threshold,omitempty"`
	Workers   int              `json:"workers,omitempty"`
}

// QueryOutcome is the wire form of a single resolution result.
type QueryOutcome struct {
	Index  int                    `json:"index"`
	Title  string                 `json:"title"`
	Artist string                 `json:"artist"`
	Track  *services.CatalogTrack `json:"track,omitempty"`
	Error  string                 `json:"error,omitempty"`
}

// StreamError is the wire form of the stream's terminal error event. Kind
// carries the failure classification so clients can pick the right remedy
// (re-authenticate, wait, give up) without parsing the message.
type StreamError struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	RetryAfter int    `json:"retry_after,omitempty"`
}

// ResolveResponse is the JSON body returned by the batch endpoint.
type ResolveResponse struct {
	Total     int            `json:"total"`
	Matched   int            `json:"matched"`
	MatchRate float64        `json:"match_rate"`
	Results   []QueryOutcome `json:"results"`
}

// ResolveHandler serves batch and streaming resolution requests.
type ResolveHandler struct {
	factory EngineFactory
	opts    resolver.Opts
	logger  *log.Logger
}

// NewResolveHandler creates a ResolveHandler. opts provides the server-side
// defaults; requests may lower the threshold or worker count but are still
// subject to the resolver's own caps.
func NewResolveHandler(factory EngineFactory, opts resolver.Opts, logger *log.Logger) *ResolveHandler {
	return &ResolveHandler{
		factory: factory,
		opts:    opts,
		logger:  logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *ResolveHandler) Routes() []string {
	return []string{"/api/resolve", "/api/resolve/stream"}
}

func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	switch r.URL.Path {
	case "/api/resolve":
		h.handleBatch(w, r)
	case "/api/resolve/stream":
		h.handleStream(w, r)
	default:
		http.NotFound(w, r)
	}
}

// setup decodes the request and builds an engine for the caller's token.
func (h *ResolveHandler) setup(w http.ResponseWriter, r *http.Request) (*resolver.Engine, ResolveRequest, resolver.Opts, bool) {
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
		return nil, req, resolver.Opts{}, false
	}
	if len(req.Queries) == 0 {
		respondError(w, http.StatusBadRequest, fmt.Errorf("%w: no queries", shared.ErrInvalidInput))
		return nil, req, resolver.Opts{}, false
	}

	opts := h.opts
	if req.Threshold > 0 {
		opts.Threshold = req.Threshold
	}
	if req.Workers > 0 {
		opts.NumWorkers = req.Workers
	}

	engine, err := h.factory(r.Context(), BearerToken(r))
	if err != nil {
		respondError(w, http.StatusUnauthorized, err)
		return nil, req, opts, false
	}
	return engine, req, opts, true
}

func (h *ResolveHandler) handleBatch(w http.ResponseWriter, r *http.Request) {
	engine, req, opts, ok := h.setup(w, r)
	if !ok {
		return
	}

	results, err := engine.Resolve(r.Context(), req.Queries, opts)
	if err != nil {
		respondError(w, statusForError(err), err)
		return
	}

	resp := ResolveResponse{
		Total:   len(results),
		Results: make([]QueryOutcome, 0, len(results)),
	}
	for _, res := range results {
		if res.Matched() {
			resp.Matched++
		}
		resp.Results = append(resp.Results, outcome(res))
	}
	if resp.Total > 0 {
		resp.MatchRate = 100 * float64(resp.Matched) / float64(resp.Total)
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *ResolveHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	engine, req, opts, ok := h.setup(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		respondError(w, http.StatusInternalServerError, fmt.Errorf("streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range engine.ResolveStream(r.Context(), req.Queries, opts) {
		switch ev.Type {
		case resolver.EventResult:
			writeSSE(w, "result", outcome(*ev.Result))
		case resolver.EventComplete:
			writeSSE(w, "complete", map[string]float64{"match_rate": ev.MatchRate})
		case resolver.EventError:
			writeSSE(w, "error", streamError(ev.Err))
		}
		flusher.Flush()
	}
}

func outcome(res resolver.MatchResult) QueryOutcome {
	out := QueryOutcome{
		Index:  res.Query.Index,
		Title:  res.Query.Title,
		Artist: res.Query.Artist,
		Track:  res.Track,
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// streamError classifies a terminal stream failure for the wire. Errors
// that are not catalog errors (cancellation, transport) report as internal.
func streamError(err error) StreamError {
	se := StreamError{Kind: "internal", Message: err.Error()}
	if cerr, ok := services.AsCatalogError(err); ok {
		se.Kind = cerr.Kind.String()
		se.RetryAfter = cerr.RetryAfter
	}
	return se
}

// statusForError maps a batch failure to an HTTP status.
func statusForError(err error) int {
	if cerr, ok := services.AsCatalogError(err); ok {
		switch cerr.Kind {
		case services.KindAuth:
			return http.StatusUnauthorized
		case services.KindRateLimited:
			return http.StatusTooManyRequests
		default:
			return http.StatusBadGateway
		}
	}
	return http.StatusInternalServerError
}

func writeSSE(w http.ResponseWriter, event string, data any) {
	payload, err := json.Marshal(data)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	data, err := shared.MarshalJSON(v, false)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}
