package transport

import (
	"chat/src/clock"
	"chat/src/command"
	"chat/src/domain/scope"
	"chat/src/platform/apperr"
	"chat/src/status"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Router struct {
	processor     *command.Processor
	authenticator Authenticator
	developerMode bool
	logger        zerolog.Logger
}

func NewRouter(processor *command.Processor, authenticator Authenticator, developerMode bool, logger zerolog.Logger) http.Handler {
	rt := &Router{processor: processor, authenticator: authenticator, developerMode: developerMode, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(rt.correlationID)
	r.Post("/messages", rt.submit)
	return r
}

// correlationID implements §6's correlation contract: accept the inbound
// X-Correlation-ID if syntactically valid, otherwise mint a fresh one, and
// always echo it on the response.
func (rt *Router) correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(clock.CorrelationHeader())
		if !clock.ValidCorrelationID(id) {
			id = clock.NewCorrelationID()
		}

		w.Header().Set(clock.CorrelationHeader(), id)
		ctx := clock.WithCorrelationID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type submitRequest struct {
	ScopeType int    `json:"scopeType"`
	ScopeId   string `json:"scopeId"`
	Text      string `json:"text"`
}

func (rt *Router) submit(w http.ResponseWriter, r *http.Request) {
	senderId, err := rt.authenticator.Authenticate(r)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var req submitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		rt.writeError(w, r, apperr.Invalid("transport.http", "body", "malformed JSON"))
		return
	}

	enriched, err := rt.processor.Submit(r.Context(), command.Request{
		ScopeType: scope.Type(req.ScopeType),
		ScopeId:   req.ScopeId,
		SenderId:  senderId,
		Text:      req.Text,
	})
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(enriched); err != nil {
		rt.logger.Err(err).Msg("transport.http: failed to encode response body")
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	problem := status.Map(err, clock.CorrelationID(r.Context()), rt.developerMode)

	if retryAfter, ok := status.RetryAfterSeconds(err); ok {
		w.Header().Set("Retry-After", strconv.FormatInt(retryAfter, 10))
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	if encodeErr := json.NewEncoder(w).Encode(problem); encodeErr != nil {
		rt.logger.Err(encodeErr).Msg("transport.http: failed to encode problem body")
	}
}
