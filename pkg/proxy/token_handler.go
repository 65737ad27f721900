package proxy

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"mercator-hq/porthole/pkg/supervisor"
	"mercator-hq/porthole/pkg/token"
)

// Token commands accepted by POST on the token endpoint.
const (
	CommandDisabled = "disabled"
	CommandAllowAll = "allow_all"
	CommandRandom   = "random"
)

// maxCommandBytes bounds the token endpoint body.
const maxCommandBytes = 1024

// Saver persists a supervisor's state.
type Saver interface {
	Save(ctx context.Context, sup *supervisor.Supervisor) error
}

// IdentityFunc returns the authenticated platform identity of a request.
type IdentityFunc func(r *http.Request) (string, bool)

// TokenHandler lets an authenticated user read and change the proxy token
// of their own container supervisor.
//
//	GET  -> current secret as JSON: null, "" or the string
//	POST -> body "disabled", "allow_all" or "random"; returns the new secret
type TokenHandler struct {
	lookup   supervisor.Lookup
	saver    Saver
	identity IdentityFunc
	length   int
	recorder Recorder
	tracer   Tracer
	logger   *slog.Logger
}

// NewTokenHandler creates the token endpoint. length is the size of secrets
// generated by "random"; non-positive uses token.DefaultLength.
func NewTokenHandler(lookup supervisor.Lookup, saver Saver, identity IdentityFunc, length int, opts ...Option) *TokenHandler {
	o := buildOptions(opts)
	return &TokenHandler{
		lookup:   lookup,
		saver:    saver,
		identity: identity,
		length:   length,
		recorder: o.recorder,
		tracer:   o.tracer,
		logger:   slog.Default().With("component", "proxy.token"),
	}
}

// ServeHTTP implements http.Handler.
func (h *TokenHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	SetCORSHeaders(w.Header())

	if r.Method == http.MethodOptions {
		WritePreflight(w)
		return
	}

	ctx, span := h.tracer.Start(r.Context(), "token.request")
	defer span.End()
	span.SetAttributes(attribute.String("http.method", r.Method))
	r = r.WithContext(ctx)

	switch r.Method {
	case http.MethodGet, http.MethodHead:
		h.get(w, r)
	case http.MethodPost:
		h.post(w, r)
	default:
		w.Header().Set("Allow", "GET, HEAD, POST, OPTIONS")
		WriteText(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

func (h *TokenHandler) get(w http.ResponseWriter, r *http.Request) {
	sup, err := h.callerSupervisor(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	// Supervisors without a token behave as open.
	secret := token.String("")
	if sup.Tokenized() {
		secret = sup.Token.Secret()
	}
	h.writeSecret(w, secret)
}

func (h *TokenHandler) post(w http.ResponseWriter, r *http.Request) {
	sup, err := h.callerSupervisor(r)
	if err != nil {
		WriteError(w, err)
		return
	}

	if !sup.Tokenized() {
		WriteError(w, newRequestError(ErrSpawnerTypeMismatch,
			"The supervisor is not tokenized, so it does not hold a token. "+
				"Do not enable the token endpoint for plain container supervisors"))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes+1))
	if err != nil {
		WriteError(w, newRequestError(ErrInvalidTokenCommand, "Failed to read the request body"))
		return
	}

	switch command := string(body); command {
	case CommandDisabled:
		token.Set(sup.Token, nil)
	case CommandAllowAll:
		token.Set(sup.Token, token.String(""))
	case CommandRandom:
		token.Regenerate(sup.Token, h.length)
	default:
		if len(body) > maxCommandBytes {
			command = command[:maxCommandBytes] + "..."
		}
		WriteError(w, newRequestError(ErrInvalidTokenCommand,
			fmt.Sprintf("Invalid action required in the POST body for the proxy-token endpoint: %q", command)))
		return
	}

	h.recorder.RecordTokenChange(string(body))
	h.logger.InfoContext(r.Context(), "proxy token changed",
		"identity", sup.Identity,
		"supervisor", sup.Name,
		"action", string(body),
	)

	if err := h.saver.Save(r.Context(), sup); err != nil {
		// The periodic snapshot retries the save.
		h.logger.ErrorContext(r.Context(), "failed to persist proxy token", "supervisor", sup.String(), "error", err)
	}

	h.writeSecret(w, sup.Token.Secret())
}

func (h *TokenHandler) callerSupervisor(r *http.Request) (*supervisor.Supervisor, error) {
	identity, ok := h.identity(r)
	if !ok {
		return nil, newRequestError(ErrSpawnerUnavailable, "Spawner not available")
	}

	sups, err := h.lookup.LookupSupervisors(r.Context(), identity)
	if err != nil {
		h.logger.DebugContext(r.Context(), "supervisor lookup failed", "identity", identity, "error", err)
	}

	sup := supervisor.FirstContainerSpawner(sups)
	if sup == nil {
		return nil, newRequestError(ErrSpawnerUnavailable, "Spawner not available")
	}
	return sup, nil
}

func (h *TokenHandler) writeSecret(w http.ResponseWriter, secret *string) {
	if err := WriteJSONResponse(w, http.StatusOK, secret); err != nil {
		h.logger.Error("failed to write token response", "error", err)
	}
}
