package transport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// MCPHandler handles MCP method dispatch.
type MCPHandler interface {
	Handle(ctx context.Context, tenantID, sessionID, method string, params json.RawMessage) (any, error)
}

// APIError is a domain error with a stable code, as produced by the MCP
// handler.
type APIError interface {
	error
	CodeValue() string
	MessageValue() string
	DetailsValue() any
	RecoveryHintValue() string
}

// methodNotFound is implemented by handler errors for unknown methods.
type methodNotFound interface {
	MethodNotFound() bool
}

// Server wires HTTP handlers.
type Server struct {
	handler MCPHandler
}

// NewServer creates an HTTP router. /health is public; /rpc runs behind
// authMiddleware, which must put a tenant in the request context.
func NewServer(handler MCPHandler, authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	srv := &Server{handler: handler}

	r.Get("/health", srv.handleHealth)
	r.Group(func(r chi.Router) {
		if authMiddleware != nil {
			r.Use(authMiddleware)
		}
		r.Use(SessionMiddleware)
		r.Post("/rpc", srv.handleRPC)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRPC(w http.ResponseWriter, r *http.Request) {
	req, err := ParseRequest(r.Body)
	if err != nil {
		rpcErr := protocolError(err)
		WriteError(w, nil, rpcErr.Code, rpcErr.Message, nil)
		return
	}

	tenantID, ok := TenantFromContext(r.Context())
	if !ok {
		unauthorized(w, "missing tenant")
		return
	}
	sessionID, _ := SessionIDFromContext(r.Context())

	result, err := s.handler.Handle(r.Context(), tenantID, sessionID, req.Method, req.Params)
	if req.IsNotification() {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeHandlerError(w, req.ID, err)
		return
	}
	WriteResult(w, req.ID, result)
}

func writeHandlerError(w http.ResponseWriter, id json.RawMessage, err error) {
	var apiErr APIError
	if errors.As(err, &apiErr) {
		WriteError(w, id, ErrApplication, apiErr.MessageValue(), map[string]any{
			"code":          apiErr.CodeValue(),
			"details":       apiErr.DetailsValue(),
			"recovery_hint": apiErr.RecoveryHintValue(),
		})
		return
	}
	var notFound methodNotFound
	if errors.As(err, &notFound) && notFound.MethodNotFound() {
		WriteError(w, id, ErrMethodNotFound, err.Error(), nil)
		return
	}
	rpcErr := protocolError(err)
	WriteError(w, id, rpcErr.Code, rpcErr.Message, nil)
}
