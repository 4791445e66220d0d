package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultTenant owns every session when auth is disabled.
const DefaultTenant = "default"

// SessionHeader names the tracking session for HTTP clients.
const SessionHeader = "X-Timely-Session-Id"

type contextKey int

const (
	tenantIDKey contextKey = iota
	sessionIDKey
)

func getTenantID(ctx context.Context) string {
	v, _ := ctx.Value(tenantIDKey).(string)
	return v
}

func getSessionID(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}

// TenantResolver resolves a tenant ID from a bearer token.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// authMiddleware resolves the bearer token of every non-protocol request.
func authMiddleware(resolver TenantResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			if method == "initialize" || method == "ping" || strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}
			if resolver == nil {
				return nil, fmt.Errorf("unauthorized: no key resolver configured")
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			token := strings.TrimSpace(strings.TrimPrefix(extra.Header.Get("Authorization"), "Bearer "))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			tenantID, err := resolver.ResolveTenant(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}
			if tenantID == "" {
				return nil, fmt.Errorf("unauthorized: invalid bearer token")
			}

			return next(context.WithValue(ctx, tenantIDKey, tenantID), method, req)
		}
	}
}

func noAuthMiddleware(defaultTenant string) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			return next(context.WithValue(ctx, tenantIDKey, defaultTenant), method, req)
		}
	}
}

// sessionMiddleware picks up a default tracking session from the
// X-Timely-Session-Id header (HTTP) or _meta.session_id (stdio).
func sessionMiddleware() sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			var sessionID string

			if extra := req.GetExtra(); extra != nil && extra.Header != nil {
				sessionID = extra.Header.Get(SessionHeader)
			}
			if sessionID == "" {
				sessionID = metaSessionID(req)
			}
			if sessionID != "" {
				ctx = context.WithValue(ctx, sessionIDKey, sessionID)
			}

			return next(ctx, method, req)
		}
	}
}

// metaSessionID reads _meta.session_id. Notifications such as "initialized"
// carry typed nil params, on which GetMeta panics.
func metaSessionID(req sdkmcp.Request) (sessionID string) {
	params := req.GetParams()
	if params == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			sessionID = ""
		}
	}()
	if meta := params.GetMeta(); meta != nil {
		sessionID, _ = meta["session_id"].(string)
	}
	return sessionID
}
