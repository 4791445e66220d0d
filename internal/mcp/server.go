package mcp

import (
	"context"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
	"github.com/rpggio/timely/internal/domain/summary"
)

// SessionService defines tracking session operations needed by MCP.
type SessionService interface {
	Create(ctx context.Context, tenantID string, req session.CreateRequest) (*session.Result, error)
	AddActivity(ctx context.Context, tenantID, sessionID string, info session.ActivityInfo) (*session.Result, error)
	Select(ctx context.Context, tenantID, sessionID, activityID string) (*session.Result, error)
	Complete(ctx context.Context, tenantID, sessionID, activityID string) (*session.Result, error)
	CompleteCurrent(ctx context.Context, tenantID, sessionID string) (*session.Result, error)
	Remove(ctx context.Context, tenantID, sessionID, activityID string) (*session.Result, error)
	Restore(ctx context.Context, tenantID, sessionID, activityID string) (*session.Result, error)
	Reset(ctx context.Context, tenantID, sessionID string) (*session.Result, error)
	Close(ctx context.Context, tenantID, sessionID string) (*session.Result, error)
	Get(ctx context.Context, tenantID, sessionID string) (*session.View, error)
	Summary(ctx context.Context, tenantID, sessionID string, opts session.SummaryOptions) (*summary.Summary, error)
	ListActive(ctx context.Context, tenantID string) ([]session.SessionInfo, error)
}

// JournalService defines journal operations needed by MCP.
type JournalService interface {
	Recent(ctx context.Context, tenantID string, opts journal.ListOptions) ([]journal.Entry, error)
}

// Services contains all domain services needed by MCP.
type Services struct {
	Sessions SessionService
	Journal  JournalService
}

// Config contains server configuration.
type Config struct {
	Services      Services
	Resolver      TenantResolver
	AuthEnabled   bool
	TransportMode string // "stdio" or "http"
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "timely",
		Version: "0.1.0",
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       logger,
	})

	registerDocResources(server)

	// Stdio is local only, so auth is always off there.
	if cfg.TransportMode != "stdio" && cfg.AuthEnabled {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	} else {
		server.AddReceivingMiddleware(noAuthMiddleware(DefaultTenant))
	}
	server.AddReceivingMiddleware(sessionMiddleware())
	server.AddReceivingMiddleware(trafficLoggingMiddleware(logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(logger, "outbound"))

	registerTools(server, NewHandler(cfg.Services.Sessions, cfg.Services.Journal), logger)

	return server
}
