package testserver

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
	"github.com/rpggio/timely/internal/mcp"
	"github.com/rpggio/timely/internal/sqlite"
	"github.com/rpggio/timely/internal/transport"
	"github.com/stretchr/testify/require"
)

// TestServer runs the JSON-RPC and streamable MCP endpoints over an
// in-memory database.
type TestServer struct {
	Server   *httptest.Server
	DB       *sqlite.DB
	Keys     *sqlite.APIKeyRepository
	Token    string
	TenantID string
}

// Options tweaks the assembled server.
type Options struct {
	Strict bool
	Clock  func() time.Time
}

func New(t *testing.T, token, tenantID string) *TestServer {
	return NewWithOptions(t, token, tenantID, Options{})
}

func NewWithOptions(t *testing.T, token, tenantID string, opts Options) *TestServer {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	sessionRepo := sqlite.NewSessionRepository(db)
	journalRepo := sqlite.NewJournalRepository(db)
	keys := sqlite.NewAPIKeyRepository(db)

	journalSvc := journal.NewService(journalRepo, nil)
	sessionSvc := session.NewService(sessionRepo, journalSvc, nil, session.Options{
		Strict: opts.Strict,
		Clock:  opts.Clock,
	})

	mcpServer := mcp.NewServer(mcp.Config{
		Services: mcp.Services{
			Sessions: sessionSvc,
			Journal:  journalSvc,
		},
		Resolver:      keys,
		AuthEnabled:   true,
		TransportMode: "http",
	})
	streamable := sdkmcp.NewStreamableHTTPHandler(
		func(*http.Request) *sdkmcp.Server { return mcpServer },
		&sdkmcp.StreamableHTTPOptions{SessionTimeout: time.Minute},
	)

	router := transport.NewServer(mcp.NewHandler(sessionSvc, journalSvc), transport.AuthMiddleware(keys))
	router.Handle("/mcp", streamable)

	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:   server,
		DB:       db,
		Keys:     keys,
		Token:    token,
		TenantID: tenantID,
	}

	require.NoError(t, ts.AddAPIKey(token, tenantID))

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

// AddAPIKey registers token for tenantID.
func (ts *TestServer) AddAPIKey(token, tenantID string) error {
	return ts.Keys.Add(context.Background(), tenantID, token, "test")
}
