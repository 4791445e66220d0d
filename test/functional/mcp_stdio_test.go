package functional_test

import (
	"context"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"
)

// stdioSession wraps an MCP client session over the server's stdio transport.
type stdioSession struct {
	session *sdkmcp.ClientSession
	cancel  context.CancelFunc
}

func newStdioSession(t *testing.T) *stdioSession {
	t.Helper()
	return newStdioSessionWithEnv(t, nil)
}

func newStdioSessionWithEnv(t *testing.T, extraEnv []string) *stdioSession {
	t.Helper()

	binaryPath := "./bin/timely"
	if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
		binaryPath = "../../bin/timely"
		if _, err := os.Stat(binaryPath); os.IsNotExist(err) {
			t.Skip("Server binary not found. Run 'make build' first.")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)

	cmd := exec.CommandContext(ctx, binaryPath)
	cmd.Env = append(os.Environ(),
		"TIMELY_TRANSPORT=stdio",
		"TIMELY_DB_PATH=:memory:",
		"TIMELY_AUTH_ENABLED=false",
	)
	cmd.Env = append(cmd.Env, extraEnv...)

	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "test-client",
		Version: "1.0.0",
	}, nil)

	session, err := client.Connect(ctx, &sdkmcp.CommandTransport{Command: cmd}, nil)
	if err != nil {
		cancel()
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		session.Close()
		cancel()
	})

	return &stdioSession{session: session, cancel: cancel}
}

func (s *stdioSession) call(t *testing.T, name string, args map[string]any) *sdkmcp.CallToolResult {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if args == nil {
		args = map[string]any{}
	}
	result, err := s.session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	require.NoError(t, err, "CallTool %s failed", name)
	require.NotEmpty(t, result.Content, "Tool %s returned no content", name)
	return result
}

func (s *stdioSession) callTool(t *testing.T, name string, args map[string]any) json.RawMessage {
	t.Helper()
	result := s.call(t, name, args)
	require.False(t, result.IsError, "Tool %s returned error: %s", name, resultText(result))
	return json.RawMessage(resultText(result))
}

func resultText(result *sdkmcp.CallToolResult) string {
	for _, content := range result.Content {
		if textContent, ok := content.(*sdkmcp.TextContent); ok {
			return textContent.Text
		}
	}
	return ""
}

func TestStdioFunctional_SessionWorkflow(t *testing.T) {
	s := newStdioSession(t)

	_ = s.callTool(t, "create_session", map[string]any{"id": "deep-work", "planned_minutes": 1})
	for _, id := range []string{"outline", "draft", "edit"} {
		_ = s.callTool(t, "add_activity", map[string]any{"session_id": "deep-work", "id": id})
	}

	_ = s.callTool(t, "start_activity", map[string]any{"session_id": "deep-work", "activity_id": "outline"})
	resp := s.callTool(t, "start_activity", map[string]any{"session_id": "deep-work", "activity_id": "draft"})

	var switched sessionResponse
	require.NoError(t, json.Unmarshal(resp, &switched))
	require.Equal(t, "draft", switched.View.Current.ID)
	require.Equal(t, []string{"outline"}, switched.View.CompletedActivityIDs)

	_ = s.callTool(t, "remove_activity", map[string]any{"session_id": "deep-work", "activity_id": "edit"})
	resp = s.callTool(t, "complete_current", map[string]any{"session_id": "deep-work"})
	var done sessionResponse
	require.NoError(t, json.Unmarshal(resp, &done))
	require.True(t, done.View.AllActivitiesCompleted)
	require.Nil(t, done.View.Current)

	resp = s.callTool(t, "session_summary", map[string]any{"session_id": "deep-work"})
	var sum struct {
		PlannedTime int64 `json:"plannedTime"`
		Activities  []struct {
			ID string `json:"id"`
		} `json:"activities"`
		SkippedActivities []struct {
			ID string `json:"id"`
		} `json:"skippedActivities"`
		SessionType string `json:"sessionType"`
	}
	require.NoError(t, json.Unmarshal(resp, &sum))
	require.Equal(t, int64(60), sum.PlannedTime)
	require.Len(t, sum.Activities, 2)
	require.Len(t, sum.SkippedActivities, 1)
	require.Equal(t, "edit", sum.SkippedActivities[0].ID)
	require.Equal(t, "completed", sum.SessionType)
}

func TestStdioFunctional_LenientWarnings(t *testing.T) {
	s := newStdioSession(t)

	_ = s.callTool(t, "create_session", map[string]any{"id": "s"})
	resp := s.callTool(t, "complete_current", map[string]any{"session_id": "s"})

	var out sessionResponse
	require.NoError(t, json.Unmarshal(resp, &out))
	require.Len(t, out.Warnings, 1)
}

func TestStdioFunctional_StrictErrors(t *testing.T) {
	s := newStdioSessionWithEnv(t, []string{"TIMELY_STRICT_TRANSITIONS=true"})

	_ = s.callTool(t, "create_session", map[string]any{"id": "s"})
	result := s.call(t, "complete_current", map[string]any{"session_id": "s"})
	require.True(t, result.IsError)
	require.Contains(t, resultText(result), "NO_RUNNING_ACTIVITY")
}

func TestStdioFunctional_MCPProtocolCompliance(t *testing.T) {
	s := newStdioSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	tools, err := s.session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 13)

	toolMap := make(map[string]*sdkmcp.Tool)
	for _, tool := range tools.Tools {
		toolMap[tool.Name] = tool
	}
	require.Contains(t, toolMap, "create_session")
	require.Contains(t, toolMap, "restore_activity")
	require.NotEmpty(t, toolMap["start_activity"].Description)
}

func TestStdioFunctional_LogFile(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "timely.log")
	s := newStdioSessionWithEnv(t, []string{
		"TIMELY_LOG_PATH=" + logPath,
		"TIMELY_LOG_LEVEL=debug",
	})

	_ = s.callTool(t, "list_sessions", nil)

	require.Eventually(t, func() bool {
		data, err := os.ReadFile(logPath)
		if err != nil {
			return false
		}
		text := string(data)
		return strings.Contains(text, `msg="mcp traffic"`) &&
			strings.Contains(text, "stage=request") &&
			strings.Contains(text, "stage=response")
	}, 5*time.Second, 100*time.Millisecond)
}

func TestStdioFunctional_Journal(t *testing.T) {
	s := newStdioSession(t)

	_ = s.callTool(t, "create_session", map[string]any{"id": "j"})
	_ = s.callTool(t, "add_activity", map[string]any{"session_id": "j", "id": "a"})
	_ = s.callTool(t, "start_activity", map[string]any{"session_id": "j", "activity_id": "a"})

	resp := s.callTool(t, "get_journal", map[string]any{"session_id": "j", "limit": 1})
	var entries []struct {
		Type       string  `json:"type"`
		ActivityID *string `json:"activity_id"`
	}
	require.NoError(t, json.Unmarshal(resp, &entries))
	require.Len(t, entries, 1)
	require.Equal(t, "activity_started", entries[0].Type)
	require.Equal(t, "a", *entries[0].ActivityID)
}

func TestStdioFunctional_DocumentationResources(t *testing.T) {
	s := newStdioSession(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	resources, err := s.session.ListResources(ctx, nil)
	require.NoError(t, err)

	uris := make(map[string]*sdkmcp.Resource, len(resources.Resources))
	for _, r := range resources.Resources {
		uris[r.URI] = r
	}
	for _, uri := range []string{"timely://docs/lifecycle", "timely://docs/summary"} {
		r, ok := uris[uri]
		require.True(t, ok, "missing expected doc resource: %s", uri)
		require.Equal(t, "text/markdown", r.MIMEType)
		require.Greater(t, r.Size, int64(0))
	}

	read, err := s.session.ReadResource(ctx, &sdkmcp.ReadResourceParams{URI: "timely://docs/lifecycle"})
	require.NoError(t, err)
	require.NotEmpty(t, read.Contents)
	require.Equal(t, "timely://docs/lifecycle", read.Contents[0].URI)
}
