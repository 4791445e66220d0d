package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolDefinition describes a callable tool
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

func sessionIDProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Session ID (omit to use the session from request metadata)",
	}
}

func activityIDProperty() map[string]any {
	return map[string]any{
		"type":        "string",
		"description": "Activity ID",
	}
}

func sessionOnlySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id": sessionIDProperty(),
		},
	}
}

func activitySchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"session_id":  sessionIDProperty(),
			"activity_id": activityIDProperty(),
		},
		"required": []string{"activity_id"},
	}
}

// buildToolCatalog returns all available MCP tools
func buildToolCatalog() []ToolDefinition {
	return []ToolDefinition{
		// Sessions
		{
			Name:        "create_session",
			Description: "Start a new tracking session with an optional planned duration",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"id": map[string]any{
						"type":        "string",
						"description": "Unique session identifier (optional, will be generated if not provided)",
					},
					"planned_minutes": map[string]any{
						"type":        "integer",
						"description": "Planned duration in minutes",
					},
					"planned_seconds": map[string]any{
						"type":        "integer",
						"description": "Additional planned seconds",
					},
				},
			},
		},
		{
			Name:        "list_sessions",
			Description: "List active sessions for the current tenant",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        "get_session",
			Description: "Get a session with its activities, current activity and timeline",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "reset_session",
			Description: "Clear all activities and the timeline of a session",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "close_session",
			Description: "Complete the running activity and close the session",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "session_summary",
			Description: "Summarize time spent, idle time, overtime and per-activity totals",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty(),
					"time_up": map[string]any{
						"type":        "boolean",
						"description": "Mark the summary as ended by running out of time",
					},
				},
			},
		},

		// Activities
		{
			Name:        "add_activity",
			Description: "Add a PENDING activity to a session; an existing id is left untouched",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty(),
					"id":         activityIDProperty(),
					"name": map[string]any{
						"type":        "string",
						"description": "Display name (defaults to the id)",
					},
					"color": map[string]any{
						"type":        "string",
						"description": "Display color",
					},
				},
				"required": []string{"id"},
			},
		},
		{
			Name:        "start_activity",
			Description: "Start a PENDING activity, completing the running one first",
			InputSchema: activitySchema(),
		},
		{
			Name:        "complete_activity",
			Description: "Complete a RUNNING activity",
			InputSchema: activitySchema(),
		},
		{
			Name:        "complete_current",
			Description: "Complete whichever activity is running",
			InputSchema: sessionOnlySchema(),
		},
		{
			Name:        "remove_activity",
			Description: "Remove a PENDING or RUNNING activity",
			InputSchema: activitySchema(),
		},
		{
			Name:        "restore_activity",
			Description: "Return a REMOVED activity to PENDING",
			InputSchema: activitySchema(),
		},

		// History
		{
			Name:        "get_journal",
			Description: "Get lifecycle journal entries for a session, newest first",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"session_id": sessionIDProperty(),
					"activity_id": map[string]any{
						"type":        "string",
						"description": "Activity ID to filter by",
					},
					"type": map[string]any{
						"type":        "string",
						"description": "Entry type to filter by",
						"enum": []string{
							"session_started", "activity_added", "activity_started",
							"activity_auto_completed", "activity_completed", "activity_removed",
							"activity_restored", "session_reset", "session_closed",
						},
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of entries",
					},
					"offset": map[string]any{
						"type":        "integer",
						"description": "Offset for pagination",
					},
				},
			},
		},
	}
}

func registerTools(server *sdkmcp.Server, handler *Handler, logger *slog.Logger) {
	for _, def := range buildToolCatalog() {
		name := def.Name
		server.AddTool(&sdkmcp.Tool{
			Name:        def.Name,
			Description: def.Description,
			InputSchema: def.InputSchema,
		}, func(ctx context.Context, req *sdkmcp.CallToolRequest) (*sdkmcp.CallToolResult, error) {
			var args json.RawMessage
			if req != nil && req.Params != nil {
				args = req.Params.Arguments
			}

			result, err := handler.Handle(ctx, getTenantID(ctx), getSessionID(ctx), name, args)
			if err != nil {
				var apiErr *APIError
				if !errors.As(err, &apiErr) {
					logger.Error("tool call failed", "tool", name, "error", err)
					apiErr = &APIError{Code: "INTERNAL", Message: err.Error()}
				}
				return errorResult(apiErr), nil
			}
			return jsonResult(result)
		})
	}
}

func jsonResult(v any) (*sdkmcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return &sdkmcp.CallToolResult{
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}, nil
}

func errorResult(apiErr *APIError) *sdkmcp.CallToolResult {
	data, err := json.Marshal(apiErr)
	if err != nil {
		data = []byte(apiErr.Error())
	}
	return &sdkmcp.CallToolResult{
		IsError: true,
		Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: string(data)}},
	}
}
