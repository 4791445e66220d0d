package mcp

import (
	"context"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverInstructions = `timely tracks time across a session of activities.

Core concepts:
- Session: one sitting with a planned duration, a list of activities and a timeline of spans.
- Activity: a named item in state PENDING, RUNNING, COMPLETED or REMOVED.
- Current activity: at most one activity is RUNNING. Starting another completes it first.

Default workflow:
1) create_session (optionally planned_minutes), then add_activity for each item.
2) start_activity to begin or switch. complete_current when the running item is done.
3) remove_activity to skip an item; restore_activity brings it back as PENDING.
4) session_summary for time spent, idle time and overtime. close_session when finished.

Session ids:
- Pass session_id on each tool call, or once via the X-Timely-Session-Id header (HTTP)
  or _meta.session_id (stdio).

Docs:
- timely://docs/lifecycle (states and transitions)
- timely://docs/summary (how the summary is computed)
`

type docResource struct {
	URI         string
	Name        string
	Title       string
	Description string
	Content     string
}

var docResources = []docResource{
	{
		URI:         "timely://docs/lifecycle",
		Name:        "docs_lifecycle",
		Title:       "Activity lifecycle",
		Description: "Activity states, allowed transitions and the single current activity rule.",
		Content: `# Activity lifecycle

| from \ to | PENDING | RUNNING | COMPLETED | REMOVED |
|-----------|---------|---------|-----------|---------|
| PENDING   |         | start   |           | remove  |
| RUNNING   |         |         | complete  | remove  |
| COMPLETED |         |         |           |         |
| REMOVED   | restore |         |           |         |

- Adding an id that already exists never overwrites it.
- ` + "`start_activity`" + ` on a PENDING item completes the running item first.
- The first start time is kept; restoring and starting again does not move it.
- Completed items are final.
- A session is complete when no item is PENDING or RUNNING and at least one is COMPLETED.

## Errors

- ` + "`ACTIVITY_NOT_FOUND`" + `, ` + "`ACTIVITY_EXISTS`" + `, ` + "`INVALID_TRANSITION`" + ` come from the state machine.
- Servers running in lenient mode report these as ` + "`warnings`" + ` and leave state unchanged.
`,
	},
	{
		URI:         "timely://docs/summary",
		Name:        "docs_summary",
		Title:       "Session summary",
		Description: "Fields of session_summary and how they are derived from the timeline.",
		Content: `# Session summary

All durations are whole seconds.

- ` + "`plannedTime`" + `: the planned duration.
- ` + "`timeSpent`" + `: from the first timeline start to the close time (or now).
- ` + "`activeTime`" + `: time inside activity spans.
- ` + "`idleTime`" + `: gaps between spans plus spans without an activity.
- ` + "`overtime`" + `: time beyond the plan, never negative.
- ` + "`activities`" + `: total per activity, ordered by first start.
- ` + "`skippedActivities`" + `: removed activities.
- ` + "`sessionType`" + `: ` + "`timeUp`" + ` when requested with time_up, otherwise ` + "`completed`" + `.
`,
	},
}

func registerDocResources(server *sdkmcp.Server) {
	for _, doc := range docResources {
		server.AddResource(&sdkmcp.Resource{
			URI:         doc.URI,
			Name:        doc.Name,
			Title:       doc.Title,
			Description: doc.Description,
			MIMEType:    "text/markdown",
			Size:        int64(len(doc.Content)),
		}, func(_ context.Context, req *sdkmcp.ReadResourceRequest) (*sdkmcp.ReadResourceResult, error) {
			uri := doc.URI
			if req != nil && req.Params != nil && req.Params.URI != "" {
				uri = req.Params.URI
			}
			return &sdkmcp.ReadResourceResult{
				Contents: []*sdkmcp.ResourceContents{{
					URI:      uri,
					MIMEType: "text/markdown",
					Text:     doc.Content,
				}},
			}, nil
		})
	}
}
