package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
)

var errInvalidParams = errors.New("invalid params")

// maxPlanned caps planned_minutes and planned_seconds so their sum fits a
// time.Duration.
const maxPlanned = 366 * 24 * time.Hour

// Handler dispatches MCP commands.
type Handler struct {
	sessions SessionService
	journal  JournalService
}

// NewHandler creates a new MCP handler.
func NewHandler(sessions SessionService, journalSvc JournalService) *Handler {
	return &Handler{
		sessions: sessions,
		journal:  journalSvc,
	}
}

// Handle dispatches MCP requests to domain services. sessionID is the
// session named by transport metadata; an explicit session_id argument wins.
func (h *Handler) Handle(ctx context.Context, tenantID, sessionID, method string, params json.RawMessage) (any, error) {
	switch method {
	case "create_session":
		var req CreateSessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		planned, err := plannedDuration(req.PlannedMinutes, req.PlannedSeconds)
		if err != nil {
			return nil, err
		}
		return sessionResponse(h.sessions.Create(ctx, tenantID, session.CreateRequest{
			ID:              req.ID,
			PlannedDuration: planned,
		}))
	case "list_sessions":
		sessions, err := h.sessions.ListActive(ctx, tenantID)
		if err != nil {
			return nil, mapError(err)
		}
		if sessions == nil {
			sessions = []session.SessionInfo{}
		}
		return SessionListResponse{Sessions: sessions}, nil
	case "get_session":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		view, err := h.sessions.Get(ctx, tenantID, pickSession(req.SessionID, sessionID))
		if err != nil {
			return nil, mapError(err)
		}
		return SessionResponse{SessionID: view.Session.ID, View: *view}, nil
	case "add_activity":
		var req AddActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		return sessionResponse(h.sessions.AddActivity(ctx, tenantID, pickSession(req.SessionID, sessionID), session.ActivityInfo{
			ID:    req.ID,
			Name:  req.Name,
			Color: req.Color,
		}))
	case "start_activity", "complete_activity", "remove_activity", "restore_activity":
		var req ActivityParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sid := pickSession(req.SessionID, sessionID)
		switch method {
		case "start_activity":
			return sessionResponse(h.sessions.Select(ctx, tenantID, sid, req.ActivityID))
		case "complete_activity":
			return sessionResponse(h.sessions.Complete(ctx, tenantID, sid, req.ActivityID))
		case "remove_activity":
			return sessionResponse(h.sessions.Remove(ctx, tenantID, sid, req.ActivityID))
		default:
			return sessionResponse(h.sessions.Restore(ctx, tenantID, sid, req.ActivityID))
		}
	case "complete_current", "reset_session", "close_session":
		var req SessionParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sid := pickSession(req.SessionID, sessionID)
		switch method {
		case "complete_current":
			return sessionResponse(h.sessions.CompleteCurrent(ctx, tenantID, sid))
		case "reset_session":
			return sessionResponse(h.sessions.Reset(ctx, tenantID, sid))
		default:
			return sessionResponse(h.sessions.Close(ctx, tenantID, sid))
		}
	case "session_summary":
		var req SessionSummaryParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		sum, err := h.sessions.Summary(ctx, tenantID, pickSession(req.SessionID, sessionID), session.SummaryOptions{TimeUp: req.TimeUp})
		if err != nil {
			return nil, mapError(err)
		}
		return sum, nil
	case "get_journal":
		var req GetJournalParams
		if err := decodeParams(params, &req); err != nil {
			return nil, err
		}
		entries, err := h.journal.Recent(ctx, tenantID, journal.ListOptions{
			SessionID:  pickSession(req.SessionID, sessionID),
			ActivityID: req.ActivityID,
			Type:       req.Type,
			Limit:      req.Limit,
			Offset:     req.Offset,
		})
		if err != nil {
			return nil, mapError(err)
		}
		resp := make([]JournalEntryResponse, 0, len(entries))
		for _, entry := range entries {
			resp = append(resp, JournalEntryResponse{
				Timestamp:  entry.CreatedAt,
				Type:       entry.Type,
				SessionID:  entry.SessionID,
				ActivityID: entry.ActivityID,
				Summary:    entry.Summary,
				Details:    entry.Details,
			})
		}
		return resp, nil
	default:
		return nil, &unknownMethodError{method: method}
	}
}

func plannedDuration(minutes, seconds int) (time.Duration, error) {
	if minutes < 0 || seconds < 0 ||
		int64(minutes) > int64(maxPlanned/time.Minute) ||
		int64(seconds) > int64(maxPlanned/time.Second) {
		return 0, mapError(fmt.Errorf("%w: planned duration must be between 0 and %s", errInvalidParams, maxPlanned))
	}
	planned := time.Duration(minutes)*time.Minute + time.Duration(seconds)*time.Second
	if planned > maxPlanned {
		return 0, mapError(fmt.Errorf("%w: planned duration must be between 0 and %s", errInvalidParams, maxPlanned))
	}
	return planned, nil
}

func decodeParams(params json.RawMessage, out any) error {
	if len(params) == 0 {
		return nil
	}
	if err := json.Unmarshal(params, out); err != nil {
		return mapError(fmt.Errorf("%w: %v", errInvalidParams, err))
	}
	return nil
}

func sessionResponse(result *session.Result, err error) (any, error) {
	if err != nil {
		return nil, mapError(err)
	}
	return SessionResponse{
		SessionID: result.View.Session.ID,
		View:      result.View,
		Warnings:  result.Warnings,
	}, nil
}

func pickSession(explicit, fromContext string) string {
	if explicit != "" {
		return explicit
	}
	return fromContext
}

func mapError(err error) error {
	if apiErr := MapError(err); apiErr != nil {
		return apiErr
	}
	return err
}

type unknownMethodError struct {
	method string
}

func (e *unknownMethodError) Error() string {
	return "unknown method: " + e.method
}

// MethodNotFound lets transports map the error to their own code.
func (e *unknownMethodError) MethodNotFound() bool {
	return true
}
