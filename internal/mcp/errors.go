package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/timely/internal/domain/activity"
	"github.com/rpggio/timely/internal/domain/journal"
	"github.com/rpggio/timely/internal/domain/session"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *APIError) CodeValue() string {
	return e.Code
}

func (e *APIError) MessageValue() string {
	return e.Message
}

func (e *APIError) DetailsValue() any {
	return e.Details
}

func (e *APIError) RecoveryHintValue() string {
	return e.RecoveryHint
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}

	var details any
	var actErr *activity.Error
	if errors.As(err, &actErr) {
		d := map[string]string{"activity_id": actErr.ID, "op": actErr.Op}
		if actErr.From != "" {
			d["from"] = string(actErr.From)
		}
		details = d
	}

	switch {
	case errors.Is(err, activity.ErrActivityNotFound):
		return &APIError{Code: "ACTIVITY_NOT_FOUND", Message: "activity not found", Details: details, RecoveryHint: "Call add_activity first"}
	case errors.Is(err, activity.ErrActivityAlreadyExists):
		return &APIError{Code: "ACTIVITY_EXISTS", Message: "activity already exists", Details: details, RecoveryHint: "Use a new activity id"}
	case errors.Is(err, activity.ErrInvalidTransition):
		return &APIError{Code: "INVALID_TRANSITION", Message: "invalid state transition", Details: details, RecoveryHint: "Check the activity state with get_session"}
	case errors.Is(err, session.ErrNoRunningActivity):
		return &APIError{Code: "NO_RUNNING_ACTIVITY", Message: "no running activity", RecoveryHint: "Call start_activity first"}
	case errors.Is(err, session.ErrSessionNotFound):
		return &APIError{Code: "SESSION_NOT_FOUND", Message: "session not found", RecoveryHint: "Call create_session or list_sessions"}
	case errors.Is(err, session.ErrSessionExists):
		return &APIError{Code: "SESSION_EXISTS", Message: "session already exists", RecoveryHint: "Omit id to generate one"}
	case errors.Is(err, session.ErrSessionClosed):
		return &APIError{Code: "SESSION_CLOSED", Message: "session is closed", RecoveryHint: "Start a new session"}
	case errors.Is(err, session.ErrInvalidInput), errors.Is(err, journal.ErrInvalidInput), errors.Is(err, errInvalidParams):
		return &APIError{Code: "INVALID_INPUT", Message: err.Error(), RecoveryHint: "Check required arguments"}
	default:
		return nil
	}
}
