package transport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// JSON-RPC 2.0 error codes.
const (
	ErrParseCode      = -32700
	ErrInvalidReq     = -32600
	ErrMethodNotFound = -32601
	ErrInvalidParams  = -32602
	ErrInternal       = -32603
	// ErrApplication carries a domain error; data holds its code.
	ErrApplication = -32000
)

// maxRequestBytes bounds a single /rpc payload.
const maxRequestBytes = 1 << 20

// Request is a JSON-RPC 2.0 request. A request without an id is a
// notification and gets no response body.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// IsNotification reports whether the caller expects no reply.
func (r Request) IsNotification() bool {
	return len(r.ID) == 0 || string(r.ID) == "null"
}

// Response is a JSON-RPC 2.0 response. ID is echoed verbatim.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

// Error is a JSON-RPC 2.0 error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// ParseRequest decodes one request. Failures come back as *Error with the
// matching protocol code.
func ParseRequest(body io.Reader) (Request, error) {
	var req Request
	if err := json.NewDecoder(io.LimitReader(body, maxRequestBytes)).Decode(&req); err != nil {
		return Request{}, &Error{Code: ErrParseCode, Message: "parse error: " + err.Error()}
	}
	switch {
	case req.JSONRPC != "2.0":
		return Request{}, &Error{Code: ErrInvalidReq, Message: `invalid request: jsonrpc must be "2.0"`}
	case req.Method == "":
		return Request{}, &Error{Code: ErrInvalidReq, Message: "invalid request: method is required"}
	}
	return req, nil
}

// protocolError extracts the *Error from err, defaulting to an internal error.
func protocolError(err error) *Error {
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{Code: ErrInternal, Message: err.Error()}
}

// WriteResult writes a JSON-RPC success response.
func WriteResult(w http.ResponseWriter, id json.RawMessage, result any) {
	writeResponse(w, Response{JSONRPC: "2.0", Result: result, ID: id})
}

// WriteError writes a JSON-RPC error response.
func WriteError(w http.ResponseWriter, id json.RawMessage, code int, message string, data any) {
	writeResponse(w, Response{
		JSONRPC: "2.0",
		Error:   &Error{Code: code, Message: message, Data: data},
		ID:      id,
	})
}

func writeResponse(w http.ResponseWriter, resp Response) {
	if len(resp.ID) == 0 {
		resp.ID = json.RawMessage("null")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}
