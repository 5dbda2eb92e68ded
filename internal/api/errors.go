package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// RequestError is returned for any non-2xx response. Payload holds the
// decoded JSON body when the server sent one.
type RequestError struct {
	Method  string
	Path    string
	Status  int
	Payload map[string]any
	Body    []byte
}

func newRequestError(method, path string, status int, body []byte) *RequestError {
	e := &RequestError{Method: method, Path: path, Status: status, Body: body}
	var m map[string]any
	if json.Unmarshal(body, &m) == nil {
		e.Payload = m
	}
	return e
}

func (e *RequestError) Error() string {
	if msg := e.ServerMessage(); msg != "" {
		return fmt.Sprintf("request failed: %s %s: status %d: %s", e.Method, e.Path, e.Status, msg)
	}
	return fmt.Sprintf("request failed: %s %s: status %d", e.Method, e.Path, e.Status)
}

// ServerMessage returns the payload's "error" string, or "".
func (e *RequestError) ServerMessage() string {
	if e.Payload == nil {
		return ""
	}
	if s, ok := e.Payload["error"].(string); ok {
		return s
	}
	return ""
}

// ServerMessage extracts the server-provided error text from err, if any.
func ServerMessage(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.ServerMessage()
	}
	return ""
}
