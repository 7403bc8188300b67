package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrUnauthorized matches any 401 response: the session is gone.
	ErrUnauthorized = errors.New("session expired")
	// ErrInvalidCredentials is returned by Login for a rejected email/password.
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// Error is a non-2xx API response.
type Error struct {
	Status int
	Method string
	Path   string
	Detail string // server-supplied message, may be empty
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, http.StatusText(e.Status))
}

func (e *Error) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// Message returns the server detail, or a generic text for the status.
func (e *Error) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	switch {
	case e.Status == http.StatusNotFound:
		return "not found"
	case e.Status >= 500:
		return "server error, try again later"
	}
	return "request failed"
}

func newError(resp *http.Response) *Error {
	e := &Error{
		Status: resp.StatusCode,
		Method: resp.Request.Method,
		Path:   resp.Request.URL.Path,
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	e.Detail = parseDetail(b)
	return e
}

// parseDetail understands {"detail": "..."} and the validation form
// {"detail": [{"loc": [...], "msg": "..."}]}.
func parseDetail(b []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(b, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	var items []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(body.Detail, &items); err == nil && len(items) > 0 {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if n := len(it.Loc); n > 0 {
				msgs = append(msgs, fmt.Sprint(it.Loc[n-1])+": "+it.Msg)
			} else {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// Message extracts a user-facing text from any error returned by the client.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message()
	}
	return err.Error()
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Status
	}
	return 0
}
