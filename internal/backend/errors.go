package backend

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Error is a non successful backend answer
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.Message)
}

// Backend error body. 'message' is a string or a list of strings, 'errors' maps fields to reasons
type errorBody struct {
	Message json.RawMessage   `json:"message"`
	Errors  map[string]string `json:"errors"`
}

func newError(status int, body []byte) *Error {
	e := &Error{Status: status}

	var parsed errorBody
	if err := json.Unmarshal(body, &parsed); err == nil {
		e.Message = parseMessage(parsed)
	}

	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	return e
}

func parseMessage(body errorBody) string {
	var single string
	if err := json.Unmarshal(body.Message, &single); err == nil && single != "" {
		return single
	}

	var list []string
	if err := json.Unmarshal(body.Message, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}

	if len(body.Errors) > 0 {
		fields := make([]string, 0, len(body.Errors))
		for field := range body.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		parts := make([]string, 0, len(fields))
		for _, field := range fields {
			parts = append(parts, field+": "+body.Errors[field])
		}
		return strings.Join(parts, "; ")
	}

	return ""
}
