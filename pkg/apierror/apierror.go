package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// APIError is the error shape shared by the backend and the client. On the wire it
// follows the DRF convention: either {"detail": ..., "code": ...} or an object keyed
// by field name whose values are lists of messages.
type APIError struct {
	Code       string              `json:"code,omitempty"`
	Message    string              `json:"detail,omitempty"`
	Details    string              `json:"-"`
	Fields     map[string][]string `json:"-"`
	HTTPStatus int                 `json:"-"`
	Body       []byte              `json:"-"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}

	code := e.Code
	if code == "" {
		code = fmt.Sprintf("HTTP_%d", e.HTTPStatus)
	}

	message := e.Message
	if message == "" && len(e.Fields) > 0 {
		message = e.fieldSummary()
	}
	if message == "" {
		message = strings.ToLower(http.StatusText(e.HTTPStatus))
	}

	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", code, message, e.Details)
	}

	return fmt.Sprintf("%s: %s", code, message)
}

// MarshalJSON writes field errors as a bare object so form UIs can render them per field.
func (e *APIError) MarshalJSON() ([]byte, error) {
	if len(e.Fields) > 0 {
		return json.Marshal(e.Fields)
	}

	return json.Marshal(struct {
		Detail string `json:"detail"`
		Code   string `json:"code,omitempty"`
	}{Detail: e.Message, Code: e.Code})
}

func (e *APIError) fieldSummary() string {
	keys := make([]string, 0, len(e.Fields))
	for key := range e.Fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(e.Fields[key], " "))
	}

	return strings.Join(parts, "; ")
}

func New(code string, message string, details string, status int) *APIError {
	return &APIError{Code: code, Message: message, Details: details, HTTPStatus: status}
}

// Validation builds a 400 carrying per-field messages.
func Validation(fields map[string][]string) *APIError {
	return &APIError{Code: "invalid", Fields: fields, HTTPStatus: http.StatusBadRequest}
}

// FromResponse decodes a non-2xx response body. Bodies that are not JSON objects are
// kept raw and described by the status text.
func FromResponse(status int, body []byte) *APIError {
	apiErr := &APIError{HTTPStatus: status, Body: body}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		apiErr.Message = strings.ToLower(http.StatusText(status))
		return apiErr
	}

	for key, value := range raw {
		switch key {
		case "detail":
			_ = json.Unmarshal(value, &apiErr.Message)
		case "code":
			_ = json.Unmarshal(value, &apiErr.Code)
		default:
			if messages := decodeMessages(value); len(messages) > 0 {
				if apiErr.Fields == nil {
					apiErr.Fields = map[string][]string{}
				}
				apiErr.Fields[key] = messages
			}
		}
	}

	return apiErr
}

func decodeMessages(value json.RawMessage) []string {
	var list []string
	if err := json.Unmarshal(value, &list); err == nil {
		return list
	}

	var single string
	if err := json.Unmarshal(value, &single); err == nil && single != "" {
		return []string{single}
	}

	return nil
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatus
	}

	return 0
}

func IsStatus(err error, status int) bool {
	return StatusOf(err) == status
}
