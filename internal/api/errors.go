package api

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkErrorMessage is shown for failures that never produced a response.
const NetworkErrorMessage = "Network Error"

// Error is a failed API call. Status is 0 for transport failures.
type Error struct {
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status == 0 {
		if e.Err != nil {
			return fmt.Sprintf("%s: %v", e.Message, e.Err)
		}
		return e.Message
	}
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is an authentication failure (401 or 403).
func IsUnauthorized(err error) bool {
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// IsNetwork reports whether err is a transport failure.
func IsNetwork(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == 0
}

// Message returns the text to show a user for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// errorBody is the subset of server error payloads we understand.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func newStatusError(status int, body []byte) *Error {
	var eb errorBody
	if len(body) > 0 && json.Unmarshal(body, &eb) == nil {
		switch {
		case eb.Message != "":
			return &Error{Status: status, Message: eb.Message}
		case eb.Error != "":
			return &Error{Status: status, Message: eb.Error}
		}
	}
	return &Error{Status: status, Message: fmt.Sprintf("Request failed with status code %d", status)}
}
