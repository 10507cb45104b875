package micropub

import (
	"encoding/json"
	"fmt"
	"strings"
)

// OperationError reports a non-success response from a Micropub endpoint,
// carrying the most specific human-readable message the endpoint offered.
type OperationError struct {
	StatusCode int
	Message    string
}

func (e *OperationError) Error() string {
	return e.Message
}

// newOperationError extracts a message from an error response body with the
// precedence: error_description, error, HTTP status, raw body text.
func newOperationError(statusCode int, body []byte) *OperationError {
	var errBody struct {
		Code        string `json:"error"`
		Description string `json:"error_description"`
	}
	if json.Unmarshal(body, &errBody) == nil {
		if errBody.Description != "" {
			return &OperationError{StatusCode: statusCode, Message: errBody.Description}
		}
		if errBody.Code != "" {
			return &OperationError{StatusCode: statusCode, Message: errBody.Code}
		}
	}
	if statusCode != 0 {
		return &OperationError{StatusCode: statusCode, Message: fmt.Sprintf("HTTP %d", statusCode)}
	}
	return &OperationError{StatusCode: statusCode, Message: strings.TrimSpace(string(body))}
}
