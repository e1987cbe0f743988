package client

import (
	"errors"
	"fmt"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// APIError 后端返回的非 2xx 响应
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return ErrUnexpectedStatus
}
