package glassflow

import (
	"errors"
	"fmt"
)

var (
	ErrNotReachable          = errors.New("glassflow is not reachable")
	ErrPipelineNotFound      = errors.New("pipeline not found")
	ErrPipelineAlreadyExists = errors.New("pipeline already exists")
)

// APIError es el cuerpo de error que devuelve la API de GlassFlow.
type APIError struct {
	StatusCode int            `json:"status"`
	Code       string         `json:"code"`
	Message    string         `json:"message"`
	Details    map[string]any `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("glassflow api error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("glassflow api error %d: %s", e.StatusCode, e.Message)
}
