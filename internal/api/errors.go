package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"PriceScope/internal/calculator"
	"PriceScope/internal/collector"
)

// APIError is the JSON error body.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string { return e.Message }

// Render implements render.Renderer.
func (e *APIError) Render(_ http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(status int, code, msg string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: msg}
}

// mapError classifies an analysis failure into an HTTP error.
func mapError(err error) *APIError {
	switch {
	case errors.Is(err, collector.ErrInvalidRequest):
		return newAPIError(http.StatusBadRequest, "INVALID_REQUEST", err.Error())
	case errors.Is(err, calculator.ErrInvalidInput),
		errors.Is(err, calculator.ErrInvalidWindow),
		errors.Is(err, calculator.ErrInvalidSpan),
		errors.Is(err, calculator.ErrInvalidParameter):
		return newAPIError(http.StatusBadRequest, "INVALID_ANALYSIS_INPUT", err.Error())
	case errors.Is(err, calculator.ErrDegenerateSeries):
		return newAPIError(http.StatusUnprocessableEntity, "DEGENERATE_SERIES", err.Error())
	case errors.Is(err, collector.ErrProvider):
		return newAPIError(http.StatusBadGateway, "PROVIDER_ERROR", err.Error())
	default:
		return newAPIError(http.StatusInternalServerError, "INTERNAL", err.Error())
	}
}
