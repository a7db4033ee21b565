package calculator

import "errors"

// Errors returned by the indicator functions. Callers branch with errors.Is;
// every returned error wraps exactly one of these.
var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrInvalidWindow    = errors.New("invalid window")
	ErrInvalidSpan      = errors.New("invalid span")
	ErrInvalidParameter = errors.New("invalid parameter")
	ErrDegenerateSeries = errors.New("degenerate series")
)
