package service

import (
	"errors"
	"strings"
)

var (
	ErrValidation        = errors.New("validation")        // 400
	ErrForbidden         = errors.New("forbidden")         // 403
	ErrNotFound          = errors.New("not found")         // 404
	ErrConflict          = errors.New("conflict")          // 409
	ErrInvalidTransition = errors.New("invalid transition") // 400
)

// StockUnavailableError aggregates every availability problem found in a
// checkout request so the caller can show them all at once.
type StockUnavailableError struct {
	Problems []string
}

func (e *StockUnavailableError) Error() string {
	return "stock unavailable: " + strings.Join(e.Problems, "; ")
}
