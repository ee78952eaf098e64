package services

import (
	"errors"
	"fmt"

	apperrors "labanalyzer/internal/errors"
)

// Service errors
var (
	// ErrSessionNotFound is returned for unknown or expired session IDs
	ErrSessionNotFound = fmt.Errorf("session %w", apperrors.ErrNotFound)

	// ErrNoStore is returned by database operations when the service runs without a repository
	ErrNoStore = errors.New("no experiment database configured")
)
