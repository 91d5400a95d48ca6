// ABOUTME: Domain-level sentinel errors for the ingestion service
// ABOUTME: These errors are used with errors.Is() for error type checking
package domain

import "errors"

// Pipeline lifecycle errors
var (
	// ErrAlreadyRunning indicates a run was requested while one is in progress
	ErrAlreadyRunning = errors.New("pipeline already running")

	// ErrNotRunning indicates a stop was requested with no run in progress
	ErrNotRunning = errors.New("pipeline not running")
)

// Scheduler configuration errors
var (
	// ErrInvalidCron indicates a cron expression failed syntactic validation
	ErrInvalidCron = errors.New("invalid cron expression")

	// ErrInvalidMode indicates a schedule or run request named an unknown mode
	ErrInvalidMode = errors.New("invalid pipeline mode")
)

// Admin surface errors
var (
	// ErrUnauthorized indicates the admin shared-key check failed
	ErrUnauthorized = errors.New("unauthorized")
)
