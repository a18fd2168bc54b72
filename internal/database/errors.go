package database

import "errors"

var (
	// ErrRunNotFound is returned when no run has the requested ID.
	ErrRunNotFound = errors.New("run not found")

	// ErrNotEnoughRuns is returned when a site has fewer than two stored runs
	// to compare.
	ErrNotEnoughRuns = errors.New("at least two runs are required for comparison")
)
