package domain

import "errors"

var (
	// ErrInvalidFilters signals a filter set with no search dimension.
	ErrInvalidFilters = errors.New("invalid filters")
	// ErrProvider signals a fatal place-search provider failure.
	ErrProvider = errors.New("provider error")
	// ErrRunNotFound signals an unknown search run.
	ErrRunNotFound = errors.New("run not found")
	// ErrRunNotFinished signals that results were requested before the run reached a terminal state.
	ErrRunNotFinished = errors.New("run not finished")
)
