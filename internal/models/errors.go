package models

import "errors"

var (
	// ErrDeviceNotFound: the device id is not registered.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrNotBlocked: unblock requested for a device that is not blocked.
	ErrNotBlocked = errors.New("device is not blocked")
	// ErrQueueFull: the bounded command queue rejected a producer.
	ErrQueueFull = errors.New("command queue is full")
	// ErrValidation: malformed caller input (empty id, non-positive limit...).
	ErrValidation = errors.New("invalid input")
	// ErrPersistence wraps a failed store commit. In-memory state is kept
	// unreset so the next flush retries.
	ErrPersistence = errors.New("persistence failure")
	// ErrInit wraps a startup failure loading persisted state. The engine
	// refuses to start on it.
	ErrInit = errors.New("initialization failure")
)
