package models

import "time"

type EventKind string

const (
	// EventAny subscribes a handler to every kind.
	EventAny              EventKind = "*"
	EventLimitExceeded    EventKind = "limit_exceeded"
	EventThresholdReached EventKind = "threshold_reached"
	EventDeviceBlocked    EventKind = "device_blocked"
	EventDeviceUnblocked  EventKind = "device_unblocked"
	EventAccessBlocked    EventKind = "access_blocked"
)

// Event is a transient notification toward the alert boundary.
// Fields beyond Kind/DeviceID/Timestamp are set per kind.
type Event struct {
	Kind      EventKind `json:"kind"`
	DeviceID  string    `json:"device_id"`
	UsageMB   float64   `json:"usage_mb,omitempty"`
	LimitMB   float64   `json:"limit_mb,omitempty"`
	Domain    string    `json:"domain,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

type CommandAction string

const (
	ActionBlock    CommandAction = "block"
	ActionUnblock  CommandAction = "unblock"
	ActionSetLimit CommandAction = "set_limit"
)

// PendingCommand is consumed at most once by the scheduler's queue drain.
type PendingCommand struct {
	Action       CommandAction `json:"action"`
	DeviceID     string        `json:"device_id"`
	Duration     time.Duration `json:"duration,omitempty"`
	LimitMB      int           `json:"limit_mb,omitempty"`
	ThresholdPct int           `json:"threshold_pct,omitempty"`
}
