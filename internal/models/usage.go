package models

import "time"

// InterfaceCounters is one raw telemetry reading for a network interface.
// Readings are cumulative since interface start and may reset to zero.
type InterfaceCounters struct {
	BytesSent     uint64 `json:"bytes_sent"`
	BytesReceived uint64 `json:"bytes_received"`
}

// UsageCounters is the live per-device session since the last flush.
type UsageCounters struct {
	BytesSent     uint64    `json:"bytes_sent"`
	BytesReceived uint64    `json:"bytes_received"`
	SessionStart  time.Time `json:"session_start"`
	LastUpdate    time.Time `json:"last_update"`
}

func (u *UsageCounters) TotalBytes() uint64 {
	return u.BytesSent + u.BytesReceived
}

// UsageReport is the caller-facing rollup over the last N days.
type UsageReport struct {
	DeviceID    string       `json:"device_id"`
	PeriodStart string       `json:"period_start"`
	PeriodEnd   string       `json:"period_end"`
	DailyUsage  []DailyUsage `json:"daily_usage"`
	TotalMB     float64      `json:"total_mb"`
	TotalHours  float64      `json:"total_hours"`
}

type DailyUsage struct {
	Date       string  `json:"date"`
	TotalMB    float64 `json:"total_mb"`
	TotalHours float64 `json:"total_hours"`
}

// AccessEvent is one already-classified record from the access classifier.
type AccessEvent struct {
	DeviceID  string    `json:"device_id"`
	URL       string    `json:"url"`
	Domain    string    `json:"domain"`
	Timestamp time.Time `json:"timestamp"`
}

type AccessDecision string

const (
	DecisionAllow AccessDecision = "allow"
	DecisionBlock AccessDecision = "block"
)
