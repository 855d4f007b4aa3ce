package interfaces

import "netguard/internal/models"

// TelemetrySource delivers one cumulative byte-counter reading per network
// interface. Readings may fail transiently; the tick retries next cycle.
type TelemetrySource interface {
	Snapshot() (map[string]models.InterfaceCounters, error)
}

// PresenceSource reports the set of device ids seen on the network during
// the current scan.
type PresenceSource interface {
	ActiveDeviceIDs() (map[string]struct{}, error)
}

// AccessClassifier yields already-parsed access records. The channel is
// closed when the classifier shuts down.
type AccessClassifier interface {
	Events() <-chan models.AccessEvent
}
