package models

import (
	"strings"
	"sync"
	"time"
)

type DeviceStatus string

const (
	StatusOnline     DeviceStatus = "online"
	StatusOffline    DeviceStatus = "offline"
	StatusBlocked    DeviceStatus = "blocked"
	StatusRestricted DeviceStatus = "restricted"
)

// DeviceInfo is the registration payload for a new device.
type DeviceInfo struct {
	MACAddress string `json:"mac_address"`
	Name       string `json:"name"`
	Type       string `json:"type"`
}

// Device is the authoritative per-device state. Instances are owned by the
// registry; callers only ever see copies.
type Device struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	Type         string              `json:"type"`
	Status       DeviceStatus        `json:"status"`
	LastSeen     time.Time           `json:"last_seen"`
	Restrictions map[string]struct{} `json:"-"`
	BlockedAt    time.Time           `json:"blocked_at"`
	// BlockExpires zero means an indefinite block.
	BlockExpires time.Time `json:"block_expires"`
}

func (d *Device) Copy() Device {
	c := *d
	c.Restrictions = make(map[string]struct{}, len(d.Restrictions))
	for k := range d.Restrictions {
		c.Restrictions[k] = struct{}{}
	}
	return c
}

// NormalizeDeviceID canonicalizes a hardware address: lower case, no
// separators. "AA:BB:CC:DD:EE:FF" and "aa-bb-cc-dd-ee-ff" map to the same id.
func NormalizeDeviceID(raw string) string {
	r := strings.NewReplacer(":", "", "-", "", ".", "")
	return strings.ToLower(r.Replace(strings.TrimSpace(raw)))
}

type DeviceMap struct {
	Mutex sync.RWMutex
	Data  map[string]*Device
}

func NewDeviceMap() *DeviceMap {
	return &DeviceMap{Data: make(map[string]*Device)}
}

func (dm *DeviceMap) Get(id string) (*Device, bool) {
	dm.Mutex.RLock()
	defer dm.Mutex.RUnlock()
	val, ok := dm.Data[id]
	return val, ok
}

func (dm *DeviceMap) Set(id string, d *Device) {
	dm.Mutex.Lock()
	defer dm.Mutex.Unlock()
	dm.Data[id] = d
}

func (dm *DeviceMap) Len() int {
	dm.Mutex.RLock()
	defer dm.Mutex.RUnlock()
	return len(dm.Data)
}
