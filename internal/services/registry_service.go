package services

import (
	"fmt"
	"sync"
	"time"

	"netguard/internal/models"
	"netguard/internal/providers"
)

type DeviceRegistryInterface interface {
	Register(info models.DeviceInfo) (string, error)
	Get(id string) (models.Device, bool)
	Snapshot() []models.Device
	CountByStatus() map[models.DeviceStatus]int
	ObservePresence(active map[string]struct{})
	Block(id string, duration time.Duration) error
	Unblock(id string) error
	ExpireBlocks(now time.Time) []string
	SetRestrictions(id string, categories []string) error
	Restrictions(id string) map[string]struct{}
	BindInterface(iface, id string) error
	DeviceForInterface(iface string) (string, bool)
}

// DeviceRegistry owns the device map. Every mutation goes through its
// methods; callers never hold a *Device.
type DeviceRegistry struct {
	logger  providers.Logger
	devices *models.DeviceMap

	bindMu   sync.RWMutex
	bindings map[string]string // interface id → device id
}

func NewDeviceRegistry(logger providers.Logger) DeviceRegistryInterface {
	return &DeviceRegistry{
		logger:   logger,
		devices:  models.NewDeviceMap(),
		bindings: make(map[string]string),
	}
}

// Register creates the device in OFFLINE state. Registering an already
// known id is a no-op returning the same id.
func (r *DeviceRegistry) Register(info models.DeviceInfo) (string, error) {
	id := models.NormalizeDeviceID(info.MACAddress)
	if id == "" {
		return "", fmt.Errorf("%w: empty hardware address", models.ErrValidation)
	}

	r.devices.Mutex.Lock()
	defer r.devices.Mutex.Unlock()

	if _, ok := r.devices.Data[id]; ok {
		return id, nil
	}
	r.devices.Data[id] = &models.Device{
		ID:           id,
		Name:         info.Name,
		Type:         info.Type,
		Status:       models.StatusOffline,
		Restrictions: make(map[string]struct{}),
	}
	r.logger.Infof(providers.TypeApp, "Registered new device: %s", id)
	return id, nil
}

func (r *DeviceRegistry) Get(id string) (models.Device, bool) {
	r.devices.Mutex.RLock()
	defer r.devices.Mutex.RUnlock()
	d, ok := r.devices.Data[models.NormalizeDeviceID(id)]
	if !ok {
		return models.Device{}, false
	}
	return d.Copy(), true
}

func (r *DeviceRegistry) Snapshot() []models.Device {
	r.devices.Mutex.RLock()
	defer r.devices.Mutex.RUnlock()
	out := make([]models.Device, 0, len(r.devices.Data))
	for _, d := range r.devices.Data {
		out = append(out, d.Copy())
	}
	return out
}

func (r *DeviceRegistry) CountByStatus() map[models.DeviceStatus]int {
	r.devices.Mutex.RLock()
	defer r.devices.Mutex.RUnlock()
	out := make(map[models.DeviceStatus]int, 4)
	for _, d := range r.devices.Data {
		out[d.Status]++
	}
	return out
}

// ObservePresence flips known devices between ONLINE and OFFLINE according
// to the scan result and stamps last_seen for present devices. BLOCKED and
// RESTRICTED are policy states and survive presence changes untouched.
func (r *DeviceRegistry) ObservePresence(active map[string]struct{}) {
	now := time.Now()

	r.devices.Mutex.Lock()
	defer r.devices.Mutex.Unlock()

	for id, d := range r.devices.Data {
		_, present := active[id]
		if present {
			d.LastSeen = now
		}
		if d.Status == models.StatusBlocked || d.Status == models.StatusRestricted {
			continue
		}
		if present {
			d.Status = models.StatusOnline
		} else {
			d.Status = models.StatusOffline
		}
	}
}

// Block sets the device BLOCKED. A zero duration means indefinite.
func (r *DeviceRegistry) Block(id string, duration time.Duration) error {
	r.devices.Mutex.Lock()
	defer r.devices.Mutex.Unlock()

	d, ok := r.devices.Data[models.NormalizeDeviceID(id)]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrDeviceNotFound, id)
	}

	d.Status = models.StatusBlocked
	d.BlockedAt = time.Now()
	if duration > 0 {
		d.BlockExpires = d.BlockedAt.Add(duration)
	} else {
		d.BlockExpires = time.Time{}
	}
	r.logger.Infof(providers.TypeApp, "Blocked device: %s", d.ID)
	return nil
}

func (r *DeviceRegistry) Unblock(id string) error {
	r.devices.Mutex.Lock()
	defer r.devices.Mutex.Unlock()
	return r.unblockLocked(models.NormalizeDeviceID(id))
}

func (r *DeviceRegistry) unblockLocked(id string) error {
	d, ok := r.devices.Data[id]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrDeviceNotFound, id)
	}
	if d.Status != models.StatusBlocked {
		return models.ErrNotBlocked
	}

	d.BlockedAt = time.Time{}
	d.BlockExpires = time.Time{}
	if len(d.Restrictions) > 0 {
		d.Status = models.StatusRestricted
	} else {
		d.Status = models.StatusOnline
	}
	r.logger.Infof(providers.TypeApp, "Unblocked device: %s", d.ID)
	return nil
}

// ExpireBlocks lifts every timed block whose expiry has passed and returns
// the affected device ids.
func (r *DeviceRegistry) ExpireBlocks(now time.Time) []string {
	r.devices.Mutex.Lock()
	defer r.devices.Mutex.Unlock()

	var expired []string
	for id, d := range r.devices.Data {
		if d.Status != models.StatusBlocked || d.BlockExpires.IsZero() {
			continue
		}
		if !d.BlockExpires.After(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		if err := r.unblockLocked(id); err != nil {
			r.logger.Errorf(providers.TypeApp, "Failed to expire block for %s: %s", id, err)
		}
	}
	return expired
}

// SetRestrictions replaces the device's restricted categories wholesale.
// A blocked device keeps its BLOCKED status; the new set applies once it
// is unblocked.
func (r *DeviceRegistry) SetRestrictions(id string, categories []string) error {
	r.devices.Mutex.Lock()
	defer r.devices.Mutex.Unlock()

	d, ok := r.devices.Data[models.NormalizeDeviceID(id)]
	if !ok {
		return fmt.Errorf("%w: %s", models.ErrDeviceNotFound, id)
	}

	d.Restrictions = make(map[string]struct{}, len(categories))
	for _, c := range categories {
		if c == "" {
			continue
		}
		d.Restrictions[c] = struct{}{}
	}

	switch {
	case d.Status == models.StatusBlocked:
	case len(d.Restrictions) > 0:
		d.Status = models.StatusRestricted
	case d.Status == models.StatusRestricted:
		d.Status = models.StatusOnline
	}
	return nil
}

func (r *DeviceRegistry) Restrictions(id string) map[string]struct{} {
	r.devices.Mutex.RLock()
	defer r.devices.Mutex.RUnlock()

	d, ok := r.devices.Data[models.NormalizeDeviceID(id)]
	if !ok {
		return nil
	}
	out := make(map[string]struct{}, len(d.Restrictions))
	for c := range d.Restrictions {
		out[c] = struct{}{}
	}
	return out
}

// BindInterface maps a telemetry interface id to a registered device.
func (r *DeviceRegistry) BindInterface(iface, id string) error {
	norm := models.NormalizeDeviceID(id)
	if _, ok := r.devices.Get(norm); !ok {
		return fmt.Errorf("%w: %s", models.ErrDeviceNotFound, id)
	}

	r.bindMu.Lock()
	defer r.bindMu.Unlock()
	r.bindings[iface] = norm
	return nil
}

func (r *DeviceRegistry) DeviceForInterface(iface string) (string, bool) {
	r.bindMu.RLock()
	defer r.bindMu.RUnlock()
	id, ok := r.bindings[iface]
	return id, ok
}
