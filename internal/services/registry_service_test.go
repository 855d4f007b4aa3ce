package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netguard/internal/models"
	"netguard/internal/testutil"
)

func newRegistry() DeviceRegistryInterface {
	return NewDeviceRegistry(&testutil.MockLogger{})
}

func registerTestDevice(t *testing.T, r DeviceRegistryInterface, mac string) string {
	t.Helper()
	id, err := r.Register(models.DeviceInfo{MACAddress: mac, Name: "test", Type: "laptop"})
	require.NoError(t, err)
	return id
}

func TestRegister_NormalizesID(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "AA:BB:CC:DD:EE:FF")
	assert.Equal(t, "aabbccddeeff", id)

	d, ok := r.Get("aa-bb-cc-dd-ee-ff")
	require.True(t, ok)
	assert.Equal(t, models.StatusOffline, d.Status)
}

func TestRegister_Idempotent(t *testing.T) {
	r := newRegistry()
	first := registerTestDevice(t, r, "aa:bb:cc:dd:ee:01")
	second := registerTestDevice(t, r, "AA-BB-CC-DD-EE-01")

	assert.Equal(t, first, second)
	assert.Len(t, r.Snapshot(), 1)
}

func TestRegister_EmptyID(t *testing.T) {
	r := newRegistry()
	_, err := r.Register(models.DeviceInfo{MACAddress: "  "})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestObservePresence_Transitions(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:02")

	r.ObservePresence(map[string]struct{}{id: {}})
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusOnline, d.Status)
	assert.False(t, d.LastSeen.IsZero())

	r.ObservePresence(map[string]struct{}{})
	d, _ = r.Get(id)
	assert.Equal(t, models.StatusOffline, d.Status)
}

func TestObservePresence_DoesNotTouchBlocked(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:03")
	require.NoError(t, r.Block(id, 0))

	r.ObservePresence(map[string]struct{}{id: {}})
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusBlocked, d.Status)
	// last_seen still advances while blocked
	assert.False(t, d.LastSeen.IsZero())

	r.ObservePresence(map[string]struct{}{})
	d, _ = r.Get(id)
	assert.Equal(t, models.StatusBlocked, d.Status)
}

func TestBlock_Indefinite(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:04")

	require.NoError(t, r.Block(id, 0))
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusBlocked, d.Status)
	assert.True(t, d.BlockExpires.IsZero())

	// Indefinite blocks never expire
	expired := r.ExpireBlocks(time.Now().Add(24 * time.Hour))
	assert.Empty(t, expired)
}

func TestBlock_UnknownDevice(t *testing.T) {
	r := newRegistry()
	err := r.Block("ff:ff:ff:ff:ff:ff", time.Minute)
	assert.ErrorIs(t, err, models.ErrDeviceNotFound)
}

func TestUnblock_RestoresOnline(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:05")
	require.NoError(t, r.Block(id, time.Hour))

	require.NoError(t, r.Unblock(id))
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusOnline, d.Status)
	assert.True(t, d.BlockedAt.IsZero())
	assert.True(t, d.BlockExpires.IsZero())
}

func TestUnblock_RestoresRestricted(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:06")
	require.NoError(t, r.SetRestrictions(id, []string{"social"}))
	require.NoError(t, r.Block(id, time.Hour))

	require.NoError(t, r.Unblock(id))
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusRestricted, d.Status)
}

func TestUnblock_NotBlocked(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:07")
	assert.ErrorIs(t, r.Unblock(id), models.ErrNotBlocked)
}

func TestExpireBlocks_LiftsTimedBlock(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:08")
	require.NoError(t, r.Block(id, time.Minute))

	assert.Empty(t, r.ExpireBlocks(time.Now()))

	expired := r.ExpireBlocks(time.Now().Add(2 * time.Minute))
	require.Equal(t, []string{id}, expired)
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusOnline, d.Status)
}

func TestSetRestrictions_ReplacesWholesale(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:09")

	require.NoError(t, r.SetRestrictions(id, []string{"social", "gaming"}))
	assert.Len(t, r.Restrictions(id), 2)
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusRestricted, d.Status)

	require.NoError(t, r.SetRestrictions(id, []string{"streaming"}))
	got := r.Restrictions(id)
	require.Len(t, got, 1)
	_, ok := got["streaming"]
	assert.True(t, ok)
}

func TestSetRestrictions_EmptyClearsStatus(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:0a")
	require.NoError(t, r.SetRestrictions(id, []string{"social"}))

	require.NoError(t, r.SetRestrictions(id, nil))
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusOnline, d.Status)
	assert.Empty(t, r.Restrictions(id))
}

func TestSetRestrictions_KeepsBlockedStatus(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:0b")
	require.NoError(t, r.Block(id, 0))

	require.NoError(t, r.SetRestrictions(id, []string{"social"}))
	d, _ := r.Get(id)
	assert.Equal(t, models.StatusBlocked, d.Status)

	// The new set applies once unblocked
	require.NoError(t, r.Unblock(id))
	d, _ = r.Get(id)
	assert.Equal(t, models.StatusRestricted, d.Status)
}

func TestCountByStatus(t *testing.T) {
	r := newRegistry()
	a := registerTestDevice(t, r, "aa:bb:cc:dd:ee:0c")
	registerTestDevice(t, r, "aa:bb:cc:dd:ee:0d")
	require.NoError(t, r.Block(a, 0))

	counts := r.CountByStatus()
	assert.Equal(t, 1, counts[models.StatusBlocked])
	assert.Equal(t, 1, counts[models.StatusOffline])
}

func TestBindInterface(t *testing.T) {
	r := newRegistry()
	id := registerTestDevice(t, r, "aa:bb:cc:dd:ee:0e")

	require.NoError(t, r.BindInterface("eth0", "AA:BB:CC:DD:EE:0E"))
	got, ok := r.DeviceForInterface("eth0")
	require.True(t, ok)
	assert.Equal(t, id, got)

	_, ok = r.DeviceForInterface("wlan0")
	assert.False(t, ok)
}

func TestBindInterface_UnknownDevice(t *testing.T) {
	r := newRegistry()
	err := r.BindInterface("eth0", "ff:ff:ff:ff:ff:00")
	assert.ErrorIs(t, err, models.ErrDeviceNotFound)
}
