package models

import (
	"sort"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"

	"github.com/moyoez/retadi-server/types"
)

const (
	DefaultDeviceTTL = 10 * time.Minute
	MaxDevices       = 64
)

// DeviceRegistry remembers recent handshakes for display. Entries expire
// ttl after ConnectedAt and at most MaxDevices are kept; nothing here grants
// access to anything.
//
// The ttl cache refreshes an item's expiry on every Get and Range and does
// so under a read lock, so every cache call goes through mu and staleness is
// judged from ConnectedAt rather than the cache's own clock.
type DeviceRegistry struct {
	mu    sync.Mutex
	ttl   time.Duration
	max   int
	ids   map[string]time.Time
	cache *ttlworker.Cache[string, types.ConnectedDevice]
}

func NewDeviceRegistry(ttl time.Duration) *DeviceRegistry {
	if ttl <= 0 {
		ttl = DefaultDeviceTTL
	}
	return &DeviceRegistry{
		ttl:   ttl,
		max:   MaxDevices,
		ids:   make(map[string]time.Time),
		cache: ttlworker.NewCache[string, types.ConnectedDevice](ttl),
	}
}

func (r *DeviceRegistry) Record(device types.ConnectedDevice) {
	if device.ID == "" {
		return
	}
	if device.ConnectedAt.IsZero() {
		device.ConnectedAt = time.Now()
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache.Set(device.ID, device)
	r.ids[device.ID] = device.ConnectedAt
	r.pruneLocked(time.Now())
}

func (r *DeviceRegistry) Lookup(id string) (types.ConnectedDevice, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ids[id]; !ok {
		return types.ConnectedDevice{}, false
	}
	device := r.cache.Get(id)
	return device, device.ID != "" && r.fresh(device.ConnectedAt, time.Now())
}

func (r *DeviceRegistry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forgetLocked(id)
}

// Recent lists unexpired devices, newest first, and drops expired ones.
func (r *DeviceRegistry) Recent() []types.ConnectedDevice {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pruneLocked(time.Now())

	devices := make([]types.ConnectedDevice, 0, len(r.ids))
	_ = r.cache.Range(func(_ string, device types.ConnectedDevice) error {
		devices = append(devices, device)
		return nil
	})
	sort.Slice(devices, func(i, j int) bool {
		return devices[i].ConnectedAt.After(devices[j].ConnectedAt)
	})
	return devices
}

// Len reports how many devices are held, expired or not.
func (r *DeviceRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.ids)
}

// pruneLocked deletes expired entries, then the oldest ones beyond max.
func (r *DeviceRegistry) pruneLocked(now time.Time) {
	for id, at := range r.ids {
		if !r.fresh(at, now) {
			r.forgetLocked(id)
		}
	}
	if len(r.ids) <= r.max {
		return
	}
	ids := make([]string, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return r.ids[ids[i]].Before(r.ids[ids[j]])
	})
	for _, id := range ids[:len(ids)-r.max] {
		r.forgetLocked(id)
	}
}

func (r *DeviceRegistry) forgetLocked(id string) {
	r.cache.Delete(id)
	delete(r.ids, id)
}

func (r *DeviceRegistry) fresh(at, now time.Time) bool {
	return now.Sub(at) < r.ttl
}
