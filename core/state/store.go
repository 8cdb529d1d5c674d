package state

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/kilianp07/hems/core/model"
)

var (
	// ErrDeviceNotFound is returned when no device has the requested id.
	ErrDeviceNotFound = errors.New("device not found")
	// ErrOverrideDisabled rejects manual device commands outside override mode.
	ErrOverrideDisabled = errors.New("override mode is not enabled")
	// ErrInvalidDevice wraps device validation failures.
	ErrInvalidDevice = errors.New("invalid device")
)

// Store owns the household state. All writers are serialised; readers get
// deep copies.
type Store interface {
	Snapshot() model.State
	// Update runs fn on a working copy under the writer lock. The copy is
	// committed only when fn returns nil.
	Update(fn func(*model.State) error) error
	SetOverride(on bool) model.State
	SetDevice(id string, on bool) (model.Device, error)
	AddDevice(name string, powerW float64, tier model.Tier) (model.Device, error)
	DeleteDevice(id string) error
	SetBatteryCapacity(wh float64) error
}

// MemoryStore keeps the state in process memory. It is not durable.
type MemoryStore struct {
	mu sync.RWMutex
	st model.State
}

// NewMemoryStore returns a store seeded with initial.
func NewMemoryStore(initial model.State) *MemoryStore {
	return &MemoryStore{st: initial.Clone()}
}

func (s *MemoryStore) Snapshot() model.State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.st.Clone()
}

func (s *MemoryStore) Update(fn func(*model.State) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	work := s.st.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	s.st = work
	return nil
}

func (s *MemoryStore) SetOverride(on bool) model.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.OverrideMode = on
	return s.st.Clone()
}

func (s *MemoryStore) SetDevice(id string, on bool) (model.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.st.OverrideMode {
		return model.Device{}, ErrOverrideDisabled
	}
	for i := range s.st.Devices {
		if s.st.Devices[i].ID == id {
			s.st.Devices[i].IsOn = on
			return s.st.Devices[i], nil
		}
	}
	return model.Device{}, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

func (s *MemoryStore) AddDevice(name string, powerW float64, tier model.Tier) (model.Device, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Device{}, fmt.Errorf("%w: name is required", ErrInvalidDevice)
	}
	d := model.Device{ID: uuid.NewString(), Name: name, PowerW: powerW, Tier: tier}
	if err := d.Validate(); err != nil {
		return model.Device{}, fmt.Errorf("%w: %v", ErrInvalidDevice, err)
	}
	s.mu.Lock()
	s.st.Devices = append(s.st.Devices, d)
	s.mu.Unlock()
	return d, nil
}

func (s *MemoryStore) DeleteDevice(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.st.Devices {
		if s.st.Devices[i].ID == id {
			s.st.Devices = append(s.st.Devices[:i:i], s.st.Devices[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

// SetBatteryCapacity resizes the battery. The remaining energy is clamped to
// the new capacity.
func (s *MemoryStore) SetBatteryCapacity(wh float64) error {
	if math.IsNaN(wh) || math.IsInf(wh, 0) || wh <= 0 {
		return fmt.Errorf("%w: batteryCapacityWh must be positive, got %v", model.ErrInvalidConfig, wh)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.BatteryCapacityWh = wh
	s.st.BatteryRemainingWh = math.Min(s.st.BatteryRemainingWh, wh)
	return nil
}
