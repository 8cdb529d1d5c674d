package settings

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/kilianp07/hems/core/model"
)

func TestStore_Defaults(t *testing.T) {
	s := NewStore(model.SystemConfig{})
	if s.Get() != model.DefaultSystemConfig() {
		t.Fatalf("expected defaults, got %+v", s.Get())
	}
}

func TestStore_PartialUpdate(t *testing.T) {
	s := NewStore(model.DefaultSystemConfig())
	var seen model.SystemConfig
	s.Subscribe(func(c model.SystemConfig) { seen = c })

	cfg, err := s.Update(model.ConfigUpdate{PanelCapacityKw: model.Float(4.5)})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if cfg.PanelCapacityKw != 4.5 || cfg.BatteryCapacityWh != 5000 || cfg.Efficiency != 0.85 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if seen != cfg {
		t.Fatalf("observer not notified")
	}
}

func TestStore_InvalidUpdateIsAtomic(t *testing.T) {
	s := NewStore(model.DefaultSystemConfig())
	calls := 0
	s.Subscribe(func(model.SystemConfig) { calls++ })
	_, err := s.Update(model.ConfigUpdate{PanelCapacityKw: model.Float(10), Efficiency: model.Float(1.5)})
	if !errors.Is(err, model.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}
	if s.Get() != model.DefaultSystemConfig() || calls != 0 {
		t.Fatalf("rejected update changed state: %+v calls=%d", s.Get(), calls)
	}
}

func TestStore_ObserversSeeUpdatesInOrder(t *testing.T) {
	s := NewStore(model.DefaultSystemConfig())
	var (
		mu   sync.Mutex
		last float64
	)
	applied := make(chan struct{})
	s.Subscribe(func(c model.SystemConfig) {
		if c.BatteryCapacityWh == 1000 {
			close(applied)
			time.Sleep(50 * time.Millisecond)
		}
		mu.Lock()
		last = c.BatteryCapacityWh
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, _ = s.Update(model.ConfigUpdate{BatteryCapacityWh: model.Float(1000)})
	}()
	go func() {
		defer wg.Done()
		<-applied
		_, _ = s.Update(model.ConfigUpdate{BatteryCapacityWh: model.Float(2000)})
	}()
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if got := s.Get().BatteryCapacityWh; last != got {
		t.Fatalf("observer last saw %v, store holds %v", last, got)
	}
}
