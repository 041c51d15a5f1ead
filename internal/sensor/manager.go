package sensor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the refresh cadence
const DefaultInterval = 5 * time.Minute

// Manager drives every sensor on a fixed interval
type Manager struct {
	sensors        []*Sensor
	byID           map[string]*Sensor
	updateInterval time.Duration
	logger         *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager creates a new sensor manager
func NewManager(sensors []*Sensor, updateInterval time.Duration, logger *slog.Logger) *Manager {
	if updateInterval <= 0 {
		updateInterval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	byID := make(map[string]*Sensor, len(sensors))
	for _, s := range sensors {
		byID[s.ID()] = s
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		sensors:        sensors,
		byID:           byID,
		updateInterval: updateInterval,
		logger:         logger,
		ctx:            ctx,
		cancel:         cancel,
	}
}

// Start begins the refresh loop
func (m *Manager) Start() {
	m.wg.Add(1)
	go m.updateLoop()
}

// Stop stops the refresh loop and abandons in-flight calls
func (m *Manager) Stop() {
	m.cancel()
	m.wg.Wait()
}

// Sensors returns the managed sensors
func (m *Manager) Sensors() []*Sensor {
	return m.sensors
}

// Sensor looks up a sensor by ID
func (m *Manager) Sensor(id string) (*Sensor, bool) {
	s, ok := m.byID[id]
	return s, ok
}

// Refresh runs one cycle of a single sensor outside the schedule
func (m *Manager) Refresh(ctx context.Context, id string) error {
	s, ok := m.byID[id]
	if !ok {
		return fmt.Errorf("sensor %s not found", id)
	}
	return s.Refresh(ctx)
}

func (m *Manager) updateLoop() {
	defer m.wg.Done()

	// Initial update
	m.update()

	ticker := time.NewTicker(m.updateInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.update()
		case <-m.ctx.Done():
			return
		}
	}
}

// update refreshes every sensor; failures are already published and logged
func (m *Manager) update() {
	for _, s := range m.sensors {
		if m.ctx.Err() != nil {
			return
		}
		if err := s.Refresh(m.ctx); err != nil {
			m.logger.Warn("refresh failed", "sensor", s.ID(), "error", err)
		}
	}
}
