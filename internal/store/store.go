package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jusunglee/njt-go/internal/models"
)

// Store manages in-memory sensor snapshots
// It is the in-process host that sensors publish to
type Store struct {
	mu         sync.RWMutex
	snapshots  map[string]models.Snapshot
	reauth     map[string]error
	stations   []models.Station
	lastUpdate time.Time
}

// NewStore creates a new store instance
func NewStore() *Store {
	return &Store{
		snapshots: make(map[string]models.Snapshot),
		reauth:    make(map[string]error),
	}
}

// Publish replaces the snapshot of a sensor
func (s *Store) Publish(snapshot models.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snapshot.UpdatedAt.IsZero() {
		snapshot.UpdatedAt = time.Now()
	}
	if !snapshot.AuthRequired {
		delete(s.reauth, snapshot.SensorID)
	}
	s.snapshots[snapshot.SensorID] = snapshot
	s.lastUpdate = snapshot.UpdatedAt
}

// NotifyAuthRequired flags a sensor whose credentials were rejected
func (s *Store) NotifyAuthRequired(sensorID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reauth[sensorID] = err
	if snapshot, ok := s.snapshots[sensorID]; ok {
		snapshot.AuthRequired = true
		s.snapshots[sensorID] = snapshot
	}
}

// AuthRequired returns the sensors awaiting new credentials
func (s *Store) AuthRequired() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]string, 0, len(s.reauth))
	for id := range s.reauth {
		result = append(result, id)
	}
	sort.Strings(result)
	return result
}

// GetSnapshot returns the snapshot of one sensor
func (s *Store) GetSnapshot(sensorID string) (models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot, ok := s.snapshots[sensorID]
	if !ok {
		return models.Snapshot{}, fmt.Errorf("sensor %s not found", sensorID)
	}
	return snapshot, nil
}

// GetSnapshots returns every snapshot sorted by sensor ID
func (s *Store) GetSnapshots() []models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Snapshot, 0, len(s.snapshots))
	for _, snapshot := range s.snapshots {
		result = append(result, snapshot)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].SensorID < result[j].SensorID
	})
	return result
}

// UpdateStations caches the station list
func (s *Store) UpdateStations(stations []models.Station) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stations = make([]models.Station, len(stations))
	copy(s.stations, stations)
}

// GetStations returns the cached station list
func (s *Store) GetStations() []models.Station {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]models.Station, len(s.stations))
	copy(result, s.stations)
	return result
}

// GetLastUpdate returns the last publish time
func (s *Store) GetLastUpdate() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastUpdate
}
