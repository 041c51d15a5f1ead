// Package sensor runs the authenticate, fetch, format and publish cycle for a
// departure board and publishes the result to a Host.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jusunglee/njt-go/internal/format"
	"github.com/jusunglee/njt-go/internal/metrics"
	"github.com/jusunglee/njt-go/internal/models"
	"github.com/jusunglee/njt-go/internal/njt"
)

// ErrAuthRequired is returned by Refresh when the host must collect new credentials
var ErrAuthRequired = errors.New("reauthorization required")

// DefaultLimit is the number of trips kept per direction
const DefaultLimit = 3

// Host receives published snapshots and reauthorization requests
type Host interface {
	Publish(snapshot models.Snapshot)
	NotifyAuthRequired(sensorID string, err error)
}

// Entity is the surface a host drives
type Entity interface {
	ID() string
	Refresh(ctx context.Context) error
	State() string
	Attributes() *structpb.Struct
}

var _ Entity = (*Sensor)(nil)

// TokenSource issues API tokens
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Invalidate()
}

// ScheduleSource fetches departure boards
type ScheduleSource interface {
	Schedule(ctx context.Context, token, station string) (models.ScheduleResponse, error)
	Directions(ctx context.Context, token, origin, destination string) (outbound, inbound models.ScheduleResponse, err error)
}

// Phase is a step of the refresh cycle
type Phase int

const (
	Idle Phase = iota
	Authenticating
	Fetching
	Formatting
	Published
	PublishedEmpty
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Authenticating:
		return "authenticating"
	case Fetching:
		return "fetching"
	case Formatting:
		return "formatting"
	case Published:
		return "published"
	case PublishedEmpty:
		return "published_empty"
	}
	return "unknown"
}

// Config describes one sensor
// Destination switches the sensor to origin/destination mode
type Config struct {
	ID          string
	Name        string
	Station     string
	Destination string
	Limit       int
}

// Sensor publishes the departure board of one station or station pair
type Sensor struct {
	cfg       Config
	tokens    TokenSource
	schedules ScheduleSource
	host      Host
	now       func() time.Time
	logger    *slog.Logger

	// serializes refresh cycles
	refreshMu sync.Mutex

	mu       sync.RWMutex
	phase    Phase
	outcome  Phase
	snapshot models.Snapshot
}

// New creates a sensor; a zero limit falls back to DefaultLimit
func New(cfg Config, tokens TokenSource, schedules ScheduleSource, host Host, logger *slog.Logger) *Sensor {
	if cfg.Limit == 0 {
		cfg.Limit = DefaultLimit
	}
	if cfg.ID == "" {
		cfg.ID = DefaultID(cfg.Station, cfg.Destination)
	}
	if cfg.Name == "" {
		cfg.Name = DefaultName(cfg.Station, cfg.Destination)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sensor{
		cfg:       cfg,
		tokens:    tokens,
		schedules: schedules,
		host:      host,
		now:       time.Now,
		logger:    logger.With("sensor", cfg.ID),
		snapshot:  models.Snapshot{SensorID: cfg.ID, Name: cfg.Name},
	}
}

// DefaultID derives a sensor ID from its stations
func DefaultID(station, destination string) string {
	if destination == "" {
		return "njtransit_" + station
	}
	return fmt.Sprintf("njtransit_%s_to_%s", station, destination)
}

// DefaultName derives a display name from its stations
func DefaultName(station, destination string) string {
	if destination == "" {
		return fmt.Sprintf("NJ Transit %s", station)
	}
	return fmt.Sprintf("NJ Transit %s to %s", station, destination)
}

// SetClock replaces time.Now, for tests
func (s *Sensor) SetClock(now func() time.Time) {
	s.now = now
}

// ID returns the sensor ID
func (s *Sensor) ID() string { return s.cfg.ID }

// Config returns the sensor configuration
func (s *Sensor) Config() Config { return s.cfg }

// Phase returns the current refresh phase, Idle between cycles
func (s *Sensor) Phase() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.phase
}

// Outcome returns how the last cycle ended: Published, PublishedEmpty, or Idle before the first one
func (s *Sensor) Outcome() Phase {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.outcome
}

// State returns the last published state
func (s *Sensor) State() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.State
}

// Attributes returns the last published attributes
func (s *Sensor) Attributes() *structpb.Struct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot.Attributes
}

// Snapshot returns the last published snapshot
func (s *Sensor) Snapshot() models.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Refresh runs one full cycle and publishes the result
// Any failure publishes an empty snapshot; auth failures also notify the host
func (s *Sensor) Refresh(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	start := time.Now()
	defer func() {
		metrics.RefreshDuration.WithLabelValues(s.cfg.ID).Observe(time.Since(start).Seconds())
	}()

	defer s.setPhase(Idle)

	s.setPhase(Authenticating)
	token, err := s.tokens.Token(ctx)
	if err != nil {
		return s.fail(err)
	}

	s.setPhase(Fetching)
	var snapshot models.Snapshot
	if s.cfg.Destination == "" {
		board, err := s.schedules.Schedule(ctx, token, s.cfg.Station)
		if err != nil {
			return s.fail(s.rejectToken(err))
		}
		s.setPhase(Formatting)
		snapshot, err = s.single(board)
		if err != nil {
			return s.fail(err)
		}
	} else {
		outbound, inbound, err := s.schedules.Directions(ctx, token, s.cfg.Station, s.cfg.Destination)
		if err != nil {
			return s.fail(s.rejectToken(err))
		}
		s.setPhase(Formatting)
		snapshot, err = s.pair(outbound, inbound)
		if err != nil {
			return s.fail(err)
		}
	}

	s.finish(snapshot, Published)

	metrics.Refreshes.WithLabelValues(s.cfg.ID, metrics.ResultOK).Inc()
	s.logger.Debug("sensor refreshed", "state", snapshot.State)
	return nil
}

func (s *Sensor) single(board models.ScheduleResponse) (models.Snapshot, error) {
	now := s.now()
	trips := format.Normalize(board.Items, s.cfg.Limit, now)

	attrs, err := structpb.NewStruct(map[string]interface{}{
		"trips":        tripValues(trips),
		"last_updated": now.Format(time.RFC3339),
		"station":      s.cfg.Station,
		"station_name": board.StationName,
	})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("build attributes: %w", err)
	}
	return s.newSnapshot(format.State(trips), attrs, now), nil
}

func (s *Sensor) pair(outboundBoard, inboundBoard models.ScheduleResponse) (models.Snapshot, error) {
	now := s.now()
	outbound := format.Normalize(format.ForDestination(outboundBoard.Items, s.cfg.Destination, inboundBoard.StationName), s.cfg.Limit, now)
	inbound := format.Normalize(format.ForDestination(inboundBoard.Items, s.cfg.Station, outboundBoard.StationName), s.cfg.Limit, now)

	attrs, err := structpb.NewStruct(map[string]interface{}{
		"outbound_trips": tripValues(outbound),
		"inbound_trips":  tripValues(inbound),
		"last_updated":   now.Format(time.RFC3339),
		"from_station":   s.cfg.Station,
		"to_station":     s.cfg.Destination,
	})
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("build attributes: %w", err)
	}
	return s.newSnapshot(strconv.Itoa(len(outbound)+len(inbound)), attrs, now), nil
}

func (s *Sensor) newSnapshot(state string, attrs *structpb.Struct, now time.Time) models.Snapshot {
	return models.Snapshot{
		SensorID:   s.cfg.ID,
		Name:       s.cfg.Name,
		State:      state,
		Attributes: attrs,
		UpdatedAt:  now,
	}
}

// rejectToken drops the cached token when the schedule endpoint refuses it
func (s *Sensor) rejectToken(err error) error {
	if errors.Is(err, njt.ErrInvalidAuth) {
		s.tokens.Invalidate()
	}
	return err
}

func (s *Sensor) fail(err error) error {
	authFailed := errors.Is(err, njt.ErrInvalidAuth)

	empty := models.Snapshot{
		SensorID:     s.cfg.ID,
		Name:         s.cfg.Name,
		UpdatedAt:    s.now(),
		AuthRequired: authFailed,
		Err:          err.Error(),
	}
	s.finish(empty, PublishedEmpty)

	if authFailed {
		metrics.Refreshes.WithLabelValues(s.cfg.ID, metrics.ResultAuthFailed).Inc()
		s.logger.Error("authentication failed, reauthorization required", "error", err)
		s.host.NotifyAuthRequired(s.cfg.ID, err)
		return fmt.Errorf("%w: %w", ErrAuthRequired, err)
	}

	metrics.Refreshes.WithLabelValues(s.cfg.ID, metrics.ResultCannotConnect).Inc()
	s.logger.Error("error fetching data from RailData API", "error", err)
	return err
}

func (s *Sensor) finish(snapshot models.Snapshot, outcome Phase) {
	s.mu.Lock()
	s.snapshot = snapshot
	s.phase = outcome
	s.outcome = outcome
	s.mu.Unlock()
	s.host.Publish(snapshot)
}

func (s *Sensor) setPhase(p Phase) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phase = p
}

func tripValues(trips []models.TripRecord) []interface{} {
	result := make([]interface{}, 0, len(trips))
	for _, trip := range trips {
		result = append(result, trip.AttributeValue())
	}
	return result
}
