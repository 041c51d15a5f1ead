package njtransit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jusunglee/njt-go/internal/models"
	"github.com/jusunglee/njt-go/internal/njt"
	"github.com/jusunglee/njt-go/internal/sensor"
	"github.com/jusunglee/njt-go/internal/setup"
	"github.com/jusunglee/njt-go/internal/store"
)

// ErrSensorNotFound is returned for an unknown sensor ID
var ErrSensorNotFound = errors.New("sensor not found")

var _ Client = (*LocalClient)(nil)

// LocalClient implements the Client interface for in-process usage
// Owns the snapshot store and the background sensor manager
type LocalClient struct {
	store     *store.Store
	manager   *sensor.Manager
	auth      *njt.Authenticator
	fetcher   *njt.Fetcher
	validator *setup.Validator
	logger    *slog.Logger
}

// NewLocal creates a new local client without starting the refresh loop
func NewLocal(config Config) (*LocalClient, error) {
	if config.Credentials.Username == "" || config.Credentials.Password == "" {
		return nil, errors.New("njtransit: credentials are required")
	}
	if len(config.Sensors) == 0 {
		return nil, errors.New("njtransit: at least one sensor is required")
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := njt.NewHTTPClient(config.Timeout)
	authOpts := []njt.AuthOption{
		njt.WithHTTPClient(httpClient),
		njt.WithTokenTTL(config.TokenTTL),
		njt.WithLogger(logger),
	}
	fetcher := njt.NewFetcher(config.BaseURL, httpClient, config.NJTOnly, logger)
	s := store.NewStore()

	// Each sensor owns its token cache
	sensors := make([]*sensor.Sensor, 0, len(config.Sensors))
	for _, sc := range config.Sensors {
		auth := njt.NewAuthenticator(config.BaseURL, config.Credentials, authOpts...)
		sensors = append(sensors, sensor.New(sc, auth, fetcher, s, logger))
	}

	return &LocalClient{
		store:     s,
		manager:   sensor.NewManager(sensors, config.UpdateInterval, logger),
		auth:      njt.NewAuthenticator(config.BaseURL, config.Credentials, authOpts...),
		fetcher:   fetcher,
		validator: setup.NewValidator(config.BaseURL, httpClient, logger),
		logger:    logger,
	}, nil
}

// Start begins periodic refreshes
func (c *LocalClient) Start() {
	c.manager.Start()
}

// Close gracefully shuts down the local client
// Must be called after Start to stop background goroutines
func (c *LocalClient) Close() {
	c.manager.Stop()
}

func (c *LocalClient) GetSnapshots() []models.Snapshot {
	return c.store.GetSnapshots()
}

// GetSnapshot returns the last published snapshot of a sensor
// A configured sensor that has not refreshed yet yields its empty snapshot
func (c *LocalClient) GetSnapshot(id string) (models.Snapshot, error) {
	if snapshot, err := c.store.GetSnapshot(id); err == nil {
		return snapshot, nil
	}
	s, ok := c.manager.Sensor(id)
	if !ok {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrSensorNotFound, id)
	}
	return s.Snapshot(), nil
}

// Refresh runs an immediate cycle for one sensor and returns what it published
// The snapshot is returned even when the cycle failed
func (c *LocalClient) Refresh(ctx context.Context, id string) (models.Snapshot, error) {
	s, ok := c.manager.Sensor(id)
	if !ok {
		return models.Snapshot{}, fmt.Errorf("%w: %s", ErrSensorNotFound, id)
	}
	err := s.Refresh(ctx)
	return s.Snapshot(), err
}

// GetStations returns the station list, fetching it once
func (c *LocalClient) GetStations(ctx context.Context) ([]models.Station, error) {
	if cached := c.store.GetStations(); len(cached) > 0 {
		return cached, nil
	}
	token, err := c.auth.Token(ctx)
	if err != nil {
		return nil, err
	}
	stations, err := c.fetcher.Stations(ctx, token)
	if err != nil {
		if errors.Is(err, njt.ErrInvalidAuth) {
			c.auth.Invalidate()
		}
		return nil, err
	}
	c.store.UpdateStations(stations)
	return stations, nil
}

func (c *LocalClient) ValidateSetup(ctx context.Context, in setup.Input) (setup.Result, setup.FormErrors) {
	return c.validator.Validate(ctx, in)
}

func (c *LocalClient) AuthRequired() []string {
	return c.store.AuthRequired()
}

func (c *LocalClient) GetLastUpdate() time.Time {
	return c.store.GetLastUpdate()
}
