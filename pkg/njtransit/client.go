package njtransit

import (
	"context"
	"log/slog"
	"time"

	"github.com/jusunglee/njt-go/internal/models"
	"github.com/jusunglee/njt-go/internal/njt"
	"github.com/jusunglee/njt-go/internal/sensor"
	"github.com/jusunglee/njt-go/internal/setup"
)

// Client defines the interface for accessing NJ Transit departure sensors
// Abstracts the in-process sensors behind a common interface for the HTTP layer
type Client interface {
	GetSnapshots() []models.Snapshot
	GetSnapshot(id string) (models.Snapshot, error)
	Refresh(ctx context.Context, id string) (models.Snapshot, error)

	GetStations(ctx context.Context) ([]models.Station, error)
	ValidateSetup(ctx context.Context, in setup.Input) (setup.Result, setup.FormErrors)

	AuthRequired() []string
	GetLastUpdate() time.Time
}

// Config holds configuration for the NJ Transit client
// Credentials are required for the RailData token exchange
type Config struct {
	Credentials    models.Credentials
	BaseURL        string
	UpdateInterval time.Duration
	Timeout        time.Duration
	TokenTTL       time.Duration
	NJTOnly        bool
	Sensors        []sensor.Config
	Logger         *slog.Logger
}

// DefaultConfig returns default configuration
// Five-minute refresh with a twelve-hour token matches the RailData limits
func DefaultConfig() Config {
	return Config{
		BaseURL:        njt.DefaultBaseURL,
		UpdateInterval: sensor.DefaultInterval,
		Timeout:        njt.DefaultTimeout,
		TokenTTL:       njt.DefaultTokenTTL,
	}
}
