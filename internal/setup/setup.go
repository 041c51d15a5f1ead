// Package setup validates user-supplied credentials and stations before a
// sensor is created, reporting problems as per-field form errors.
package setup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jusunglee/njt-go/internal/models"
	"github.com/jusunglee/njt-go/internal/njt"
)

// ErrInvalidStation is returned when a station matches no known code or name
var ErrInvalidStation = errors.New("invalid station")

// Form error keys and values
const (
	FieldBase        = "base"
	FieldStation     = "station"
	FieldDestination = "destination"

	ErrorInvalidAuth    = "invalid_auth"
	ErrorCannotConnect  = "cannot_connect"
	ErrorInvalidStation = "invalid_station"
	ErrorRequired       = "required"
)

// Input is a submitted setup form
type Input struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	Station     string `json:"station"`
	Destination string `json:"destination,omitempty"`
}

// Result is a validated setup entry
type Result struct {
	Title       string             `json:"title"`
	Credentials models.Credentials `json:"-"`
	Station     models.Station     `json:"station"`
	Destination *models.Station    `json:"destination,omitempty"`
}

// FormErrors maps a form field to an error key
type FormErrors map[string]string

// Validator checks setup input against the live API
type Validator struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewValidator creates a Validator
func NewValidator(baseURL string, client *http.Client, logger *slog.Logger) *Validator {
	if client == nil {
		client = njt.NewHTTPClient(njt.DefaultTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Validator{baseURL: baseURL, httpClient: client, logger: logger}
}

// Validate authenticates with the submitted credentials and resolves the stations
// A nil FormErrors means the Result is usable
func (v *Validator) Validate(ctx context.Context, in Input) (Result, FormErrors) {
	errs := FormErrors{}
	if strings.TrimSpace(in.Username) == "" || in.Password == "" {
		errs[FieldBase] = ErrorInvalidAuth
	}
	if strings.TrimSpace(in.Station) == "" {
		errs[FieldStation] = ErrorRequired
	}
	if len(errs) > 0 {
		return Result{}, errs
	}

	creds := models.Credentials{Username: strings.TrimSpace(in.Username), Password: in.Password}
	auth := njt.NewAuthenticator(v.baseURL, creds, njt.WithHTTPClient(v.httpClient), njt.WithLogger(v.logger))
	token, err := auth.Token(ctx)
	if err != nil {
		return Result{}, v.baseError(err)
	}

	stations, err := njt.NewFetcher(v.baseURL, v.httpClient, false, v.logger).Stations(ctx, token)
	if err != nil {
		return Result{}, v.baseError(err)
	}

	result := Result{Credentials: creds}
	station, err := ResolveStation(stations, in.Station)
	if err != nil {
		errs[FieldStation] = ErrorInvalidStation
	}
	result.Station = station

	if strings.TrimSpace(in.Destination) != "" {
		dest, err := ResolveStation(stations, in.Destination)
		switch {
		case err != nil:
			errs[FieldDestination] = ErrorInvalidStation
		case dest.Code == station.Code:
			errs[FieldDestination] = ErrorInvalidStation
		default:
			result.Destination = &dest
		}
	}
	if len(errs) > 0 {
		return Result{}, errs
	}

	if result.Destination == nil {
		result.Title = fmt.Sprintf("NJ Transit: %s Station", result.Station.Name)
	} else {
		result.Title = fmt.Sprintf("NJ Transit %s to %s", result.Station.Name, result.Destination.Name)
	}
	return result, nil
}

func (v *Validator) baseError(err error) FormErrors {
	v.logger.Error("setup validation failed", "error", err)
	if errors.Is(err, njt.ErrInvalidAuth) {
		return FormErrors{FieldBase: ErrorInvalidAuth}
	}
	return FormErrors{FieldBase: ErrorCannotConnect}
}

// ResolveStation finds a station by two-letter code or by name
func ResolveStation(stations []models.Station, value string) (models.Station, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return models.Station{}, ErrInvalidStation
	}
	for _, s := range stations {
		if s.Name == value {
			return s, nil
		}
	}
	for _, s := range stations {
		if strings.EqualFold(s.Code, value) || strings.EqualFold(s.Name, value) {
			return s, nil
		}
	}
	return models.Station{}, fmt.Errorf("%w: %q", ErrInvalidStation, value)
}
