package njt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/jusunglee/njt-go/internal/models"
)

// Fetcher retrieves departure boards and the station list
type Fetcher struct {
	baseURL    string
	httpClient *http.Client
	njtOnly    bool
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher; a nil client gets the default timeout
func NewFetcher(baseURL string, client *http.Client, njtOnly bool, logger *slog.Logger) *Fetcher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if client == nil {
		client = NewHTTPClient(DefaultTimeout)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Fetcher{
		baseURL:    baseURL,
		httpClient: client,
		njtOnly:    njtOnly,
		logger:     logger,
	}
}

// Schedule fetches the departure board for one station
func (f *Fetcher) Schedule(ctx context.Context, token, station string) (models.ScheduleResponse, error) {
	const op = "getTrainSchedule"

	form := url.Values{}
	form.Set("token", token)
	form.Set("station", station)
	if f.njtOnly {
		form.Set("NJTOnly", "true")
	}

	var body models.ScheduleResponse
	if err := f.post(ctx, op, endpointSchedule, form, &body); err != nil {
		return models.ScheduleResponse{}, err
	}
	f.logger.Debug("fetched schedule", "station", station, "items", len(body.Items))
	return body, nil
}

// Directions fetches the origin and destination boards concurrently
func (f *Fetcher) Directions(ctx context.Context, token, origin, destination string) (outbound, inbound models.ScheduleResponse, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		outbound, err = f.Schedule(gctx, token, origin)
		return err
	})
	g.Go(func() error {
		var err error
		inbound, err = f.Schedule(gctx, token, destination)
		return err
	})
	if err := g.Wait(); err != nil {
		return models.ScheduleResponse{}, models.ScheduleResponse{}, err
	}
	return outbound, inbound, nil
}

// Stations fetches the station list sorted by name
func (f *Fetcher) Stations(ctx context.Context, token string) ([]models.Station, error) {
	const op = "getStationList"

	form := url.Values{}
	form.Set("token", token)

	var raw []models.RawStation
	if err := f.post(ctx, op, endpointStationList, form, &raw); err != nil {
		return nil, err
	}

	result := make([]models.Station, 0, len(raw))
	for _, s := range raw {
		if s.Code == "" {
			continue
		}
		result = append(result, s.ConvertToStation())
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}

func (f *Fetcher) post(ctx context.Context, op, endpoint string, form url.Values, out interface{}) error {
	resp, err := postForm(ctx, f.httpClient, f.baseURL, endpoint, form)
	if err != nil {
		return transportError(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(op, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("%w: decode response: %v", ErrCannotConnect, err)}
	}
	return nil
}
