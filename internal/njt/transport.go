package njt

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jusunglee/njt-go/internal/metrics"
)

// DefaultBaseURL is the RailData TrainData API root
const DefaultBaseURL = "https://raildata.njtransit.com/api/TrainData"

// DefaultTimeout bounds every API call
const DefaultTimeout = 10 * time.Second

const userAgent = "njt-go (https://github.com/jusunglee/njt-go)"

const (
	endpointToken       = "getToken"
	endpointStationList = "getStationList"
	endpointSchedule    = "getTrainSchedule"
)

// NewHTTPClient returns an http.Client with the API timeout and instrumented transport
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: &apiTransport{base: http.DefaultTransport},
	}
}

type apiTransport struct {
	base http.RoundTripper
}

func (t *apiTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	request.Header.Set("User-Agent", userAgent)

	endpoint := request.URL.Path[strings.LastIndex(request.URL.Path, "/")+1:]
	response, err := t.base.RoundTrip(request)
	if err != nil {
		metrics.APIRequests.WithLabelValues(endpoint, "error").Inc()
		return nil, err
	}
	metrics.APIRequests.WithLabelValues(endpoint, strconv.Itoa(response.StatusCode)).Inc()
	return response, nil
}

// postForm issues a form-encoded POST expecting a JSON response
func postForm(ctx context.Context, client *http.Client, baseURL, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(baseURL, "/")+"/"+endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return client.Do(req)
}
