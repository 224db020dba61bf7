// Package geocode resolves coordinates to locality names through a
// Nominatim-compatible reverse geocoding endpoint. Lookups are cached for
// the process lifetime and rate limited to stay inside the public
// service's usage policy.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"

	"shootsort/internal/config"
	"shootsort/internal/logging"
)

var (
	// ErrUnavailable marks transport failures and non-OK responses. The
	// caller can fall back to other place sources.
	ErrUnavailable = errors.New("geocoder unavailable")
	// ErrNoPlace means the service answered but had no usable locality
	// for the coordinates.
	ErrNoPlace = errors.New("no place for coordinates")
)

// Geocoder resolves coordinates to a raw locality name.
type Geocoder interface {
	Reverse(ctx context.Context, lat, lon float64) (string, error)
}

// Client is a Nominatim reverse geocoding client. Safe for concurrent
// use; requests are serialized by the rate limiter.
type Client struct {
	baseURL   string
	userAgent string
	language  string
	zoom      int
	timeout   time.Duration

	httpClient *http.Client
	cache      *cache.Cache
	limiter    *time.Ticker
	mu         sync.Mutex
	logger     *slog.Logger
}

func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = logging.NewNop()
	}
	timeout := time.Duration(cfg.Geocode.TimeoutSeconds) * time.Second
	// A zero spacing still needs a positive ticker interval.
	rateMS := cfg.Geocode.RateLimitMS
	if rateMS <= 0 {
		rateMS = 1
	}
	return &Client{
		baseURL:    cfg.Geocode.BaseURL,
		userAgent:  cfg.Geocode.UserAgent,
		language:   cfg.Geocode.Language,
		zoom:       cfg.Geocode.Zoom,
		timeout:    timeout,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache.New(cache.NoExpiration, 0),
		limiter:    time.NewTicker(time.Duration(rateMS) * time.Millisecond),
		logger:     logging.NewComponentLogger(logger, "geocode"),
	}
}

// Close stops the rate limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

// reverseResponse is the subset of the jsonv2 payload the picker needs.
// Nominatim reports unroutable coordinates as a 200 with an error field.
type reverseResponse struct {
	Error   string `json:"error"`
	Address struct {
		Suburb        string `json:"suburb"`
		Neighbourhood string `json:"neighbourhood"`
		City          string `json:"city"`
		Town          string `json:"town"`
		Village       string `json:"village"`
	} `json:"address"`
}

func (r *reverseResponse) place() string {
	for _, v := range []string{
		r.Address.Suburb,
		r.Address.Neighbourhood,
		r.Address.City,
		r.Address.Town,
		r.Address.Village,
	} {
		if v != "" {
			return v
		}
	}
	return ""
}

// Reverse resolves lat/lon to the most specific locality the service
// knows. Coordinates are cached at microdegree precision, including
// negative results, so repeated shots from one spot cost one request.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (string, error) {
	key := fmt.Sprintf("%.6f,%.6f", lat, lon)
	if cached, found := c.cache.Get(key); found {
		place, ok := cached.(string)
		if !ok || place == "" {
			return "", ErrNoPlace
		}
		c.logger.Debug("reverse geocode cache hit",
			logging.String("key", key),
			logging.String(logging.FieldPlace, place))
		return place, nil
	}

	if err := c.wait(ctx); err != nil {
		return "", err
	}

	var decoded reverseResponse
	if err := c.get(ctx, c.reverseURL(lat, lon), &decoded); err != nil {
		return "", err
	}
	if decoded.Error != "" {
		c.cache.Set(key, "", cache.DefaultExpiration)
		return "", fmt.Errorf("%w: %s", ErrNoPlace, decoded.Error)
	}

	place := decoded.place()
	c.cache.Set(key, place, cache.DefaultExpiration)
	if place == "" {
		return "", ErrNoPlace
	}
	c.logger.Debug("reverse geocode",
		logging.String("key", key),
		logging.String(logging.FieldPlace, place))
	return place, nil
}

// Probe checks that the service is reachable. Used by preflight checks
// before a run commits to network lookups.
func (c *Client) Probe(ctx context.Context) error {
	var status struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	}
	return c.get(ctx, c.baseURL+"/status?format=json", &status)
}

// wait blocks until the limiter grants a slot. Holding the mutex while
// waiting keeps concurrent callers to one request per tick.
func (c *Client) wait(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case <-c.limiter.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) reverseURL(lat, lon float64) string {
	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("zoom", strconv.Itoa(c.zoom))
	q.Set("accept-language", c.language)
	return c.baseURL + "/reverse?" + q.Encode()
}

func (c *Client) get(ctx context.Context, reqURL string, result any) error {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, reqURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("geocode request failed",
			logging.String("url", reqURL),
			logging.Error(err))
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("geocode request rejected",
			logging.String("url", reqURL),
			logging.Int("status", resp.StatusCode))
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}
	return nil
}
