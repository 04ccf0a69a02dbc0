package irail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"train-schedule-service/internal/domain/entity"
	"train-schedule-service/internal/domain/repository"
	"train-schedule-service/pkg/logger"
)

// DefaultBaseURL is the public iRail API
const DefaultBaseURL = "https://api.irail.be"

// maxBodyBytes caps how much of a liveboard response is read
const maxBodyBytes = 8 << 20

// ClientConfig configures a LiveboardClient
type ClientConfig struct {
	BaseURL   string
	Lang      string
	UserAgent string
	Timeout   time.Duration
}

// LiveboardClient reads station liveboards from the iRail API
type LiveboardClient struct {
	baseURL   string
	lang      string
	userAgent string
	client    *http.Client
	logger    logger.Logger
}

// NewLiveboardClient creates a new iRail liveboard client
func NewLiveboardClient(cfg ClientConfig, logger logger.Logger) repository.LiveboardRepository {
	return newLiveboardClient(cfg, logger)
}

func newLiveboardClient(cfg ClientConfig, logger logger.Logger) *LiveboardClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Lang == "" {
		cfg.Lang = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &LiveboardClient{
		baseURL:   cfg.BaseURL,
		lang:      cfg.Lang,
		userAgent: cfg.UserAgent,
		client:    &http.Client{Timeout: cfg.Timeout},
		logger:    logger,
	}
}

// FetchLiveboard returns the arrivals or departures currently listed for station
func (c *LiveboardClient) FetchLiveboard(ctx context.Context, station string, direction entity.Direction) ([]entity.RawScheduleEntry, error) {
	if !direction.Valid() {
		return nil, &entity.FetchError{Station: station, Direction: direction, Err: fmt.Errorf("invalid direction %q", direction)}
	}

	params := url.Values{}
	params.Set("station", station)
	params.Set("arrdep", direction.QueryValue())
	params.Set("format", "json")
	params.Set("lang", c.lang)
	params.Set("alerts", "false")

	endpoint := fmt.Sprintf("%s/liveboard/?%s", c.baseURL, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, c.fetchError(station, direction, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, c.fetchError(station, direction, fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, c.fetchError(station, direction, fmt.Errorf("iRail returned status %d: %s", resp.StatusCode, body))
	}

	var payload liveboardResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&payload); err != nil {
		return nil, c.fetchError(station, direction, fmt.Errorf("failed to decode response: %w", err))
	}

	entries := payload.Departures.Departure
	if direction == entity.DirectionArrival {
		entries = payload.Arrivals.Arrival
	}

	raw := make([]entity.RawScheduleEntry, 0, len(entries))
	for _, e := range entries {
		raw = append(raw, e.toRaw(station))
	}

	c.logger.Info("Fetched liveboard",
		"station", station,
		"direction", direction,
		"entries", len(raw))

	return raw, nil
}

func (c *LiveboardClient) fetchError(station string, direction entity.Direction, err error) error {
	fetchErr := entity.FetchError{Station: station, Direction: direction, Err: err}
	if isTimeout(err) {
		return &entity.TimeoutError{FetchError: fetchErr}
	}
	return &fetchErr
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (e liveboardEntry) toRaw(station string) entity.RawScheduleEntry {
	platform := string(e.Platform)
	if platform == "" {
		platform = e.PlatformInfo.Name
	}

	var status string
	switch {
	case e.Left == "1":
		status = "left"
	case e.Arrived == "1":
		status = "arrived"
	case e.IsExtra == "1":
		status = "extra"
	}

	return entity.RawScheduleEntry{
		Station:       station,
		OtherStation:  e.Station,
		TrainID:       e.Vehicle,
		TrainName:     e.VehicleInfo.ShortName,
		Platform:      platform,
		ScheduledTime: string(e.Time),
		Delay:         string(e.Delay),
		DelayUnit:     entity.DelaySeconds,
		Canceled:      string(e.Canceled),
		Status:        status,
	}
}
