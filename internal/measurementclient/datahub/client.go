// Package datahub implements measurementclient.Client against the DataHub
// measurement API:
//
//	GET {base}/api/measurements?gsrn=&dateFrom=&dateTo=&owner=
//
// dateFrom is inclusive and dateTo exclusive, both in epoch seconds.
package datahub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/ettgrid/measurements-syncer/internal/measurementclient"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

const (
	measurementsPath = "/api/measurements"
	maxErrorBody     = 512
)

// ErrUnexpectedStatus is returned for any non-2xx response.
var ErrUnexpectedStatus = errors.New("unexpected status from datahub")

var _ measurementclient.Client = (*Client)(nil)

type measurementDTO struct {
	GSRN            string `json:"gsrn"`
	DateFrom        int64  `json:"dateFrom"`
	DateTo          int64  `json:"dateTo"`
	Quantity        int64  `json:"quantity"`
	Quality         string `json:"quality"`
	QuantityMissing bool   `json:"quantityMissing"`
}

type measurementsResponse struct {
	Result []measurementDTO `json:"result"`
}

type Client struct {
	base    *url.URL
	token   string
	http    *http.Client
	limiter *rate.Limiter
	log     *zap.SugaredLogger
}

// New creates a DataHub client. Requests are paced by a token bucket of
// cfg.RateLimit requests per second.
func New(cfg Config, log *zap.SugaredLogger) (*Client, error) {
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid datahub url %q: %w", cfg.BaseURL, err)
	}

	return &Client{
		base:    base,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		log:     log,
	}, nil
}

func (c *Client) FetchMeasurements(
	ctx context.Context,
	gsrn string,
	from, to types.UnixTimestamp,
	owner string,
) ([]types.Measurement, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	u := c.base.JoinPath(measurementsPath)
	q := u.Query()
	q.Set("gsrn", gsrn)
	q.Set("dateFrom", strconv.FormatInt(int64(from), 10))
	q.Set("dateTo", strconv.FormatInt(int64(to), 10))
	if owner != "" {
		q.Set("owner", owner)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch measurements for %s: %w", gsrn, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: %d for %s: %s", ErrUnexpectedStatus, resp.StatusCode, gsrn, strings.TrimSpace(string(body)))
	}

	var payload measurementsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode measurements for %s: %w", gsrn, err)
	}

	out := make([]types.Measurement, 0, len(payload.Result))
	for _, dto := range payload.Result {
		out = append(out, c.toMeasurement(dto))
	}
	return out, nil
}

// toMeasurement converts a DTO. An unknown quality code is kept verbatim, so
// the reading is treated as not issuable downstream.
func (c *Client) toMeasurement(dto measurementDTO) types.Measurement {
	quality, err := types.ParseQuality(strings.ToLower(dto.Quality))
	if err != nil {
		c.log.Warnw("unknown measurement quality", "gsrn", dto.GSRN, "from", dto.DateFrom, "quality", dto.Quality)
		quality = types.Quality(dto.Quality)
	}
	return types.Measurement{
		GSRN:            dto.GSRN,
		DateFrom:        types.UnixTimestamp(dto.DateFrom),
		DateTo:          types.UnixTimestamp(dto.DateTo),
		Quantity:        dto.Quantity,
		Quality:         quality,
		QuantityMissing: dto.QuantityMissing,
	}
}
