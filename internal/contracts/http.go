package contracts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ettgrid/measurements-syncer/pkg/metrics"
	"github.com/ettgrid/measurements-syncer/pkg/types"
)

const syncTargetsPath = "/api/contracts/sync-targets"

// HTTPLister fetches sync targets from the contract service. Invalid entries
// in the response are dropped, the others are still returned.
type HTTPLister struct {
	url     string
	http    *http.Client
	log     *zap.SugaredLogger
	metrics *metrics.Metrics
}

var _ Lister = (*HTTPLister)(nil)

func NewHTTPLister(baseURL string, timeout time.Duration, log *zap.SugaredLogger, m *metrics.Metrics) (*HTTPLister, error) {
	if baseURL == "" {
		return nil, errors.New("invalid contracts url: must not be empty")
	}
	if log == nil {
		return nil, errors.New("invalid logger: must not be nil")
	}
	return &HTTPLister{
		url:     strings.TrimRight(baseURL, "/") + syncTargetsPath,
		http:    &http.Client{Timeout: timeout},
		log:     log,
		metrics: m,
	}, nil
}

func (l *HTTPLister) ListSyncTargets(ctx context.Context) ([]types.MeteringPointSyncInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := l.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync targets: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("contracts %s returned %d: %s", l.url, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var targets []types.MeteringPointSyncInfo
	if err := json.NewDecoder(resp.Body).Decode(&targets); err != nil {
		return nil, fmt.Errorf("failed to decode sync targets: %w", err)
	}
	return filterTargets(targets, l.url, l.log, l.metrics), nil
}
