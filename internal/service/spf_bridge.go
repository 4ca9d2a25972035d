package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/roadsafety/backend/internal/domain"
	"github.com/roadsafety/backend/pkg/utils"
)

// DefaultBaselinePerYear is the fallback expected crash frequency per location-year
const DefaultBaselinePerYear = 1.0

// SPFBridge handles communication with the safety performance function service
type SPFBridge struct {
	serviceURL      string
	baselinePerYear float64
	httpClient      *http.Client
}

// NewSPFBridge creates a new SPF bridge. An empty serviceURL always uses the baseline.
func NewSPFBridge(serviceURL string, baselinePerYear float64) *SPFBridge {
	if baselinePerYear <= 0 {
		baselinePerYear = DefaultBaselinePerYear
	}
	return &SPFBridge{
		serviceURL:      serviceURL,
		baselinePerYear: baselinePerYear,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type spfRequest struct {
	LocationType string    `json:"location_type"`
	LocationID   int64     `json:"location_id"`
	PeriodStart  time.Time `json:"period_start"`
	PeriodEnd    time.Time `json:"period_end"`
}

type spfResponse struct {
	ExpectedCrashes float64 `json:"expected_crashes"`
}

// ExpectedCrashes asks the SPF service for the expected crash count at loc
// over period, falling back to the baseline when the service is unavailable
func (b *SPFBridge) ExpectedCrashes(ctx context.Context, loc domain.Location, period domain.Period) (float64, error) {
	if b.serviceURL == "" {
		return b.baseline(period), nil
	}

	body, err := json.Marshal(spfRequest{
		LocationType: string(loc.Kind),
		LocationID:   loc.ID,
		PeriodStart:  period.Start,
		PeriodEnd:    period.End,
	})
	if err != nil {
		return 0, fmt.Errorf("spf_bridge: failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/expected-crashes", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("spf_bridge: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return b.baseline(period), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return b.baseline(period), nil
	}

	var out spfResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("spf_bridge: failed to decode response: %w", err)
	}
	if out.ExpectedCrashes < 0 {
		return 0, fmt.Errorf("spf_bridge: negative expected crashes %.3f", out.ExpectedCrashes)
	}
	return out.ExpectedCrashes, nil
}

// Health checks SPF service connectivity
func (b *SPFBridge) Health(ctx context.Context) error {
	if b.serviceURL == "" {
		return nil
	}
	url := fmt.Sprintf("%s/health", b.serviceURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("spf_bridge: failed to create health request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("spf_bridge: health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("spf_bridge: health check returned status %d", resp.StatusCode)
	}
	return nil
}

// baseline scales the per-year frequency to the period, at least one year
func (b *SPFBridge) baseline(period domain.Period) float64 {
	years := period.Years()
	if years < 1 {
		years = 1
	}
	return utils.RoundTo(b.baselinePerYear*years, 3)
}
