package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// DistanceResult is the outcome of a distance lookup. The routing
// collaborator never panics across this boundary: ambiguous or unparseable
// addresses come back as OK=false with a reason.
type DistanceResult struct {
	OK    bool
	Miles float64
	Err   string
}

// DistanceCalculator is the routing/geocoding collaborator contract.
type DistanceCalculator interface {
	Calculate(ctx context.Context, origin, destination string) DistanceResult
}

// RoutingClient calls an external routing API for driving distance between
// two free-text addresses.
type RoutingClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRoutingClient creates a new RoutingClient.
func NewRoutingClient(baseURL, apiKey string, timeout time.Duration) *RoutingClient {
	return &RoutingClient{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// routingResponse is the wire shape of the routing API's answer.
type routingResponse struct {
	DistanceMiles float64 `json:"distance_miles"`
	Error         string  `json:"error,omitempty"`
}

// Calculate returns the driving distance in miles, or a failure result.
func (c *RoutingClient) Calculate(ctx context.Context, origin, destination string) DistanceResult {
	if origin == "" || destination == "" {
		return DistanceResult{Err: "origin and destination are required"}
	}

	endpoint := fmt.Sprintf("%s/route?origin=%s&destination=%s&key=%s",
		c.baseURL, url.QueryEscape(origin), url.QueryEscape(destination), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return DistanceResult{Err: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return DistanceResult{Err: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DistanceResult{Err: fmt.Sprintf("routing service returned %d", resp.StatusCode)}
	}

	var body routingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return DistanceResult{Err: err.Error()}
	}
	if body.Error != "" {
		return DistanceResult{Err: body.Error}
	}
	if body.DistanceMiles <= 0 {
		return DistanceResult{Err: "no route found"}
	}

	return DistanceResult{OK: true, Miles: body.DistanceMiles}
}

// SupersedingCalculator wraps a DistanceCalculator so that when trip-edit
// inputs change while a lookup is in flight, the stale answer is discarded
// rather than applied. The newer request supersedes the older one; nothing
// is cancelled.
type SupersedingCalculator struct {
	inner DistanceCalculator

	mu  sync.Mutex
	gen uint64
}

// NewSupersedingCalculator wraps a calculator with latest-wins semantics.
func NewSupersedingCalculator(inner DistanceCalculator) *SupersedingCalculator {
	return &SupersedingCalculator{inner: inner}
}

// Calculate performs the lookup and returns a failure result if a newer
// Calculate was issued while this one was in flight.
func (s *SupersedingCalculator) Calculate(ctx context.Context, origin, destination string) DistanceResult {
	s.mu.Lock()
	s.gen++
	mine := s.gen
	s.mu.Unlock()

	result := s.inner.Calculate(ctx, origin, destination)

	s.mu.Lock()
	latest := s.gen
	s.mu.Unlock()

	if mine != latest {
		return DistanceResult{Err: "superseded by a newer request"}
	}
	return result
}

// Ensure implementations satisfy the contract.
var (
	_ DistanceCalculator = (*RoutingClient)(nil)
	_ DistanceCalculator = (*SupersedingCalculator)(nil)
)
