package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

const defaultTomTomBaseURL = "https://api.tomtom.com"

// ErrNoCredential is returned when a provider requires an API key that was
// not configured. The chain treats it like any other recoverable failure.
var ErrNoCredential = errors.New("routing: provider credential not configured")

// TomTomProvider resolves legs via the TomTom routing API with live traffic.
type TomTomProvider struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewTomTomProvider creates a TomTomProvider. The timeout bounds every
// request end to end.
func NewTomTomProvider(apiKey, baseURL string, timeout time.Duration) *TomTomProvider {
	if baseURL == "" {
		baseURL = defaultTomTomBaseURL
	}
	return &TomTomProvider{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs.
func (p *TomTomProvider) Name() string { return "tomtom" }

type tomtomResponse struct {
	Routes []struct {
		Summary struct {
			LengthInMeters        float64 `json:"lengthInMeters"`
			TravelTimeInSeconds   float64 `json:"travelTimeInSeconds"`
			TrafficDelayInSeconds float64 `json:"trafficDelayInSeconds"`
		} `json:"summary"`
		Legs []struct {
			Points []struct {
				Latitude  float64 `json:"latitude"`
				Longitude float64 `json:"longitude"`
			} `json:"points"`
		} `json:"legs"`
	} `json:"routes"`
}

// ResolveLeg queries TomTom for a traffic-aware route between two points.
func (p *TomTomProvider) ResolveLeg(ctx context.Context, origin, destination geo.Coordinate) (RouteSegment, error) {
	if p.apiKey == "" {
		return RouteSegment{}, ErrNoCredential
	}

	endpoint := fmt.Sprintf("%s/routing/1/calculateRoute/%f,%f:%f,%f/json",
		p.baseURL,
		origin.Latitude, origin.Longitude,
		destination.Latitude, destination.Longitude,
	)
	params := url.Values{}
	params.Set("key", p.apiKey)
	params.Set("traffic", "true")
	params.Set("travelMode", "car")
	params.Set("routeType", "fastest")
	params.Set("departAt", "now")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return RouteSegment{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return RouteSegment{}, fmt.Errorf("tomtom request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RouteSegment{}, fmt.Errorf("tomtom status %d", resp.StatusCode)
	}

	var body tomtomResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return RouteSegment{}, fmt.Errorf("decode tomtom response: %w", err)
	}
	if len(body.Routes) == 0 {
		return RouteSegment{}, errors.New("tomtom response has no routes")
	}

	route := body.Routes[0]
	var path []geo.Coordinate
	for _, leg := range route.Legs {
		for _, pt := range leg.Points {
			path = append(path, geo.Coordinate{Latitude: pt.Latitude, Longitude: pt.Longitude})
		}
	}

	return RouteSegment{
		Origin:              origin,
		Destination:         destination,
		DistanceKm:          round2(route.Summary.LengthInMeters / 1000),
		DurationMinutes:     round2(route.Summary.TravelTimeInSeconds / 60),
		TrafficDelayMinutes: round2(route.Summary.TrafficDelayInSeconds / 60),
		TrafficAware:        true,
		Path:                path,
		Success:             true,
	}, nil
}
