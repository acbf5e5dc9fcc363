package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

const defaultOSRMBaseURL = "https://router.project-osrm.org"

// OSRMProvider resolves legs via the public OSRM routing service. It carries
// no traffic data.
type OSRMProvider struct {
	baseURL string
	client  *http.Client
}

// NewOSRMProvider creates an OSRMProvider with the given request timeout.
func NewOSRMProvider(baseURL string, timeout time.Duration) *OSRMProvider {
	if baseURL == "" {
		baseURL = defaultOSRMBaseURL
	}
	return &OSRMProvider{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider in logs.
func (p *OSRMProvider) Name() string { return "osrm" }

type osrmResponse struct {
	Code   string `json:"code"`
	Routes []struct {
		Distance float64 `json:"distance"`
		Duration float64 `json:"duration"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// ResolveLeg queries OSRM for a route between two points. OSRM takes
// lng,lat pairs and returns GeoJSON lng,lat geometry.
func (p *OSRMProvider) ResolveLeg(ctx context.Context, origin, destination geo.Coordinate) (RouteSegment, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		p.baseURL,
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return RouteSegment{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return RouteSegment{}, fmt.Errorf("osrm request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return RouteSegment{}, fmt.Errorf("osrm status %d", resp.StatusCode)
	}

	var body osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return RouteSegment{}, fmt.Errorf("decode osrm response: %w", err)
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return RouteSegment{}, errors.New("osrm response has no routes")
	}

	route := body.Routes[0]
	path := make([]geo.Coordinate, 0, len(route.Geometry.Coordinates))
	for _, pair := range route.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		path = append(path, geo.Coordinate{Latitude: pair[1], Longitude: pair[0]})
	}

	return RouteSegment{
		Origin:          origin,
		Destination:     destination,
		DistanceKm:      round2(route.Distance / 1000),
		DurationMinutes: round2(route.Duration / 60),
		TrafficAware:    false,
		Path:            path,
		Success:         true,
	}, nil
}
