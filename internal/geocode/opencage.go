package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
	"github.com/fastaid/service-dispatch/internal/platform/domain"
)

const defaultBaseURL = "https://api.opencagedata.com"

// Geocoder resolves free-text addresses to coordinates. Consumed only by the
// booking flow; the dispatch engine itself never geocodes.
type Geocoder interface {
	Geocode(ctx context.Context, address string) (geo.Coordinate, error)
}

// OpenCageGeocoder is the OpenCage forward-geocoding client.
type OpenCageGeocoder struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenCageGeocoder creates an OpenCageGeocoder with the given request
// timeout.
func NewOpenCageGeocoder(apiKey, baseURL string, timeout time.Duration) *OpenCageGeocoder {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenCageGeocoder{
		apiKey:  apiKey,
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type opencageResponse struct {
	Results []struct {
		Geometry struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"geometry"`
	} `json:"results"`
}

// Geocode resolves one address. A miss is reported as a not-found domain
// error so the booking handler can surface it to the user.
func (g *OpenCageGeocoder) Geocode(ctx context.Context, address string) (geo.Coordinate, error) {
	if address == "" {
		return geo.Coordinate{}, domain.NewValidationError("address is required")
	}

	params := url.Values{}
	params.Set("q", address)
	params.Set("key", g.apiKey)
	params.Set("limit", "1")

	endpoint := g.baseURL + "/geocode/v1/json?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("create geocode request: %w", err)
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("geocode request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return geo.Coordinate{}, fmt.Errorf("geocode status %d", resp.StatusCode)
	}

	var body opencageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return geo.Coordinate{}, fmt.Errorf("decode geocode response: %w", err)
	}
	if len(body.Results) == 0 {
		return geo.Coordinate{}, domain.NewNotFoundError("Address", address)
	}

	return geo.Coordinate{
		Latitude:  body.Results[0].Geometry.Lat,
		Longitude: body.Results[0].Geometry.Lng,
	}, nil
}
