package routing

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

const (
	defaultTrafficTimeout  = 10 * time.Second
	defaultFallbackTimeout = 5 * time.Second
	defaultAverageSpeedKmh = 40.0
)

// Config holds per-call provider configuration for the route engine.
type Config struct {
	TomTomAPIKey    string
	TomTomBaseURL   string
	OSRMBaseURL     string
	TrafficTimeout  time.Duration
	FallbackTimeout time.Duration
	AverageSpeedKmh float64
}

func (c Config) withDefaults() Config {
	if c.TrafficTimeout <= 0 {
		c.TrafficTimeout = defaultTrafficTimeout
	}
	if c.FallbackTimeout <= 0 {
		c.FallbackTimeout = defaultFallbackTimeout
	}
	if c.AverageSpeedKmh <= 0 {
		c.AverageSpeedKmh = defaultAverageSpeedKmh
	}
	return c
}

// LegProvider resolves one directed leg between two coordinates.
type LegProvider interface {
	Name() string
	ResolveLeg(ctx context.Context, origin, destination geo.Coordinate) (RouteSegment, error)
}

// Chain resolves a leg by trying providers in order: traffic-aware first,
// then the plain routing fallback, then a local straight-line estimate. The
// chain is total: every provider failure is absorbed and the terminal
// estimate cannot fail, so a degraded ETA never turns into a blocked
// dispatch.
type Chain struct {
	providers []LegProvider
	speedKmh  float64
	logger    *zap.Logger
}

// NewChain builds the provider chain from config.
func NewChain(cfg Config, logger *zap.Logger) *Chain {
	cfg = cfg.withDefaults()
	return &Chain{
		providers: []LegProvider{
			NewTomTomProvider(cfg.TomTomAPIKey, cfg.TomTomBaseURL, cfg.TrafficTimeout),
			NewOSRMProvider(cfg.OSRMBaseURL, cfg.FallbackTimeout),
		},
		speedKmh: cfg.AverageSpeedKmh,
		logger:   logger,
	}
}

// NewChainWithProviders builds a chain over explicit providers. Used by tests
// and by callers that bring their own provider set.
func NewChainWithProviders(providers []LegProvider, averageSpeedKmh float64, logger *zap.Logger) *Chain {
	if averageSpeedKmh <= 0 {
		averageSpeedKmh = defaultAverageSpeedKmh
	}
	return &Chain{providers: providers, speedKmh: averageSpeedKmh, logger: logger}
}

// ResolveLeg resolves one leg, falling through provider tiers on failure.
// The returned segment always has Success=true.
func (c *Chain) ResolveLeg(ctx context.Context, origin, destination geo.Coordinate) RouteSegment {
	for _, provider := range c.providers {
		segment, err := provider.ResolveLeg(ctx, origin, destination)
		if err == nil {
			return segment
		}
		c.logger.Warn("route provider failed, falling through",
			zap.String("provider", provider.Name()),
			zap.Error(err),
		)
	}
	return c.estimateLeg(origin, destination)
}

// estimateLeg is the terminal tier: haversine distance at the configured
// average speed, no path geometry.
func (c *Chain) estimateLeg(origin, destination geo.Coordinate) RouteSegment {
	distanceKm := geo.DistanceKm(origin, destination)
	return RouteSegment{
		Origin:          origin,
		Destination:     destination,
		DistanceKm:      round2(distanceKm),
		DurationMinutes: round2(distanceKm / c.speedKmh * 60),
		TrafficAware:    false,
		Success:         true,
	}
}
