package routing

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/fastaid/service-dispatch/internal/domain/geo"
)

// Aggregator composes the two independent legs of a trip into one RouteInfo.
type Aggregator struct {
	chain *Chain
}

// NewAggregator creates an Aggregator over the given provider chain.
func NewAggregator(chain *Chain) *Aggregator {
	return &Aggregator{chain: chain}
}

// ComputeTripRoute resolves vehicle→patient and patient→destination
// concurrently and sums them. The legs are independent: each may land on a
// different fallback tier, which is fine — provider coverage differs per leg.
func (a *Aggregator) ComputeTripRoute(ctx context.Context, driver, patient, destination geo.Coordinate) RouteInfo {
	var legToPatient, legToDestination RouteSegment

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		legToPatient = a.chain.ResolveLeg(gctx, driver, patient)
		return nil
	})
	g.Go(func() error {
		legToDestination = a.chain.ResolveLeg(gctx, patient, destination)
		return nil
	})
	_ = g.Wait() // ResolveLeg is total; the group never reports an error.

	return NewRouteInfo(legToPatient, legToDestination)
}
