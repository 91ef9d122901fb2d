package weather

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"
)

// Provider answers current conditions at a coordinate. Implementations may
// block on the network and may fail.
type Provider interface {
	CurrentWeather(ctx context.Context, lat, lng float64) (Reading, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, lat, lng float64) (Reading, error)

func (f ProviderFunc) CurrentWeather(ctx context.Context, lat, lng float64) (Reading, error) {
	return f(ctx, lat, lng)
}

const DefaultTimeout = 3 * time.Second

// Report is what the gate hands to dispatch.
type Report struct {
	Reading  Reading `json:"reading"`
	Safe     bool    `json:"safe"`
	Fallback bool    `json:"fallback"`
}

// Gate bounds every provider query with a timeout and never returns an error.
//
// Availability over precision: when the provider errors, times out or is not
// configured, the gate substitutes Neutral() and marks the report as a
// fallback. Dispatch then proceeds on mild-weather assumptions instead of
// being blocked by a provider outage. The substitution is logged at WARN.
//
// Concurrent queries for the same coordinate (rounded to ~100 m) share one
// upstream call.
type Gate struct {
	provider Provider
	timeout  time.Duration
	logger   *slog.Logger
	group    singleflight.Group
}

func NewGate(p Provider, timeout time.Duration, logger *slog.Logger) *Gate {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{provider: p, timeout: timeout, logger: logger}
}

// Check queries the provider and evaluates IsSafe on the result.
func (g *Gate) Check(ctx context.Context, lat, lng float64) Report {
	r, fallback := g.reading(ctx, lat, lng)
	return Report{Reading: r, Safe: IsSafe(r), Fallback: fallback}
}

func (g *Gate) reading(ctx context.Context, lat, lng float64) (Reading, bool) {
	if g.provider == nil {
		return Neutral(), true
	}
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	key := fmt.Sprintf("%.3f,%.3f", lat, lng)
	ch := g.group.DoChan(key, func() (any, error) {
		// Shared by every waiter, so it must not die with the first caller.
		fctx, fcancel := context.WithTimeout(context.WithoutCancel(ctx), g.timeout)
		defer fcancel()
		return g.provider.CurrentWeather(fctx, lat, lng)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			g.logger.Warn("weather provider failed, using neutral reading", "lat", lat, "lng", lng, "err", res.Err)
			return Neutral(), true
		}
		return res.Val.(Reading), false
	case <-ctx.Done():
		g.logger.Warn("weather provider timed out, using neutral reading", "lat", lat, "lng", lng, "timeout", g.timeout)
		return Neutral(), true
	}
}
