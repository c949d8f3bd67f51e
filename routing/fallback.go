package routing

import (
	"context"
	"log/slog"
)

// FallbackRouter tries a primary router and falls back to a secondary
// when the primary fails. The secondary is expected to be infallible
// in practice (a KeywordRouter), so a query always gets routed.
type FallbackRouter struct {
	primary   Router
	secondary Router
	logger    *slog.Logger
}

// NewFallbackRouter chains primary over secondary. A nil logger means
// slog.Default().
func NewFallbackRouter(primary, secondary Router, logger *slog.Logger) *FallbackRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackRouter{primary: primary, secondary: secondary, logger: logger}
}

func (r *FallbackRouter) Route(ctx context.Context, query string) (Decision, error) {
	decision, err := r.primary.Route(ctx, query)
	if err == nil {
		return decision, nil
	}
	r.logger.Warn(
		"primary router failed, falling back",
		slog.String("error", err.Error()),
	)
	return r.secondary.Route(ctx, query)
}
