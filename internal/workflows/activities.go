package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/activity"

	"github.com/samirrijal/civic311/internal/core/usecases"
)

// Rerouter re-resolves a page of unrouted service requests.
type Rerouter interface {
	Reroute(ctx context.Context, afterID string, limit int) (usecases.RerouteResult, error)
}

// RerouteActivities holds the activity implementations for RerouteWorkflow.
type RerouteActivities struct {
	Requests Rerouter
}

// RerouteBatch routes up to limit unrouted requests with ids after afterID.
func (a *RerouteActivities) RerouteBatch(ctx context.Context, afterID string, limit int) (usecases.RerouteResult, error) {
	res, err := a.Requests.Reroute(ctx, afterID, limit)
	if err != nil {
		return res, fmt.Errorf("reroute after %q: %w", afterID, err)
	}
	activity.GetLogger(ctx).Info("reroute batch done",
		"after", afterID, "scanned", res.Scanned, "routed", res.Routed)
	return res, nil
}
