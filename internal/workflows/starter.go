package workflows

import (
	"context"
	"fmt"

	"go.temporal.io/sdk/client"

	"github.com/samirrijal/civic311/internal/core/domain"
)

// RerouteWorkflowID is shared by all reroute runs so that a burst of
// boundary changes collapses into one running workflow.
const RerouteWorkflowID = "civic311-reroute"

// SignalWithStarter is the subset of client.Client used to trigger reroutes.
type SignalWithStarter interface {
	SignalWithStartWorkflow(ctx context.Context, workflowID string, signalName string, signalArg interface{},
		options client.StartWorkflowOptions, workflow interface{}, workflowArgs ...interface{}) (client.WorkflowRun, error)
}

// StartReroute signals the running reroute about event, starting one if
// none is running.
func StartReroute(ctx context.Context, c SignalWithStarter, taskQueue string, batchSize int, event *domain.BoundaryChanged) error {
	opts := client.StartWorkflowOptions{
		ID:        RerouteWorkflowID,
		TaskQueue: taskQueue,
	}
	input := RerouteInput{JurisdictionID: event.JurisdictionID, BatchSize: batchSize}

	if _, err := c.SignalWithStartWorkflow(ctx, RerouteWorkflowID, BoundaryChangedSignal, event, opts, RerouteWorkflow, input); err != nil {
		return fmt.Errorf("start reroute for %s: %w", event.JurisdictionID, err)
	}
	return nil
}
