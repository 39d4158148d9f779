package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/civic311/internal/core/domain"
	"github.com/samirrijal/civic311/internal/core/usecases"
)

// BoundaryChangedSignal is sent to a running reroute when another boundary
// changes. The workflow finishes its pass and then scans again from the start.
const BoundaryChangedSignal = "boundary-changed"

const (
	defaultBatchSize  = 500
	defaultMaxBatches = 200
)

// RerouteInput is the input for RerouteWorkflow.
type RerouteInput struct {
	JurisdictionID string // boundary whose change triggered the run, for logs
	Cursor         string // resume after this request id
	BatchSize      int
	MaxBatches     int  // batches per run before continuing as new
	Rescan         bool // a change arrived during the previous run
}

// RerouteSummary is the result of RerouteWorkflow.
type RerouteSummary struct {
	Batches int
	Scanned int
	Routed  int
	Cursor  string
}

// RerouteWorkflow walks every unrouted service request in id order and
// assigns those now covered by a boundary. Long backlogs continue as new
// after MaxBatches to keep history bounded.
func RerouteWorkflow(ctx workflow.Context, input RerouteInput) (RerouteSummary, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting reroute workflow", "jurisdictionID", input.JurisdictionID, "cursor", input.Cursor)

	if input.BatchSize <= 0 {
		input.BatchSize = defaultBatchSize
	}
	if input.MaxBatches <= 0 {
		input.MaxBatches = defaultMaxBatches
	}

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: time.Second,
			MaximumAttempts: 5,
		},
	})

	changes := workflow.GetSignalChannel(ctx, BoundaryChangedSignal)
	rescan := input.Rescan
	drain := func() {
		var event domain.BoundaryChanged
		for changes.ReceiveAsync(&event) {
			logger.Info("Boundary changed during reroute", "jurisdictionID", event.JurisdictionID)
			rescan = true
		}
	}

	// Changes delivered with the start are covered by a pass from the
	// beginning; a continued run has already passed part of the backlog.
	if input.Cursor == "" {
		var event domain.BoundaryChanged
		for changes.ReceiveAsync(&event) {
		}
	} else {
		drain()
	}

	summary := RerouteSummary{Cursor: input.Cursor}
	for summary.Batches < input.MaxBatches {
		var res usecases.RerouteResult
		err := workflow.ExecuteActivity(ctx, "RerouteBatch", summary.Cursor, input.BatchSize).Get(ctx, &res)
		if err != nil {
			return summary, err
		}

		summary.Batches++
		summary.Scanned += res.Scanned
		summary.Routed += res.Routed
		summary.Cursor = res.LastID
		drain()

		if res.Scanned < input.BatchSize {
			if !rescan {
				logger.Info("Reroute complete", "scanned", summary.Scanned, "routed", summary.Routed)
				return summary, nil
			}
			rescan = false
			summary.Cursor = ""
		}
	}

	drain()
	logger.Info("Reroute continuing as new", "cursor", summary.Cursor, "routed", summary.Routed)
	next := input
	next.Cursor = summary.Cursor
	// A run starting from the beginning covers every pending change.
	next.Rescan = rescan && next.Cursor != ""
	return summary, workflow.NewContinueAsNewError(ctx, RerouteWorkflow, next)
}
