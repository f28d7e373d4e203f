package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"dev/bravebird/clinic-ui-verify/pkg/models"
	"dev/bravebird/clinic-ui-verify/pkg/verify"
)

// TaskQueue is the queue the worker polls and the API starts workflows on
const TaskQueue = "clinic-verification"

// ProgressQuery returns the in-flight WorkflowResult
const ProgressQuery = "getProgress"

// DefaultCheckpointTimeout bounds one checkpoint activity when the input
// does not set a timeout
const DefaultCheckpointTimeout = 5 * time.Minute

// WorkflowID derives the Temporal workflow ID of a run
func WorkflowID(runID string) string {
	return "clinic-verification-" + runID
}

// VerificationWorkflow runs one verifier's checkpoints in a single browser
// session. A failing lenient checkpoint gets its fallback screenshot and the
// run continues; any other failure skips the rest of the checkpoints.
func VerificationWorkflow(ctx workflow.Context, input models.WorkflowInput) (models.WorkflowResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting verification workflow", "verifier", input.Verifier, "runID", input.RunID)

	result := models.WorkflowResult{
		RunID:    input.RunID,
		Verifier: input.Verifier,
		Status:   models.StatusRunning,
	}

	// Register query handler for real-time progress
	err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (models.WorkflowResult, error) {
		return result, nil
	})
	if err != nil {
		logger.Error("Failed to register query handler", "error", err)
	}

	v, err := verify.Lookup(input.Verifier)
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = err.Error()
		return result, temporal.NewNonRetryableApplicationError(err.Error(), "UnknownVerifier", err)
	}
	result.Checkpoints = make([]models.CheckpointResult, 0, len(v.Checkpoints))

	startTime := workflow.Now(ctx)

	timeout := time.Duration(input.Timeout) * time.Second
	if timeout <= 0 {
		timeout = DefaultCheckpointTimeout
	}
	// Checkpoints are not idempotent (they create records), so no retries
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	// Execute browser initialization activity
	var session BrowserSession
	err = workflow.ExecuteActivity(ctx, "InitializeBrowserActivity", BrowserInitInput{
		RunID:    input.RunID,
		Headless: input.Headless,
	}).Get(ctx, &session)
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = "Failed to initialize browser: " + err.Error()
		record(ctx, &result, startTime)
		return result, nil
	}

	defer func() {
		// Cleanup runs even when the workflow was canceled
		cleanupCtx, _ := workflow.NewDisconnectedContext(ctx)
		_ = workflow.ExecuteActivity(cleanupCtx, "CloseBrowserActivity", session.SessionID).Get(cleanupCtx, nil)
	}()

	for i, cp := range v.Checkpoints {
		logger.Info("Executing checkpoint", "sequence", i+1, "name", cp.Name)

		var cpResult models.CheckpointResult
		err := workflow.ExecuteActivity(ctx, "ExecuteCheckpointActivity", CheckpointInput{
			SessionID:  session.SessionID,
			RunID:      input.RunID,
			Verifier:   v.Name,
			Checkpoint: cp.Name,
			SequenceID: i + 1,
		}).Get(ctx, &cpResult)

		if temporal.IsCanceledError(err) {
			result.Status = models.StatusCanceled
			result.ErrorMessage = "Canceled during checkpoint " + cp.Name
			break
		}

		cpResult.RunID = input.RunID
		cpResult.Name = cp.Name
		cpResult.SequenceID = i + 1
		cpResult.Lenient = cp.Lenient
		if err != nil {
			cpResult.Status = models.StatusFailed
			cpResult.ErrorMessage = err.Error()
		}
		if cpResult.Defect != "" {
			result.Defects = append(result.Defects, cpResult.Defect)
		}

		if cpResult.Status == models.StatusSuccess {
			result.Checkpoints = append(result.Checkpoints, cpResult)
			continue
		}

		if cp.Lenient {
			logger.Warn("Lenient checkpoint failed, continuing", "name", cp.Name, "error", cpResult.ErrorMessage)
			cpResult.Status = models.StatusTolerant
			if cp.FallbackScreenshot != "" {
				var path string
				err := workflow.ExecuteActivity(ctx, "TakeScreenshotActivity", ScreenshotInput{
					SessionID: session.SessionID,
					RunID:     input.RunID,
					Filename:  cp.FallbackScreenshot,
				}).Get(ctx, &path)
				if err != nil {
					logger.Warn("Fallback screenshot failed", "name", cp.Name, "error", err)
				}
				cpResult.ScreenshotPath = path
			}
			result.Checkpoints = append(result.Checkpoints, cpResult)
			continue
		}

		result.Checkpoints = append(result.Checkpoints, cpResult)
		result.Checkpoints = append(result.Checkpoints, skipped(input.RunID, v.Checkpoints, i+1)...)
		result.Status = models.StatusFailed
		result.ErrorMessage = fmt.Sprintf("checkpoint %s failed: %s", cp.Name, cpResult.ErrorMessage)
		break
	}

	if result.Status == models.StatusRunning {
		result.Status = models.StatusSuccess
	}

	record(ctx, &result, startTime)
	logger.Info("Workflow completed", "status", result.Status, "duration", result.TotalDuration, "defects", len(result.Defects))
	return result, nil
}

// skipped marks the checkpoints from index from on as never reached
func skipped(runID string, checkpoints []verify.Checkpoint, from int) []models.CheckpointResult {
	out := make([]models.CheckpointResult, 0, len(checkpoints)-from)
	for j := from; j < len(checkpoints); j++ {
		out = append(out, models.CheckpointResult{
			RunID:      runID,
			Name:       checkpoints[j].Name,
			SequenceID: j + 1,
			Status:     models.StatusSkipped,
			Lenient:    checkpoints[j].Lenient,
		})
	}
	return out
}

// record stamps the duration and persists the result; persistence failures
// are logged, not returned
func record(ctx workflow.Context, result *models.WorkflowResult, startTime time.Time) {
	result.TotalDuration = workflow.Now(ctx).Sub(startTime).Milliseconds()

	recordCtx, _ := workflow.NewDisconnectedContext(ctx)
	if err := workflow.ExecuteActivity(recordCtx, "RecordResultActivity", *result).Get(recordCtx, nil); err != nil {
		workflow.GetLogger(ctx).Warn("Failed to record result", "runID", result.RunID, "error", err)
	}
}

// BrowserSession holds browser session information
type BrowserSession struct {
	SessionID string `json:"session_id"`
}

// BrowserInitInput is the input for browser initialization
type BrowserInitInput struct {
	RunID    string `json:"run_id"`
	Headless bool   `json:"headless"`
}

// CheckpointInput is the input for executing one checkpoint
type CheckpointInput struct {
	SessionID  string `json:"session_id"`
	RunID      string `json:"run_id"`
	Verifier   string `json:"verifier"`
	Checkpoint string `json:"checkpoint"`
	SequenceID int    `json:"sequence_id"`
}

// ScreenshotInput is the input for taking a screenshot
type ScreenshotInput struct {
	SessionID string `json:"session_id"`
	RunID     string `json:"run_id"`
	Filename  string `json:"filename"`
}
