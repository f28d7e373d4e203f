package activities

import (
	"context"
	"fmt"
	"path/filepath"

	"go.temporal.io/sdk/activity"
	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
	"dev/bravebird/clinic-ui-verify/pkg/models"
	"dev/bravebird/clinic-ui-verify/pkg/temporal/workflows"
	"dev/bravebird/clinic-ui-verify/pkg/verify"
)

// Recorder persists finished runs
type Recorder interface {
	UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMessage string) error
	SaveCheckpointResults(ctx context.Context, runID string, results []models.CheckpointResult) error
}

// Activities holds activity implementations
type Activities struct {
	Pool    *browser.Pool
	Config  verify.Config
	Browser browser.Options
	// Recorder may be nil, in which case results only live in the workflow history
	Recorder Recorder
	Log      *zap.Logger
}

// NewActivities creates new activities
func NewActivities(cfg verify.Config, opts browser.Options, recorder Recorder, log *zap.Logger) *Activities {
	if log == nil {
		log = zap.NewNop()
	}
	return &Activities{
		Pool:     browser.NewPool(),
		Config:   cfg,
		Browser:  opts,
		Recorder: recorder,
		Log:      log,
	}
}

// screenshotDir keeps each run's screenshots apart
func (a *Activities) screenshotDir(runID string) string {
	if runID == "" {
		return a.Config.ScreenshotDir
	}
	return filepath.Join(a.Config.ScreenshotDir, runID)
}

func (a *Activities) session(id string) (*browser.Session, error) {
	s, ok := a.Pool.Get(id)
	if !ok {
		return nil, fmt.Errorf("browser session not found: %s", id)
	}
	return s, nil
}

// InitializeBrowserActivity initializes a browser session
func (a *Activities) InitializeBrowserActivity(ctx context.Context, input workflows.BrowserInitInput) (workflows.BrowserSession, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Initializing browser session", "headless", input.Headless, "runID", input.RunID)

	opts := a.Browser
	opts.Headless = input.Headless

	s, err := browser.Launch(opts)
	if err != nil {
		return workflows.BrowserSession{}, err
	}

	sessionID := a.Pool.Add(s)
	consoleLog := a.Log.With(zap.String("runID", input.RunID), zap.String("sessionID", sessionID))
	s.OnConsole(func(text string) {
		consoleLog.Info("CONSOLE", zap.String("text", text))
	})

	logger.Info("Browser session created", "sessionID", sessionID)
	return workflows.BrowserSession{SessionID: sessionID}, nil
}

// CloseBrowserActivity closes a browser session
func (a *Activities) CloseBrowserActivity(ctx context.Context, sessionID string) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Closing browser session", "sessionID", sessionID)

	s, ok := a.Pool.Remove(sessionID)
	if !ok {
		return nil // Already closed
	}
	return s.Close()
}

// ExecuteCheckpointActivity runs one checkpoint against the session's page.
// A checkpoint that fails is reported through the result's status so its
// defect and screenshot survive; the error return is kept for problems that
// prevent the checkpoint from running at all.
func (a *Activities) ExecuteCheckpointActivity(ctx context.Context, input workflows.CheckpointInput) (models.CheckpointResult, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Executing checkpoint", "verifier", input.Verifier, "checkpoint", input.Checkpoint, "sequence", input.SequenceID)

	v, err := verify.Lookup(input.Verifier)
	if err != nil {
		return models.CheckpointResult{}, err
	}
	var cp *verify.Checkpoint
	for i := range v.Checkpoints {
		if v.Checkpoints[i].Name == input.Checkpoint {
			cp = &v.Checkpoints[i]
			break
		}
	}
	if cp == nil {
		return models.CheckpointResult{}, fmt.Errorf("verifier %s has no checkpoint %s", input.Verifier, input.Checkpoint)
	}

	s, err := a.session(input.SessionID)
	if err != nil {
		return models.CheckpointResult{}, err
	}

	cfg := a.Config
	cfg.ScreenshotDir = a.screenshotDir(input.RunID)
	env := verify.NewEnv(s, cfg, a.Log.With(zap.String("runID", input.RunID)))

	result, err := verify.Execute(ctx, env, *cp, input.SequenceID)
	result.RunID = input.RunID
	if err != nil {
		logger.Warn("Checkpoint failed", "checkpoint", input.Checkpoint, "error", err)
	}

	activity.RecordHeartbeat(ctx, fmt.Sprintf("Completed checkpoint %d", input.SequenceID))
	return result, nil
}

// TakeScreenshotActivity takes a screenshot
func (a *Activities) TakeScreenshotActivity(ctx context.Context, input workflows.ScreenshotInput) (string, error) {
	logger := activity.GetLogger(ctx)
	logger.Info("Taking screenshot", "sessionID", input.SessionID, "filename", input.Filename)

	s, err := a.session(input.SessionID)
	if err != nil {
		return "", err
	}

	path := filepath.Join(a.screenshotDir(input.RunID), filepath.Base(input.Filename))
	if err := s.Screenshot(ctx, path); err != nil {
		return "", err
	}
	return path, nil
}

// RecordResultActivity stores the final status and checkpoint results
func (a *Activities) RecordResultActivity(ctx context.Context, result models.WorkflowResult) error {
	logger := activity.GetLogger(ctx)
	logger.Info("Recording result", "runID", result.RunID, "status", result.Status)

	if a.Recorder == nil || result.RunID == "" {
		return nil
	}

	if err := a.Recorder.SaveCheckpointResults(ctx, result.RunID, result.Checkpoints); err != nil {
		return fmt.Errorf("failed to save checkpoint results: %w", err)
	}
	if err := a.Recorder.UpdateRunStatus(ctx, result.RunID, result.Status, result.ErrorMessage); err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}
	return nil
}
