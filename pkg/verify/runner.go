package verify

import (
	"context"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/models"
)

// Execute runs one checkpoint and captures its screenshot on success
func Execute(ctx context.Context, env *Env, cp Checkpoint, sequence int) (models.CheckpointResult, error) {
	startTime := time.Now()
	seen := len(env.defects)

	result := models.CheckpointResult{
		Name:       cp.Name,
		SequenceID: sequence,
		Status:     models.StatusRunning,
		Lenient:    cp.Lenient,
		ExecutedAt: &startTime,
	}

	err := cp.Run(ctx, env)
	if len(env.defects) > seen {
		result.Defect = env.defects[len(env.defects)-1]
	}
	if err == nil && cp.Screenshot != "" {
		path := filepath.Join(env.Config.ScreenshotDir, cp.Screenshot)
		if err = screenshot(ctx, env, path); err == nil {
			result.ScreenshotPath = path
		}
	}

	result.Duration = time.Since(startTime).Milliseconds()
	if err != nil {
		result.Status = models.StatusFailed
		result.ErrorMessage = err.Error()
		return result, err
	}

	result.Status = models.StatusSuccess
	return result, nil
}

// Fallback captures the diagnostic screenshot of a failed lenient checkpoint
func Fallback(ctx context.Context, env *Env, cp Checkpoint) (string, error) {
	if cp.FallbackScreenshot == "" {
		return "", nil
	}
	path := filepath.Join(env.Config.ScreenshotDir, cp.FallbackScreenshot)
	if err := screenshot(ctx, env, path); err != nil {
		return "", err
	}
	return path, nil
}

func screenshot(ctx context.Context, env *Env, path string) error {
	ctx, cancel := env.within(ctx, 0)
	defer cancel()
	return env.Page.Screenshot(ctx, path)
}

// Runner executes a verifier in-process against one page
type Runner struct {
	Page   Page
	Config Config
	Log    *zap.Logger
}

// Run executes every checkpoint in order. A failing lenient checkpoint is
// logged and the run continues; any other failure stops the run, marks the
// remaining checkpoints skipped and is returned as a *CheckpointError.
func (r *Runner) Run(ctx context.Context, v Verifier) (result models.WorkflowResult, err error) {
	env := NewEnv(r.Page, r.Config, r.Log)
	log := env.Log.With(zap.String("verifier", v.Name))

	result = models.WorkflowResult{
		Verifier:    v.Name,
		Status:      models.StatusRunning,
		Checkpoints: make([]models.CheckpointResult, 0, len(v.Checkpoints)),
	}
	startTime := time.Now()
	defer func() {
		result.TotalDuration = time.Since(startTime).Milliseconds()
	}()

	log.Info("Starting verifier", zap.Int("checkpoints", len(v.Checkpoints)))

	for i, cp := range v.Checkpoints {
		log.Info("Checkpoint", zap.Int("sequence", i+1), zap.String("name", cp.Name))

		res, err := Execute(ctx, env, cp, i+1)
		if err == nil {
			result.Checkpoints = append(result.Checkpoints, res)
			continue
		}

		if cp.Lenient {
			log.Warn("Lenient checkpoint failed, continuing", zap.String("name", cp.Name), zap.Error(err))
			res.Status = models.StatusTolerant
			path, serr := Fallback(ctx, env, cp)
			if serr != nil {
				log.Warn("Fallback screenshot failed", zap.String("name", cp.Name), zap.Error(serr))
			}
			res.ScreenshotPath = path
			result.Checkpoints = append(result.Checkpoints, res)
			continue
		}

		log.Error("Checkpoint failed, aborting", zap.String("name", cp.Name), zap.Error(err))
		result.Checkpoints = append(result.Checkpoints, res)
		for j, rest := range v.Checkpoints[i+1:] {
			result.Checkpoints = append(result.Checkpoints, models.CheckpointResult{
				Name:       rest.Name,
				SequenceID: i + j + 2,
				Status:     models.StatusSkipped,
				Lenient:    rest.Lenient,
			})
		}
		result.Status = models.StatusFailed
		result.Defects = env.Defects()
		result.ErrorMessage = err.Error()
		return result, &CheckpointError{Verifier: v.Name, Checkpoint: cp.Name, Err: err}
	}

	result.Status = models.StatusSuccess
	result.Defects = env.Defects()
	log.Info("Verifier completed", zap.Int("defects", len(result.Defects)))
	return result, nil
}
