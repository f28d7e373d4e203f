package activities

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-rod/rod/lib/launcher"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
	"dev/bravebird/clinic-ui-verify/pkg/fixture"
	"dev/bravebird/clinic-ui-verify/pkg/models"
	"dev/bravebird/clinic-ui-verify/pkg/temporal/workflows"
	"dev/bravebird/clinic-ui-verify/pkg/verify"
)

type fakeRecorder struct {
	status  models.RunStatus
	message string
	results []models.CheckpointResult
	err     error
}

func (f *fakeRecorder) UpdateRunStatus(_ context.Context, _ string, status models.RunStatus, msg string) error {
	f.status, f.message = status, msg
	return f.err
}

func (f *fakeRecorder) SaveCheckpointResults(_ context.Context, _ string, results []models.CheckpointResult) error {
	f.results = results
	return f.err
}

func newEnv(a *Activities) *testsuite.TestActivityEnvironment {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestActivityEnvironment()
	env.RegisterActivity(a)
	return env
}

func TestRecordResultActivity(t *testing.T) {
	rec := &fakeRecorder{}
	a := NewActivities(verify.DefaultConfig(), browser.DefaultOptions(), rec, nil)
	env := newEnv(a)

	result := models.WorkflowResult{
		RunID:        "run-1",
		Status:       models.StatusFailed,
		ErrorMessage: "checkpoint delete-batch failed",
		Checkpoints:  []models.CheckpointResult{{Name: verify.CheckpointLoginPage, Status: models.StatusSuccess}},
	}
	_, err := env.ExecuteActivity(a.RecordResultActivity, result)
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, rec.status)
	assert.Equal(t, "checkpoint delete-batch failed", rec.message)
	assert.Len(t, rec.results, 1)

	rec.err = errors.New("connection refused")
	_, err = env.ExecuteActivity(a.RecordResultActivity, result)
	assert.Error(t, err)
}

func TestRecordResultActivityWithoutRecorder(t *testing.T) {
	a := NewActivities(verify.DefaultConfig(), browser.DefaultOptions(), nil, nil)
	env := newEnv(a)

	_, err := env.ExecuteActivity(a.RecordResultActivity, models.WorkflowResult{RunID: "run-1"})
	assert.NoError(t, err)
}

func TestExecuteCheckpointActivityRejectsBadInput(t *testing.T) {
	a := NewActivities(verify.DefaultConfig(), browser.DefaultOptions(), nil, nil)
	env := newEnv(a)

	tests := []struct {
		name  string
		input workflows.CheckpointInput
		want  string
	}{
		{"unknown verifier", workflows.CheckpointInput{Verifier: "pharmacy", Checkpoint: "x"}, "unknown verifier"},
		{"unknown checkpoint", workflows.CheckpointInput{Verifier: verify.NameClinic, Checkpoint: "x"}, "has no checkpoint x"},
		{"unknown session", workflows.CheckpointInput{SessionID: "gone", Verifier: verify.NameClinic, Checkpoint: verify.CheckpointSignIn}, "browser session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ExecuteActivity(a.ExecuteCheckpointActivity, tt.input)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCloseBrowserActivityIsIdempotent(t *testing.T) {
	a := NewActivities(verify.DefaultConfig(), browser.DefaultOptions(), nil, nil)
	env := newEnv(a)

	_, err := env.ExecuteActivity(a.CloseBrowserActivity, "never-opened")
	assert.NoError(t, err)
}

func TestScreenshotDirPerRun(t *testing.T) {
	cfg := verify.DefaultConfig()
	a := NewActivities(cfg, browser.DefaultOptions(), nil, nil)
	assert.Equal(t, filepath.Join(cfg.ScreenshotDir, "run-1"), a.screenshotDir("run-1"))
	assert.Equal(t, cfg.ScreenshotDir, a.screenshotDir(""))
}

func TestSuperAdminActivitiesAgainstFixture(t *testing.T) {
	if _, has := launcher.LookPath(); !has {
		t.Skip("no local Chromium available")
	}

	app := fixture.New(fixture.DefaultOptions(), nil)
	srv := httptest.NewServer(app.Handler())
	defer srv.Close()

	cfg := verify.DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.ScreenshotDir = t.TempDir()
	cfg.Timeout = 5 * time.Second

	a := NewActivities(cfg, browser.Options{Headless: true, NoSandbox: true}, nil, nil)
	env := newEnv(a)

	val, err := env.ExecuteActivity(a.InitializeBrowserActivity, workflows.BrowserInitInput{RunID: "run-1", Headless: true})
	require.NoError(t, err)
	var session workflows.BrowserSession
	require.NoError(t, val.Get(&session))
	assert.Equal(t, 1, a.Pool.Len())

	for i, name := range []string{verify.CheckpointSuperAdminLogin, verify.CheckpointSuperAdminDashboard} {
		val, err := env.ExecuteActivity(a.ExecuteCheckpointActivity, workflows.CheckpointInput{
			SessionID:  session.SessionID,
			RunID:      "run-1",
			Verifier:   verify.NameSuperAdmin,
			Checkpoint: name,
			SequenceID: i + 1,
		})
		require.NoError(t, err)
		var res models.CheckpointResult
		require.NoError(t, val.Get(&res))
		assert.Equal(t, models.StatusSuccess, res.Status, res.ErrorMessage)
	}

	val, err = env.ExecuteActivity(a.TakeScreenshotActivity, workflows.ScreenshotInput{
		SessionID: session.SessionID,
		RunID:     "run-1",
		Filename:  "extra.png",
	})
	require.NoError(t, err)
	var path string
	require.NoError(t, val.Get(&path))
	assert.Equal(t, filepath.Join(cfg.ScreenshotDir, "run-1", "extra.png"), path)

	_, err = env.ExecuteActivity(a.CloseBrowserActivity, session.SessionID)
	require.NoError(t, err)
	assert.Zero(t, a.Pool.Len())
}
