package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/models"
	"dev/bravebird/clinic-ui-verify/pkg/temporal/workflows"
	"dev/bravebird/clinic-ui-verify/pkg/verify"
)

// Store is the run bookkeeping the handlers read and write
type Store interface {
	CreateRun(ctx context.Context, run *models.VerificationRun) error
	SetTemporalIDs(ctx context.Context, id, workflowID, runID string) error
	GetRun(ctx context.Context, id string) (*models.VerificationRun, error)
	ListRuns(ctx context.Context, verifier string, limit int) ([]models.VerificationRun, error)
	UpdateRunStatus(ctx context.Context, id string, status models.RunStatus, errorMessage string) error
	GetCheckpointResults(ctx context.Context, runID string) ([]models.CheckpointResult, error)
}

// Options are the defaults applied to runs started through the API
type Options struct {
	TaskQueue     string
	BaseURL       string
	ScreenshotDir string
	Headless      bool
	PollInterval  time.Duration
}

// Handlers contains API handlers
type Handlers struct {
	store          Store
	temporalClient client.Client
	opts           Options
	log            *zap.Logger
	upgrader       websocket.Upgrader
}

// NewHandlers creates new API handlers. A nil store disables the run
// endpoints with 503.
func NewHandlers(store Store, temporalClient client.Client, opts Options, log *zap.Logger) *Handlers {
	if opts.TaskQueue == "" {
		opts.TaskQueue = workflows.TaskQueue
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 500 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Handlers{
		store:          store,
		temporalClient: temporalClient,
		opts:           opts,
		log:            log,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Health reports liveness
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==================== Verifier Handlers ====================

// ListVerifiers lists the registered verifiers and their checkpoints
func (h *Handlers) ListVerifiers(w http.ResponseWriter, r *http.Request) {
	infos := make([]models.VerifierInfo, 0, len(verify.Names()))
	for _, name := range verify.Names() {
		v, err := verify.Lookup(name)
		if err != nil {
			continue
		}
		infos = append(infos, v.Info())
	}
	respondJSON(w, http.StatusOK, infos)
}

// RunVerifier starts a verification workflow
func (h *Handlers) RunVerifier(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	name := mux.Vars(r)["name"]

	v, err := verify.Lookup(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	var req models.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	headless := h.opts.Headless
	if req.Headless != nil {
		headless = *req.Headless
	}

	if h.store == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	// Create run record
	runID := uuid.New().String()
	now := time.Now()
	run := &models.VerificationRun{
		ID:        runID,
		Verifier:  v.Name,
		Status:    models.StatusPending,
		BaseURL:   h.opts.BaseURL,
		StartedAt: &now,
	}
	if err := h.store.CreateRun(ctx, run); err != nil {
		http.Error(w, "Failed to create run: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Start Temporal workflow
	input := models.WorkflowInput{
		RunID:    runID,
		Verifier: v.Name,
		Headless: headless,
		Timeout:  req.Timeout,
	}
	workflowOptions := client.StartWorkflowOptions{
		ID:        workflows.WorkflowID(runID),
		TaskQueue: h.opts.TaskQueue,
	}

	we, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflows.VerificationWorkflow, input)
	if err != nil {
		if uerr := h.store.UpdateRunStatus(ctx, runID, models.StatusFailed, err.Error()); uerr != nil {
			h.log.Warn("Failed to mark run failed", zap.String("runID", runID), zap.Error(uerr))
		}
		http.Error(w, "Failed to start workflow: "+err.Error(), http.StatusInternalServerError)
		return
	}

	// Update run with Temporal IDs
	if err := h.store.SetTemporalIDs(ctx, runID, we.GetID(), we.GetRunID()); err != nil {
		h.log.Warn("Failed to store temporal ids", zap.String("runID", runID), zap.Error(err))
	}
	if err := h.store.UpdateRunStatus(ctx, runID, models.StatusRunning, ""); err != nil {
		h.log.Warn("Failed to mark run running", zap.String("runID", runID), zap.Error(err))
	}

	h.log.Info("Verification started", zap.String("runID", runID), zap.String("verifier", v.Name))
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"run_id":               runID,
		"verifier":             v.Name,
		"temporal_workflow_id": we.GetID(),
		"temporal_run_id":      we.GetRunID(),
		"status":               models.StatusRunning,
	})
}

// ==================== Run Handlers ====================

// ListRuns lists recent verification runs
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := h.store.ListRuns(r.Context(), r.URL.Query().Get("verifier"), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	respondJSON(w, http.StatusOK, runs)
}

// GetRun retrieves a run with its checkpoint results. While the run is in
// flight the results come from the workflow's progress query.
func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if h.store == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.store.GetRun(ctx, id)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	if progress, ok := h.progress(ctx, run); ok {
		run.Checkpoints = progress.Checkpoints
	} else {
		results, _ := h.store.GetCheckpointResults(ctx, id)
		run.Checkpoints = results
	}

	respondJSON(w, http.StatusOK, run)
}

// CancelRun cancels a running workflow
func (h *Handlers) CancelRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if h.store == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	run, err := h.store.GetRun(ctx, id)
	if err != nil || run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}
	if run.Status.Terminal() {
		http.Error(w, fmt.Sprintf("Run already %s", run.Status), http.StatusConflict)
		return
	}

	// Cancel Temporal workflow
	if run.TemporalWorkflowID != "" {
		err = h.temporalClient.CancelWorkflow(ctx, run.TemporalWorkflowID, run.TemporalRunID)
		if err != nil {
			http.Error(w, "Failed to cancel workflow: "+err.Error(), http.StatusInternalServerError)
			return
		}
	}

	if err := h.store.UpdateRunStatus(ctx, id, models.StatusCanceled, "Cancelled by user"); err != nil {
		h.log.Warn("Failed to mark run canceled", zap.String("runID", id), zap.Error(err))
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": string(models.StatusCanceled)})
}

// progress queries the workflow of a run that has not finished
func (h *Handlers) progress(ctx context.Context, run *models.VerificationRun) (models.WorkflowResult, bool) {
	var result models.WorkflowResult
	if h.temporalClient == nil || run.Status.Terminal() || run.TemporalWorkflowID == "" {
		return result, false
	}

	resp, err := h.temporalClient.QueryWorkflow(ctx, run.TemporalWorkflowID, run.TemporalRunID, workflows.ProgressQuery)
	if err != nil {
		return result, false
	}
	if err := resp.Get(&result); err != nil {
		return result, false
	}
	return result, true
}

// StreamRunUpdates streams run updates via WebSocket
func (h *Handlers) StreamRunUpdates(w http.ResponseWriter, r *http.Request) {
	runID := mux.Vars(r)["id"]

	if h.store == nil {
		http.Error(w, "Database not available", http.StatusServiceUnavailable)
		return
	}

	if run, err := h.store.GetRun(r.Context(), runID); err != nil || run == nil {
		http.Error(w, "Run not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	// A hijacked request's context outlives the peer, so watch the read side
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(h.opts.PollInterval)
	defer ticker.Stop()

	lastStatus := models.RunStatus("")
	lastCount := -1

	for {
		run, err := h.store.GetRun(ctx, runID)
		if err == nil && run != nil {
			status := run.Status
			var checkpoints []models.CheckpointResult

			// Prefer the workflow's live view, fall back to the stored results
			if progress, ok := h.progress(ctx, run); ok {
				checkpoints = progress.Checkpoints
			} else {
				checkpoints, _ = h.store.GetCheckpointResults(ctx, runID)
			}

			// Send update if status or results changed
			if status != lastStatus || len(checkpoints) != lastCount {
				msg := models.WSMessage{
					Type: "run_update",
					Payload: map[string]interface{}{
						"run_id":      runID,
						"status":      status,
						"checkpoints": checkpoints,
					},
				}
				if err := conn.WriteJSON(msg); err != nil {
					return
				}

				lastStatus = status
				lastCount = len(checkpoints)

				// Close if completed
				if status.Terminal() {
					return
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// ==================== Screenshot Handlers ====================

// ServeScreenshot serves a screenshot taken during a run
func (h *Handlers) ServeScreenshot(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	// Only files directly inside the run's directory
	filePath := filepath.Join(h.opts.ScreenshotDir, filepath.Base(vars["id"]), filepath.Base(vars["filename"]))

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		http.Error(w, "Screenshot not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	http.ServeFile(w, r, filePath)
}

// ==================== Helpers ====================

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
