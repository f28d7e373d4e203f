package models

import (
	"time"
)

// ==================== Run Types ====================

// RunStatus represents the status of a verification run or checkpoint
type RunStatus string

const (
	StatusPending  RunStatus = "pending"
	StatusRunning  RunStatus = "running"
	StatusSuccess  RunStatus = "success"
	StatusFailed   RunStatus = "failed"
	StatusSkipped  RunStatus = "skipped"  // Not reached because an earlier checkpoint aborted
	StatusTolerant RunStatus = "tolerant" // Lenient checkpoint failed, run continued
	StatusCanceled RunStatus = "canceled"
)

// Terminal reports whether no further updates will follow
func (s RunStatus) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// VerificationRun represents a single execution of a verifier
type VerificationRun struct {
	ID                 string     `json:"id" db:"id"`
	Verifier           string     `json:"verifier" db:"verifier"`
	TemporalRunID      string     `json:"temporal_run_id" db:"temporal_run_id"`
	TemporalWorkflowID string     `json:"temporal_workflow_id" db:"temporal_workflow_id"`
	Status             RunStatus  `json:"status" db:"status"`
	BaseURL            string     `json:"base_url" db:"base_url"`
	StartedAt          *time.Time `json:"started_at" db:"started_at"`
	CompletedAt        *time.Time `json:"completed_at" db:"completed_at"`
	ErrorMessage       string     `json:"error_message,omitempty" db:"error_message"`

	// Computed fields
	Checkpoints []CheckpointResult `json:"checkpoints,omitempty"`
}

// CheckpointResult represents the outcome of one checkpoint
type CheckpointResult struct {
	RunID          string     `json:"run_id" db:"run_id"`
	Name           string     `json:"name" db:"name"`
	SequenceID     int        `json:"sequence_id" db:"sequence_id"`
	Status         RunStatus  `json:"status" db:"status"`
	Lenient        bool       `json:"lenient" db:"lenient"`
	ScreenshotPath string     `json:"screenshot_path,omitempty" db:"screenshot_path"`
	ErrorMessage   string     `json:"error_message,omitempty" db:"error_message"`
	Defect         string     `json:"defect,omitempty" db:"defect"`
	ExecutedAt     *time.Time `json:"executed_at" db:"executed_at"`
	Duration       int64      `json:"duration_ms,omitempty" db:"duration_ms"`
}

// ==================== Workflow Types ====================

// WorkflowInput represents input for running a verifier on the worker
type WorkflowInput struct {
	RunID    string `json:"run_id"`
	Verifier string `json:"verifier"`
	Headless bool   `json:"headless"`
	// Timeout bounds each checkpoint activity, in seconds
	Timeout int `json:"timeout_seconds"`
}

// WorkflowResult represents the result of a verifier run
type WorkflowResult struct {
	RunID         string             `json:"run_id"`
	Verifier      string             `json:"verifier"`
	Status        RunStatus          `json:"status"`
	Checkpoints   []CheckpointResult `json:"checkpoints"`
	Defects       []string           `json:"defects,omitempty"`
	TotalDuration int64              `json:"total_duration_ms"`
	ErrorMessage  string             `json:"error_message,omitempty"`
}

// ==================== API Request/Response Types ====================

// ExecuteRequest represents a request to run a verifier
type ExecuteRequest struct {
	Headless *bool `json:"headless,omitempty"`
	Timeout  int   `json:"timeout_seconds,omitempty"`
}

// VerifierInfo describes a verifier and its checkpoints
type VerifierInfo struct {
	Name        string   `json:"name"`
	Checkpoints []string `json:"checkpoints"`
	Lenient     []string `json:"lenient,omitempty"`
}

// ==================== WebSocket Message Types ====================

// WSMessage represents a WebSocket message for real-time updates
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
