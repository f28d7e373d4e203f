// Package verify holds the clinic and super-admin UI verifiers: ordered
// checkpoints that drive the application under test and capture screenshots.
package verify

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
	"dev/bravebird/clinic-ui-verify/pkg/models"
)

// Page is the part of a browser session the checkpoints drive
type Page interface {
	Navigate(ctx context.Context, url string) error
	Fill(ctx context.Context, loc browser.Locator, value string) error
	Click(ctx context.Context, loc browser.Locator) error
	SelectIndex(ctx context.Context, loc browser.Locator, index int) error
	Count(ctx context.Context, loc browser.Locator) (int, error)
	WaitURL(ctx context.Context, url string) error
	WaitText(ctx context.Context, text string) error
	WaitTextGone(ctx context.Context, text string) error
	Screenshot(ctx context.Context, path string) error
}

// Env is what a checkpoint runs against
type Env struct {
	Page   Page
	Config Config
	Log    *zap.Logger

	defects []string
}

// NewEnv creates an environment; a nil logger discards output
func NewEnv(page Page, cfg Config, log *zap.Logger) *Env {
	if log == nil {
		log = zap.NewNop()
	}
	return &Env{Page: page, Config: cfg, Log: log}
}

// Defect records a problem with the verifier itself, as opposed to the
// application under test
func (e *Env) Defect(err error) {
	e.Log.Warn("verifier defect", zap.Error(err))
	e.defects = append(e.defects, err.Error())
}

// Defects returns the defects recorded so far
func (e *Env) Defects() []string {
	return e.defects
}

// within bounds ctx by d, or by the default timeout when d is zero
func (e *Env) within(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		d = e.Config.Timeout
	}
	return context.WithTimeout(ctx, d)
}

// Checkpoint is one step of a verifier
type Checkpoint struct {
	Name string
	// Lenient checkpoints log their failure, capture FallbackScreenshot and
	// let the run continue. Any other failure aborts the run.
	Lenient            bool
	Screenshot         string
	FallbackScreenshot string
	Run                func(ctx context.Context, env *Env) error
}

// Verifier is an ordered list of checkpoints
type Verifier struct {
	Name        string
	Checkpoints []Checkpoint
}

// Info describes the verifier for listings
func (v Verifier) Info() models.VerifierInfo {
	info := models.VerifierInfo{Name: v.Name}
	for _, cp := range v.Checkpoints {
		info.Checkpoints = append(info.Checkpoints, cp.Name)
		if cp.Lenient {
			info.Lenient = append(info.Lenient, cp.Name)
		}
	}
	return info
}

// Verifier names
const (
	NameClinic     = "clinic"
	NameSuperAdmin = "superadmin"
)

// ErrUnknownVerifier is returned by Lookup for names that are not registered
var ErrUnknownVerifier = errors.New("unknown verifier")

var registry = map[string]func() Verifier{
	NameClinic:     Clinic,
	NameSuperAdmin: SuperAdmin,
}

// Lookup returns the verifier registered under name
func Lookup(name string) (Verifier, error) {
	build, ok := registry[strings.ToLower(name)]
	if !ok {
		return Verifier{}, fmt.Errorf("%w: %s", ErrUnknownVerifier, name)
	}
	return build(), nil
}

// Names lists the registered verifiers
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckpointError reports the checkpoint that aborted a run
type CheckpointError struct {
	Verifier   string
	Checkpoint string
	Err        error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("%s: checkpoint %s failed: %v", e.Verifier, e.Checkpoint, e.Err)
}

func (e *CheckpointError) Unwrap() error {
	return e.Err
}

// LocatorDefectError reports a locator literal that cannot match the
// element it is meant to find
type LocatorDefectError struct {
	Locator  string
	Expected string
}

func (e *LocatorDefectError) Error() string {
	return fmt.Sprintf("locator %q does not contain %q as rendered by the application", e.Locator, e.Expected)
}

// CheckDeleteTitle flags a delete-control title that does not carry the
// batch number verbatim
func CheckDeleteTitle(title, batchNumber string) error {
	if strings.Contains(title, batchNumber) {
		return nil
	}
	return &LocatorDefectError{Locator: title, Expected: batchNumber}
}
