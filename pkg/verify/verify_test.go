package verify

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
	"dev/bravebird/clinic-ui-verify/pkg/models"
)

// fakePage records every call as "<op> <arg>" and fails the ones listed in fail
type fakePage struct {
	calls       []string
	counts      map[string]int
	fail        map[string]error
	screenshots []string
	unbounded   []string // screenshots taken on a context without deadline
	delay       time.Duration
}

func newFakePage() *fakePage {
	return &fakePage{
		counts: map[string]int{
			`role=button[name="Manage Stock"]`:  1,
			`select[name="supplierId"] option`: 2,
		},
		fail: map[string]error{},
	}
}

func (f *fakePage) do(op, arg string) error {
	call := op + " " + arg
	f.calls = append(f.calls, call)
	return f.fail[call]
}

func (f *fakePage) Navigate(_ context.Context, url string) error { return f.do("navigate", url) }
func (f *fakePage) Fill(_ context.Context, loc browser.Locator, value string) error {
	return f.do("fill", loc.String()+"="+value)
}
func (f *fakePage) Click(_ context.Context, loc browser.Locator) error {
	return f.do("click", loc.String())
}
func (f *fakePage) SelectIndex(_ context.Context, loc browser.Locator, index int) error {
	return f.do("select", fmt.Sprintf("%s=%d", loc, index))
}
func (f *fakePage) Count(_ context.Context, loc browser.Locator) (int, error) {
	if err := f.do("count", loc.String()); err != nil {
		return 0, err
	}
	return f.counts[loc.String()], nil
}
func (f *fakePage) WaitURL(_ context.Context, url string) error { return f.do("waitURL", url) }
func (f *fakePage) WaitText(_ context.Context, text string) error {
	time.Sleep(f.delay)
	return f.do("waitText", text)
}
func (f *fakePage) WaitTextGone(_ context.Context, text string) error {
	return f.do("waitTextGone", text)
}
func (f *fakePage) Screenshot(ctx context.Context, path string) error {
	if _, ok := ctx.Deadline(); !ok {
		f.unbounded = append(f.unbounded, filepath.Base(path))
	}
	if err := f.do("screenshot", path); err != nil {
		return err
	}
	f.screenshots = append(f.screenshots, filepath.Base(path))
	return nil
}

func (f *fakePage) count(call string) int {
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.ScreenshotDir = "shots"
	cfg.Timeout = time.Second
	cfg.NavigationTimeout = time.Second
	cfg.DashboardTimeout = time.Second
	return cfg
}

// correctedConfig carries a delete title the application actually renders
func correctedConfig() Config {
	cfg := testConfig()
	cfg.DeleteTitle = "Delete batch " + cfg.Batch.Number
	return cfg
}

func statuses(res models.WorkflowResult) map[string]models.RunStatus {
	m := make(map[string]models.RunStatus, len(res.Checkpoints))
	for _, cp := range res.Checkpoints {
		m[cp.Name] = cp.Status
	}
	return m
}

func TestClinicHappyPath(t *testing.T) {
	page := newFakePage()
	r := &Runner{Page: page, Config: correctedConfig()}

	res, err := r.Run(context.Background(), Clinic())
	require.NoError(t, err)

	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Empty(t, res.Defects)
	require.Len(t, res.Checkpoints, 12)
	for i, cp := range res.Checkpoints {
		assert.Equal(t, i+1, cp.SequenceID)
		assert.Equal(t, models.StatusSuccess, cp.Status, cp.Name)
	}
	assert.Equal(t, []string{"login_page.png", "vitals_added.png", "batch_deleted.png"}, page.screenshots)
	assert.Equal(t, filepath.Join("shots", "batch_deleted.png"), res.Checkpoints[11].ScreenshotPath)

	assert.Zero(t, page.count(`click role=button[name="Add New Medicine"]`))
	assert.Zero(t, page.count("navigate http://localhost:3000/suppliers"))
	assert.Equal(t, 1, page.count(`select label="Supplier"=1`))
	assert.Equal(t, 1, page.count(`click title="Delete batch DELETE_TEST_123" exact`))
	assert.Equal(t, 1, page.count("waitTextGone DELETE_TEST_123"))
	assert.Equal(t, 1, page.count(`fill label="Expiry Date"=2025-12-31`))
}

func TestClinicCallOrder(t *testing.T) {
	page := newFakePage()
	r := &Runner{Page: page, Config: correctedConfig()}

	_, err := r.Run(context.Background(), Clinic())
	require.NoError(t, err)

	want := []string{
		"navigate http://localhost:3000/",
		"screenshot " + filepath.Join("shots", "login_page.png"),
		`fill placeholder="Email address"=test@test.com`,
		`fill placeholder="Password"=password`,
		`click role=button[name="Sign in"]`,
		"waitURL http://localhost:3000/clinic-dashboard",
		"navigate http://localhost:3000/appointments",
		"waitText Appointments",
		`click role=button[name="Add Vitals"]`,
		`fill label="Blood Pressure (systolic/diastolic)"=120/80`,
		`click role=button[name="Save"]`,
		"waitText Vitals Added",
	}
	require.GreaterOrEqual(t, len(page.calls), len(want))
	assert.Equal(t, want, page.calls[:len(want)])
}

func TestClinicDashboardIsLenient(t *testing.T) {
	page := newFakePage()
	page.fail["waitURL http://localhost:3000/clinic-dashboard"] = browser.ErrTimeout
	r := &Runner{Page: page, Config: correctedConfig()}

	res, err := r.Run(context.Background(), Clinic())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)

	dash := res.Checkpoints[2]
	assert.Equal(t, CheckpointClinicDashboard, dash.Name)
	assert.Equal(t, models.StatusTolerant, dash.Status)
	assert.True(t, dash.Lenient)
	assert.Contains(t, dash.ErrorMessage, "timeout")
	assert.Equal(t, filepath.Join("shots", "after_login_attempt.png"), dash.ScreenshotPath)
	assert.Contains(t, page.screenshots, "after_login_attempt.png")
	assert.Equal(t, models.StatusSuccess, statuses(res)[CheckpointAppointments])
}

func TestDefaultDeleteTitleAbortsWithDefect(t *testing.T) {
	page := newFakePage()
	page.fail[`click title="Delete batch DELETE_TEST_.123" exact`] = browser.ErrTimeout
	r := &Runner{Page: page, Config: testConfig()}

	res, err := r.Run(context.Background(), Clinic())
	require.Error(t, err)

	var cpErr *CheckpointError
	require.True(t, errors.As(err, &cpErr))
	assert.Equal(t, NameClinic, cpErr.Verifier)
	assert.Equal(t, CheckpointDeleteBatch, cpErr.Checkpoint)
	assert.ErrorIs(t, err, browser.ErrTimeout)

	assert.Equal(t, models.StatusFailed, res.Status)
	require.Len(t, res.Defects, 1)
	assert.Contains(t, res.Defects[0], "DELETE_TEST_.123")

	got := statuses(res)
	assert.Equal(t, models.StatusSuccess, got[CheckpointAddBatch])
	assert.Equal(t, models.StatusFailed, got[CheckpointDeleteBatch])
	assert.Equal(t, models.StatusSkipped, got[CheckpointBatchDeleted])
	assert.NotEmpty(t, res.Checkpoints[10].Defect)

	assert.Zero(t, page.count(`click role=button[name="Confirm"]`))
	assert.NotContains(t, page.screenshots, "batch_deleted.png")
}

func TestAbortSkipsRemainingCheckpoints(t *testing.T) {
	page := newFakePage()
	page.fail["waitText Appointments"] = browser.ErrTimeout
	r := &Runner{Page: page, Config: correctedConfig()}

	res, err := r.Run(context.Background(), Clinic())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checkpoint appointments failed")

	require.Len(t, res.Checkpoints, 12)
	for _, cp := range res.Checkpoints[4:] {
		assert.Equal(t, models.StatusSkipped, cp.Status, cp.Name)
	}
	assert.Equal(t, 12, res.Checkpoints[11].SequenceID)
	assert.Zero(t, page.count(`click role=button[name="Add Vitals"]`))
}

func TestEnsureMedicineCreatesWhenNoneManageable(t *testing.T) {
	page := newFakePage()
	page.counts[`role=button[name="Manage Stock"]`] = 0
	r := &Runner{Page: page, Config: correctedConfig()}

	_, err := r.Run(context.Background(), Clinic())
	require.NoError(t, err)

	assert.Equal(t, 1, page.count(`click role=button[name="Add New Medicine"]`))
	assert.Equal(t, 1, page.count(`fill label="Name"=Test Medicine`))
	assert.Equal(t, 1, page.count(`fill label="Manufacturer"=Test Manufacturer`))
	assert.Equal(t, 1, page.count("waitText Test Medicine"))
}

func TestEnsureSupplierCreatesWhenOnlyPlaceholder(t *testing.T) {
	page := newFakePage()
	page.counts[`select[name="supplierId"] option`] = 1
	r := &Runner{Page: page, Config: correctedConfig()}

	_, err := r.Run(context.Background(), Clinic())
	require.NoError(t, err)

	assert.Equal(t, 1, page.count("navigate http://localhost:3000/suppliers"))
	assert.Equal(t, 1, page.count(`click role=button[name="Add New Supplier"]`))
	assert.Equal(t, 1, page.count(`fill label="Contact Person"=Test Person`))
	assert.Equal(t, 1, page.count(`fill label="Email"=test@supplier.com`))
	assert.Equal(t, 1, page.count(`fill label="Phone"=1234567890`))
	assert.Equal(t, 1, page.count("waitText Test Supplier"))
	// the stock form is reopened and the batch number typed again
	assert.Equal(t, 2, page.count(`click role=button[name="Manage Stock"]`))
	assert.Equal(t, 2, page.count(`fill label="Batch Number"=DELETE_TEST_123`))
	assert.Equal(t, 2, page.count("navigate http://localhost:3000/medicines"))
}

func TestSuperAdmin(t *testing.T) {
	page := newFakePage()
	r := &Runner{Page: page, Config: testConfig()}

	res, err := r.Run(context.Background(), SuperAdmin())
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, res.Status)
	assert.Equal(t, []string{
		"navigate http://localhost:3000/superadmin/login",
		`fill label="Email"=superadmin@medzillo.com`,
		`fill label="Password"=password`,
		`click role=button[name="Login"]`,
		"waitURL http://localhost:3000/superadmin/dashboard",
		"waitText Total Clinics",
		"screenshot " + filepath.Join("shots", "superadmin_dashboard.png"),
	}, page.calls)
}

func TestSuperAdminDashboardMissing(t *testing.T) {
	page := newFakePage()
	page.fail["waitText Total Clinics"] = browser.ErrTimeout
	r := &Runner{Page: page, Config: testConfig()}

	res, err := r.Run(context.Background(), SuperAdmin())
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, res.Status)
	assert.Empty(t, page.screenshots)
}

func TestScreenshotFailureFailsCheckpoint(t *testing.T) {
	page := newFakePage()
	page.fail["screenshot "+filepath.Join("shots", "login_page.png")] = errors.New("disk full")
	r := &Runner{Page: page, Config: correctedConfig()}

	res, err := r.Run(context.Background(), Clinic())
	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, res.Checkpoints[0].Status)
	assert.Contains(t, res.Checkpoints[0].ErrorMessage, "disk full")
}

func TestRunReportsTotalDuration(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		page := newFakePage()
		page.delay = 20 * time.Millisecond
		r := &Runner{Page: page, Config: correctedConfig()}

		res, err := r.Run(context.Background(), Clinic())
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.TotalDuration, int64(20))
	})

	t.Run("abort", func(t *testing.T) {
		page := newFakePage()
		page.delay = 20 * time.Millisecond
		page.fail[`click title="Delete batch DELETE_TEST_.123" exact`] = browser.ErrTimeout
		r := &Runner{Page: page, Config: testConfig()}

		res, err := r.Run(context.Background(), Clinic())
		require.Error(t, err)
		assert.GreaterOrEqual(t, res.TotalDuration, int64(20))
	})
}

func TestScreenshotsAreBoundedByTimeout(t *testing.T) {
	page := newFakePage()
	page.fail["waitURL http://localhost:3000/clinic-dashboard"] = browser.ErrTimeout
	r := &Runner{Page: page, Config: correctedConfig()}

	_, err := r.Run(context.Background(), Clinic())
	require.NoError(t, err)
	assert.Contains(t, page.screenshots, "after_login_attempt.png")
	assert.Contains(t, page.screenshots, "batch_deleted.png")
	assert.Empty(t, page.unbounded)
}

func TestCheckDeleteTitle(t *testing.T) {
	tests := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"Rendered title", "Delete batch DELETE_TEST_123", false},
		{"Stray dot", "Delete batch DELETE_TEST_.123", true},
		{"Other batch", "Delete batch B-1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckDeleteTitle(tt.title, "DELETE_TEST_123")
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			var defect *LocatorDefectError
			require.True(t, errors.As(err, &defect))
			assert.Equal(t, tt.title, defect.Locator)
		})
	}
}

func TestLookup(t *testing.T) {
	assert.Equal(t, []string{NameClinic, NameSuperAdmin}, Names())

	v, err := Lookup("Clinic")
	require.NoError(t, err)
	info := v.Info()
	assert.Len(t, info.Checkpoints, 12)
	assert.Equal(t, []string{CheckpointClinicDashboard}, info.Lenient)

	v, err = Lookup(NameSuperAdmin)
	require.NoError(t, err)
	assert.Equal(t, []string{CheckpointSuperAdminLogin, CheckpointSuperAdminDashboard}, v.Info().Checkpoints)

	_, err = Lookup("pharmacy")
	assert.ErrorIs(t, err, ErrUnknownVerifier)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "http://localhost:3000/clinic-dashboard", cfg.URL("/clinic-dashboard"))
	assert.Equal(t, "http://localhost:3000/", cfg.URL("/"))
	assert.False(t, strings.Contains(cfg.DeleteTitle, cfg.Batch.Number))

	cfg.BaseURL = "http://clinic.test:8080/"
	assert.Equal(t, "http://clinic.test:8080/medicines", cfg.URL("medicines"))
}
