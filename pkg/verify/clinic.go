package verify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
)

// Clinic checkpoint names
const (
	CheckpointLoginPage       = "login-page"
	CheckpointSignIn          = "sign-in"
	CheckpointClinicDashboard = "clinic-dashboard"
	CheckpointAppointments    = "appointments"
	CheckpointAddVitals       = "add-vitals"
	CheckpointMedicines       = "medicines"
	CheckpointEnsureMedicine  = "ensure-medicine"
	CheckpointOpenStock       = "open-stock"
	CheckpointEnsureSupplier  = "ensure-supplier"
	CheckpointAddBatch        = "add-batch"
	CheckpointDeleteBatch     = "delete-batch"
	CheckpointBatchDeleted    = "batch-deleted"
)

var (
	supplierOptions = browser.ByCSS(`select[name="supplierId"] option`)
	manageStock     = button("Manage Stock")
)

// Clinic logs in as a clinic user, records vitals, adds a stock batch and
// deletes it again
func Clinic() Verifier {
	return Verifier{
		Name: NameClinic,
		Checkpoints: []Checkpoint{
			{Name: CheckpointLoginPage, Screenshot: "login_page.png", Run: openLoginPage},
			{Name: CheckpointSignIn, Run: signIn},
			{
				Name:               CheckpointClinicDashboard,
				Lenient:            true,
				FallbackScreenshot: "after_login_attempt.png",
				Run:                waitClinicDashboard,
			},
			{Name: CheckpointAppointments, Run: openAppointments},
			{Name: CheckpointAddVitals, Screenshot: "vitals_added.png", Run: addVitals},
			{Name: CheckpointMedicines, Run: openMedicines},
			{Name: CheckpointEnsureMedicine, Run: ensureMedicine},
			{Name: CheckpointOpenStock, Run: openStock},
			{Name: CheckpointEnsureSupplier, Run: ensureSupplier},
			{Name: CheckpointAddBatch, Run: addBatch},
			{Name: CheckpointDeleteBatch, Run: deleteBatch},
			{Name: CheckpointBatchDeleted, Screenshot: "batch_deleted.png", Run: waitBatchDeleted},
		},
	}
}

func openLoginPage(ctx context.Context, env *Env) error {
	return env.navigate(ctx, "/", env.Config.NavigationTimeout)
}

func signIn(ctx context.Context, env *Env) error {
	if err := env.fill(ctx, browser.ByPlaceholder("Email address"), env.Config.Clinic.Email); err != nil {
		return err
	}
	if err := env.fill(ctx, browser.ByPlaceholder("Password"), env.Config.Clinic.Password); err != nil {
		return err
	}
	return env.click(ctx, button("Sign in"))
}

func waitClinicDashboard(ctx context.Context, env *Env) error {
	return env.waitURL(ctx, "/clinic-dashboard", env.Config.DashboardTimeout)
}

func openAppointments(ctx context.Context, env *Env) error {
	if err := env.navigate(ctx, "/appointments", 0); err != nil {
		return err
	}
	return env.waitText(ctx, "Appointments")
}

func addVitals(ctx context.Context, env *Env) error {
	if err := env.click(ctx, button("Add Vitals").Nth(0)); err != nil {
		return err
	}
	if err := env.fill(ctx, browser.ByLabel("Blood Pressure (systolic/diastolic)"), env.Config.BloodPressure); err != nil {
		return err
	}
	if err := env.click(ctx, button("Save")); err != nil {
		return err
	}
	return env.waitText(ctx, "Vitals Added")
}

func openMedicines(ctx context.Context, env *Env) error {
	if err := env.navigate(ctx, "/medicines", 0); err != nil {
		return err
	}
	return env.waitText(ctx, "Medicines")
}

// ensureMedicine creates a medicine only when the list offers nothing to
// manage stock for
func ensureMedicine(ctx context.Context, env *Env) error {
	n, err := env.count(ctx, manageStock)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	env.Log.Info("No medicine with stock controls, creating one", zap.String("name", env.Config.MedicineName))
	if err := env.click(ctx, button("Add New Medicine")); err != nil {
		return err
	}
	if err := env.fill(ctx, browser.ByLabel("Name"), env.Config.MedicineName); err != nil {
		return err
	}
	if err := env.fill(ctx, browser.ByLabel("Manufacturer"), env.Config.Manufacturer); err != nil {
		return err
	}
	if err := env.click(ctx, button("Save")); err != nil {
		return err
	}
	return env.waitText(ctx, env.Config.MedicineName)
}

func openStock(ctx context.Context, env *Env) error {
	if err := env.click(ctx, manageStock.Nth(0)); err != nil {
		return err
	}
	return env.fill(ctx, browser.ByLabel("Batch Number"), env.Config.Batch.Number)
}

// ensureSupplier creates a supplier when the batch form's supplier list holds
// only its placeholder option, then reopens the stock form
func ensureSupplier(ctx context.Context, env *Env) error {
	n, err := env.count(ctx, supplierOptions)
	if err != nil {
		return err
	}
	if n > 1 {
		return nil
	}

	s := env.Config.Supplier
	env.Log.Info("No supplier to select, creating one", zap.String("name", s.Name))
	if err := env.navigate(ctx, "/suppliers", 0); err != nil {
		return err
	}
	if err := env.waitText(ctx, "Suppliers"); err != nil {
		return err
	}
	if err := env.click(ctx, button("Add New Supplier")); err != nil {
		return err
	}
	fields := []struct{ label, value string }{
		{"Name", s.Name},
		{"Contact Person", s.ContactPerson},
		{"Email", s.Email},
		{"Phone", s.Phone},
	}
	for _, f := range fields {
		if err := env.fill(ctx, browser.ByLabel(f.label), f.value); err != nil {
			return err
		}
	}
	if err := env.click(ctx, button("Save")); err != nil {
		return err
	}
	if err := env.waitText(ctx, s.Name); err != nil {
		return err
	}

	if err := openMedicines(ctx, env); err != nil {
		return err
	}
	return openStock(ctx, env)
}

func addBatch(ctx context.Context, env *Env) error {
	b := env.Config.Batch
	if err := env.selectIndex(ctx, browser.ByLabel("Supplier"), 1); err != nil {
		return err
	}
	fields := []struct{ label, value string }{
		{"Expiry Date", b.ExpiryDate},
		{"Number of Packs", b.Packs},
		{"Units per Pack", b.UnitsPerPack},
		{"Purchase Rate / Pack (₹)", b.PurchaseRate},
		{"MRP / Pack (₹)", b.MRP},
	}
	for _, f := range fields {
		if err := env.fill(ctx, browser.ByLabel(f.label), f.value); err != nil {
			return err
		}
	}
	if err := env.click(ctx, button("Add Batch")); err != nil {
		return err
	}
	return env.waitText(ctx, b.Number)
}

// deleteBatch clicks the delete control located by the configured title. A
// title that cannot carry the batch number is recorded as a defect before
// the click is attempted, so the run reports why the locator never resolves.
func deleteBatch(ctx context.Context, env *Env) error {
	title := env.Config.DeleteTitle
	if err := CheckDeleteTitle(title, env.Config.Batch.Number); err != nil {
		env.Defect(err)
	}
	if err := env.click(ctx, browser.ByTitle(title).WithExact()); err != nil {
		return fmt.Errorf("delete batch %s: %w", env.Config.Batch.Number, err)
	}
	return env.click(ctx, button("Confirm"))
}

func waitBatchDeleted(ctx context.Context, env *Env) error {
	return env.waitTextGone(ctx, env.Config.Batch.Number)
}
