package verify

import (
	"context"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
)

// Super-admin checkpoint names
const (
	CheckpointSuperAdminLogin     = "superadmin-login"
	CheckpointSuperAdminDashboard = "superadmin-dashboard"
)

// SuperAdmin logs in to the super-admin console and checks the dashboard
// renders its clinic totals
func SuperAdmin() Verifier {
	return Verifier{
		Name: NameSuperAdmin,
		Checkpoints: []Checkpoint{
			{Name: CheckpointSuperAdminLogin, Run: superAdminLogin},
			{
				Name:       CheckpointSuperAdminDashboard,
				Screenshot: "superadmin_dashboard.png",
				Run:        superAdminDashboard,
			},
		},
	}
}

func superAdminLogin(ctx context.Context, env *Env) error {
	if err := env.navigate(ctx, "/superadmin/login", 0); err != nil {
		return err
	}
	if err := env.fill(ctx, browser.ByLabel("Email"), env.Config.SuperAdmin.Email); err != nil {
		return err
	}
	if err := env.fill(ctx, browser.ByLabel("Password"), env.Config.SuperAdmin.Password); err != nil {
		return err
	}
	return env.click(ctx, button("Login"))
}

func superAdminDashboard(ctx context.Context, env *Env) error {
	if err := env.waitURL(ctx, "/superadmin/dashboard", 0); err != nil {
		return err
	}
	return env.waitText(ctx, "Total Clinics")
}
