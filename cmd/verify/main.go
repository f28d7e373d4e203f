package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
	"dev/bravebird/clinic-ui-verify/pkg/config"
	"dev/bravebird/clinic-ui-verify/pkg/fixture"
	"dev/bravebird/clinic-ui-verify/pkg/logger"
	"dev/bravebird/clinic-ui-verify/pkg/verify"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(&flags{}).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// flags override values loaded from clinicv.yaml and CLINICV_* variables
type flags struct {
	cfgPath       string
	baseURL       string
	screenshotDir string
	deleteTitle   string
	timeout       time.Duration
	headed        bool
	logLevel      string
	jsonOut       bool
}

func newRootCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "verify",
		Short:         "Clinic UI verification",
		Long:          `Drives the clinic web application through a headless browser and captures screenshots at checkpoints`,
		SilenceUsage: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.cfgPath, "cfg", "c", "", "yaml configuration file")
	pf.StringVar(&f.baseURL, "base-url", "", "root URL of the clinic application")
	pf.StringVar(&f.screenshotDir, "screenshot-dir", "", "directory screenshots are written to")
	pf.StringVar(&f.deleteTitle, "delete-title", "", "title of the delete control of the created batch")
	pf.DurationVar(&f.timeout, "timeout", 0, "default wait timeout")
	pf.BoolVar(&f.headed, "headed", false, "show the browser window")
	pf.StringVar(&f.logLevel, "log-level", "", "debug, info, warn or error")
	pf.BoolVar(&f.jsonOut, "json", false, "print the run result as JSON")

	cmd.AddCommand(
		newVerifierCmd(f, verify.NameClinic, "Log in as clinic staff, record vitals, add and delete a stock batch"),
		newVerifierCmd(f, verify.NameSuperAdmin, "Log in as super-admin and check the dashboard summary"),
		newFixtureCmd(f),
	)
	return cmd
}

func newVerifierCmd(f *flags, name, short string) *cobra.Command {
	return &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log)
			defer log.Sync()

			return runVerifier(cmd.Context(), cfg, name, f.jsonOut, log)
		},
	}
}

func newFixtureCmd(f *flags) *cobra.Command {
	var addr string
	var seed bool

	cmd := &cobra.Command{
		Use:   "fixture",
		Short: "Serve the in-memory clinic application for dry runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := f.load()
			if err != nil {
				return err
			}
			log := logger.New(cfg.Log)
			defer log.Sync()

			opts := fixture.DefaultOptions()
			opts.Clinic = fixture.Login{Email: cfg.Verify.Clinic.Email, Password: cfg.Verify.Clinic.Password}
			opts.SuperAdmin = fixture.Login{Email: cfg.Verify.SuperAdmin.Email, Password: cfg.Verify.SuperAdmin.Password}
			if seed {
				opts.Medicines = []fixture.Medicine{{Name: cfg.Verify.MedicineName, Manufacturer: cfg.Verify.Manufacturer}}
				opts.Suppliers = []fixture.Supplier{{
					Name:          cfg.Verify.Supplier.Name,
					ContactPerson: cfg.Verify.Supplier.ContactPerson,
					Email:         cfg.Verify.Supplier.Email,
					Phone:         cfg.Verify.Supplier.Phone,
				}}
			}

			server := &http.Server{
				Addr:         addr,
				Handler:      fixture.New(opts, log).Handler(),
				ReadTimeout:  15 * time.Second,
				WriteTimeout: 15 * time.Second,
				IdleTimeout:  60 * time.Second,
			}

			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				server.Shutdown(ctx)
			}()

			log.Info("Fixture listening", zap.String("addr", addr), zap.Bool("seeded", seed))
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", ":3000", "listen address")
	cmd.Flags().BoolVar(&seed, "seed", false, "seed a medicine and a supplier so the creation branches are skipped")
	return cmd
}

// load reads the configuration and applies the command line overrides
func (f *flags) load() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if f.cfgPath != "" {
		cfg, err = config.LoadFile(f.cfgPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	f.apply(cfg)
	return cfg, nil
}

func (f *flags) apply(cfg *config.Config) {
	if f.baseURL != "" {
		cfg.Verify.BaseURL = f.baseURL
	}
	if f.screenshotDir != "" {
		cfg.Verify.ScreenshotDir = f.screenshotDir
	}
	if f.deleteTitle != "" {
		cfg.Verify.DeleteTitle = f.deleteTitle
	}
	if f.timeout > 0 {
		cfg.Verify.Timeout = f.timeout
	}
	if f.headed {
		cfg.Browser.Headless = false
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
}

func runVerifier(ctx context.Context, cfg *config.Config, name string, jsonOut bool, log *zap.Logger) error {
	v, err := verify.Lookup(name)
	if err != nil {
		return err
	}

	session, err := browser.Launch(cfg.Browser)
	if err != nil {
		return err
	}
	defer session.Close()

	session.OnConsole(func(text string) {
		log.Info("CONSOLE", zap.String("text", text))
	})

	runner := &verify.Runner{Page: session, Config: cfg.Verify, Log: log}
	result, runErr := runner.Run(ctx, v)

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		for _, cp := range result.Checkpoints {
			fmt.Printf("%2d  %-22s %-8s %s\n", cp.SequenceID, cp.Name, cp.Status, cp.ScreenshotPath)
		}
		for _, defect := range result.Defects {
			fmt.Printf("defect: %s\n", defect)
		}
	}
	return runErr
}
