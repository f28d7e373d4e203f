// Package config loads settings for the verifier CLI, the worker and the API
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"dev/bravebird/clinic-ui-verify/pkg/browser"
	"dev/bravebird/clinic-ui-verify/pkg/logger"
	"dev/bravebird/clinic-ui-verify/pkg/verify"
)

// Config holds all application configuration
type Config struct {
	Verify   verify.Config
	Browser  browser.Options
	Log      logger.Config
	Temporal TemporalConfig
	Database DatabaseConfig
	API      APIConfig
}

// TemporalConfig holds the Temporal frontend address and task queue
type TemporalConfig struct {
	HostPort  string
	Namespace string
	TaskQueue string
}

// DatabaseConfig holds the MySQL DSN; empty disables persistence
type DatabaseConfig struct {
	DSN string
}

// APIConfig holds HTTP server settings
type APIConfig struct {
	Port           string
	AllowedOrigins []string
}

// Load reads clinicv.yaml if present and applies CLINICV_* environment
// overrides, e.g. CLINICV_VERIFY_BASE_URL or CLINICV_DATABASE_DSN
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("clinicv")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return load(v)
}

// LoadFile reads settings from an explicit file path
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}
	return load(v)
}

func load(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("CLINICV")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &Config{
		Verify: verify.Config{
			BaseURL:       v.GetString("verify.base_url"),
			ScreenshotDir: v.GetString("verify.screenshot_dir"),
			Clinic: verify.Credentials{
				Email:    v.GetString("verify.clinic.email"),
				Password: v.GetString("verify.clinic.password"),
			},
			SuperAdmin: verify.Credentials{
				Email:    v.GetString("verify.superadmin.email"),
				Password: v.GetString("verify.superadmin.password"),
			},
			BloodPressure: v.GetString("verify.blood_pressure"),
			MedicineName:  v.GetString("verify.medicine_name"),
			Manufacturer:  v.GetString("verify.manufacturer"),
			Supplier: verify.SupplierFields{
				Name:          v.GetString("verify.supplier.name"),
				ContactPerson: v.GetString("verify.supplier.contact_person"),
				Email:         v.GetString("verify.supplier.email"),
				Phone:         v.GetString("verify.supplier.phone"),
			},
			Batch: verify.BatchFields{
				Number:       v.GetString("verify.batch.number"),
				ExpiryDate:   v.GetString("verify.batch.expiry_date"),
				Packs:        v.GetString("verify.batch.packs"),
				UnitsPerPack: v.GetString("verify.batch.units_per_pack"),
				PurchaseRate: v.GetString("verify.batch.purchase_rate"),
				MRP:          v.GetString("verify.batch.mrp"),
			},
			DeleteTitle:       v.GetString("verify.delete_title"),
			Timeout:           v.GetDuration("verify.timeout"),
			NavigationTimeout: v.GetDuration("verify.navigation_timeout"),
			DashboardTimeout:  v.GetDuration("verify.dashboard_timeout"),
		},
		Browser: browser.Options{
			Bin:       v.GetString("browser.bin"),
			Headless:  v.GetBool("browser.headless"),
			NoSandbox: v.GetBool("browser.no_sandbox"),
		},
		Log: logger.Config{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		Temporal: TemporalConfig{
			HostPort:  v.GetString("temporal.host_port"),
			Namespace: v.GetString("temporal.namespace"),
			TaskQueue: v.GetString("temporal.task_queue"),
		},
		Database: DatabaseConfig{
			DSN: v.GetString("database.dsn"),
		},
		API: APIConfig{
			Port:           v.GetString("api.port"),
			AllowedOrigins: v.GetStringSlice("api.allowed_origins"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// setDefaults registers every key so file values and env overrides layer on
// top of the literals the verification scripts always used
func setDefaults(v *viper.Viper) {
	d := verify.DefaultConfig()
	v.SetDefault("verify.base_url", d.BaseURL)
	v.SetDefault("verify.screenshot_dir", d.ScreenshotDir)
	v.SetDefault("verify.clinic.email", d.Clinic.Email)
	v.SetDefault("verify.clinic.password", d.Clinic.Password)
	v.SetDefault("verify.superadmin.email", d.SuperAdmin.Email)
	v.SetDefault("verify.superadmin.password", d.SuperAdmin.Password)
	v.SetDefault("verify.blood_pressure", d.BloodPressure)
	v.SetDefault("verify.medicine_name", d.MedicineName)
	v.SetDefault("verify.manufacturer", d.Manufacturer)
	v.SetDefault("verify.supplier.name", d.Supplier.Name)
	v.SetDefault("verify.supplier.contact_person", d.Supplier.ContactPerson)
	v.SetDefault("verify.supplier.email", d.Supplier.Email)
	v.SetDefault("verify.supplier.phone", d.Supplier.Phone)
	v.SetDefault("verify.batch.number", d.Batch.Number)
	v.SetDefault("verify.batch.expiry_date", d.Batch.ExpiryDate)
	v.SetDefault("verify.batch.packs", d.Batch.Packs)
	v.SetDefault("verify.batch.units_per_pack", d.Batch.UnitsPerPack)
	v.SetDefault("verify.batch.purchase_rate", d.Batch.PurchaseRate)
	v.SetDefault("verify.batch.mrp", d.Batch.MRP)
	v.SetDefault("verify.delete_title", d.DeleteTitle)
	v.SetDefault("verify.timeout", d.Timeout)
	v.SetDefault("verify.navigation_timeout", d.NavigationTimeout)
	v.SetDefault("verify.dashboard_timeout", d.DashboardTimeout)

	b := browser.DefaultOptions()
	v.SetDefault("browser.bin", b.Bin)
	v.SetDefault("browser.headless", b.Headless)
	v.SetDefault("browser.no_sandbox", b.NoSandbox)

	l := logger.DefaultConfig()
	v.SetDefault("log.level", l.Level)
	v.SetDefault("log.format", l.Format)
	v.SetDefault("log.output", l.Output)

	v.SetDefault("temporal.host_port", "localhost:7233")
	v.SetDefault("temporal.namespace", "default")
	v.SetDefault("temporal.task_queue", "clinic-verification")

	v.SetDefault("database.dsn", "")

	v.SetDefault("api.port", "8080")
	v.SetDefault("api.allowed_origins", []string{"*"})
}

func (c *Config) validate() error {
	if c.Verify.BaseURL == "" {
		return fmt.Errorf("verify.base_url is required")
	}
	if c.Verify.Timeout <= 0 {
		return fmt.Errorf("verify.timeout must be positive")
	}
	if c.Verify.NavigationTimeout <= 0 || c.Verify.DashboardTimeout <= 0 {
		return fmt.Errorf("verify.navigation_timeout and verify.dashboard_timeout must be positive")
	}
	if c.Temporal.TaskQueue == "" {
		return fmt.Errorf("temporal.task_queue is required")
	}
	return nil
}
