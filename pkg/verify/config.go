package verify

import (
	"strings"
	"time"
)

// Credentials is a login pair
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"-"`
}

// SupplierFields are typed into the supplier form
type SupplierFields struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
}

// BatchFields are typed into the new stock batch form
type BatchFields struct {
	Number       string `json:"number"`
	ExpiryDate   string `json:"expiry_date"` // YYYY-MM-DD
	Packs        string `json:"packs"`
	UnitsPerPack string `json:"units_per_pack"`
	PurchaseRate string `json:"purchase_rate"`
	MRP          string `json:"mrp"`
}

// Config holds every literal the verifiers type, click or wait for
type Config struct {
	BaseURL       string `json:"base_url"`
	ScreenshotDir string `json:"screenshot_dir"`

	Clinic     Credentials `json:"clinic"`
	SuperAdmin Credentials `json:"superadmin"`

	BloodPressure string         `json:"blood_pressure"`
	MedicineName  string         `json:"medicine_name"`
	Manufacturer  string         `json:"manufacturer"`
	Supplier      SupplierFields `json:"supplier"`
	Batch         BatchFields    `json:"batch"`

	// DeleteTitle locates the delete control of the created batch. The
	// default carries a stray "." that the application never renders; see
	// CheckDeleteTitle.
	DeleteTitle string `json:"delete_title"`

	Timeout           time.Duration `json:"timeout"`            // every wait not listed below
	NavigationTimeout time.Duration `json:"navigation_timeout"` // first load of the login page
	DashboardTimeout  time.Duration `json:"dashboard_timeout"`  // lenient post-login wait
}

// DefaultConfig returns the fixed values the verification scripts always used
func DefaultConfig() Config {
	return Config{
		BaseURL:       "http://localhost:3000",
		ScreenshotDir: "jules-scratch/verification",
		Clinic: Credentials{
			Email:    "test@test.com",
			Password: "password",
		},
		SuperAdmin: Credentials{
			Email:    "superadmin@medzillo.com",
			Password: "password",
		},
		BloodPressure: "120/80",
		MedicineName:  "Test Medicine",
		Manufacturer:  "Test Manufacturer",
		Supplier: SupplierFields{
			Name:          "Test Supplier",
			ContactPerson: "Test Person",
			Email:         "test@supplier.com",
			Phone:         "1234567890",
		},
		Batch: BatchFields{
			Number:       "DELETE_TEST_123",
			ExpiryDate:   "2025-12-31",
			Packs:        "10",
			UnitsPerPack: "10",
			PurchaseRate: "100",
			MRP:          "120",
		},
		DeleteTitle:       "Delete batch DELETE_TEST_.123",
		Timeout:           30 * time.Second,
		NavigationTimeout: 60 * time.Second,
		DashboardTimeout:  10 * time.Second,
	}
}

// URL joins a route onto the base URL
func (c Config) URL(route string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(route, "/")
}
