// Package fixture serves an in-memory stand-in for the clinic application so
// the verifiers can be exercised without the real frontend and backend.
package fixture

import (
	"embed"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

//go:embed static
var staticFiles embed.FS

// Session cookies
const (
	clinicCookie = "clinic_session"
	adminCookie  = "superadmin_session"
)

// Login is an accepted email and password pair
type Login struct {
	Email    string
	Password string
}

// Options seed the fixture
type Options struct {
	Clinic     Login
	SuperAdmin Login
	Patients   []string
	Medicines  []Medicine
	Suppliers  []Supplier
	Clinics    int
}

// DefaultOptions accepts the verifiers' default credentials and seeds two
// appointments and nothing else
func DefaultOptions() Options {
	return Options{
		Clinic:     Login{Email: "test@test.com", Password: "password"},
		SuperAdmin: Login{Email: "superadmin@medzillo.com", Password: "password"},
		Patients:   []string{"Asha Rao", "Vikram Shah"},
		Clinics:    3,
	}
}

// Appointment is a patient visit that can have vitals recorded
type Appointment struct {
	ID            string `json:"id"`
	Patient       string `json:"patient"`
	BloodPressure string `json:"blood_pressure,omitempty"`
	Vitals        bool   `json:"vitals"`
}

// Medicine is an item that stock batches are recorded against
type Medicine struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Manufacturer string `json:"manufacturer"`
}

// Supplier delivers stock batches
type Supplier struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
}

// Batch is a delivery of one medicine
type Batch struct {
	ID           string `json:"id"`
	MedicineID   string `json:"medicine_id"`
	SupplierID   string `json:"supplier_id"`
	Number       string `json:"number"`
	ExpiryDate   string `json:"expiry_date"`
	Packs        int    `json:"packs"`
	UnitsPerPack int    `json:"units_per_pack"`
	PurchaseRate string `json:"purchase_rate"`
	MRP          string `json:"mrp"`
}

// Stats counts the writes the fixture has accepted
type Stats struct {
	VitalsRecorded   int
	MedicinesCreated int
	SuppliersCreated int
	BatchesAdded     int
	BatchesDeleted   int
}

// Server is the in-memory clinic application
type Server struct {
	opts   Options
	log    *zap.Logger
	router *mux.Router

	mu           sync.Mutex
	sessions     map[string]string // token -> cookie name
	appointments []*Appointment
	medicines    []*Medicine
	suppliers    []*Supplier
	batches      []*Batch
	stats        Stats
}

// New creates a fixture seeded from opts
func New(opts Options, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		opts:     opts,
		log:      log,
		sessions: make(map[string]string),
	}

	for _, p := range opts.Patients {
		s.appointments = append(s.appointments, &Appointment{ID: uuid.New().String(), Patient: p})
	}
	for _, m := range opts.Medicines {
		m := m
		if m.ID == "" {
			m.ID = uuid.New().String()
		}
		s.medicines = append(s.medicines, &m)
	}
	for _, sup := range opts.Suppliers {
		sup := sup
		if sup.ID == "" {
			sup.ID = uuid.New().String()
		}
		s.suppliers = append(s.suppliers, &sup)
	}

	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving pages and API
func (s *Server) Handler() http.Handler {
	return s.router
}

// Stats returns the write counters
func (s *Server) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.logRequests)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/login", s.login(s.opts.Clinic, clinicCookie)).Methods("POST")
	api.HandleFunc("/superadmin/login", s.login(s.opts.SuperAdmin, adminCookie)).Methods("POST")
	api.Handle("/superadmin/stats", s.requireSession(adminCookie, http.HandlerFunc(s.superAdminStats))).Methods("GET")

	clinic := api.NewRoute().Subrouter()
	clinic.Use(func(next http.Handler) http.Handler { return s.requireSession(clinicCookie, next) })
	clinic.HandleFunc("/appointments", s.listAppointments).Methods("GET")
	clinic.HandleFunc("/appointments/{id}/vitals", s.addVitals).Methods("POST")
	clinic.HandleFunc("/medicines", s.listMedicines).Methods("GET")
	clinic.HandleFunc("/medicines", s.createMedicine).Methods("POST")
	clinic.HandleFunc("/medicines/{id}/batches", s.listBatches).Methods("GET")
	clinic.HandleFunc("/medicines/{id}/batches", s.addBatch).Methods("POST")
	clinic.HandleFunc("/batches/{id}", s.deleteBatch).Methods("DELETE")
	clinic.HandleFunc("/suppliers", s.listSuppliers).Methods("GET")
	clinic.HandleFunc("/suppliers", s.createSupplier).Methods("POST")

	static, _ := fs.Sub(staticFiles, "static")
	r.PathPrefix("/static/").Handler(http.StripPrefix("/static/", http.FileServer(http.FS(static))))
	r.PathPrefix("/").HandlerFunc(s.shell).Methods("GET")

	return r
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("fixture request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) authenticated(r *http.Request, cookie string) bool {
	c, err := r.Cookie(cookie)
	if err != nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[c.Value] == cookie
}

func (s *Server) requireSession(cookie string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.authenticated(r, cookie) {
			respondError(w, http.StatusUnauthorized, "Not signed in")
			return
		}
		next.ServeHTTP(w, r)
	})
}
