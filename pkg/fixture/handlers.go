package fixture

import (
	"encoding/json"
	"io/fs"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

var bloodPressure = regexp.MustCompile(`^\d{2,3}/\d{2,3}$`)

// shell serves the single page every route renders client-side. Pages other
// than the two login screens redirect to their login when signed out.
func (s *Server) shell(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/" || path == "/superadmin/login":
	case strings.HasPrefix(path, "/superadmin/"):
		if !s.authenticated(r, adminCookie) {
			http.Redirect(w, r, "/superadmin/login", http.StatusFound)
			return
		}
	default:
		if !s.authenticated(r, clinicCookie) {
			http.Redirect(w, r, "/", http.StatusFound)
			return
		}
	}

	page, err := fs.ReadFile(staticFiles, "static/index.html")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(page)
}

func (s *Server) login(accepted Login, cookie string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if !strings.EqualFold(req.Email, accepted.Email) || req.Password != accepted.Password {
			respondError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		token := uuid.New().String()
		s.mu.Lock()
		s.sessions[token] = cookie
		s.mu.Unlock()

		http.SetCookie(w, &http.Cookie{Name: cookie, Value: token, Path: "/", HttpOnly: true})
		s.log.Info("fixture login", zap.String("email", req.Email), zap.String("cookie", cookie))
		respondJSON(w, http.StatusOK, map[string]string{"email": req.Email})
	}
}

func (s *Server) superAdminStats(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]int{"total_clinics": s.opts.Clinics})
}

func (s *Server) listAppointments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, s.appointments)
}

func (s *Server) addVitals(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BloodPressure string `json:"blood_pressure"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !bloodPressure.MatchString(strings.TrimSpace(req.BloodPressure)) {
		respondError(w, http.StatusBadRequest, "Blood pressure must look like 120/80")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id := mux.Vars(r)["id"]
	for _, a := range s.appointments {
		if a.ID == id {
			a.BloodPressure = strings.TrimSpace(req.BloodPressure)
			a.Vitals = true
			s.stats.VitalsRecorded++
			respondJSON(w, http.StatusOK, a)
			return
		}
	}
	respondError(w, http.StatusNotFound, "Appointment not found")
}

func (s *Server) listMedicines(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, s.medicines)
}

func (s *Server) createMedicine(w http.ResponseWriter, r *http.Request) {
	var m Medicine
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	m.ID = uuid.New().String()

	s.mu.Lock()
	s.medicines = append(s.medicines, &m)
	s.stats.MedicinesCreated++
	s.mu.Unlock()

	respondJSON(w, http.StatusCreated, m)
}

func (s *Server) listBatches(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.medicine(id) == nil {
		respondError(w, http.StatusNotFound, "Medicine not found")
		return
	}
	batches := []*Batch{}
	for _, b := range s.batches {
		if b.MedicineID == id {
			batches = append(batches, b)
		}
	}
	respondJSON(w, http.StatusOK, batches)
}

func (s *Server) addBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SupplierID   string `json:"supplier_id"`
		Number       string `json:"number"`
		ExpiryDate   string `json:"expiry_date"`
		Packs        string `json:"packs"`
		UnitsPerPack string `json:"units_per_pack"`
		PurchaseRate string `json:"purchase_rate"`
		MRP          string `json:"mrp"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b := Batch{
		ID:           uuid.New().String(),
		MedicineID:   mux.Vars(r)["id"],
		SupplierID:   req.SupplierID,
		Number:       strings.TrimSpace(req.Number),
		ExpiryDate:   req.ExpiryDate,
		PurchaseRate: req.PurchaseRate,
		MRP:          req.MRP,
	}
	if b.Number == "" {
		respondError(w, http.StatusBadRequest, "Batch number is required")
		return
	}
	if _, err := time.Parse("2006-01-02", b.ExpiryDate); err != nil {
		respondError(w, http.StatusBadRequest, "Expiry date is required")
		return
	}
	var err error
	if b.Packs, err = strconv.Atoi(req.Packs); err != nil || b.Packs <= 0 {
		respondError(w, http.StatusBadRequest, "Number of packs must be a positive number")
		return
	}
	if b.UnitsPerPack, err = strconv.Atoi(req.UnitsPerPack); err != nil || b.UnitsPerPack <= 0 {
		respondError(w, http.StatusBadRequest, "Units per pack must be a positive number")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.medicine(b.MedicineID) == nil {
		respondError(w, http.StatusNotFound, "Medicine not found")
		return
	}
	if s.supplier(b.SupplierID) == nil {
		respondError(w, http.StatusBadRequest, "Select a supplier")
		return
	}
	s.batches = append(s.batches, &b)
	s.stats.BatchesAdded++
	respondJSON(w, http.StatusCreated, b)
}

func (s *Server) deleteBatch(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, b := range s.batches {
		if b.ID == id {
			s.batches = append(s.batches[:i], s.batches[i+1:]...)
			s.stats.BatchesDeleted++
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	respondError(w, http.StatusNotFound, "Batch not found")
}

func (s *Server) listSuppliers(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	respondJSON(w, http.StatusOK, s.suppliers)
}

func (s *Server) createSupplier(w http.ResponseWriter, r *http.Request) {
	var sup Supplier
	if err := json.NewDecoder(r.Body).Decode(&sup); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sup.Name = strings.TrimSpace(sup.Name)
	if sup.Name == "" {
		respondError(w, http.StatusBadRequest, "Name is required")
		return
	}
	sup.ID = uuid.New().String()

	s.mu.Lock()
	s.suppliers = append(s.suppliers, &sup)
	s.stats.SuppliersCreated++
	s.mu.Unlock()

	respondJSON(w, http.StatusCreated, sup)
}

// medicine and supplier expect s.mu to be held
func (s *Server) medicine(id string) *Medicine {
	for _, m := range s.medicines {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Server) supplier(id string) *Supplier {
	for _, sup := range s.suppliers {
		if sup.ID == id {
			return sup
		}
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
