package devserver

import (
	"encoding/json"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/THE-STEAMERS/SmartChainERP/internal/models"
)

// Server is an in-memory stand-in for the real backend, implementing the
// HTTP contract the dashboard client calls. It exists for local
// development and for integration tests; it is not the backend.
type Server struct {
	mu       sync.Mutex
	access   string
	refresh  string
	orders   []order
	counts   fixtureCounts
	shipment []models.Shipment
	nextID   int

	// employeeID is the employee bound to the "logged in" user.
	employeeID int
	employees  []int
}

type order struct {
	ID     int
	Status string
}

type fixtureCounts struct {
	retailers int
}

const pageSize = 10

// New seeds the server with a small fixture set: a few pending orders,
// two employees and one shipment already in transit.
func New() *Server {
	s := &Server{
		access:     uuid.NewString(),
		refresh:    uuid.NewString(),
		employeeID: 1,
		employees:  []int{1, 2},
		counts:     fixtureCounts{retailers: 3},
		nextID:     2,
	}
	s.orders = []order{
		{ID: 101, Status: "pending"},
		{ID: 102, Status: "pending"},
		{ID: 103, Status: "pending"},
	}
	s.shipment = []models.Shipment{
		{ShipmentID: 1, Order: 100, Employee: 1, Status: models.StatusInTransit,
			ShipmentDate: time.Now().UTC().Format(time.RFC3339)},
	}
	return s
}

// Tokens returns the currently valid access and refresh tokens, for
// seeding a client's token store.
func (s *Server) Tokens() (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.access, s.refresh
}

// ExpireAccess invalidates the current access token, forcing clients
// through the refresh exchange on their next request.
func (s *Server) ExpireAccess() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.access = uuid.NewString()
}

// Handler builds the router. All API routes live under /api to match the
// real backend's base URL.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/token/refresh/", s.handleRefresh).Methods(http.MethodPost)

	protected := api.NewRoute().Subrouter()
	protected.Use(s.requireAuth)
	protected.HandleFunc("/employee_id/", s.handleEmployeeID).Methods(http.MethodGet)
	protected.HandleFunc("/employee_shipments", s.handleEmployeeShipments).Methods(http.MethodGet)
	protected.HandleFunc("/count", s.handleCounts).Methods(http.MethodGet)
	protected.HandleFunc("/shipments/", s.handleShipments).Methods(http.MethodGet)
	protected.HandleFunc("/allocate-orders/", s.handleAllocate).Methods(http.MethodPost)
	protected.HandleFunc("/update_shipment_status/", s.handleUpdateStatus).Methods(http.MethodPost)
	return r
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		valid := "Bearer " + s.access
		s.mu.Unlock()
		if r.Header.Get("Authorization") != valid {
			writeJSON(w, http.StatusUnauthorized, map[string]string{
				"detail": "Given token not valid for any token type",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Refresh string `json:"refresh"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "refresh token is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if body.Refresh != s.refresh {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired"})
		return
	}
	s.access = uuid.NewString()
	writeJSON(w, http.StatusOK, map[string]string{"access": s.access})
}

func (s *Server) handleEmployeeID(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]int{"employee_id": s.employeeID})
}

func (s *Server) handleEmployeeShipments(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.URL.Query().Get("employeeId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "employeeId is required"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Shipment{}
	for _, sh := range s.shipment {
		if sh.Employee == id {
			out = append(out, sh)
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCounts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pending := 0
	for _, o := range s.orders {
		if o.Status == "pending" {
			pending++
		}
	}
	writeJSON(w, http.StatusOK, models.Counts{
		OrdersPlaced:       len(s.orders) + len(s.shipment),
		PendingOrders:      pending,
		EmployeesAvailable: len(s.employees),
		RetailersAvailable: s.counts.retailers,
	})
}

func (s *Server) handleShipments(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	page := models.ShipmentPage{Count: len(s.shipment)}
	n := len(s.shipment)
	if n > pageSize {
		n = pageSize
		next := "/api/shipments/?page=2"
		page.Next = &next
	}
	page.Results = append([]models.Shipment{}, s.shipment[:n]...)
	writeJSON(w, http.StatusOK, page)
}

// handleAllocate assigns every pending order to an employee round-robin,
// creating a processing shipment per order. With nothing to allocate it
// answers the structured recoverable error the dashboard shows as a
// warning.
func (s *Server) handleAllocate(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pending []int
	for i, o := range s.orders {
		if o.Status == "pending" {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no pending orders to allocate"})
		return
	}
	if len(s.employees) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no employees available for allocation"})
		return
	}

	for n, idx := range pending {
		s.nextID++
		s.orders[idx].Status = "allocated"
		s.shipment = append(s.shipment, models.Shipment{
			ShipmentID:   s.nextID,
			Order:        s.orders[idx].ID,
			Employee:     s.employees[n%len(s.employees)],
			Status:       models.StatusProcessing,
			ShipmentDate: time.Now().UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Orders allocated and stock status updated successfully",
	})
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ShipmentID int    `json:"shipment_id"`
		Status     string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.ShipmentID == 0 || body.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "shipment_id and status are required"})
		return
	}
	switch body.Status {
	case models.StatusInTransit, models.StatusDelivered, models.StatusFailed:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid status"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.shipment {
		if s.shipment[i].ShipmentID == body.ShipmentID {
			s.shipment[i].Status = body.Status
			writeJSON(w, http.StatusOK, map[string]string{"message": "Shipment status updated successfully"})
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "Shipment not found or unauthorized"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
