package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/THE-STEAMERS/SmartChainERP/internal/auth"
	"github.com/THE-STEAMERS/SmartChainERP/internal/backend"
	"github.com/THE-STEAMERS/SmartChainERP/internal/logging"
	"github.com/THE-STEAMERS/SmartChainERP/internal/models"
)

func newBackendClient(t *testing.T, handler http.Handler) *backend.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	authed := auth.NewClient(srv.URL, auth.NewMemoryStore(auth.TokenPair{Access: "t", Refresh: "r"}), logging.New("test"))
	return backend.NewClient(authed)
}

func employeeFixture(t *testing.T, statusUpdates *atomic.Int32) *Employee {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/employee_id/", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]int{"employee_id": 7})
	})
	mux.HandleFunc("/employee_shipments", func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("employeeId"); got != "7" {
			t.Errorf("wrong employeeId query: %q", got)
		}
		json.NewEncoder(w).Encode([]models.Shipment{
			{ShipmentID: 1, Order: 10, Status: models.StatusInTransit, Employee: 7},
			{ShipmentID: 2, Order: 11, Status: models.StatusDelivered, Employee: 7},
			{ShipmentID: 3, Order: 12, Status: models.StatusCancelled, Employee: 7},
		})
	})
	mux.HandleFunc("/update_shipment_status/", func(w http.ResponseWriter, r *http.Request) {
		if statusUpdates != nil {
			statusUpdates.Add(1)
		}
		var body struct {
			ShipmentID int    `json:"shipment_id"`
			Status     string `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Status != models.StatusDelivered {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"message": "Shipment status updated successfully"})
	})
	return NewEmployee(newBackendClient(t, mux), logging.New("test"))
}

func TestEmployeeLoadMapsShipments(t *testing.T) {
	e := employeeFixture(t, nil)
	if err := e.Load(context.Background()); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if e.EmployeeID() != 7 {
		t.Errorf("employee id = %d, want 7", e.EmployeeID())
	}
	orders := e.Orders()
	if len(orders) != 3 {
		t.Fatalf("expected 3 orders, got %d", len(orders))
	}

	first := orders[0]
	if first.OrderID != "SHIP-1" || first.OrderName != "Order-10" {
		t.Errorf("wrong mapping: %+v", first)
	}
	// Placeholders the backend does not supply yet.
	if first.PhoneNumber != "N/A" || first.Address != "N/A" {
		t.Errorf("placeholder fields changed: %+v", first)
	}
	if first.IsDelivered || first.IsCancelled {
		t.Errorf("in_transit shipment mapped with wrong flags: %+v", first)
	}
	if !orders[1].IsDelivered {
		t.Errorf("delivered shipment not flagged")
	}
	if !orders[2].IsCancelled || orders[2].CancellationReason != "Unknown" {
		t.Errorf("cancelled shipment mapping wrong: %+v", orders[2])
	}
}

func TestEmployeeCancelOrderIsLocalOnly(t *testing.T) {
	var statusUpdates atomic.Int32
	e := employeeFixture(t, &statusUpdates)
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if ok := e.CancelOrder("SHIP-1", ""); ok {
		t.Fatal("cancel without a reason must be refused")
	}
	if ok := e.CancelOrder("SHIP-1", "Customer unavailable"); !ok {
		t.Fatal("cancel with a reason should apply")
	}

	orders := e.Orders()
	if !orders[0].IsCancelled || orders[0].CancellationReason != "Customer unavailable" {
		t.Errorf("cancel not applied locally: %+v", orders[0])
	}
	// The backend is never told about local cancellations.
	if statusUpdates.Load() != 0 {
		t.Errorf("cancel must not call the backend, saw %d updates", statusUpdates.Load())
	}
}

func TestEmployeeMarkDelivered(t *testing.T) {
	var statusUpdates atomic.Int32
	e := employeeFixture(t, &statusUpdates)
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}

	if err := e.MarkDelivered(context.Background(), 1); err != nil {
		t.Fatalf("mark delivered failed: %v", err)
	}
	if statusUpdates.Load() != 1 {
		t.Errorf("expected 1 status update call, got %d", statusUpdates.Load())
	}
	if !e.Orders()[0].IsDelivered {
		t.Errorf("delivered flag not flipped locally")
	}
}

func TestEmployeeStatusBreakdown(t *testing.T) {
	e := employeeFixture(t, nil)
	if err := e.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	delivered, pending, cancelled := e.StatusBreakdown()
	if delivered != 1 || pending != 1 || cancelled != 1 {
		t.Errorf("breakdown = %d/%d/%d, want 1/1/1", delivered, pending, cancelled)
	}
}

func TestEmployeeLoadSurfacesError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/employee_id/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]string{"error": "Employee not found"})
	})
	e := NewEmployee(newBackendClient(t, mux), logging.New("test"))

	if err := e.Load(context.Background()); err == nil {
		t.Fatal("expected an error")
	}
	if e.Err() == nil {
		t.Error("error not recorded in view state")
	}
	if e.Loading() {
		t.Error("loading flag stuck")
	}
}
