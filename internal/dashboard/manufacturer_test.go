package dashboard

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"testing"
	"time"

	"github.com/THE-STEAMERS/SmartChainERP/internal/logging"
	"github.com/THE-STEAMERS/SmartChainERP/internal/models"
	"github.com/THE-STEAMERS/SmartChainERP/internal/notify"
)

type manufacturerBackend struct {
	counts        models.Counts
	countsCalls   atomic.Int32
	shipmentCalls atomic.Int32
	allocateBody  string // JSON body for a failed allocation; empty means success
	allocateCode  int
}

func (b *manufacturerBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/count", func(w http.ResponseWriter, r *http.Request) {
		b.countsCalls.Add(1)
		json.NewEncoder(w).Encode(b.counts)
	})
	mux.HandleFunc("/shipments/", func(w http.ResponseWriter, r *http.Request) {
		b.shipmentCalls.Add(1)
		json.NewEncoder(w).Encode(models.ShipmentPage{
			Count: 1,
			Results: []models.Shipment{
				{ShipmentID: 5, Order: 42, Status: models.StatusPending, Employee: 3},
			},
		})
	})
	mux.HandleFunc("/allocate-orders/", func(w http.ResponseWriter, r *http.Request) {
		if b.allocateBody == "" {
			json.NewEncoder(w).Encode(map[string]string{"message": "ok"})
			return
		}
		w.WriteHeader(b.allocateCode)
		w.Write([]byte(b.allocateBody))
	})
	return mux
}

func newManufacturer(t *testing.T, b *manufacturerBackend) (*Manufacturer, *notify.Center) {
	t.Helper()
	center := notify.NewCenter(5 * time.Second)
	t.Cleanup(center.Close)
	m := NewManufacturer(newBackendClient(t, b.handler()), center, time.Hour, time.Hour, logging.New("test"))
	return m, center
}

func TestManufacturerCountsSnapshotReplaced(t *testing.T) {
	b := &manufacturerBackend{counts: models.Counts{
		OrdersPlaced:       20,
		PendingOrders:      4,
		EmployeesAvailable: 6,
		RetailersAvailable: 3,
	}}
	m, _ := newManufacturer(t, b)

	m.refreshCounts(context.Background())
	got := m.Overview()
	want := Overview{TotalOrders: 20, NumStores: 3, DeliveryAgents: 6, PendingOrders: 4}
	if got != want {
		t.Fatalf("overview = %+v, want %+v", got, want)
	}

	// The next poll fully replaces the snapshot, no merge.
	b.counts = models.Counts{OrdersPlaced: 1}
	m.refreshCounts(context.Background())
	got = m.Overview()
	if got != (Overview{TotalOrders: 1}) {
		t.Fatalf("snapshot not replaced wholesale: %+v", got)
	}
}

func TestManufacturerShipmentsRefresh(t *testing.T) {
	b := &manufacturerBackend{}
	m, _ := newManufacturer(t, b)

	m.refreshShipments(context.Background())
	shipments := m.Shipments()
	if len(shipments) != 1 || shipments[0].ShipmentID != 5 {
		t.Fatalf("unexpected shipments: %+v", shipments)
	}
}

func TestAllocateRecoverableFailureIsWarning(t *testing.T) {
	b := &manufacturerBackend{
		allocateBody: `{"error": "no pending orders to allocate"}`,
		allocateCode: http.StatusBadRequest,
	}
	m, _ := newManufacturer(t, b)

	if err := m.AllocateOrders(context.Background()); err != nil {
		t.Fatalf("recoverable allocation failure must not be a hard error: %v", err)
	}
	if m.AllocateWarning() != "no pending orders to allocate" {
		t.Errorf("warning = %q", m.AllocateWarning())
	}
	// No refresh after a failed allocation.
	if b.countsCalls.Load() != 0 || b.shipmentCalls.Load() != 0 {
		t.Errorf("failed allocation must not trigger refresh")
	}
}

func TestAllocateTransportFailureIsError(t *testing.T) {
	b := &manufacturerBackend{
		allocateBody: `{"detail": "boom"}`,
		allocateCode: http.StatusInternalServerError,
	}
	m, _ := newManufacturer(t, b)

	if err := m.AllocateOrders(context.Background()); err == nil {
		t.Fatal("expected a hard error")
	}
	if m.AllocateWarning() != "" {
		t.Errorf("transport failure recorded as warning: %q", m.AllocateWarning())
	}
}

func TestAllocateSuccessRefreshesBothSlices(t *testing.T) {
	b := &manufacturerBackend{counts: models.Counts{OrdersPlaced: 9}}
	m, _ := newManufacturer(t, b)

	if err := m.AllocateOrders(context.Background()); err != nil {
		t.Fatalf("allocate failed: %v", err)
	}
	if b.countsCalls.Load() != 1 || b.shipmentCalls.Load() != 1 {
		t.Errorf("expected one counts + one shipments refresh, got %d/%d",
			b.countsCalls.Load(), b.shipmentCalls.Load())
	}
	if m.Overview().TotalOrders != 9 {
		t.Errorf("overview not refreshed after allocation")
	}
	if m.AllocateWarning() != "" {
		t.Errorf("stale warning kept: %q", m.AllocateWarning())
	}
}

func TestAnomalyBecomesNotification(t *testing.T) {
	m, center := newManufacturer(t, &manufacturerBackend{})

	m.OnAnomaly("anomaly detected: no qr code detected for over 10 seconds!")
	panel := center.Panel()
	if len(panel) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(panel))
	}
	if panel[0].Message != "Anomaly Detected" {
		t.Errorf("message = %q", panel[0].Message)
	}
	if center.Unread() != 1 {
		t.Errorf("unread = %d", center.Unread())
	}
}

func TestConnectedFlag(t *testing.T) {
	m, _ := newManufacturer(t, &manufacturerBackend{})
	if m.Connected() {
		t.Fatal("starts disconnected")
	}
	m.SetConnected(true)
	if !m.Connected() {
		t.Fatal("flag not set")
	}
}

func TestStalePollDroppedAfterStop(t *testing.T) {
	b := &manufacturerBackend{counts: models.Counts{OrdersPlaced: 50}}
	m, _ := newManufacturer(t, b)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m.refreshCounts(ctx)
	if m.Overview() != (Overview{}) {
		t.Fatalf("cancelled refresh mutated state: %+v", m.Overview())
	}
}
