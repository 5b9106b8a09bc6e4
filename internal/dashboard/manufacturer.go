package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/THE-STEAMERS/SmartChainERP/internal/backend"
	domainError "github.com/THE-STEAMERS/SmartChainERP/internal/domain/errors"
	"github.com/THE-STEAMERS/SmartChainERP/internal/models"
	"github.com/THE-STEAMERS/SmartChainERP/internal/notify"
	"github.com/THE-STEAMERS/SmartChainERP/internal/poll"
)

// Overview is the manufacturer's headline card data, derived from the
// counts snapshot.
type Overview struct {
	TotalOrders    int
	NumStores      int
	DeliveryAgents int
	PendingOrders  int
}

// Manufacturer holds the manufacturer dashboard's view state: the polled
// overview counts, the polled shipments table, the allocation action and
// the anomaly notification feed.
type Manufacturer struct {
	api           *backend.Client
	notifications *notify.Center
	log           *slog.Logger

	countsPoller    *poll.Poller
	shipmentsPoller *poll.Poller

	mu              sync.Mutex
	overview        Overview
	countsErr       error
	shipments       []models.Shipment
	shipmentsErr    error
	allocating      bool
	allocateWarning string
	brokerConnected bool
}

func NewManufacturer(api *backend.Client, notifications *notify.Center, countsInterval, shipmentsInterval time.Duration, log *slog.Logger) *Manufacturer {
	m := &Manufacturer{
		api:           api,
		notifications: notifications,
		log:           log,
	}
	m.countsPoller = poll.New(countsInterval, m.refreshCounts)
	m.shipmentsPoller = poll.New(shipmentsInterval, m.refreshShipments)
	return m
}

// Start begins both polling loops.
func (m *Manufacturer) Start(ctx context.Context) {
	m.countsPoller.Start(ctx)
	m.shipmentsPoller.Start(ctx)
}

// Stop tears both loops down; in-flight results are dropped.
func (m *Manufacturer) Stop() {
	m.countsPoller.Stop()
	m.shipmentsPoller.Stop()
}

// refreshCounts replaces the overview snapshot wholesale; there is no
// merge with the previous snapshot.
func (m *Manufacturer) refreshCounts(ctx context.Context) {
	counts, err := m.api.Counts(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.countsErr = err
		m.log.Warn("counts poll failed", "error", err)
		return
	}
	m.countsErr = nil
	m.overview = Overview{
		TotalOrders:    counts.OrdersPlaced,
		NumStores:      counts.RetailersAvailable,
		DeliveryAgents: counts.EmployeesAvailable,
		PendingOrders:  counts.PendingOrders,
	}
}

func (m *Manufacturer) refreshShipments(ctx context.Context) {
	page, err := m.api.Shipments(ctx)

	m.mu.Lock()
	defer m.mu.Unlock()
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		m.shipmentsErr = err
		m.log.Warn("shipments poll failed", "error", err)
		return
	}
	m.shipmentsErr = nil
	m.shipments = page.Results
}

// AllocateOrders triggers the backend batch allocation. A recoverable
// allocation failure is recorded as a warning and not returned as an
// error; on success both data slices are refreshed immediately.
func (m *Manufacturer) AllocateOrders(ctx context.Context) error {
	m.mu.Lock()
	if m.allocating {
		m.mu.Unlock()
		return nil
	}
	m.allocating = true
	m.allocateWarning = ""
	m.mu.Unlock()

	err := m.api.AllocateOrders(ctx)

	m.mu.Lock()
	m.allocating = false
	var allocErr *domainError.AllocationError
	switch {
	case err == nil:
	case errors.As(err, &allocErr):
		m.allocateWarning = allocErr.Reason
		m.mu.Unlock()
		return nil
	default:
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		m.refreshCounts(ctx)
	}()
	go func() {
		defer wg.Done()
		m.refreshShipments(ctx)
	}()
	wg.Wait()
	return nil
}

// OnAnomaly is wired to the feed listener; each matched anomaly becomes
// one notification. The message is fixed, matching the original alert.
func (m *Manufacturer) OnAnomaly(string) {
	m.notifications.Add("Anomaly Detected")
}

// SetConnected records the broker connection flag shown in the header;
// wired to the feed listener's state transitions.
func (m *Manufacturer) SetConnected(connected bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.brokerConnected = connected
}

// Connected reports the broker connection flag.
func (m *Manufacturer) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.brokerConnected
}

// Overview returns the latest counts snapshot projection.
func (m *Manufacturer) Overview() Overview {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.overview
}

// Shipments returns a copy of the current shipments table.
func (m *Manufacturer) Shipments() []models.Shipment {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Shipment, len(m.shipments))
	copy(out, m.shipments)
	return out
}

// AllocateWarning returns the last recoverable allocation failure, empty
// when the last allocation succeeded.
func (m *Manufacturer) AllocateWarning() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allocateWarning
}

// Errs returns the last counts and shipments poll errors.
func (m *Manufacturer) Errs() (countsErr, shipmentsErr error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.countsErr, m.shipmentsErr
}
