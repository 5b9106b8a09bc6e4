package dashboard

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/THE-STEAMERS/SmartChainERP/internal/backend"
	"github.com/THE-STEAMERS/SmartChainERP/internal/models"
)

// Employee holds the employee dashboard's view state: the delivery orders
// assigned to one employee, with optimistic local mutations. Mutations are
// never reconciled against a later server read in this layer; that is a
// documented limitation, not a bug.
type Employee struct {
	api *backend.Client
	log *slog.Logger

	mu         sync.Mutex
	employeeID int
	orders     []models.DeliveryOrder
	loading    bool
	lastErr    error
}

func NewEmployee(api *backend.Client, log *slog.Logger) *Employee {
	return &Employee{api: api, log: log}
}

// Load resolves the employee id and fetches their shipments, mapped into
// delivery-order view models. Results are dropped if ctx is cancelled
// before they resolve.
func (e *Employee) Load(ctx context.Context) error {
	e.mu.Lock()
	e.loading = true
	e.lastErr = nil
	e.mu.Unlock()

	id, err := e.api.EmployeeID(ctx)
	if err != nil {
		e.fail(ctx, err)
		return err
	}

	shipments, err := e.api.EmployeeShipments(ctx, id)
	if err != nil {
		e.fail(ctx, err)
		return err
	}

	orders := make([]models.DeliveryOrder, len(shipments))
	for i, s := range shipments {
		orders[i] = mapShipment(s)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if ctx.Err() != nil {
		return ctx.Err()
	}
	e.employeeID = id
	e.orders = orders
	return nil
}

func (e *Employee) fail(ctx context.Context, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.loading = false
	if ctx.Err() != nil {
		return
	}
	e.lastErr = err
	e.log.Warn("employee dashboard load failed", "error", err)
}

// mapShipment derives the view model. Phone, address and items are
// placeholders the backend does not supply yet; cancellation reasons are
// unknown for server-side cancellations.
func mapShipment(s models.Shipment) models.DeliveryOrder {
	order := models.DeliveryOrder{
		OrderID:     fmt.Sprintf("SHIP-%d", s.ShipmentID),
		OrderName:   fmt.Sprintf("Order-%d", s.Order),
		PhoneNumber: "N/A",
		Address:     "N/A",
		Items:       []string{fmt.Sprintf("Order-%d", s.Order)},
		IsDelivered: s.Status == models.StatusDelivered,
		IsCancelled: s.Status == models.StatusCancelled,
	}
	if order.IsCancelled {
		order.CancellationReason = "Unknown"
	}
	return order
}

// MarkDelivered updates the shipment status on the backend, then flips
// the local delivered flag for the matching order.
func (e *Employee) MarkDelivered(ctx context.Context, shipmentID int) error {
	if err := e.api.UpdateShipmentStatus(ctx, shipmentID, models.StatusDelivered); err != nil {
		e.mu.Lock()
		e.lastErr = err
		e.mu.Unlock()
		return err
	}

	orderID := fmt.Sprintf("SHIP-%d", shipmentID)
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.orders {
		if e.orders[i].OrderID == orderID {
			e.orders[i].IsDelivered = true
		}
	}
	return nil
}

// CancelOrder marks an order cancelled locally with the given reason. The
// backend is not told; the original dashboard behaves the same way. A
// missing reason leaves the order untouched.
func (e *Employee) CancelOrder(orderID, reason string) bool {
	if reason == "" {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := range e.orders {
		if e.orders[i].OrderID == orderID {
			e.orders[i].IsCancelled = true
			e.orders[i].CancellationReason = reason
			return true
		}
	}
	return false
}

// EmployeeID returns the resolved employee id, zero until Load succeeds.
func (e *Employee) EmployeeID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.employeeID
}

// Orders returns a copy of the current view state.
func (e *Employee) Orders() []models.DeliveryOrder {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]models.DeliveryOrder, len(e.orders))
	copy(out, e.orders)
	return out
}

// Loading reports whether a Load is in flight.
func (e *Employee) Loading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Err returns the last fetch/mutation error, nil after a clean Load.
func (e *Employee) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// StatusBreakdown counts orders for the delivery-status chart: delivered,
// still pending, cancelled. Cancelled orders are excluded from the other
// two buckets.
func (e *Employee) StatusBreakdown() (delivered, pending, cancelled int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, o := range e.orders {
		switch {
		case o.IsCancelled:
			cancelled++
		case o.IsDelivered:
			delivered++
		default:
			pending++
		}
	}
	return delivered, pending, cancelled
}
