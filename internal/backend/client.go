package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/THE-STEAMERS/SmartChainERP/internal/auth"
	domainError "github.com/THE-STEAMERS/SmartChainERP/internal/domain/errors"
	"github.com/THE-STEAMERS/SmartChainERP/internal/models"
)

// Client is the typed view of the backend REST API, built on the
// authenticated request client. Paths match the backend contract exactly.
type Client struct {
	http *auth.Client
}

func NewClient(authed *auth.Client) *Client {
	return &Client{http: authed}
}

// EmployeeID resolves the employee record bound to the logged-in user.
func (c *Client) EmployeeID(ctx context.Context) (int, error) {
	var body struct {
		EmployeeID int `json:"employee_id"`
	}
	if err := c.http.DoJSON(ctx, http.MethodGet, "/employee_id/", nil, &body); err != nil {
		return 0, fmt.Errorf("fetch employee id: %w", err)
	}
	return body.EmployeeID, nil
}

// EmployeeShipments lists the shipments assigned to one employee. The
// backend returns a bare array here, not the paginated envelope.
func (c *Client) EmployeeShipments(ctx context.Context, employeeID int) ([]models.Shipment, error) {
	path := "/employee_shipments?employeeId=" + url.QueryEscape(fmt.Sprint(employeeID))
	var shipments []models.Shipment
	if err := c.http.DoJSON(ctx, http.MethodGet, path, nil, &shipments); err != nil {
		return nil, fmt.Errorf("fetch employee shipments: %w", err)
	}
	return shipments, nil
}

// Counts fetches the overview snapshot.
func (c *Client) Counts(ctx context.Context) (models.Counts, error) {
	var counts models.Counts
	if err := c.http.DoJSON(ctx, http.MethodGet, "/count", nil, &counts); err != nil {
		return models.Counts{}, fmt.Errorf("fetch counts: %w", err)
	}
	return counts, nil
}

// Shipments fetches the first page of all shipments.
func (c *Client) Shipments(ctx context.Context) (models.ShipmentPage, error) {
	var page models.ShipmentPage
	if err := c.http.DoJSON(ctx, http.MethodGet, "/shipments/", nil, &page); err != nil {
		return models.ShipmentPage{}, fmt.Errorf("fetch shipments: %w", err)
	}
	return page, nil
}

// AllocateOrders triggers the backend batch allocation. A structured
// "error" field in a failure body is a recoverable allocation failure and
// comes back as an AllocationError; anything else non-2xx is a
// StatusError.
func (c *Client) AllocateOrders(ctx context.Context) error {
	resp, err := c.http.Do(ctx, http.MethodPost, "/allocate-orders/", []byte("{}"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	var body struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)
	if body.Error != "" {
		return &domainError.AllocationError{Reason: body.Error}
	}
	return &domainError.StatusError{StatusCode: resp.StatusCode, Detail: body.Detail}
}

// UpdateShipmentStatus sets a shipment's status on the backend.
func (c *Client) UpdateShipmentStatus(ctx context.Context, shipmentID int, status string) error {
	body := map[string]any{
		"shipment_id": shipmentID,
		"status":      status,
	}
	if err := c.http.DoJSON(ctx, http.MethodPost, "/update_shipment_status/", body, nil); err != nil {
		return fmt.Errorf("update shipment status: %w", err)
	}
	return nil
}
