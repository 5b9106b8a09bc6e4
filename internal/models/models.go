package models

// Shipment is the backend's shipment record as served by /shipments/ and
// /employee_shipments. The backend owns it; everything here is a cached,
// possibly stale projection.
type Shipment struct {
	ShipmentID   int    `json:"shipment_id"`
	ShipmentDate string `json:"shipment_date"`
	Status       string `json:"status"`
	Order        int    `json:"order"`
	Employee     int    `json:"employee"`
}

// Shipment statuses as the backend emits them.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusInTransit  = "in_transit"
	StatusDelivered  = "delivered"
	StatusFailed     = "failed"
	StatusCancelled  = "cancelled"
)

// ShipmentPage is the paginated envelope returned by /shipments/.
type ShipmentPage struct {
	Count    int        `json:"count"`
	Next     *string    `json:"next"`
	Previous *string    `json:"previous"`
	Results  []Shipment `json:"results"`
}

// Counts is the overview snapshot from /count/. Each poll fully replaces
// the previous snapshot.
type Counts struct {
	OrdersPlaced       int `json:"orders_placed"`
	PendingOrders      int `json:"pending_orders"`
	EmployeesAvailable int `json:"employees_available"`
	RetailersAvailable int `json:"retailers_available"`
}

// DeliveryOrder is the employee dashboard's view of a shipment. Phone,
// address and items are "N/A" placeholders: the backend does not supply
// them yet. That gap is documented, not papered over.
type DeliveryOrder struct {
	OrderID            string
	OrderName          string
	PhoneNumber        string
	Address            string
	Items              []string
	IsDelivered        bool
	IsCancelled        bool
	CancellationReason string
}
