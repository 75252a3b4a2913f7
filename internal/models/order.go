package models

import "fmt"

// OrderStatus is the lifecycle stage of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusPreparing OrderStatus = "Preparing"
	StatusReady     OrderStatus = "Ready"
	StatusCompleted OrderStatus = "Completed"
)

var statusRank = map[OrderStatus]int{
	StatusPending:   0,
	StatusPreparing: 1,
	StatusReady:     2,
	StatusCompleted: 3,
}

// Rank returns the position of s in the lifecycle, or -1 when s is unknown.
func (s OrderStatus) Rank() int {
	r, ok := statusRank[s]
	if !ok {
		return -1
	}
	return r
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool { return s.Rank() >= 0 }

// CanAdvanceTo reports whether an order in s may move to next.
// Skipping forward is allowed; staying put or moving back is not.
func (s OrderStatus) CanAdvanceTo(next OrderStatus) bool {
	if next == StatusPending || !next.Valid() {
		return false
	}
	current := s
	if current == "" {
		current = StatusPending
	}
	return next.Rank() > current.Rank()
}

// ParseOrderStatus accepts the exact status names.
func ParseOrderStatus(raw string) (OrderStatus, error) {
	s := OrderStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("invalid order status: %s", raw)
	}
	return s, nil
}

// Order is not stored on its own; it is rebuilt from the café-side order notification.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"userId"`
	Total          int         `json:"total"`
	Status         OrderStatus `json:"status"`
	NotificationID string      `json:"notificationId"`
	CreatedAt      int64       `json:"createdAt"`
}

// OrderFromNotification rebuilds the order an order notification describes.
func OrderFromNotification(n Notification) (Order, bool) {
	if n.Type != NotificationOrder || n.OrderID == "" {
		return Order{}, false
	}
	status := n.OrderStatus
	if status == "" {
		status = StatusPending
	}
	return Order{
		ID:             n.OrderID,
		UserID:         n.UserID,
		Total:          n.Total,
		Status:         status,
		NotificationID: n.ID,
		CreatedAt:      n.CreatedAt,
	}, true
}

// OrderEvent is published to the message broker when an order changes.
type OrderEvent struct {
	Type      string      `json:"type"`
	OrderID   string      `json:"orderId"`
	UserID    string      `json:"userId"`
	Status    OrderStatus `json:"status"`
	Total     int         `json:"total,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

const (
	EventOrderPlaced        = "order.placed"
	EventOrderStatusChanged = "order.status_changed"
)
