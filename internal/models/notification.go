package models

import "slices"

// NotificationType tells the feed how to render and route a notification.
type NotificationType string

const (
	NotificationMenu        NotificationType = "menu"
	NotificationOrder       NotificationType = "order"
	NotificationOrderUpdate NotificationType = "order_update"
)

// Notification is a record in one owner's notification collection.
type Notification struct {
	ID          string           `json:"id"`
	Type        NotificationType `json:"type"`
	Title       string           `json:"title"`
	Message     string           `json:"message"`
	OrderID     string           `json:"orderId,omitempty"`
	MenuID      string           `json:"menuId,omitempty"`
	UserID      string           `json:"userId,omitempty"`
	OrderStatus OrderStatus      `json:"orderStatus,omitempty"`
	Total       int              `json:"total,omitempty"`
	IsRead      bool             `json:"isRead"`
	CreatedAt   int64            `json:"createdAt"`
}

// IsOrderRelated reports whether n belongs in a "My Orders" view.
func (n Notification) IsOrderRelated() bool {
	return n.Type == NotificationOrder || n.Type == NotificationOrderUpdate
}

// SortNewestFirst orders notifications by creation time, newest first.
// Records with equal timestamps keep their relative order.
func SortNewestFirst(list []Notification) {
	slices.SortStableFunc(list, func(a, b Notification) int {
		switch {
		case a.CreatedAt > b.CreatedAt:
			return -1
		case a.CreatedAt < b.CreatedAt:
			return 1
		default:
			return 0
		}
	})
}

// FilterOrders keeps only order and order_update notifications.
func FilterOrders(list []Notification) []Notification {
	out := make([]Notification, 0, len(list))
	for _, n := range list {
		if n.IsOrderRelated() {
			out = append(out, n)
		}
	}
	return out
}
