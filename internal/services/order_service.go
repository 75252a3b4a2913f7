package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/store"
	"smartbite/pkg/metrics"
	"smartbite/pkg/result"

	"github.com/sirupsen/logrus"
	amqp "github.com/streadway/amqp"
)

// Checkout messages shown to the customer.
const (
	MsgLoginToOrder   = "Please log in to place an order"
	MsgCartEmpty      = "Your cart is empty"
	MsgOrderFailed    = "Could not place order, please try again"
	MsgOrderNotLogged = "Order sent to the café but could not be saved to your orders"
	MsgOrderPlaced    = "Order placed successfully!"
)

// CheckoutCart is the cart state checkout reads and clears.
type CheckoutCart interface {
	Lines() []models.CartLine
	ClearCart(ctx context.Context) error
}

// EventPublisher publishes order lifecycle events. Delivery is best effort.
type EventPublisher interface {
	PublishJSON(ctx context.Context, routingKey string, payload any) error
}

// OrderService handles business logic related to orders.
//
// Orders are not stored as their own records. Checkout fans one order out to
// two notification records: the café's (which carries the live status) and the
// customer's. Status changes update the café record in place and append an
// order_update record to the customer's feed.
type OrderService struct {
	notifications repositories.NotificationRepository
	policy        AdminPolicy
	publisher     EventPublisher
	logger        logrus.FieldLogger
	now           func() time.Time
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(notifications repositories.NotificationRepository, policy AdminPolicy, publisher EventPublisher, logger logrus.FieldLogger) *OrderService {
	return &OrderService{
		notifications: notifications,
		policy:        policy,
		publisher:     publisher,
		logger:        logger,
		now:           time.Now,
	}
}

// Checkout places an order for the cart's current lines.
//
// The café record is written first; if that fails nothing is written and the
// cart is kept. If the customer record then fails the café still has the order
// and the cart is kept. The cart is cleared only after both writes succeed.
func (s *OrderService) Checkout(ctx context.Context, userID string, cart CheckoutCart) result.Result[*models.Order] {
	if userID == "" {
		s.logger.Warn("checkout without a signed-in user")
		return result.Reject[*models.Order](result.KindInvalid, MsgLoginToOrder)
	}
	lines := cart.Lines()
	if len(lines) == 0 {
		return result.Reject[*models.Order](result.KindInvalid, MsgCartEmpty)
	}

	totals := models.ComputeTotals(lines)
	now := s.now()
	orderID := models.NewTimeID(now)
	createdAt := now.UnixMilli()
	log := s.logger.WithFields(logrus.Fields{"order_id": orderID, "user_id": userID})

	cafeRecord, err := s.notifications.Push(ctx, s.policy.OwnerID, models.Notification{
		Type:        models.NotificationOrder,
		Title:       "New Order Placed",
		Message:     fmt.Sprintf("Order total: Rs %d from user", totals.Total),
		OrderID:     orderID,
		UserID:      userID,
		OrderStatus: models.StatusPending,
		Total:       totals.Total,
		CreatedAt:   createdAt,
	})
	if err != nil {
		log.WithError(err).Error("failed to notify café of new order")
		metrics.RecordCheckoutFailure("cafe_notification")
		return result.Fail[*models.Order](MsgOrderFailed)
	}
	metrics.RecordNotification(string(models.NotificationOrder))

	_, err = s.notifications.Push(ctx, userID, models.Notification{
		Type:        models.NotificationOrder,
		Title:       "Order Placed",
		Message:     fmt.Sprintf("Your order of Rs %d has been placed", totals.Total),
		OrderID:     orderID,
		OrderStatus: models.StatusPending,
		Total:       totals.Total,
		CreatedAt:   createdAt,
	})
	if err != nil {
		log.WithError(err).WithField("notification_id", cafeRecord.ID).Error("order reached the café but the customer record failed")
		metrics.RecordCheckoutFailure("customer_notification")
		return result.Fail[*models.Order](MsgOrderNotLogged)
	}
	metrics.RecordNotification(string(models.NotificationOrder))

	if err := cart.ClearCart(ctx); err != nil {
		log.WithError(err).Warn("order placed but the cart could not be cleared")
	}

	order, _ := models.OrderFromNotification(cafeRecord)
	metrics.RecordOrderPlaced(order.Total)
	s.publish(ctx, models.OrderEvent{
		Type:      models.EventOrderPlaced,
		OrderID:   order.ID,
		UserID:    userID,
		Status:    order.Status,
		Total:     order.Total,
		Timestamp: createdAt,
	})
	log.WithField("total", order.Total).Info("order placed")
	return result.OK(MsgOrderPlaced, &order)
}

// AdvanceStatus moves the order behind the café notification to target and
// tells the customer. Orders only move forward; skipping stages is allowed.
func (s *OrderService) AdvanceStatus(ctx context.Context, notificationID string, target models.OrderStatus) result.Result[*models.Order] {
	if notificationID == "" {
		return result.Reject[*models.Order](result.KindInvalid, "Notification ID is missing")
	}
	if !target.Valid() || target == models.StatusPending {
		return result.Reject[*models.Order](result.KindInvalid, fmt.Sprintf("Invalid order status: %s", target))
	}

	record, err := s.notifications.Get(ctx, s.policy.OwnerID, notificationID)
	if errors.Is(err, store.ErrNotFound) {
		return result.Reject[*models.Order](result.KindNotFound, "Order not found")
	}
	if err != nil {
		return result.FromError[*models.Order](err, "Failed to update")
	}
	order, ok := models.OrderFromNotification(record)
	if !ok || order.UserID == "" {
		return result.Reject[*models.Order](result.KindInvalid, "Not an order notification")
	}
	if !order.Status.CanAdvanceTo(target) {
		return result.Reject[*models.Order](result.KindConflict, fmt.Sprintf("Order is already %s", order.Status))
	}

	log := s.logger.WithFields(logrus.Fields{"order_id": order.ID, "user_id": order.UserID, "status": target})
	if err := s.notifications.Update(ctx, s.policy.OwnerID, notificationID, map[string]any{"orderStatus": string(target)}); err != nil {
		log.WithError(err).Error("failed to update order status")
		return result.FromError[*models.Order](err, "Failed to update")
	}
	order.Status = target
	metrics.RecordStatusChange(string(target))

	_, err = s.notifications.Push(ctx, order.UserID, models.Notification{
		Type:        models.NotificationOrderUpdate,
		Title:       "Order Update",
		Message:     fmt.Sprintf("Your order is now %s", target),
		OrderID:     order.ID,
		OrderStatus: target,
		CreatedAt:   s.now().UnixMilli(),
	})
	if err != nil {
		log.WithError(err).Error("status changed but the customer could not be notified")
		return result.Fail[*models.Order]("Status updated but the customer could not be notified")
	}
	metrics.RecordNotification(string(models.NotificationOrderUpdate))

	s.publish(ctx, models.OrderEvent{
		Type:      models.EventOrderStatusChanged,
		OrderID:   order.ID,
		UserID:    order.UserID,
		Status:    target,
		Timestamp: s.now().UnixMilli(),
	})
	log.Info("order status changed")
	return result.OK(fmt.Sprintf("Order is now %s", target), &order)
}

// AdminOrders lists every order the café has received, newest first.
func (s *OrderService) AdminOrders(ctx context.Context) ([]models.Order, error) {
	list, err := s.notifications.List(ctx, s.policy.OwnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list café orders: %w", err)
	}
	models.SortNewestFirst(list)

	orders := make([]models.Order, 0, len(list))
	for _, n := range list {
		if order, ok := models.OrderFromNotification(n); ok {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

// OrderHistory returns the customer's order records for one order, newest first.
func (s *OrderService) OrderHistory(ctx context.Context, userID, orderID string) ([]models.Notification, error) {
	list, err := s.notifications.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications for %s: %w", userID, err)
	}
	history := make([]models.Notification, 0)
	for _, n := range models.FilterOrders(list) {
		if n.OrderID == orderID {
			history = append(history, n)
		}
	}
	models.SortNewestFirst(history)
	return history, nil
}

func (s *OrderService) publish(ctx context.Context, event models.OrderEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishJSON(ctx, event.Type, event); err != nil {
		s.logger.WithError(err).WithField("event", event.Type).Warn("failed to publish order event")
	}
}

// OrderEventLogger returns a consumer handler that logs each order event.
func OrderEventLogger(logger logrus.FieldLogger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		var event models.OrderEvent
		if err := json.Unmarshal(msg.Body, &event); err != nil {
			return fmt.Errorf("failed to decode order event: %w", err)
		}
		logger.WithFields(logrus.Fields{
			"event":    event.Type,
			"order_id": event.OrderID,
			"user_id":  event.UserID,
			"status":   event.Status,
		}).Info("order event received")
		return nil
	}
}
