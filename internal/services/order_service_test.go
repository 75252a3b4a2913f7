package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/services"
	"smartbite/internal/store"
	"smartbite/pkg/logging"

	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newOrderStack(t *testing.T) (*services.OrderService, *repositories.StoreNotificationRepository, *recordingPublisher) {
	t.Helper()
	repo := repositories.NewStoreNotificationRepository(store.NewMemoryStore(nil))
	pub := &recordingPublisher{}
	return services.NewOrderService(repo, testPolicy, pub, logging.Discard()), repo, pub
}

func latteCart() *fakeCart {
	return &fakeCart{lines: []models.CartLine{
		{ID: "m1", Name: "Latte", Price: 250, Quantity: 2},
		{ID: "m2", Name: "Croissant", Price: 500, Quantity: 1},
	}}
}

func TestOrderService_CheckoutFansOutToCafeAndCustomer(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newOrderStack(t)
	cart := latteCart()

	res := svc.Checkout(ctx, "u1", cart)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, services.MsgOrderPlaced, res.Message)

	order := res.Data
	assert.Equal(t, 1130, order.Total)
	assert.Equal(t, models.StatusPending, order.Status)
	assert.Equal(t, "u1", order.UserID)
	assert.NotEmpty(t, order.ID)

	cafe, err := repo.List(ctx, "admin")
	require.NoError(t, err)
	require.Len(t, cafe, 1)
	assert.Equal(t, "New Order Placed", cafe[0].Title)
	assert.Equal(t, "Order total: Rs 1130 from user", cafe[0].Message)
	assert.Equal(t, "u1", cafe[0].UserID)
	assert.Equal(t, models.StatusPending, cafe[0].OrderStatus)
	assert.Equal(t, order.ID, cafe[0].OrderID)

	mine, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "Order Placed", mine[0].Title)
	assert.Equal(t, "Your order of Rs 1130 has been placed", mine[0].Message)
	assert.Equal(t, order.ID, mine[0].OrderID)
	assert.Equal(t, cafe[0].CreatedAt, mine[0].CreatedAt)

	assert.True(t, cart.cleared)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.EventOrderPlaced, pub.events[0].key)
}

func TestOrderService_CheckoutRejectsAnonymousAndEmpty(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderStack(t)

	res := svc.Checkout(ctx, "", latteCart())
	assert.False(t, res.Success)
	assert.Equal(t, services.MsgLoginToOrder, res.Message)

	res = svc.Checkout(ctx, "u1", &fakeCart{})
	assert.False(t, res.Success)
	assert.Equal(t, services.MsgCartEmpty, res.Message)

	cafe, err := repo.List(ctx, "admin")
	require.NoError(t, err)
	assert.Empty(t, cafe)
}

func TestOrderService_CheckoutCafeWriteFails(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	svc := services.NewOrderService(mockRepo, testPolicy, nil, logging.Discard())
	cart := latteCart()

	mockRepo.On("Push", ctx, "admin", mock.AnythingOfType("models.Notification")).
		Return(models.Notification{}, errors.New("permission denied")).Once()

	res := svc.Checkout(ctx, "u1", cart)
	assert.False(t, res.Success)
	assert.Equal(t, services.MsgOrderFailed, res.Message)
	assert.False(t, cart.cleared, "cart must survive a failed checkout")
	mockRepo.AssertNotCalled(t, "Push", ctx, "u1", mock.Anything)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_CheckoutCustomerWriteFails(t *testing.T) {
	ctx := context.Background()
	mockRepo := new(MockNotificationRepository)
	svc := services.NewOrderService(mockRepo, testPolicy, nil, logging.Discard())
	cart := latteCart()

	mockRepo.On("Push", ctx, "admin", mock.AnythingOfType("models.Notification")).
		Return(models.Notification{ID: "n1", Type: models.NotificationOrder, OrderID: "1"}, nil).Once()
	mockRepo.On("Push", ctx, "u1", mock.AnythingOfType("models.Notification")).
		Return(models.Notification{}, errors.New("network down")).Once()

	res := svc.Checkout(ctx, "u1", cart)
	assert.False(t, res.Success)
	assert.Equal(t, services.MsgOrderNotLogged, res.Message)
	assert.False(t, cart.cleared)
	mockRepo.AssertExpectations(t)
}

func TestOrderService_CheckoutSucceedsWhenClearFails(t *testing.T) {
	svc, _, _ := newOrderStack(t)
	cart := latteCart()
	cart.clearErr = errors.New("remove failed")

	res := svc.Checkout(context.Background(), "u1", cart)
	assert.True(t, res.Success)
}

func TestOrderService_CheckoutPublishFailureIsIgnored(t *testing.T) {
	repo := repositories.NewStoreNotificationRepository(store.NewMemoryStore(nil))
	pub := &recordingPublisher{err: errors.New("broker gone")}
	svc := services.NewOrderService(repo, testPolicy, pub, logging.Discard())

	res := svc.Checkout(context.Background(), "u1", latteCart())
	assert.True(t, res.Success)
	assert.Len(t, pub.events, 1)
}

func placeOrder(t *testing.T, svc *services.OrderService, repo *repositories.StoreNotificationRepository) models.Notification {
	t.Helper()
	res := svc.Checkout(context.Background(), "u1", latteCart())
	require.True(t, res.Success)
	cafe, err := repo.List(context.Background(), "admin")
	require.NoError(t, err)
	require.Len(t, cafe, 1)
	return cafe[0]
}

func TestOrderService_AdvanceStatus(t *testing.T) {
	ctx := context.Background()
	svc, repo, pub := newOrderStack(t)
	cafeRecord := placeOrder(t, svc, repo)

	res := svc.AdvanceStatus(ctx, cafeRecord.ID, models.StatusPreparing)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, "Order is now Preparing", res.Message)
	assert.Equal(t, models.StatusPreparing, res.Data.Status)

	updated, err := repo.Get(ctx, "admin", cafeRecord.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPreparing, updated.OrderStatus)
	assert.Equal(t, cafeRecord.Title, updated.Title, "status change updates the record in place")

	mine, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	models.SortNewestFirst(mine)
	var update models.Notification
	for _, n := range mine {
		if n.Type == models.NotificationOrderUpdate {
			update = n
		}
	}
	assert.Equal(t, "Order Update", update.Title)
	assert.Equal(t, "Your order is now Preparing", update.Message)
	assert.Equal(t, cafeRecord.OrderID, update.OrderID)

	// Skipping forward is allowed.
	res = svc.AdvanceStatus(ctx, cafeRecord.ID, models.StatusCompleted)
	assert.True(t, res.Success)

	require.Len(t, pub.events, 3)
	assert.Equal(t, models.EventOrderStatusChanged, pub.events[2].key)
}

func TestOrderService_AdvanceStatusRejections(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderStack(t)
	cafeRecord := placeOrder(t, svc, repo)

	require.True(t, svc.AdvanceStatus(ctx, cafeRecord.ID, models.StatusReady).Success)

	tests := []struct {
		name    string
		id      string
		target  models.OrderStatus
		message string
	}{
		{"missing id", "", models.StatusReady, "Notification ID is missing"},
		{"back to pending", cafeRecord.ID, models.StatusPending, "Invalid order status: Pending"},
		{"unknown status", cafeRecord.ID, models.OrderStatus("Cancelled"), "Invalid order status: Cancelled"},
		{"backwards", cafeRecord.ID, models.StatusPreparing, "Order is already Ready"},
		{"same status", cafeRecord.ID, models.StatusReady, "Order is already Ready"},
		{"unknown order", "nope", models.StatusCompleted, "Order not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.AdvanceStatus(ctx, tt.id, tt.target)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
		})
	}

	mine, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, mine, 2, "rejected changes must not notify the customer")
}

func TestOrderService_AdvanceStatusRejectsMenuNotification(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderStack(t)
	n, err := repo.Push(ctx, "admin", models.Notification{Type: models.NotificationMenu, Title: "New Coffee Added!"})
	require.NoError(t, err)

	res := svc.AdvanceStatus(ctx, n.ID, models.StatusReady)
	assert.False(t, res.Success)
	assert.Equal(t, "Not an order notification", res.Message)
}

func TestOrderService_AdminOrdersAndHistory(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderStack(t)
	cafeRecord := placeOrder(t, svc, repo)
	require.True(t, svc.AdvanceStatus(ctx, cafeRecord.ID, models.StatusReady).Success)

	orders, err := svc.AdminOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, models.StatusReady, orders[0].Status)
	assert.Equal(t, cafeRecord.ID, orders[0].NotificationID)

	history, err := svc.OrderHistory(ctx, "u1", cafeRecord.OrderID)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	history, err = svc.OrderHistory(ctx, "u1", "other")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestOrderEventLogger(t *testing.T) {
	handler := services.OrderEventLogger(logging.Discard())

	body, _ := json.Marshal(models.OrderEvent{Type: models.EventOrderPlaced, OrderID: "1"})
	assert.NoError(t, handler(amqp.Delivery{Body: body}))
	assert.Error(t, handler(amqp.Delivery{Body: []byte("{")}))
}

func TestOrderService_CheckoutTotalsMatchCart(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newOrderStack(t)
	cart := &fakeCart{lines: []models.CartLine{{ID: "m1", Name: "Tea", Price: 1000, Quantity: 1}}}

	res := svc.Checkout(ctx, "u2", cart)
	require.True(t, res.Success)

	totals := models.ComputeTotals(cart.lines)
	assert.Equal(t, 130, totals.Tax)
	assert.Equal(t, totals.Total, res.Data.Total)

	mine, err := repo.List(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("Your order of Rs %d has been placed", totals.Total), mine[0].Message)
}
