package handlers

import (
	"smartbite/internal/middleware"
	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/services"
	"smartbite/pkg/result"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service       *services.OrderService
	notifications *services.NotificationService
	carts         repositories.CartRepository
	logger        logrus.FieldLogger
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, notifications *services.NotificationService, carts repositories.CartRepository, logger logrus.FieldLogger) *OrderHandler {
	return &OrderHandler{
		service:       service,
		notifications: notifications,
		carts:         carts,
		logger:        logger,
	}
}

// RegisterRoutes registers the customer and admin order routes.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Post("/checkout", h.HandleCheckout)
	orderRoutes.Get("/", h.HandleMyOrders)
	orderRoutes.Get("/:orderId/history", h.HandleOrderHistory)

	adminRoutes := router.Group("/admin/orders", middleware.AdminRequired())
	adminRoutes.Get("/", h.HandleAdminOrders)
	adminRoutes.Patch("/:notificationId/status", h.HandleUpdateOrderStatus)
}

// HandleCheckout places an order for everything in the caller's cart.
func (h *OrderHandler) HandleCheckout(c *fiber.Ctx) error {
	userID := middleware.UserID(c)
	cart := services.NewCartManager(h.carts, userID, h.logger)
	if err := cart.Refresh(c.UserContext()); err != nil {
		h.logger.WithError(err).Error("failed to load cart for checkout")
		return serverError(c, "Could not load cart")
	}
	return respond(c, h.service.Checkout(c.UserContext(), userID, cart), fiber.StatusCreated)
}

// HandleMyOrders lists the caller's order notifications, newest first.
func (h *OrderHandler) HandleMyOrders(c *fiber.Ctx) error {
	list, err := h.notifications.MyOrders(c.UserContext(), middleware.UserID(c))
	if err != nil {
		h.logger.WithError(err).Error("failed to list orders")
		return serverError(c, "Could not retrieve orders")
	}
	return c.JSON(result.OK("Orders fetched", list))
}

func (h *OrderHandler) HandleOrderHistory(c *fiber.Ctx) error {
	history, err := h.service.OrderHistory(c.UserContext(), middleware.UserID(c), c.Params("orderId"))
	if err != nil {
		h.logger.WithError(err).Error("failed to load order history")
		return serverError(c, "Could not retrieve order history")
	}
	if len(history) == 0 {
		return respond(c, result.Reject[[]models.Notification](result.KindNotFound, "Order not found"), fiber.StatusOK)
	}
	return c.JSON(result.OK("Order history fetched", history))
}

// HandleAdminOrders lists every order the café has received.
func (h *OrderHandler) HandleAdminOrders(c *fiber.Ctx) error {
	orders, err := h.service.AdminOrders(c.UserContext())
	if err != nil {
		h.logger.WithError(err).Error("failed to list café orders")
		return serverError(c, "Could not retrieve orders")
	}
	return c.JSON(result.OK("Orders fetched", orders))
}

type statusRequest struct {
	Status string `json:"status"`
}

// HandleUpdateOrderStatus moves an order forward and notifies the customer.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req statusRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if req.Status == "" {
		return badRequest(c, "Status is required", nil)
	}
	res := h.service.AdvanceStatus(c.UserContext(), c.Params("notificationId"), models.OrderStatus(req.Status))
	return respond(c, res, fiber.StatusOK)
}
