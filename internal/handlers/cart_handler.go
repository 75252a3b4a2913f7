package handlers

import (
	"errors"

	"smartbite/internal/middleware"
	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// CartHandler handles HTTP requests for the caller's cart.
type CartHandler struct {
	repo   repositories.CartRepository
	menus  repositories.MenuRepository
	logger logrus.FieldLogger
}

// NewCartHandler creates a new CartHandler. Lines are priced from menus.
func NewCartHandler(repo repositories.CartRepository, menus repositories.MenuRepository, logger logrus.FieldLogger) *CartHandler {
	return &CartHandler{repo: repo, menus: menus, logger: logger}
}

// RegisterRoutes registers the cart routes.
func (h *CartHandler) RegisterRoutes(router fiber.Router) {
	cartRoutes := router.Group("/cart")
	cartRoutes.Get("/", h.HandleGetCart)
	cartRoutes.Post("/", h.HandleAddToCart)
	cartRoutes.Delete("/", h.HandleClearCart)
	cartRoutes.Post("/:id/increase", h.HandleIncrease)
	cartRoutes.Post("/:id/decrease", h.HandleDecrease)
	cartRoutes.Delete("/:id", h.HandleRemove)
}

type cartView struct {
	Lines  []models.CartLine `json:"lines"`
	Totals models.Totals     `json:"totals"`
}

func (h *CartHandler) manager(c *fiber.Ctx) *services.CartManager {
	return services.NewCartManager(h.repo, middleware.UserID(c), h.logger)
}

func (h *CartHandler) writeCart(c *fiber.Ctx, cart *services.CartManager, message string) error {
	if err := cart.Refresh(c.UserContext()); err != nil {
		h.logger.WithError(err).Error("failed to load cart")
		return serverError(c, "Could not load cart")
	}
	lines := cart.Lines()
	if lines == nil {
		lines = []models.CartLine{}
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"data":    cartView{Lines: lines, Totals: models.ComputeTotals(lines)},
	})
}

func (h *CartHandler) HandleGetCart(c *fiber.Ctx) error {
	return h.writeCart(c, h.manager(c), "Cart fetched")
}

// addToCartRequest names a menu item. Anything else in the body is ignored.
type addToCartRequest struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
}

// HandleAddToCart adds a catalog item or bumps its quantity.
func (h *CartHandler) HandleAddToCart(c *fiber.Ctx) error {
	var req addToCartRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if req.ID == "" {
		return badRequest(c, "Item id is required", nil)
	}
	cart := h.manager(c)
	if res := cart.AddMenuItem(c.UserContext(), h.menus, req.ID, req.Quantity); !res.Success {
		return respond(c, res, fiber.StatusOK)
	}
	return h.writeCart(c, cart, "Added to cart")
}

func (h *CartHandler) HandleIncrease(c *fiber.Ctx) error {
	cart := h.manager(c)
	return h.quantityResult(c, cart, cart.IncreaseQty(c.UserContext(), c.Params("id")))
}

func (h *CartHandler) HandleDecrease(c *fiber.Ctx) error {
	cart := h.manager(c)
	return h.quantityResult(c, cart, cart.DecreaseQty(c.UserContext(), c.Params("id")))
}

func (h *CartHandler) quantityResult(c *fiber.Ctx, cart *services.CartManager, err error) error {
	switch {
	case errors.Is(err, services.ErrLineNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"success": false, "message": "Item is not in the cart"})
	case err != nil:
		h.logger.WithError(err).Error("failed to change quantity")
		return serverError(c, "Could not update quantity")
	}
	return h.writeCart(c, cart, "Quantity updated")
}

func (h *CartHandler) HandleRemove(c *fiber.Ctx) error {
	cart := h.manager(c)
	if err := cart.RemoveItem(c.UserContext(), c.Params("id")); err != nil {
		h.logger.WithError(err).Error("failed to remove cart line")
		return serverError(c, "Could not remove item")
	}
	return h.writeCart(c, cart, "Item removed")
}

func (h *CartHandler) HandleClearCart(c *fiber.Ctx) error {
	cart := h.manager(c)
	if err := cart.Refresh(c.UserContext()); err != nil {
		return serverError(c, "Could not load cart")
	}
	if err := cart.ClearCart(c.UserContext()); err != nil {
		h.logger.WithError(err).Error("failed to clear cart")
		return serverError(c, "Could not clear cart")
	}
	return h.writeCart(c, cart, "Cart cleared")
}
