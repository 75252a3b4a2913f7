package handlers

import (
	"bufio"
	"context"
	"time"

	"smartbite/internal/middleware"
	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// MenuHandler handles HTTP requests for the menu catalog.
type MenuHandler struct {
	service *services.MenuService
	repo    repositories.MenuRepository
	logger  logrus.FieldLogger
}

// NewMenuHandler creates a new MenuHandler.
func NewMenuHandler(service *services.MenuService, repo repositories.MenuRepository, logger logrus.FieldLogger) *MenuHandler {
	return &MenuHandler{service: service, repo: repo, logger: logger}
}

// RegisterRoutes registers the menu routes. Reads need a signed-in user and
// writes need the admin.
func (h *MenuHandler) RegisterRoutes(router fiber.Router) {
	menuRoutes := router.Group("/menus")
	menuRoutes.Get("/", h.HandleGetMenus)
	menuRoutes.Get("/stream", h.HandleStreamMenus)
	menuRoutes.Get("/:id", h.HandleGetMenu)

	admin := menuRoutes.Group("", middleware.AdminRequired())
	admin.Post("/", h.HandleCreateMenu)
	admin.Put("/:id", h.HandleUpdateMenu)
	admin.Delete("/:id", h.HandleDeleteMenu)
	admin.Patch("/:id/availability", h.HandleToggleAvailability)
}

func (h *MenuHandler) HandleGetMenus(c *fiber.Ctx) error {
	return respond(c, h.service.Catalog(c.UserContext()), fiber.StatusOK)
}

func (h *MenuHandler) HandleGetMenu(c *fiber.Ctx) error {
	return respond(c, h.service.Get(c.UserContext(), c.Params("id")), fiber.StatusOK)
}

// HandleCreateMenu adds an item. An empty id is assigned by the service.
func (h *MenuHandler) HandleCreateMenu(c *fiber.Ctx) error {
	var item models.MenuItem
	if err := c.BodyParser(&item); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	return respond(c, h.service.Create(c.UserContext(), item), fiber.StatusCreated)
}

func (h *MenuHandler) HandleUpdateMenu(c *fiber.Ctx) error {
	var item models.MenuItem
	if err := c.BodyParser(&item); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	item.ID = c.Params("id")
	return respond(c, h.service.Update(c.UserContext(), item), fiber.StatusOK)
}

func (h *MenuHandler) HandleDeleteMenu(c *fiber.Ctx) error {
	return respond(c, h.service.Delete(c.UserContext(), c.Params("id")), fiber.StatusOK)
}

// availabilityRequest carries the availability the client currently shows.
type availabilityRequest struct {
	Current *bool `json:"current"`
}

func (h *MenuHandler) HandleToggleAvailability(c *fiber.Ctx) error {
	var req availabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	if req.Current == nil {
		return badRequest(c, "current is required", nil)
	}
	return respond(c, h.service.ToggleAvailability(c.UserContext(), c.Params("id"), *req.Current), fiber.StatusOK)
}

// HandleStreamMenus sends the full catalog as a server-sent event on every change.
func (h *MenuHandler) HandleStreamMenus(c *fiber.Ctx) error {
	prepareStream(c)
	log := h.logger.WithField("user_id", middleware.UserID(c))

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		updates, stop := h.repo.ListenAllMenus(ctx)
		defer stop()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case res, ok := <-updates:
				if !ok {
					return
				}
				if err := writeEvent(w, "menus", res); err != nil {
					log.WithError(err).Debug("menu stream closed")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					return
				}
			}
		}
	}))
	return nil
}
