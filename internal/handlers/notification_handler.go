package handlers

import (
	"bufio"
	"context"
	"errors"
	"time"

	"smartbite/internal/middleware"
	"smartbite/internal/repositories"
	"smartbite/internal/services"
	"smartbite/pkg/result"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"github.com/valyala/fasthttp"
)

// NotificationHandler handles HTTP requests for the caller's notification feed.
// The admin reads the café collection; everyone else reads their own.
type NotificationHandler struct {
	service *services.NotificationService
	repo    repositories.NotificationRepository
	policy  services.AdminPolicy
	logger  logrus.FieldLogger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *services.NotificationService, repo repositories.NotificationRepository, policy services.AdminPolicy, logger logrus.FieldLogger) *NotificationHandler {
	return &NotificationHandler{service: service, repo: repo, policy: policy, logger: logger}
}

// RegisterRoutes registers the notification routes.
func (h *NotificationHandler) RegisterRoutes(router fiber.Router) {
	notificationRoutes := router.Group("/notifications")
	notificationRoutes.Get("/", h.HandleList)
	notificationRoutes.Get("/stream", h.HandleStream)
	notificationRoutes.Patch("/:id/read", h.HandleMarkAsRead)
}

func (h *NotificationHandler) owner(c *fiber.Ctx) string {
	return h.policy.NotificationOwner(middleware.UserID(c), middleware.Email(c))
}

type notificationPage struct {
	Items  any `json:"items"`
	Unread int `json:"unread"`
}

// HandleList returns the feed newest first with its unread count.
func (h *NotificationHandler) HandleList(c *fiber.Ctx) error {
	owner := h.owner(c)
	list, err := h.service.List(c.UserContext(), owner)
	if err != nil {
		h.logger.WithError(err).WithField("owner", owner).Error("failed to list notifications")
		return serverError(c, "Could not retrieve notifications")
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	return c.JSON(result.OK("Notifications fetched", notificationPage{Items: list, Unread: unread}))
}

func (h *NotificationHandler) HandleMarkAsRead(c *fiber.Ctx) error {
	err := h.service.MarkAsRead(c.UserContext(), h.owner(c), c.Params("id"))
	switch {
	case errors.Is(err, services.ErrNotificationNotFound):
		return respond(c, result.Rejected(result.KindNotFound, "Notification not found"), fiber.StatusOK)
	case errors.Is(err, services.ErrNotificationIDMissing):
		return badRequest(c, "Notification ID is missing", nil)
	case err != nil:
		return serverError(c, "Could not update notification")
	}
	return c.JSON(result.Done("Notification marked as read"))
}

// HandleStream pushes the full feed as a server-sent event on every change.
func (h *NotificationHandler) HandleStream(c *fiber.Ctx) error {
	owner := h.owner(c)
	feed := services.NewNotificationFeed(h.repo, h.logger)
	if err := feed.Listen(context.Background(), owner); err != nil {
		h.logger.WithError(err).WithField("owner", owner).Error("failed to open notification stream")
		return serverError(c, "Could not open notification stream")
	}

	prepareStream(c)
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer feed.Stop()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case list := <-feed.Updates():
				if err := writeEvent(w, "notifications", list); err != nil {
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
