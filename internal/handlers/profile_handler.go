package handlers

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"smartbite/internal/middleware"
	"smartbite/internal/models"
	"smartbite/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// ProfileHandler handles HTTP requests for user profiles and image uploads.
type ProfileHandler struct {
	service       *services.ProfileService
	images        *services.ImageService
	uploadTimeout time.Duration
	logger        logrus.FieldLogger
}

// NewProfileHandler creates a new ProfileHandler.
func NewProfileHandler(service *services.ProfileService, images *services.ImageService, uploadTimeout time.Duration, logger logrus.FieldLogger) *ProfileHandler {
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	return &ProfileHandler{service: service, images: images, uploadTimeout: uploadTimeout, logger: logger}
}

// RegisterRoutes registers the profile and upload routes.
func (h *ProfileHandler) RegisterRoutes(router fiber.Router) {
	profileRoutes := router.Group("/profile")
	profileRoutes.Get("/", h.HandleGetProfile)
	profileRoutes.Put("/", h.HandleUpdateProfile)
	profileRoutes.Delete("/", h.HandleDeleteProfile)
	profileRoutes.Post("/image", h.HandleProfileImage)

	router.Get("/admin/profiles", middleware.AdminRequired(), h.HandleListProfiles)
	router.Post("/uploads/image", middleware.AdminRequired(), h.HandleUploadImage)
}

func (h *ProfileHandler) HandleGetProfile(c *fiber.Ctx) error {
	return respond(c, h.service.Get(c.UserContext(), middleware.UserID(c)), fiber.StatusOK)
}

func (h *ProfileHandler) HandleUpdateProfile(c *fiber.Ctx) error {
	var profile models.Profile
	if err := c.BodyParser(&profile); err != nil {
		return badRequest(c, "Invalid request body", err)
	}
	return respond(c, h.service.Update(c.UserContext(), middleware.UserID(c), profile), fiber.StatusOK)
}

func (h *ProfileHandler) HandleDeleteProfile(c *fiber.Ctx) error {
	uid := middleware.UserID(c)
	return respond(c, h.service.Delete(c.UserContext(), uid, uid), fiber.StatusOK)
}

func (h *ProfileHandler) HandleListProfiles(c *fiber.Ctx) error {
	return respond(c, h.service.All(c.UserContext()), fiber.StatusOK)
}

// HandleProfileImage uploads the "image" form file and saves it on the caller's profile.
func (h *ProfileHandler) HandleProfileImage(c *fiber.Ctx) error {
	ref, cleanup, err := h.saveUpload(c)
	if err != nil {
		return badRequest(c, "An image file is required", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(c.UserContext(), h.uploadTimeout)
	defer cancel()
	return respond(c, h.service.SetImage(ctx, middleware.UserID(c), ref), fiber.StatusOK)
}

// HandleUploadImage uploads a menu image and returns its URL.
func (h *ProfileHandler) HandleUploadImage(c *fiber.Ctx) error {
	ref, cleanup, err := h.saveUpload(c)
	if err != nil {
		return badRequest(c, "An image file is required", err)
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(c.UserContext(), h.uploadTimeout)
	defer cancel()
	return respond(c, h.images.UploadAndWait(ctx, ref), fiber.StatusCreated)
}

// saveUpload stores the "image" form file in a temp dir.
func (h *ProfileHandler) saveUpload(c *fiber.Ctx) (services.ImageRef, func(), error) {
	fh, err := c.FormFile("image")
	if err != nil {
		return services.ImageRef{}, nil, err
	}
	dir, err := os.MkdirTemp("", "smartbite-upload-")
	if err != nil {
		return services.ImageRef{}, nil, err
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			h.logger.WithError(err).Warn("failed to remove upload temp dir")
		}
	}

	path := filepath.Join(dir, "upload"+filepath.Ext(fh.Filename))
	if err := c.SaveFile(fh, path); err != nil {
		cleanup()
		return services.ImageRef{}, nil, err
	}
	return services.ImageRef{Path: path, Name: filepath.Base(fh.Filename)}, cleanup, nil
}
