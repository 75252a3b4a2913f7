package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartbite/internal/handlers"
	"smartbite/internal/middleware"
	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/services"
	"smartbite/internal/store"
	"smartbite/pkg/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const adminEmail = "adminsmartbite@gmail.com"

// setupApp sets up a Fiber app for testing with in-memory SQLite and all handlers/services.
func setupApp(t *testing.T) *fiber.App {
	t.Helper()
	return newTestApp(t, false)
}

// newTestApp builds the app; with listenMenus the menu catalog is served from
// the live listener.
func newTestApp(t *testing.T, listenMenus bool) *fiber.App {
	t.Helper()
	log := logging.Discard()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&models.User{}))

	docs, err := store.NewGORMStore(db, nil)
	require.NoError(t, err)

	userRepo := repositories.NewGORMUserRepository(db)
	menuRepo := repositories.NewStoreMenuRepository(docs)
	profileRepo := repositories.NewStoreProfileRepository(docs)
	cartRepo := repositories.NewStoreCartRepository(docs)
	notificationRepo := repositories.NewStoreNotificationRepository(docs)

	policy := services.NewAdminPolicy(adminEmail, "admin")
	authService := services.NewAuthService(userRepo, profileRepo, policy, "test_jwt_secret", log)
	images := services.NewImageService(nil, log)
	menuService := services.NewMenuService(menuRepo, profileRepo, notificationRepo, policy, log)
	orderService := services.NewOrderService(notificationRepo, policy, nil, log)
	notificationService := services.NewNotificationService(notificationRepo, log)
	profileService := services.NewProfileService(profileRepo, images, log)
	if listenMenus {
		menuService.Listen(context.Background())
		t.Cleanup(menuService.Stop)
	}

	app := fiber.New()
	apiV1 := app.Group("/api/v1")
	handlers.NewAuthHandler(authService, log).RegisterRoutes(apiV1)

	protected := apiV1.Group("", middleware.AuthRequired(authService, log))
	handlers.NewMenuHandler(menuService, menuRepo, log).RegisterRoutes(protected)
	handlers.NewCartHandler(cartRepo, menuRepo, log).RegisterRoutes(protected)
	handlers.NewOrderHandler(orderService, notificationService, cartRepo, log).RegisterRoutes(protected)
	handlers.NewNotificationHandler(notificationService, notificationRepo, policy, log).RegisterRoutes(protected)
	handlers.NewProfileHandler(profileService, images, 0, log).RegisterRoutes(protected)
	return app
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body any) (int, envelope) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	}
	return resp.StatusCode, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

func registerAndLogin(t *testing.T, app *fiber.App, name, email string) services.Session {
	t.Helper()
	status, env := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"fullName": name,
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	require.True(t, env.Success)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	return decode[services.Session](t, env.Data)
}

func TestAuthRegisterAndLogin(t *testing.T) {
	app := setupApp(t)

	session := registerAndLogin(t, app, "Asha Rai", "asha@example.com")
	assert.NotEmpty(t, session.Token)
	assert.False(t, session.IsAdmin)

	// Duplicate registration
	status, _ := doJSON(t, app, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"fullName": "Asha Again",
		"email":    "asha@example.com",
		"password": "password123",
	})
	assert.Equal(t, http.StatusConflict, status)

	// Wrong password
	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/auth/login", "", map[string]string{
		"email":    "asha@example.com",
		"password": "nope-nope",
	})
	assert.Equal(t, http.StatusUnauthorized, status)

	// Profile was created on registration
	status, env := doJSON(t, app, http.MethodGet, "/api/v1/profile", session.Token, nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[models.Profile](t, env.Data)
	assert.Equal(t, "Asha Rai", profile.FullName)
	assert.Equal(t, session.UserID, profile.UserID)

	admin := registerAndLogin(t, app, "Cafe Owner", adminEmail)
	assert.True(t, admin.IsAdmin)
}

func TestProtectedRoutes(t *testing.T) {
	app := setupApp(t)
	customer := registerAndLogin(t, app, "Asha Rai", "asha@example.com")

	status, _ := doJSON(t, app, http.MethodGet, "/api/v1/menus", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/menus", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = doJSON(t, app, http.MethodPost, "/api/v1/menus", customer.Token, map[string]any{"name": "Latte", "price": 250, "category": "Coffee"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/orders", customer.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env := doJSON(t, app, http.MethodPut, "/api/v1/profile", customer.Token, map[string]any{"userId": "someone-else", "fullName": "X"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "You can only change your own profile", env.Message)
}

type notificationPage struct {
	Items  []models.Notification `json:"items"`
	Unread int                   `json:"unread"`
}

type cartView struct {
	Lines  []models.CartLine `json:"lines"`
	Totals models.Totals     `json:"totals"`
}

func TestOrderWorkflow(t *testing.T) {
	app := setupApp(t)
	customer := registerAndLogin(t, app, "Asha Rai", "asha@example.com")
	admin := registerAndLogin(t, app, "Cafe Owner", adminEmail)

	// Admin adds a menu item; the customer is told about it.
	status, env := doJSON(t, app, http.MethodPost, "/api/v1/menus", admin.Token, map[string]any{
		"name": "Latte", "price": 250, "category": "Coffee", "isAvailable": true,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	latte := decode[models.MenuItem](t, env.Data)
	require.NotEmpty(t, latte.ID)

	status, env = doJSON(t, app, http.MethodGet, "/api/v1/notifications", customer.Token, nil)
	require.Equal(t, http.StatusOK, status)
	page := decode[notificationPage](t, env.Data)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "New Coffee Added!", page.Items[0].Title)
	assert.Equal(t, 1, page.Unread)

	status, _ = doJSON(t, app, http.MethodPatch, "/api/v1/notifications/"+page.Items[0].ID+"/read", customer.Token, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, app, http.MethodPatch, "/api/v1/notifications/ghost/read", customer.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)

	// Customer fills the cart and checks out.
	status, env = doJSON(t, app, http.MethodPost, "/api/v1/cart", customer.Token, map[string]any{"id": latte.ID, "quantity": 1})
	require.Equal(t, http.StatusOK, status, env.Message)
	status, env = doJSON(t, app, http.MethodPost, "/api/v1/cart/"+latte.ID+"/increase", customer.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	cart := decode[cartView](t, env.Data)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, models.Totals{Subtotal: 500, Tax: 65, Total: 565}, cart.Totals)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", customer.Token, nil)
	require.Equal(t, http.StatusCreated, status, env.Message)
	order := decode[models.Order](t, env.Data)
	assert.Equal(t, 565, order.Total)
	assert.Equal(t, models.StatusPending, order.Status)

	status, env = doJSON(t, app, http.MethodGet, "/api/v1/cart", customer.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[cartView](t, env.Data).Lines)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", customer.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, services.MsgCartEmpty, env.Message)

	// The café moves the order forward.
	status, env = doJSON(t, app, http.MethodGet, "/api/v1/admin/orders", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	orders := decode[[]models.Order](t, env.Data)
	require.Len(t, orders, 1)
	assert.Equal(t, customer.UserID, orders[0].UserID)

	statusPath := "/api/v1/admin/orders/" + orders[0].NotificationID + "/status"
	status, env = doJSON(t, app, http.MethodPatch, statusPath, admin.Token, map[string]string{"status": "Ready"})
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Order is now Ready", env.Message)

	status, env = doJSON(t, app, http.MethodPatch, statusPath, admin.Token, map[string]string{"status": "Preparing"})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Order is already Ready", env.Message)

	// The customer sees both order records.
	status, env = doJSON(t, app, http.MethodGet, "/api/v1/orders", customer.Token, nil)
	require.Equal(t, http.StatusOK, status)
	mine := decode[[]models.Notification](t, env.Data)
	require.Len(t, mine, 2)
	var messages []string
	for _, n := range mine {
		messages = append(messages, n.Message)
	}
	assert.ElementsMatch(t, []string{"Your order of Rs 565 has been placed", "Your order is now Ready"}, messages)

	status, env = doJSON(t, app, http.MethodGet, "/api/v1/orders/"+order.ID+"/history", customer.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Notification](t, env.Data), 2)

	// The admin's feed is the café collection.
	status, env = doJSON(t, app, http.MethodGet, "/api/v1/notifications", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	adminPage := decode[notificationPage](t, env.Data)
	require.Len(t, adminPage.Items, 1)
	assert.Equal(t, "New Order Placed", adminPage.Items[0].Title)
	assert.Equal(t, models.StatusReady, adminPage.Items[0].OrderStatus)
}

func TestMenuAdministration(t *testing.T) {
	app := setupApp(t)
	admin := registerAndLogin(t, app, "Cafe Owner", adminEmail)

	status, env := doJSON(t, app, http.MethodPost, "/api/v1/menus", admin.Token, map[string]any{
		"id": "bagel", "name": "Bagel", "price": 200, "category": "Food", "isAvailable": true,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/menus", admin.Token, map[string]any{"name": "", "category": "Tea"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, env.Message, "Validation failed")

	status, _ = doJSON(t, app, http.MethodPatch, "/api/v1/menus/bagel/availability", admin.Token, map[string]bool{"current": true})
	require.Equal(t, http.StatusOK, status)

	status, env = doJSON(t, app, http.MethodGet, "/api/v1/menus/bagel", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.False(t, decode[models.MenuItem](t, env.Data).IsAvailable)

	status, _ = doJSON(t, app, http.MethodPut, "/api/v1/menus/bagel", admin.Token, map[string]any{
		"name": "Sesame Bagel", "price": 220, "category": "Food", "isAvailable": true,
	})
	require.Equal(t, http.StatusOK, status)

	status, env = doJSON(t, app, http.MethodGet, "/api/v1/menus", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	items := decode[[]models.MenuItem](t, env.Data)
	require.Len(t, items, 1)
	assert.Equal(t, "Sesame Bagel", items[0].Name)

	status, _ = doJSON(t, app, http.MethodDelete, "/api/v1/menus/bagel", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	status, env = doJSON(t, app, http.MethodGet, "/api/v1/menus/bagel", admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Menu not found", env.Message)
}

func TestCartPricesComeFromCatalog(t *testing.T) {
	app := setupApp(t)
	customer := registerAndLogin(t, app, "Asha Rai", "asha@example.com")
	admin := registerAndLogin(t, app, "Cafe Owner", adminEmail)

	status, env := doJSON(t, app, http.MethodPost, "/api/v1/menus", admin.Token, map[string]any{
		"id": "latte", "name": "Latte", "price": 1000, "category": "Coffee", "isAvailable": false,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/cart", customer.Token, map[string]any{"id": "latte", "price": 1, "quantity": 1})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "Latte is not available right now", env.Message)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/cart", customer.Token, map[string]any{"id": "no-such-item", "price": 0})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Menu not found", env.Message)

	status, _ = doJSON(t, app, http.MethodPatch, "/api/v1/menus/latte/availability", admin.Token, map[string]bool{"current": false})
	require.Equal(t, http.StatusOK, status)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/cart", customer.Token, map[string]any{
		"id": "latte", "name": "Free Latte", "price": 1, "quantity": 1,
	})
	require.Equal(t, http.StatusOK, status, env.Message)
	cart := decode[cartView](t, env.Data)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Latte", cart.Lines[0].Name)
	assert.Equal(t, 1000, cart.Lines[0].Price)

	status, env = doJSON(t, app, http.MethodPost, "/api/v1/orders/checkout", customer.Token, nil)
	require.Equal(t, http.StatusCreated, status, env.Message)
	assert.Equal(t, 1130, decode[models.Order](t, env.Data).Total)
}

func TestToggleUnknownMenuItem(t *testing.T) {
	app := setupApp(t)
	admin := registerAndLogin(t, app, "Cafe Owner", adminEmail)

	status, env := doJSON(t, app, http.MethodPatch, "/api/v1/menus/999/availability", admin.Token, map[string]bool{"current": false})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Menu not found", env.Message)

	status, env = doJSON(t, app, http.MethodPut, "/api/v1/menus/999", admin.Token, map[string]any{
		"name": "Ghost", "price": 1, "category": "Food",
	})
	assert.Equal(t, http.StatusNotFound, status)

	status, env = doJSON(t, app, http.MethodGet, "/api/v1/menus", admin.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.MenuItem](t, orEmptyList(env.Data)))
}

func TestProfileUpdateKeepsUnsentFields(t *testing.T) {
	app := setupApp(t)
	customer := registerAndLogin(t, app, "Asha Rai", "asha@example.com")

	status, env := doJSON(t, app, http.MethodPut, "/api/v1/profile", customer.Token, map[string]any{
		"fullName": "Asha R.", "email": adminEmail,
	})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = doJSON(t, app, http.MethodGet, "/api/v1/profile", customer.Token, nil)
	require.Equal(t, http.StatusOK, status)
	profile := decode[models.Profile](t, env.Data)
	assert.Equal(t, "Asha R.", profile.FullName)
	assert.Equal(t, "asha@example.com", profile.Email)
}

func TestMenuListServedFromListener(t *testing.T) {
	app := newTestApp(t, true)
	admin := registerAndLogin(t, app, "Cafe Owner", adminEmail)

	status, env := doJSON(t, app, http.MethodPost, "/api/v1/menus", admin.Token, map[string]any{
		"id": "bagel", "name": "Bagel", "price": 200, "category": "Food", "isAvailable": true,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)

	menuList := func() []models.MenuItem {
		status, env := doJSON(t, app, http.MethodGet, "/api/v1/menus", admin.Token, nil)
		require.Equal(t, http.StatusOK, status)
		return decode[[]models.MenuItem](t, orEmptyList(env.Data))
	}
	require.Eventually(t, func() bool { return len(menuList()) == 1 }, 2*time.Second, 20*time.Millisecond)

	status, _ = doJSON(t, app, http.MethodPatch, "/api/v1/menus/bagel/availability", admin.Token, map[string]bool{"current": true})
	require.Equal(t, http.StatusOK, status)
	assert.Eventually(t, func() bool {
		items := menuList()
		return len(items) == 1 && !items[0].IsAvailable
	}, 2*time.Second, 20*time.Millisecond)
}

// orEmptyList stands in for a data field omitted because the list was empty.
func orEmptyList(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 {
		return json.RawMessage("[]")
	}
	return raw
}
