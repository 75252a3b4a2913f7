package services_test

import (
	"context"
	"sync"

	"smartbite/internal/models"
	"smartbite/internal/store"
	"smartbite/pkg/result"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of repositories.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(_ context.Context, user *models.User) error {
	args := m.Called(user)
	if user.ID == "" {
		user.ID = "user-123"
	}
	return args.Error(0)
}

func (m *MockUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	args := m.Called(email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockProfileRepository is a mock implementation of repositories.ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

func (m *MockProfileRepository) AddProfile(ctx context.Context, profile models.Profile) result.Status {
	return m.Called(ctx, profile).Get(0).(result.Status)
}

func (m *MockProfileRepository) GetProfileByID(ctx context.Context, userID string) result.Result[*models.Profile] {
	return m.Called(ctx, userID).Get(0).(result.Result[*models.Profile])
}

func (m *MockProfileRepository) GetAllProfiles(ctx context.Context) result.Result[[]models.Profile] {
	return m.Called(ctx).Get(0).(result.Result[[]models.Profile])
}

func (m *MockProfileRepository) UpdateProfile(ctx context.Context, profile models.Profile) result.Status {
	return m.Called(ctx, profile).Get(0).(result.Status)
}

func (m *MockProfileRepository) DeleteProfile(ctx context.Context, userID string) result.Status {
	return m.Called(ctx, userID).Get(0).(result.Status)
}

// MockMenuRepository is a mock implementation of repositories.MenuRepository
type MockMenuRepository struct {
	mock.Mock
}

func (m *MockMenuRepository) AddMenu(ctx context.Context, menu models.MenuItem) result.Status {
	return m.Called(ctx, menu).Get(0).(result.Status)
}

func (m *MockMenuRepository) GetMenuByID(ctx context.Context, menuID string) result.Result[*models.MenuItem] {
	return m.Called(ctx, menuID).Get(0).(result.Result[*models.MenuItem])
}

func (m *MockMenuRepository) GetAllMenus(ctx context.Context) result.Result[[]models.MenuItem] {
	return m.Called(ctx).Get(0).(result.Result[[]models.MenuItem])
}

func (m *MockMenuRepository) ListenAllMenus(ctx context.Context) (<-chan result.Result[[]models.MenuItem], func()) {
	args := m.Called(ctx)
	return args.Get(0).(<-chan result.Result[[]models.MenuItem]), args.Get(1).(func())
}

func (m *MockMenuRepository) UpdateMenu(ctx context.Context, menu models.MenuItem) result.Status {
	return m.Called(ctx, menu).Get(0).(result.Status)
}

func (m *MockMenuRepository) DeleteMenu(ctx context.Context, menuID string) result.Status {
	return m.Called(ctx, menuID).Get(0).(result.Status)
}

func (m *MockMenuRepository) UpdateMenuAvailability(ctx context.Context, menuID string, available bool) result.Status {
	return m.Called(ctx, menuID, available).Get(0).(result.Status)
}

// MockNotificationRepository is a mock implementation of repositories.NotificationRepository
type MockNotificationRepository struct {
	mock.Mock
}

func (m *MockNotificationRepository) Push(ctx context.Context, ownerID string, n models.Notification) (models.Notification, error) {
	args := m.Called(ctx, ownerID, n)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) Get(ctx context.Context, ownerID, notificationID string) (models.Notification, error) {
	args := m.Called(ctx, ownerID, notificationID)
	return args.Get(0).(models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) List(ctx context.Context, ownerID string) ([]models.Notification, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Notification), args.Error(1)
}

func (m *MockNotificationRepository) Update(ctx context.Context, ownerID, notificationID string, fields map[string]any) error {
	return m.Called(ctx, ownerID, notificationID, fields).Error(0)
}

func (m *MockNotificationRepository) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*store.Subscription), args.Error(1)
}

// fakeCart is a CheckoutCart with fixed lines.
type fakeCart struct {
	lines    []models.CartLine
	clearErr error
	cleared  bool
}

func (c *fakeCart) Lines() []models.CartLine { return c.lines }

func (c *fakeCart) ClearCart(ctx context.Context) error {
	c.cleared = c.clearErr == nil
	return c.clearErr
}

type publishedEvent struct {
	key     string
	payload any
}

// recordingPublisher captures published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) PublishJSON(ctx context.Context, routingKey string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{key: routingKey, payload: payload})
	return p.err
}
