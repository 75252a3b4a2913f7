package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/internal/store"

	"github.com/sirupsen/logrus"
)

var (
	ErrNotificationIDMissing = errors.New("notification id is missing")
	ErrNotificationNotFound  = errors.New("notification not found")
)

// NotificationService answers one-shot queries over notification collections.
type NotificationService struct {
	repo   repositories.NotificationRepository
	logger logrus.FieldLogger
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(repo repositories.NotificationRepository, logger logrus.FieldLogger) *NotificationService {
	return &NotificationService{repo: repo, logger: logger}
}

// List returns ownerID's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, ownerID string) ([]models.Notification, error) {
	list, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	models.SortNewestFirst(list)
	return list, nil
}

// MyOrders returns only the order and order_update records, newest first.
func (s *NotificationService) MyOrders(ctx context.Context, ownerID string) ([]models.Notification, error) {
	list, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return models.FilterOrders(list), nil
}

// UnreadCount returns how many of ownerID's notifications are unread.
func (s *NotificationService) UnreadCount(ctx context.Context, ownerID string) (int, error) {
	list, err := s.repo.List(ctx, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to list notifications: %w", err)
	}
	unread := 0
	for _, n := range list {
		if !n.IsRead {
			unread++
		}
	}
	return unread, nil
}

// MarkAsRead sets isRead on an existing notification. Marking an already read
// notification is a no-op, and an unknown id is reported rather than created.
func (s *NotificationService) MarkAsRead(ctx context.Context, ownerID, notificationID string) error {
	if notificationID == "" {
		return ErrNotificationIDMissing
	}
	n, err := s.repo.Get(ctx, ownerID, notificationID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotificationNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read notification: %w", err)
	}
	if n.IsRead {
		return nil
	}
	if err := s.repo.Update(ctx, ownerID, notificationID, map[string]any{"isRead": true}); err != nil {
		s.logger.WithError(err).WithField("notification_id", notificationID).Error("failed to mark notification as read")
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	return nil
}

// NotificationFeed mirrors one owner's notification collection, newest first.
// Listening to a different owner replaces the previous subscription.
type NotificationFeed struct {
	repo       repositories.NotificationRepository
	logger     logrus.FieldLogger
	ordersOnly bool

	listenMu sync.Mutex
	sub      *store.Subscription
	done     chan struct{}

	mu      sync.RWMutex
	owner   string
	items   []models.Notification
	updates chan []models.Notification
}

// NewNotificationFeed creates a feed over every notification type.
func NewNotificationFeed(repo repositories.NotificationRepository, logger logrus.FieldLogger) *NotificationFeed {
	return &NotificationFeed{
		repo:    repo,
		logger:  logger,
		updates: make(chan []models.Notification, 1),
	}
}

// NewMyOrdersFeed creates a feed that keeps only order-related notifications.
func NewMyOrdersFeed(repo repositories.NotificationRepository, logger logrus.FieldLogger) *NotificationFeed {
	f := NewNotificationFeed(repo, logger)
	f.ordersOnly = true
	return f
}

// Listen starts mirroring ownerID's notifications. Calling it again for the
// same owner does nothing; for another owner the old subscription is closed
// before the new one starts.
func (f *NotificationFeed) Listen(ctx context.Context, ownerID string) error {
	f.listenMu.Lock()
	defer f.listenMu.Unlock()

	if f.sub != nil && f.Owner() == ownerID {
		return nil
	}
	f.stopLocked()

	sub, err := f.repo.Subscribe(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("failed to listen to notifications: %w", err)
	}

	f.mu.Lock()
	f.owner = ownerID
	f.items = nil
	f.mu.Unlock()

	f.sub = sub
	f.done = make(chan struct{})
	go f.consume(sub, f.done)
	return nil
}

func (f *NotificationFeed) consume(sub *store.Subscription, done chan struct{}) {
	defer close(done)
	for snap := range sub.C {
		list := repositories.DecodeNotifications(snap)
		if f.ordersOnly {
			list = models.FilterOrders(list)
		}
		models.SortNewestFirst(list)

		f.mu.Lock()
		f.items = list
		f.mu.Unlock()

		// Keep only the latest list for a slow reader.
		select {
		case <-f.updates:
		default:
		}
		select {
		case f.updates <- slices.Clone(list):
		default:
		}
	}
	if err := sub.Err(); err != nil {
		f.logger.WithError(err).Warn("notification listener stopped")
	}
}

// Notifications returns a copy of the current list.
func (f *NotificationFeed) Notifications() []models.Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return slices.Clone(f.items)
}

// Owner returns the collection currently mirrored.
func (f *NotificationFeed) Owner() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.owner
}

// Updates delivers each new list. Only the latest undelivered list is kept.
func (f *NotificationFeed) Updates() <-chan []models.Notification {
	return f.updates
}

// Stop closes the current subscription, if any.
func (f *NotificationFeed) Stop() {
	f.listenMu.Lock()
	defer f.listenMu.Unlock()
	f.stopLocked()
}

func (f *NotificationFeed) stopLocked() {
	if f.sub == nil {
		return
	}
	f.sub.Close()
	<-f.done
	f.sub = nil
	f.done = nil
}
