package repositories

import (
	"context"
	"fmt"

	"smartbite/internal/models"
	"smartbite/internal/store"
)

// NotificationRepository defines the interface for per-owner notification collections.
type NotificationRepository interface {
	// Push stores n under a new key and returns it with ID set.
	Push(ctx context.Context, ownerID string, n models.Notification) (models.Notification, error)
	Get(ctx context.Context, ownerID, notificationID string) (models.Notification, error)
	List(ctx context.Context, ownerID string) ([]models.Notification, error)
	Update(ctx context.Context, ownerID, notificationID string, fields map[string]any) error
	Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error)
}

// StoreNotificationRepository keeps notifications under users/{ownerId}/notifications/{id}.
type StoreNotificationRepository struct {
	store store.Store
}

// NewStoreNotificationRepository creates a new StoreNotificationRepository.
func NewStoreNotificationRepository(s store.Store) *StoreNotificationRepository {
	return &StoreNotificationRepository{store: s}
}

func (r *StoreNotificationRepository) Push(ctx context.Context, ownerID string, n models.Notification) (models.Notification, error) {
	n.ID = store.PushKey()
	if err := r.store.Set(ctx, store.Join(NotificationsPath(ownerID), n.ID), n); err != nil {
		return models.Notification{}, fmt.Errorf("failed to write notification for %s: %w", ownerID, err)
	}
	return n, nil
}

func (r *StoreNotificationRepository) Get(ctx context.Context, ownerID, notificationID string) (models.Notification, error) {
	raw, err := r.store.Get(ctx, store.Join(NotificationsPath(ownerID), notificationID))
	if err != nil {
		return models.Notification{}, err
	}
	n, err := store.Decode[models.Notification](raw)
	if err != nil {
		return models.Notification{}, fmt.Errorf("failed to decode notification %s: %w", notificationID, err)
	}
	n.ID = notificationID
	return n, nil
}

// List returns the owner's notifications in store order (by key).
func (r *StoreNotificationRepository) List(ctx context.Context, ownerID string) ([]models.Notification, error) {
	children, err := r.store.Children(ctx, NotificationsPath(ownerID))
	if err != nil {
		return nil, err
	}
	return DecodeNotifications(children), nil
}

func (r *StoreNotificationRepository) Update(ctx context.Context, ownerID, notificationID string, fields map[string]any) error {
	return r.store.Update(ctx, store.Join(NotificationsPath(ownerID), notificationID), fields)
}

func (r *StoreNotificationRepository) Subscribe(ctx context.Context, ownerID string) (*store.Subscription, error) {
	return r.store.Subscribe(ctx, NotificationsPath(ownerID))
}

// DecodeNotifications decodes a notification snapshot; the store key is the id.
func DecodeNotifications(children []store.Child) []models.Notification {
	return store.DecodeChildren(children, func(n *models.Notification, key string) {
		n.ID = key
	})
}
