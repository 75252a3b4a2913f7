package repositories

import (
	"context"
	"fmt"

	"smartbite/internal/models"
	"smartbite/internal/store"
)

// CartRepository defines the interface for a user's cart lines.
type CartRepository interface {
	GetLine(ctx context.Context, userID, itemID string) (models.CartLine, error)
	PutLine(ctx context.Context, userID string, line models.CartLine) error
	SetQuantity(ctx context.Context, userID, itemID string, quantity int) error
	RemoveLine(ctx context.Context, userID, itemID string) error
	ListLines(ctx context.Context, userID string) ([]models.CartLine, error)
	Subscribe(ctx context.Context, userID string) (*store.Subscription, error)
}

// StoreCartRepository keeps cart lines under users/{userId}/cart/{itemId}.
type StoreCartRepository struct {
	store store.Store
}

// NewStoreCartRepository creates a new StoreCartRepository.
func NewStoreCartRepository(s store.Store) *StoreCartRepository {
	return &StoreCartRepository{store: s}
}

// GetLine returns store.ErrNotFound (wrapped) when the item is not in the cart.
func (r *StoreCartRepository) GetLine(ctx context.Context, userID, itemID string) (models.CartLine, error) {
	raw, err := r.store.Get(ctx, store.Join(CartPath(userID), itemID))
	if err != nil {
		return models.CartLine{}, err
	}
	line, err := store.Decode[models.CartLine](raw)
	if err != nil {
		return models.CartLine{}, fmt.Errorf("failed to decode cart line %s: %w", itemID, err)
	}
	return line, nil
}

func (r *StoreCartRepository) PutLine(ctx context.Context, userID string, line models.CartLine) error {
	return r.store.Set(ctx, store.Join(CartPath(userID), line.ID), line)
}

func (r *StoreCartRepository) SetQuantity(ctx context.Context, userID, itemID string, quantity int) error {
	return r.store.Update(ctx, store.Join(CartPath(userID), itemID), map[string]any{"quantity": quantity})
}

func (r *StoreCartRepository) RemoveLine(ctx context.Context, userID, itemID string) error {
	return r.store.Remove(ctx, store.Join(CartPath(userID), itemID))
}

func (r *StoreCartRepository) ListLines(ctx context.Context, userID string) ([]models.CartLine, error) {
	children, err := r.store.Children(ctx, CartPath(userID))
	if err != nil {
		return nil, err
	}
	return DecodeCart(children), nil
}

func (r *StoreCartRepository) Subscribe(ctx context.Context, userID string) (*store.Subscription, error) {
	return r.store.Subscribe(ctx, CartPath(userID))
}

// DecodeCart decodes a cart snapshot.
func DecodeCart(children []store.Child) []models.CartLine {
	return store.DecodeChildren(children, func(l *models.CartLine, key string) {
		if l.ID == "" {
			l.ID = key
		}
	})
}
