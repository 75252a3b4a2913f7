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
	"smartbite/pkg/result"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotAuthenticated is returned by cart operations without a signed-in user.
	ErrNotAuthenticated = errors.New("user not logged in")
	// ErrLineNotFound is returned when a quantity change targets a missing line.
	ErrLineNotFound = errors.New("cart line not found")
)

// CartManager owns one user's cart and keeps an observed copy of its lines.
type CartManager struct {
	repo   repositories.CartRepository
	userID string
	logger logrus.FieldLogger

	mu    sync.RWMutex
	lines []models.CartLine

	listenMu sync.Mutex
	sub      *store.Subscription
	done     chan struct{}
}

// NewCartManager creates a manager for userID's cart. userID may be empty.
func NewCartManager(repo repositories.CartRepository, userID string, logger logrus.FieldLogger) *CartManager {
	return &CartManager{
		repo:   repo,
		userID: userID,
		logger: logger.WithField("user_id", userID),
	}
}

// UserID returns the cart owner.
func (m *CartManager) UserID() string { return m.userID }

// Listen starts mirroring the stored cart into Lines. It is a no-op without a
// user or when already listening.
func (m *CartManager) Listen(ctx context.Context) error {
	if m.userID == "" {
		return nil
	}
	m.listenMu.Lock()
	defer m.listenMu.Unlock()
	if m.sub != nil {
		return nil
	}

	sub, err := m.repo.Subscribe(ctx, m.userID)
	if err != nil {
		return fmt.Errorf("failed to listen to cart: %w", err)
	}
	m.sub = sub
	m.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		for snap := range sub.C {
			m.setLines(repositories.DecodeCart(snap))
		}
		if err := sub.Err(); err != nil {
			m.logger.WithError(err).Warn("cart listener stopped")
		}
	}(m.done)
	return nil
}

// Stop ends the listener started by Listen and waits for it to exit.
func (m *CartManager) Stop() {
	m.listenMu.Lock()
	defer m.listenMu.Unlock()
	if m.sub == nil {
		return
	}
	m.sub.Close()
	<-m.done
	m.sub = nil
}

// Refresh reloads the lines from the store once.
func (m *CartManager) Refresh(ctx context.Context) error {
	if m.userID == "" {
		return ErrNotAuthenticated
	}
	lines, err := m.repo.ListLines(ctx, m.userID)
	if err != nil {
		return fmt.Errorf("failed to load cart: %w", err)
	}
	m.setLines(lines)
	return nil
}

// Lines returns a copy of the observed cart.
func (m *CartManager) Lines() []models.CartLine {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Clone(m.lines)
}

// Totals computes subtotal, tax and total over the observed cart.
func (m *CartManager) Totals() models.Totals {
	return models.ComputeTotals(m.Lines())
}

func (m *CartManager) setLines(lines []models.CartLine) {
	m.mu.Lock()
	m.lines = lines
	m.mu.Unlock()
}

// AddToCart adds line, or bumps the quantity when the item is already in the
// cart. Failures are logged and never surfaced to the caller.
func (m *CartManager) AddToCart(ctx context.Context, line models.CartLine) {
	if m.userID == "" {
		m.logger.Error("User not logged in")
		return
	}
	if err := m.addLine(ctx, line); err != nil {
		m.logger.WithError(err).WithField("item_id", line.ID).Error("Failed to add item")
	}
}

// AddMenuItem adds quantity of the catalog item itemID. Name, price and image
// come from the catalog; missing and unavailable items are rejected.
func (m *CartManager) AddMenuItem(ctx context.Context, menus repositories.MenuRepository, itemID string, quantity int) result.Status {
	if m.userID == "" {
		return result.Rejected(result.KindInvalid, MsgLoginToOrder)
	}
	if quantity < 1 {
		quantity = 1
	}
	item := menus.GetMenuByID(ctx, itemID)
	if !item.Success {
		return result.Forward[struct{}](item)
	}
	if !item.Data.IsAvailable {
		return result.Rejected(result.KindConflict, fmt.Sprintf("%s is not available right now", item.Data.Name))
	}

	line := models.CartLine{
		ID:       item.Data.ID,
		Name:     item.Data.Name,
		Price:    item.Data.Price,
		Image:    item.Data.ImageURL,
		Quantity: quantity,
	}
	if line.ID == "" {
		line.ID = itemID
	}
	if err := m.addLine(ctx, line); err != nil {
		m.logger.WithError(err).WithField("item_id", itemID).Error("Failed to add item")
		return result.FromError[struct{}](err, "Could not add item")
	}
	return result.Done("Added to cart")
}

func (m *CartManager) addLine(ctx context.Context, line models.CartLine) error {
	if line.Quantity < 1 {
		line.Quantity = 1
	}
	existing, err := m.repo.GetLine(ctx, m.userID, line.ID)
	switch {
	case err == nil:
		if err := m.repo.SetQuantity(ctx, m.userID, line.ID, existing.Quantity+line.Quantity); err != nil {
			return fmt.Errorf("failed to update quantity: %w", err)
		}
	case errors.Is(err, store.ErrNotFound):
		if err := m.repo.PutLine(ctx, m.userID, line); err != nil {
			return fmt.Errorf("failed to add line: %w", err)
		}
	default:
		return fmt.Errorf("failed to read cart: %w", err)
	}
	return nil
}

// IncreaseQty adds one to the stored quantity of itemID.
func (m *CartManager) IncreaseQty(ctx context.Context, itemID string) error {
	current, err := m.currentQuantity(ctx, itemID)
	if err != nil {
		return err
	}
	return m.repo.SetQuantity(ctx, m.userID, itemID, current+1)
}

// DecreaseQty removes one from the stored quantity of itemID, never going below 1.
func (m *CartManager) DecreaseQty(ctx context.Context, itemID string) error {
	current, err := m.currentQuantity(ctx, itemID)
	if err != nil {
		return err
	}
	if current <= 1 {
		return nil
	}
	return m.repo.SetQuantity(ctx, m.userID, itemID, current-1)
}

func (m *CartManager) currentQuantity(ctx context.Context, itemID string) (int, error) {
	if m.userID == "" {
		return 0, ErrNotAuthenticated
	}
	line, err := m.repo.GetLine(ctx, m.userID, itemID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrLineNotFound
	}
	if err != nil {
		return 0, err
	}
	return line.Quantity, nil
}

// RemoveItem deletes itemID from the cart.
func (m *CartManager) RemoveItem(ctx context.Context, itemID string) error {
	if m.userID == "" {
		return ErrNotAuthenticated
	}
	return m.repo.RemoveLine(ctx, m.userID, itemID)
}

// ClearCart removes every line in the observed cart.
func (m *CartManager) ClearCart(ctx context.Context) error {
	if m.userID == "" {
		return ErrNotAuthenticated
	}
	var errs []error
	for _, line := range m.Lines() {
		if err := m.repo.RemoveLine(ctx, m.userID, line.ID); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", line.ID, err))
		}
	}
	return errors.Join(errs...)
}
