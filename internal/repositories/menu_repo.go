package repositories

import (
	"context"
	"errors"

	"smartbite/internal/models"
	"smartbite/internal/store"
	"smartbite/pkg/result"
)

const (
	msgMenuIDMissing = "Menu ID is missing"
	msgMenuNotFound  = "Menu not found"
)

// MenuRepository defines the interface for menu catalog access.
type MenuRepository interface {
	AddMenu(ctx context.Context, menu models.MenuItem) result.Status
	GetMenuByID(ctx context.Context, menuID string) result.Result[*models.MenuItem]
	GetAllMenus(ctx context.Context) result.Result[[]models.MenuItem]
	ListenAllMenus(ctx context.Context) (<-chan result.Result[[]models.MenuItem], func())
	UpdateMenu(ctx context.Context, menu models.MenuItem) result.Status
	DeleteMenu(ctx context.Context, menuID string) result.Status
	UpdateMenuAvailability(ctx context.Context, menuID string, available bool) result.Status
}

// StoreMenuRepository keeps menu items under Menus/{id}.
type StoreMenuRepository struct {
	store store.Store
}

// NewStoreMenuRepository creates a new StoreMenuRepository.
func NewStoreMenuRepository(s store.Store) *StoreMenuRepository {
	return &StoreMenuRepository{store: s}
}

// AddMenu writes the full menu item.
func (r *StoreMenuRepository) AddMenu(ctx context.Context, menu models.MenuItem) result.Status {
	if menu.ID == "" {
		return result.Rejected(result.KindInvalid, msgMenuIDMissing)
	}
	if err := r.store.Set(ctx, MenuPath(menu.ID), menu); err != nil {
		return result.FromError[struct{}](err, "Failed to add menu")
	}
	return result.Done("Menu added")
}

// GetMenuByID reads one menu item once.
func (r *StoreMenuRepository) GetMenuByID(ctx context.Context, menuID string) result.Result[*models.MenuItem] {
	if menuID == "" {
		return result.Reject[*models.MenuItem](result.KindInvalid, msgMenuIDMissing)
	}
	raw, err := r.store.Get(ctx, MenuPath(menuID))
	if errors.Is(err, store.ErrNotFound) {
		return result.Reject[*models.MenuItem](result.KindNotFound, msgMenuNotFound)
	}
	if err != nil {
		return result.FromError[*models.MenuItem](err, "Failed to fetch menu")
	}
	menu, err := store.Decode[models.MenuItem](raw)
	if err != nil {
		return result.FromError[*models.MenuItem](err, "Failed to fetch menu")
	}
	return result.OK("Menu fetched", &menu)
}

// GetAllMenus reads the whole catalog once.
func (r *StoreMenuRepository) GetAllMenus(ctx context.Context) result.Result[[]models.MenuItem] {
	children, err := r.store.Children(ctx, MenusRoot)
	if err != nil {
		return result.Result[[]models.MenuItem]{Message: err.Error(), Data: []models.MenuItem{}}
	}
	return result.OK("Menus fetched", decodeMenus(children))
}

// ListenAllMenus streams the catalog on every change until stop is called.
func (r *StoreMenuRepository) ListenAllMenus(ctx context.Context) (<-chan result.Result[[]models.MenuItem], func()) {
	return listen(ctx, r.store, MenusRoot, "Menus fetched", decodeMenus)
}

// UpdateMenu writes the item's fields without replacing the record. The item
// must already exist.
func (r *StoreMenuRepository) UpdateMenu(ctx context.Context, menu models.MenuItem) result.Status {
	if menu.ID == "" {
		return result.Rejected(result.KindInvalid, msgMenuIDMissing)
	}
	if res := r.requireMenu(ctx, menu.ID, "Update failed"); !res.Success {
		return res
	}
	if err := r.store.Update(ctx, MenuPath(menu.ID), menu.ToMap()); err != nil {
		return result.FromError[struct{}](err, "Update failed")
	}
	return result.Done("Menu updated")
}

// DeleteMenu removes the item.
func (r *StoreMenuRepository) DeleteMenu(ctx context.Context, menuID string) result.Status {
	if menuID == "" {
		return result.Rejected(result.KindInvalid, msgMenuIDMissing)
	}
	if err := r.store.Remove(ctx, MenuPath(menuID)); err != nil {
		return result.FromError[struct{}](err, "Delete failed")
	}
	return result.Done("Menu deleted")
}

// UpdateMenuAvailability writes only the isAvailable field of an existing item.
func (r *StoreMenuRepository) UpdateMenuAvailability(ctx context.Context, menuID string, available bool) result.Status {
	if menuID == "" {
		return result.Rejected(result.KindInvalid, msgMenuIDMissing)
	}
	if res := r.requireMenu(ctx, menuID, "Failed to update"); !res.Success {
		return res
	}
	if err := r.store.Update(ctx, MenuPath(menuID), map[string]any{"isAvailable": available}); err != nil {
		return result.FromError[struct{}](err, "Failed to update")
	}
	return result.Done("Successfully updated")
}

// requireMenu fails unless Menus/{menuID} exists. A partial update would
// otherwise create a record holding only the written fields.
func (r *StoreMenuRepository) requireMenu(ctx context.Context, menuID, failMsg string) result.Status {
	_, err := r.store.Get(ctx, MenuPath(menuID))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return result.Rejected(result.KindNotFound, msgMenuNotFound)
	case err != nil:
		return result.FromError[struct{}](err, failMsg)
	}
	return result.Done("")
}

func decodeMenus(children []store.Child) []models.MenuItem {
	return store.DecodeChildren(children, func(m *models.MenuItem, key string) {
		if m.ID == "" {
			m.ID = key
		}
	})
}
