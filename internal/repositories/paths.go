package repositories

import "smartbite/internal/store"

// Collection roots in the document tree.
const (
	MenusRoot    = "Menus"
	ProfilesRoot = "Users"
	usersRoot    = "users"
)

// MenuPath is Menus/{menuID}.
func MenuPath(menuID string) string { return store.Join(MenusRoot, menuID) }

// ProfilePath is Users/{userID}.
func ProfilePath(userID string) string { return store.Join(ProfilesRoot, userID) }

// CartPath is users/{userID}/cart.
func CartPath(userID string) string { return store.Join(usersRoot, userID, "cart") }

// NotificationsPath is users/{ownerID}/notifications.
func NotificationsPath(ownerID string) string {
	return store.Join(usersRoot, ownerID, "notifications")
}
