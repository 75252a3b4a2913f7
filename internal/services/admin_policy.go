package services

import "strings"

// DefaultAdminOwnerID is the notification owner for café-side records.
const DefaultAdminOwnerID = "admin"

// AdminPolicy decides who is the café administrator.
//
// There is exactly one admin account, identified by email. Café-side order
// notifications live under OwnerID, not under the admin's auth id.
type AdminPolicy struct {
	Email   string
	OwnerID string
}

// NewAdminPolicy returns a policy for email, defaulting the owner id.
func NewAdminPolicy(email, ownerID string) AdminPolicy {
	if ownerID == "" {
		ownerID = DefaultAdminOwnerID
	}
	return AdminPolicy{Email: strings.TrimSpace(email), OwnerID: ownerID}
}

// IsAdmin reports whether email belongs to the admin. The match is exact
// apart from case and surrounding whitespace.
func (p AdminPolicy) IsAdmin(email string) bool {
	if p.Email == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(email), p.Email)
}

// NotificationOwner returns the collection a signed-in user's feed reads from.
func (p AdminPolicy) NotificationOwner(userID, email string) string {
	if p.IsAdmin(email) {
		return p.OwnerID
	}
	return userID
}
