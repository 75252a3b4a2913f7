package repositories

import (
	"context"
	"errors"

	"smartbite/internal/models"
	"smartbite/internal/store"
	"smartbite/pkg/result"
)

const msgUserIDMissing = "UserId is missing"

// ProfileRepository defines the interface for profile access.
type ProfileRepository interface {
	AddProfile(ctx context.Context, profile models.Profile) result.Status
	GetProfileByID(ctx context.Context, userID string) result.Result[*models.Profile]
	GetAllProfiles(ctx context.Context) result.Result[[]models.Profile]
	UpdateProfile(ctx context.Context, profile models.Profile) result.Status
	DeleteProfile(ctx context.Context, userID string) result.Status
}

// StoreProfileRepository keeps profiles under Users/{userId}.
type StoreProfileRepository struct {
	store store.Store
}

// NewStoreProfileRepository creates a new StoreProfileRepository.
func NewStoreProfileRepository(s store.Store) *StoreProfileRepository {
	return &StoreProfileRepository{store: s}
}

func (r *StoreProfileRepository) AddProfile(ctx context.Context, profile models.Profile) result.Status {
	if profile.UserID == "" {
		return result.Rejected(result.KindInvalid, msgUserIDMissing)
	}
	if err := r.store.Set(ctx, ProfilePath(profile.UserID), profile); err != nil {
		return result.FromError[struct{}](err, "Failed to save profile")
	}
	return result.Done("Profile saved")
}

func (r *StoreProfileRepository) GetProfileByID(ctx context.Context, userID string) result.Result[*models.Profile] {
	if userID == "" {
		return result.Reject[*models.Profile](result.KindInvalid, msgUserIDMissing)
	}
	raw, err := r.store.Get(ctx, ProfilePath(userID))
	if errors.Is(err, store.ErrNotFound) {
		return result.Reject[*models.Profile](result.KindNotFound, "Profile not found")
	}
	if err != nil {
		return result.FromError[*models.Profile](err, "Failed to fetch profile")
	}
	profile, err := store.Decode[models.Profile](raw)
	if err != nil {
		return result.FromError[*models.Profile](err, "Failed to fetch profile")
	}
	return result.OK("Profile fetched", &profile)
}

func (r *StoreProfileRepository) GetAllProfiles(ctx context.Context) result.Result[[]models.Profile] {
	children, err := r.store.Children(ctx, ProfilesRoot)
	if err != nil {
		return result.Result[[]models.Profile]{Message: err.Error(), Data: []models.Profile{}}
	}
	profiles := store.DecodeChildren(children, func(p *models.Profile, key string) {
		if p.UserID == "" {
			p.UserID = key
		}
	})
	return result.OK("Profiles fetched", profiles)
}

func (r *StoreProfileRepository) UpdateProfile(ctx context.Context, profile models.Profile) result.Status {
	if profile.UserID == "" {
		return result.Rejected(result.KindInvalid, msgUserIDMissing)
	}
	if err := r.store.Update(ctx, ProfilePath(profile.UserID), profile.ToMap()); err != nil {
		return result.FromError[struct{}](err, "Update failed")
	}
	return result.Done("Profile updated")
}

func (r *StoreProfileRepository) DeleteProfile(ctx context.Context, userID string) result.Status {
	if userID == "" {
		return result.Rejected(result.KindInvalid, msgUserIDMissing)
	}
	if err := r.store.Remove(ctx, ProfilePath(userID)); err != nil {
		return result.FromError[struct{}](err, "Delete failed")
	}
	return result.Done("Profile deleted")
}
