package services

import (
	"context"
	"strings"

	"smartbite/internal/models"
	"smartbite/internal/repositories"
	"smartbite/pkg/result"

	"github.com/sirupsen/logrus"
)

const msgNotOwnProfile = "You can only change your own profile"

// ProfileService wraps profile access with ownership checks.
type ProfileService struct {
	repo   repositories.ProfileRepository
	images *ImageService
	logger logrus.FieldLogger
}

// NewProfileService creates a new ProfileService. images may be nil, in which
// case SetImage always fails.
func NewProfileService(repo repositories.ProfileRepository, images *ImageService, logger logrus.FieldLogger) *ProfileService {
	return &ProfileService{repo: repo, images: images, logger: logger}
}

func (s *ProfileService) Get(ctx context.Context, userID string) result.Result[*models.Profile] {
	return s.repo.GetProfileByID(ctx, userID)
}

func (s *ProfileService) All(ctx context.Context) result.Result[[]models.Profile] {
	return s.repo.GetAllProfiles(ctx)
}

// Create stores a new profile.
func (s *ProfileService) Create(ctx context.Context, profile models.Profile) result.Status {
	profile.Email = strings.ToLower(strings.TrimSpace(profile.Email))
	if err := validate.Struct(profile); err != nil {
		return result.Rejected(result.KindInvalid, validationMessage(err))
	}
	return s.repo.AddProfile(ctx, profile)
}

// Update writes the non-empty fields of callerID's profile. An empty UserID
// means the caller's own. The email stays the login email and the image is
// only set through SetImage.
func (s *ProfileService) Update(ctx context.Context, callerID string, profile models.Profile) result.Status {
	if profile.UserID == "" {
		profile.UserID = callerID
	}
	if profile.UserID != callerID {
		return result.Rejected(result.KindForbidden, msgNotOwnProfile)
	}
	profile.Email = ""
	profile.ImageURL = ""
	if err := validate.Struct(profile); err != nil {
		return result.Rejected(result.KindInvalid, validationMessage(err))
	}
	return s.repo.UpdateProfile(ctx, profile)
}

// Delete removes callerID's own profile.
func (s *ProfileService) Delete(ctx context.Context, callerID, userID string) result.Status {
	if userID != callerID {
		return result.Rejected(result.KindForbidden, msgNotOwnProfile)
	}
	return s.repo.DeleteProfile(ctx, userID)
}

// SetImage uploads ref and stores the resulting URL on callerID's profile.
func (s *ProfileService) SetImage(ctx context.Context, callerID string, ref ImageRef) result.Result[string] {
	if s.images == nil {
		return result.Fail[string](msgUploadFailed)
	}
	current := s.repo.GetProfileByID(ctx, callerID)
	if !current.Success {
		return result.Forward[string](current)
	}

	upload := s.images.UploadAndWait(ctx, ref)
	if !upload.Success {
		return upload
	}

	profile := *current.Data
	profile.UserID = callerID
	profile.ImageURL = upload.Data
	if res := s.repo.UpdateProfile(ctx, profile); !res.Success {
		s.logger.WithField("user_id", callerID).WithField("message", res.Message).Error("uploaded image but could not save it on the profile")
		return result.Forward[string](res)
	}
	return result.OK("Profile image updated", upload.Data)
}
