package service

import (
	"context"

	"snapfeed/internal/models"
	"snapfeed/internal/repository"
)

// UserService implements profile operations.
type UserService struct {
	userRepo repository.UserRepository
	postRepo repository.PostRepository
}

// UpdateProfileInput is the explicit allowed-field list for profile updates.
// Anything not listed here cannot be changed through the profile endpoint.
type UpdateProfileInput struct {
	UserID uint
	Name   *string
	Bio    *string
	Avatar *string
}

// NewUserService returns a UserService backed by the given repositories.
func NewUserService(userRepo repository.UserRepository, postRepo repository.PostRepository) *UserService {
	return &UserService{userRepo: userRepo, postRepo: postRepo}
}

func (s *UserService) ListUsers(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.userRepo.List(ctx, limit, offset)
}

func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	return s.userRepo.GetByID(ctx, id)
}

// GetProfile returns the user together with their most recent posts and
// total post count. The preload is limited, the count is not.
func (s *UserService) GetProfile(ctx context.Context, id uint, postLimit int) (*models.User, error) {
	user, err := s.userRepo.GetByIDWithPosts(ctx, id, postLimit)
	if err != nil {
		return nil, err
	}

	count, err := s.postRepo.CountByOwner(ctx, id)
	if err != nil {
		return nil, err
	}
	user.PostsCount = count

	return user, nil
}

// UpdateProfile applies the allowed profile fields. Nil pointers leave the
// stored value unchanged.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	const maxNameLen = 100
	const maxBioLen = 500

	if in.Name != nil {
		if len(*in.Name) > maxNameLen {
			return nil, models.NewValidationError("Name too long (max 100 characters)")
		}
		user.Name = *in.Name
	}
	if in.Bio != nil {
		if len(*in.Bio) > maxBioLen {
			return nil, models.NewValidationError("Bio too long (max 500 characters)")
		}
		user.Bio = *in.Bio
	}
	if in.Avatar != nil {
		user.Avatar = *in.Avatar
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
