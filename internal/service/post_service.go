// Package service contains the business logic between HTTP handlers and repositories.
package service

import (
	"context"
	"strings"

	"snapfeed/internal/models"
	"snapfeed/internal/repository"
)

// PostService mediates all post actions addressed under a target user scope.
//
// Scoping is deliberately uneven and mirrors the long-standing route
// contract:
//   - List resolves the target user's own posts.
//   - ListAll ignores the target user entirely and returns every post.
//   - Get resolves by post id alone, regardless of the user segment.
//   - Edit/Update/Delete resolve strictly within the target user's
//     collection and fail with NotFound on any mismatch.
//
// Do not "fix" the loose read paths without a product decision; clients
// depend on cross-user show links.
type PostService struct {
	postRepo repository.PostRepository
	userRepo repository.UserRepository
}

const maxTitleLen = 300
const maxBodyLen = 50000

// CreatePostInput carries the allowed fields for creating a post.
// ActorID is the authenticated principal; the created post is owned by it.
type CreatePostInput struct {
	ActorID  uint
	Title    string
	Body     string
	ImageURL string
}

// UpdatePostInput carries the allowed fields for updating a post.
// Nil pointers mean "leave the stored value unchanged"; a present but empty
// title is a validation error.
type UpdatePostInput struct {
	TargetUserID uint
	PostID       uint
	ActorID      uint
	Title        *string
	Body         *string
	ImageURL     *string
}

// NewPostService returns a PostService backed by the given repositories.
func NewPostService(postRepo repository.PostRepository, userRepo repository.UserRepository) *PostService {
	return &PostService{
		postRepo: postRepo,
		userRepo: userRepo,
	}
}

// ListByUser returns the target user's posts in creation order.
// Fails with NotFound if the target user does not exist.
func (s *PostService) ListByUser(ctx context.Context, targetUserID, currentUserID uint) ([]*models.Post, error) {
	if _, err := s.userRepo.GetByID(ctx, targetUserID); err != nil {
		return nil, err
	}
	return s.postRepo.ListByOwner(ctx, targetUserID, currentUserID)
}

// ListAll returns every post in the system, newest first.
func (s *PostService) ListAll(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	return s.postRepo.ListAll(ctx, limit, offset, currentUserID)
}

// Get resolves a post by id alone.
func (s *PostService) Get(ctx context.Context, postID, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByID(ctx, postID, currentUserID)
}

// NewTemplate returns an unpersisted post owned by the acting principal,
// suitable for populating a creation form.
func (s *PostService) NewTemplate(actorID uint) *models.Post {
	return &models.Post{UserID: actorID}
}

// Create validates the payload and persists a new post owned by the acting
// principal. On validation failure nothing is persisted and the rejected
// field values are echoed back.
func (s *PostService) Create(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if err := validatePostFields(in.Title, in.Body); err != nil {
		return nil, err
	}

	post := &models.Post{
		Title:    strings.TrimSpace(in.Title),
		Body:     in.Body,
		ImageURL: in.ImageURL,
		UserID:   in.ActorID,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	return s.postRepo.GetByID(ctx, post.ID, in.ActorID)
}

// Edit resolves the post strictly within the target user's collection.
func (s *PostService) Edit(ctx context.Context, targetUserID, postID, currentUserID uint) (*models.Post, error) {
	return s.postRepo.GetByOwner(ctx, targetUserID, postID, currentUserID)
}

// Update resolves the post within the target user's collection, applies the
// provided fields and persists. A present-but-empty title rejects the whole
// payload and leaves the stored record untouched.
func (s *PostService) Update(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	post, err := s.postRepo.GetByOwner(ctx, in.TargetUserID, in.PostID, in.ActorID)
	if err != nil {
		return nil, err
	}

	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		if title == "" {
			return nil, models.NewValidationErrorWithFields("Title is required",
				map[string]string{"title": *in.Title})
		}
		if len(title) > maxTitleLen {
			return nil, models.NewValidationErrorWithFields("Title too long (max 300 characters)",
				map[string]string{"title": *in.Title})
		}
		post.Title = title
	}
	if in.Body != nil {
		if len(*in.Body) > maxBodyLen {
			return nil, models.NewValidationErrorWithFields("Body too long (max 50000 characters)",
				map[string]string{"title": post.Title, "body": *in.Body})
		}
		post.Body = *in.Body
	}
	if in.ImageURL != nil {
		post.ImageURL = *in.ImageURL
	}

	if err := s.postRepo.Update(ctx, post); err != nil {
		return nil, err
	}
	return s.postRepo.GetByOwner(ctx, in.TargetUserID, in.PostID, in.ActorID)
}

// Delete resolves the post within the target user's collection and removes
// it together with its likes.
func (s *PostService) Delete(ctx context.Context, targetUserID, postID, actorID uint) error {
	post, err := s.postRepo.GetByOwner(ctx, targetUserID, postID, actorID)
	if err != nil {
		return err
	}
	return s.postRepo.Delete(ctx, post)
}

// ToggleLike likes the post if the actor has not liked it, and unlikes it
// otherwise. The post is resolved by id alone, like Get.
func (s *PostService) ToggleLike(ctx context.Context, actorID, postID uint) (*models.Post, bool, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, actorID); err != nil {
		return nil, false, err
	}

	liked, err := s.postRepo.IsLiked(ctx, actorID, postID)
	if err != nil {
		return nil, false, err
	}

	if liked {
		err = s.postRepo.Unlike(ctx, actorID, postID)
	} else {
		err = s.postRepo.Like(ctx, actorID, postID)
	}
	if err != nil {
		return nil, false, err
	}

	post, err := s.postRepo.GetByID(ctx, postID, actorID)
	if err != nil {
		return nil, false, err
	}
	return post, !liked, nil
}

// Unlike removes the actor's like from the post if present.
func (s *PostService) Unlike(ctx context.Context, actorID, postID uint) (*models.Post, error) {
	if _, err := s.postRepo.GetByID(ctx, postID, actorID); err != nil {
		return nil, err
	}
	if err := s.postRepo.Unlike(ctx, actorID, postID); err != nil {
		return nil, err
	}
	return s.postRepo.GetByID(ctx, postID, actorID)
}

func validatePostFields(title, body string) error {
	if strings.TrimSpace(title) == "" {
		return models.NewValidationErrorWithFields("Title is required",
			map[string]string{"title": title, "body": body})
	}
	if len(title) > maxTitleLen {
		return models.NewValidationErrorWithFields("Title too long (max 300 characters)",
			map[string]string{"title": title, "body": body})
	}
	if len(body) > maxBodyLen {
		return models.NewValidationErrorWithFields("Body too long (max 50000 characters)",
			map[string]string{"title": title, "body": body})
	}
	return nil
}
