// Package server contains the HTTP handlers for the application's API endpoints.
package server

import (
	"snapfeed/internal/middleware"
	"snapfeed/internal/models"
	"snapfeed/internal/repository"
	"snapfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postPayload is the accepted request body for post mutations. Pointer
// fields distinguish "absent" (leave unchanged) from "present but empty"
// (a validation error for title).
type postPayload struct {
	Title    *string `json:"title"`
	Body     *string `json:"body"`
	ImageURL *string `json:"image_url"`
}

// ListUserPosts handles GET /api/users/:userId/posts
// Returns the target user's posts in creation order, oldest first.
func (s *Server) ListUserPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}

	posts, err := s.postService.ListByUser(ctx, targetUserID, currentUserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(posts)
}

// AllPosts handles GET /api/users/:userId/posts/all
// Returns every post in the system, newest first. The user segment in the
// path is not consulted; the route shape exists for client convenience.
// Unlike the index, this feed is paginated (the full set is unbounded);
// clients page through with limit/offset.
func (s *Server) AllPosts(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)
	page := parsePagination(c, repository.DefaultAllPostsLimit)

	posts, err := s.postService.ListAll(ctx, page.Limit, page.Offset, currentUserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(posts)
}

// GetPost handles GET /api/users/:userId/posts/:id
// Resolves the post by id alone; the user segment is not checked.
func (s *Server) GetPost(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Get(ctx, postID, currentUserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(post)
}

// NewPost handles GET /api/users/:userId/posts/new
// Returns an unpersisted post template owned by the acting user.
func (s *Server) NewPost(c *fiber.Ctx) error {
	currentUserID := c.Locals("userID").(uint)
	return c.JSON(s.postService.NewTemplate(currentUserID))
}

// CreatePost handles POST /api/users/:userId/posts
// The created post is owned by the authenticated user regardless of the
// path's user segment. On success the client is redirected to the new post.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	var req postPayload
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	in := service.CreatePostInput{ActorID: currentUserID}
	if req.Title != nil {
		in.Title = *req.Title
	}
	if req.Body != nil {
		in.Body = *req.Body
	}
	if req.ImageURL != nil {
		in.ImageURL = *req.ImageURL
	}

	post, err := s.postService.Create(ctx, in)
	if err != nil {
		return mapServiceError(c, err)
	}

	return seeOther(c, userPostPath(post.UserID, post.ID), post)
}

// EditPost handles GET /api/users/:userId/posts/:id/edit
// Resolves strictly within the target user's collection; a post owned by
// anyone else answers 404.
func (s *Server) EditPost(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Edit(ctx, targetUserID, postID, currentUserID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(post)
}

// UpdatePost handles PUT /api/users/:userId/posts/:id
// On success the client is redirected to the updated post. A rejected
// payload answers 422 with the submitted values echoed back; the stored
// record stays untouched.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	var req postPayload
	if parseErr := c.BodyParser(&req); parseErr != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	post, err := s.postService.Update(ctx, service.UpdatePostInput{
		TargetUserID: targetUserID,
		PostID:       postID,
		ActorID:      currentUserID,
		Title:        req.Title,
		Body:         req.Body,
		ImageURL:     req.ImageURL,
	})
	if err != nil {
		return mapServiceError(c, err)
	}

	return seeOther(c, userPostPath(targetUserID, post.ID), post)
}

// DeletePost handles DELETE /api/users/:userId/posts/:id
// On success the client is redirected to the target user's post index.
func (s *Server) DeletePost(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	targetUserID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	if err := s.postService.Delete(ctx, targetUserID, postID, currentUserID); err != nil {
		return mapServiceError(c, err)
	}

	return seeOther(c, userPostsPath(targetUserID), nil)
}

// LikePost handles POST /api/users/:userId/posts/:id/like
// This endpoint toggles the like status - if already liked, it unlikes; if not liked, it likes
func (s *Server) LikePost(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, liked, err := s.postService.ToggleLike(ctx, currentUserID, postID)
	if err != nil {
		return mapServiceError(c, err)
	}

	action := "like"
	if !liked {
		action = "unlike"
	}
	middleware.LikesToggled.WithLabelValues(action).Inc()

	return c.JSON(post)
}

// UnlikePost handles DELETE /api/users/:userId/posts/:id/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	ctx := c.Context()
	currentUserID := c.Locals("userID").(uint)

	postID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	post, err := s.postService.Unlike(ctx, currentUserID, postID)
	if err != nil {
		return mapServiceError(c, err)
	}

	middleware.LikesToggled.WithLabelValues("unlike").Inc()

	return c.JSON(post)
}
