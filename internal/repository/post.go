// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"errors"

	"snapfeed/internal/cache"
	"snapfeed/internal/models"
	"snapfeed/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations.
//
// Two lookup flavors exist on purpose: GetByID resolves a post by id alone
// (read access to a single post is not ownership-gated), while GetByOwner
// filters by owner AND id in a single query and fails closed with NotFound
// when either does not match. Mutating callers must use GetByOwner.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error)
	GetByOwner(ctx context.Context, ownerID, id uint, currentUserID uint) (*models.Post, error)
	ListByOwner(ctx context.Context, ownerID uint, currentUserID uint) ([]*models.Post, error)
	ListAll(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error)
	Update(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, post *models.Post) error
	CountByOwner(ctx context.Context, ownerID uint) (int64, error)
	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Create", "posts")
	defer span.End()

	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		observability.RecordSpanError(ctx, err)
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID, post.UserID)
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint, currentUserID uint) (*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByID", "posts")
	defer span.End()

	// The viewer-independent projection (post, author, likes count) is served
	// through the cache; the viewer-specific liked flag is overlaid after.
	var post models.Post
	err := cache.Aside(ctx, cache.PostKey(id), &post, cache.PostTTL, func() error {
		return r.applyPostDetails(r.db.WithContext(ctx), 0).
			Preload("User").
			First(&post, id).Error
	})
	if err != nil {
		return nil, notFoundOrInternal(err, "Post", id)
	}

	if currentUserID != 0 {
		liked, err := r.IsLiked(ctx, currentUserID, id)
		if err != nil {
			return nil, err
		}
		post.Liked = liked
	}
	return &post, nil
}

func (r *postRepository) GetByOwner(ctx context.Context, ownerID, id uint, currentUserID uint) (*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "GetByOwner", "posts")
	defer span.End()

	// Owner and id are matched in one query so a scope mismatch is
	// indistinguishable from a missing post.
	var post models.Post
	err := r.applyPostDetails(r.db.WithContext(ctx), currentUserID).
		Preload("User").
		Where("posts.user_id = ? AND posts.id = ?", ownerID, id).
		First(&post).Error
	if err != nil {
		return nil, notFoundOrInternal(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) ListByOwner(ctx context.Context, ownerID uint, currentUserID uint) ([]*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ListByOwner", "posts")
	defer span.End()

	// Creation order, oldest first. The cached projection is shared across
	// viewers; the liked flags are overlaid per viewer.
	var posts []*models.Post
	err := cache.Aside(ctx, cache.OwnerPostsKey(ownerID), &posts, cache.PostsListTTL, func() error {
		return r.applyPostDetails(r.db.WithContext(ctx), 0).
			Preload("User").
			Where("posts.user_id = ?", ownerID).
			Order("posts.created_at ASC, posts.id ASC").
			Find(&posts).Error
	})
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return r.overlayLiked(ctx, posts, currentUserID)
}

// DefaultAllPostsLimit is the page size of the feed's first page, the only
// ListAll projection served through the cache.
const DefaultAllPostsLimit = 20

func (r *postRepository) ListAll(ctx context.Context, limit, offset int, currentUserID uint) ([]*models.Post, error) {
	ctx, span := observability.StartRepositorySpan(ctx, "ListAll", "posts")
	defer span.End()

	var posts []*models.Post
	fetch := func() error {
		return r.applyPostDetails(r.db.WithContext(ctx), 0).
			Preload("User").
			Order("posts.created_at DESC, posts.id DESC").
			Limit(limit).
			Offset(offset).
			Find(&posts).Error
	}

	var err error
	if offset == 0 && limit == DefaultAllPostsLimit {
		err = cache.Aside(ctx, cache.AllPostsKey, &posts, cache.PostsListTTL, fetch)
	} else {
		err = fetch()
	}
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return nil, models.NewInternalError(err)
	}
	return r.overlayLiked(ctx, posts, currentUserID)
}

// overlayLiked fills the viewer-specific liked flag on posts served from a
// shared projection.
func (r *postRepository) overlayLiked(ctx context.Context, posts []*models.Post, currentUserID uint) ([]*models.Post, error) {
	if currentUserID == 0 || len(posts) == 0 {
		return posts, nil
	}

	ids := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
	}

	var likedIDs []uint
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id IN ?", currentUserID, ids).
		Pluck("post_id", &likedIDs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}

	likedSet := make(map[uint]struct{}, len(likedIDs))
	for _, id := range likedIDs {
		likedSet[id] = struct{}{}
	}
	for _, p := range posts {
		_, p.Liked = likedSet[p.ID]
	}
	return posts, nil
}

// applyPostDetails adds subqueries to fetch the likes count and the current
// user's liked status in a single query.
func (r *postRepository) applyPostDetails(db *gorm.DB, currentUserID uint) *gorm.DB {
	selectQuery := "posts.*, " +
		"(SELECT COUNT(*) FROM likes WHERE likes.post_id = posts.id) as likes_count"

	if currentUserID != 0 {
		return db.Select(selectQuery+", EXISTS(SELECT 1 FROM likes WHERE likes.post_id = posts.id AND likes.user_id = ?) as liked", currentUserID)
	}

	return db.Select(selectQuery)
}

func (r *postRepository) Update(ctx context.Context, post *models.Post) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Update", "posts")
	defer span.End()

	if err := r.db.WithContext(ctx).
		Model(post).
		Updates(map[string]any{
			"title":     post.Title,
			"body":      post.Body,
			"image_url": post.ImageURL,
		}).Error; err != nil {
		observability.RecordSpanError(ctx, err)
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID, post.UserID)
	return nil
}

func (r *postRepository) Delete(ctx context.Context, post *models.Post) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Delete", "posts")
	defer span.End()

	// Likes are dependent rows; remove them with the post.
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", post.ID).Delete(&models.Like{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, post.ID).Error
	})
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return models.NewInternalError(err)
	}
	cache.InvalidatePost(ctx, post.ID, post.UserID)
	return nil
}

func (r *postRepository) CountByOwner(ctx context.Context, ownerID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("user_id = ?", ownerID).
		Count(&count).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Like", "likes")
	defer span.End()

	// INSERT ... ON CONFLICT DO NOTHING keeps the one-like-per-(user,post)
	// invariant under concurrent requests without a duplicate key error.
	result := r.db.WithContext(ctx).Exec(
		`INSERT INTO likes (user_id, post_id, created_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT (user_id, post_id) DO NOTHING`,
		userID, postID,
	)
	if result.Error != nil {
		observability.RecordSpanError(ctx, result.Error)
		return models.NewInternalError(result.Error)
	}
	cache.Invalidate(ctx, cache.PostKey(postID))
	return nil
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	ctx, span := observability.StartRepositorySpan(ctx, "Unlike", "likes")
	defer span.End()

	err := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.Like{}).Error
	if err != nil {
		observability.RecordSpanError(ctx, err)
		return models.NewInternalError(err)
	}
	cache.Invalidate(ctx, cache.PostKey(postID))
	return nil
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func notFoundOrInternal(err error, resource string, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewNotFoundError(resource, id)
	}
	return models.NewInternalError(err)
}
