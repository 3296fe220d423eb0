package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"snapfeed/internal/cache"
	"snapfeed/internal/models"
	"snapfeed/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupPostServiceTest(t *testing.T) (*PostService, *gorm.DB) {
	t.Helper()
	cache.SetClient(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	return NewPostService(postRepo, userRepo), db
}

func createTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "pw",
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return user
}

func createTestPost(t *testing.T, db *gorm.DB, userID uint, title string, createdAt time.Time) *models.Post {
	t.Helper()
	post := &models.Post{
		Title:     title,
		Body:      "body of " + title,
		UserID:    userID,
		CreatedAt: createdAt,
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post %s: %v", title, err)
	}
	return post
}

func TestListByUserReturnsOwnPostsOldestFirst(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	base := time.Now().Add(-time.Hour)
	createTestPost(t, db, alice.ID, "first", base)
	createTestPost(t, db, bob.ID, "other", base.Add(time.Minute))
	createTestPost(t, db, alice.ID, "second", base.Add(2*time.Minute))
	createTestPost(t, db, alice.ID, "third", base.Add(3*time.Minute))

	posts, err := svc.ListByUser(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "first", posts[0].Title)
	assert.Equal(t, "second", posts[1].Title)
	assert.Equal(t, "third", posts[2].Title)
	for _, p := range posts {
		assert.Equal(t, alice.ID, p.UserID)
	}
}

func TestListByUserUnknownUserIsNotFound(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	viewer := createTestUser(t, db, "viewer")

	_, err := svc.ListByUser(context.Background(), 9999, viewer.ID)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestListAllReturnsEveryPostNewestFirst(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")

	base := time.Now().Add(-time.Hour)
	createTestPost(t, db, alice.ID, "oldest", base)
	createTestPost(t, db, bob.ID, "middle", base.Add(time.Minute))
	createTestPost(t, db, alice.ID, "newest", base.Add(2*time.Minute))

	posts, err := svc.ListAll(ctx, 50, 0, alice.ID)
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, "newest", posts[0].Title)
	assert.Equal(t, "middle", posts[1].Title)
	assert.Equal(t, "oldest", posts[2].Title)
}

func TestGetResolvesPostsAcrossOwners(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "alice post", time.Now())

	// Bob can read Alice's post directly by id.
	got, err := svc.Get(ctx, post.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)
	assert.Equal(t, alice.ID, got.UserID)
}

func TestGetMissingPostIsNotFound(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	viewer := createTestUser(t, db, "viewer")

	_, err := svc.Get(context.Background(), 12345, viewer.ID)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestCreatePersistsPostOwnedByActor(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	post, err := svc.Create(ctx, CreatePostInput{
		ActorID: alice.ID,
		Title:   "  hello world  ",
		Body:    "first post",
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", post.Title)
	assert.Equal(t, alice.ID, post.UserID)

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateRejectsBlankTitleAndPersistsNothing(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	_, err := svc.Create(ctx, CreatePostInput{
		ActorID: alice.ID,
		Title:   "   ",
		Body:    "kept for re-render",
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "   ", appErr.Fields["title"])
	assert.Equal(t, "kept for re-render", appErr.Fields["body"])

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestEditIsScopedToTargetUser(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "alice post", time.Now())

	// Correct scope resolves.
	got, err := svc.Edit(ctx, alice.ID, post.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, post.ID, got.ID)

	// Wrong user segment answers NotFound, same as a missing post.
	_, err = svc.Edit(ctx, bob.ID, post.ID, bob.ID)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestUpdateScopeMismatchLeavesRecordUntouched(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "original", time.Now())

	newTitle := "hijacked"
	_, err := svc.Update(ctx, UpdatePostInput{
		TargetUserID: bob.ID,
		PostID:       post.ID,
		ActorID:      bob.ID,
		Title:        &newTitle,
	})
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "original", reloaded.Title)
}

func TestUpdateEmptyTitleRejectedAndEchoed(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice.ID, "original", time.Now())

	empty := ""
	_, err := svc.Update(ctx, UpdatePostInput{
		TargetUserID: alice.ID,
		PostID:       post.ID,
		ActorID:      alice.ID,
		Title:        &empty,
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "", appErr.Fields["title"])

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "original", reloaded.Title)
}

func TestUpdateOverlongBodyEchoesSubmittedFields(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice.ID, "original", time.Now())

	long := strings.Repeat("x", maxBodyLen+1)
	_, err := svc.Update(ctx, UpdatePostInput{
		TargetUserID: alice.ID,
		PostID:       post.ID,
		ActorID:      alice.ID,
		Body:         &long,
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, long, appErr.Fields["body"])
	assert.Equal(t, "original", appErr.Fields["title"])

	var reloaded models.Post
	require.NoError(t, db.First(&reloaded, post.ID).Error)
	assert.Equal(t, "body of original", reloaded.Body)
}

func TestCreateOverlongBodyEchoesSubmittedFields(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	long := strings.Repeat("x", maxBodyLen+1)
	_, err := svc.Create(ctx, CreatePostInput{
		ActorID: alice.ID,
		Title:   "hello",
		Body:    long,
	})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "hello", appErr.Fields["title"])
	assert.Equal(t, long, appErr.Fields["body"])

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestUpdateAbsentFieldsAreUnchanged(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	post := createTestPost(t, db, alice.ID, "keep me", time.Now())

	newBody := "updated body"
	updated, err := svc.Update(ctx, UpdatePostInput{
		TargetUserID: alice.ID,
		PostID:       post.ID,
		ActorID:      alice.ID,
		Body:         &newBody,
	})
	require.NoError(t, err)
	assert.Equal(t, "keep me", updated.Title)
	assert.Equal(t, "updated body", updated.Body)
}

func TestDeleteIsScopedAndRemovesLikes(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "doomed", time.Now())
	require.NoError(t, db.Create(&models.Like{UserID: bob.ID, PostID: post.ID}).Error)

	// Wrong scope must not delete.
	err := svc.Delete(ctx, bob.ID, post.ID, bob.ID)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))

	var count int64
	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	// Correct scope deletes post and its likes.
	require.NoError(t, svc.Delete(ctx, alice.ID, post.ID, alice.ID))

	require.NoError(t, db.Model(&models.Post{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, db.Model(&models.Like{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestToggleLike(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "likeable", time.Now())

	// First toggle likes.
	got, liked, err := svc.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)
	assert.Equal(t, 1, got.LikesCount)
	assert.True(t, got.Liked)

	// Second toggle unlikes.
	got, liked, err = svc.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	assert.Equal(t, 0, got.LikesCount)
	assert.False(t, got.Liked)
}

func TestLikeIsIdempotentPerUser(t *testing.T) {
	svc, db := setupPostServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	bob := createTestUser(t, db, "bob")
	post := createTestPost(t, db, alice.ID, "likeable", time.Now())

	_, _, err := svc.ToggleLike(ctx, bob.ID, post.ID)
	require.NoError(t, err)

	// A direct duplicate insert attempt is swallowed by the conflict target.
	repo := repository.NewPostRepository(db)
	require.NoError(t, repo.Like(ctx, bob.ID, post.ID))

	var count int64
	require.NoError(t, db.Model(&models.Like{}).
		Where("user_id = ? AND post_id = ?", bob.ID, post.ID).
		Count(&count).Error)
	assert.Equal(t, int64(1), count)
}
