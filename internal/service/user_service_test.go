package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"snapfeed/internal/cache"
	"snapfeed/internal/models"
	"snapfeed/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupUserServiceTest(t *testing.T) (*UserService, *gorm.DB) {
	t.Helper()
	cache.SetClient(nil)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Post{}, &models.Like{}); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	return NewUserService(userRepo, postRepo), db
}

func TestGetProfileIncludesPostCount(t *testing.T) {
	svc, db := setupUserServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	for i := 0; i < 3; i++ {
		createTestPost(t, db, alice.ID, "post", time.Now().Add(time.Duration(i)*time.Minute))
	}

	profile, err := svc.GetProfile(ctx, alice.ID, 2)
	require.NoError(t, err)

	assert.Equal(t, int64(3), profile.PostsCount)
	// The preload is capped, the count is not.
	assert.Len(t, profile.Posts, 2)
}

func TestGetProfileUnknownUserIsNotFound(t *testing.T) {
	svc, _ := setupUserServiceTest(t)

	_, err := svc.GetProfile(context.Background(), 9999, 10)
	require.Error(t, err)
	assert.True(t, models.IsNotFound(err))
}

func TestUpdateProfileAppliesOnlyPresentFields(t *testing.T) {
	svc, db := setupUserServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	alice.Name = "Alice"
	alice.Bio = "original bio"
	require.NoError(t, db.Save(alice).Error)

	newBio := "updated bio"
	updated, err := svc.UpdateProfile(ctx, UpdateProfileInput{
		UserID: alice.ID,
		Bio:    &newBio,
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", updated.Name)
	assert.Equal(t, "updated bio", updated.Bio)

	var stored models.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, "Alice", stored.Name)
	assert.Equal(t, "updated bio", stored.Bio)
}

// installTestRedis swaps the package cache onto a miniredis instance for the
// duration of the test.
func installTestRedis(t *testing.T) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
}

func TestUpdateProfileAfterCachedReadKeepsPassword(t *testing.T) {
	svc, db := setupUserServiceTest(t)
	installTestRedis(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")
	alice.Password = "$2a$10$somehash"
	require.NoError(t, db.Save(alice).Error)

	// Warm the user cache. The cached JSON never carries the password hash,
	// so the profile update below runs against a struct without it.
	_, err := svc.GetUserByID(ctx, alice.ID)
	require.NoError(t, err)

	name := "Alice"
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.ID, Name: &name})
	require.NoError(t, err)

	var stored models.User
	require.NoError(t, db.First(&stored, alice.ID).Error)
	assert.Equal(t, "Alice", stored.Name)
	assert.Equal(t, "$2a$10$somehash", stored.Password)
}

func TestUpdateProfileRejectsOverlongFields(t *testing.T) {
	svc, db := setupUserServiceTest(t)
	ctx := context.Background()

	alice := createTestUser(t, db, "alice")

	longName := strings.Repeat("x", 101)
	_, err := svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.ID, Name: &longName})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))

	longBio := strings.Repeat("x", 501)
	_, err = svc.UpdateProfile(ctx, UpdateProfileInput{UserID: alice.ID, Bio: &longBio})
	require.Error(t, err)
	assert.True(t, models.IsValidation(err))
}
