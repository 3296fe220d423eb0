package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix       = "user:%d"
	PostKeyPrefix       = "post:%d"
	OwnerPostsKeyPrefix = "posts:user:%d"
	AllPostsKey         = "posts:all"
)

const (
	UserTTL = 5 * time.Minute
	PostTTL = 30 * time.Minute
	// List projections carry like counts that like/unlike does not
	// invalidate, so their TTL bounds the drift.
	PostsListTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func OwnerPostsKey(userID uint) string {
	return fmt.Sprintf(OwnerPostsKeyPrefix, userID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

// InvalidatePost drops the post itself plus both list projections that may
// contain it.
func InvalidatePost(ctx context.Context, postID, ownerID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, OwnerPostsKey(ownerID))
	Invalidate(ctx, AllPostsKey)
}
