// Package seed provides database seeding utilities for development and testing.
package seed

import (
	"fmt"
	"log"

	"snapfeed/internal/models"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumUsers    int
	NumPosts    int
	ShouldClean bool
	// SkipBcrypt stores plaintext passwords. Only useful to speed up large
	// dev seeds; never enable outside local development.
	SkipBcrypt bool
	// MaxDays is the spread for generated post creation timestamps.
	MaxDays int
}

// Seed populates the database with test data
func Seed(db *gorm.DB, opts Options) error {
	log.Printf("Starting database seeding with %d users and %d posts...", opts.NumUsers, opts.NumPosts)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: Could not clear all existing data, but continuing anyway...")
		}
	}

	factory := NewFactory(db, opts)

	users, err := createUsers(factory, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("%d test users created", len(users))

	posts, err := createPosts(factory, users, opts.NumPosts)
	if err != nil {
		return fmt.Errorf("failed to create posts: %w", err)
	}
	log.Printf("%d posts created", len(posts))

	likes, err := createLikes(factory, users, posts)
	if err != nil {
		return fmt.Errorf("failed to create likes: %w", err)
	}
	log.Printf("%d likes created", likes)

	log.Println("Database seeding completed successfully!")
	return nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	sql := `TRUNCATE TABLE likes, posts, users RESTART IDENTITY CASCADE;`
	if err := db.Exec(sql).Error; err != nil {
		// TRUNCATE ... CASCADE is postgres-only; fall back to ordered deletes.
		for _, table := range []string{"likes", "posts", "users"} {
			if derr := db.Exec("DELETE FROM " + table).Error; derr != nil {
				return derr
			}
		}
	}
	return nil
}

func createUsers(factory *Factory, count int) ([]*models.User, error) {
	users := make([]*models.User, 0, count)
	for i := 0; i < count; i++ {
		user, err := factory.CreateUser()
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func createPosts(factory *Factory, users []*models.User, count int) ([]*models.Post, error) {
	if len(users) == 0 {
		return nil, nil
	}

	posts := make([]*models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := users[factory.rand.Intn(len(users))]
		posts = append(posts, factory.BuildPost(author))
	}
	if err := factory.CreatePostsBatch(posts); err != nil {
		return nil, err
	}
	return posts, nil
}

// createLikes spreads likes across posts. Each post receives likes from a
// random subset of users; the unique (user, post) constraint is respected
// by construction.
func createLikes(factory *Factory, users []*models.User, posts []*models.Post) (int, error) {
	if len(users) == 0 || len(posts) == 0 {
		return 0, nil
	}

	total := 0
	for _, post := range posts {
		numLikes := factory.rand.Intn(len(users)/2 + 1)
		perm := factory.rand.Perm(len(users))
		for _, idx := range perm[:numLikes] {
			if err := factory.CreateLike(users[idx], post); err != nil {
				return total, err
			}
			total++
		}
	}
	return total, nil
}
