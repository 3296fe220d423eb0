package database

import (
	"embed"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"snapfeed/internal/middleware"

	"gorm.io/gorm"
)

// Migration is a versioned pair of up/down SQL scripts.
type Migration struct {
	Version    int
	Name       string
	UpScript   string
	DownScript string
}

//go:embed migrations/*.sql
var migrationFS embed.FS

var migrations []Migration

func init() {
	if err := RegisterMigrations(migrationFS); err != nil {
		middleware.Logger.Error("failed to register internal migrations", slog.String("error", err.Error()))
	}
}

// RegisterMigrations loads *.up.sql/*.down.sql pairs from the given filesystem.
func RegisterMigrations(efs embed.FS) error {
	entries, err := efs.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		if !strings.HasSuffix(name, ".up.sql") {
			continue
		}

		base := strings.TrimSuffix(name, ".up.sql")
		parts := strings.SplitN(base, "_", 2)
		if len(parts) != 2 {
			middleware.Logger.Warn("Skipping migration with invalid naming", slog.String("file", name))
			continue
		}

		var version int
		fmt.Sscanf(parts[0], "%d", &version)

		upBytes, err := efs.ReadFile(filepath.Join("migrations", name))
		if err != nil {
			return fmt.Errorf("failed to read up migration %s: %w", name, err)
		}

		downName := base + ".down.sql"
		downBytes, err := efs.ReadFile(filepath.Join("migrations", downName))
		if err != nil {
			return fmt.Errorf("failed to read down migration %s: %w", downName, err)
		}

		migrations = append(migrations, Migration{
			Version:    version,
			Name:       parts[1],
			UpScript:   string(upBytes),
			DownScript: string(downBytes),
		})
	}

	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Version < migrations[j].Version
	})

	return nil
}

// Migrations returns the registered migrations in ascending version order.
func Migrations() []Migration {
	return migrations
}

// schemaMigration tracks applied migration versions.
type schemaMigration struct {
	Version int `gorm:"primaryKey"`
}

func (schemaMigration) TableName() string { return "schema_migrations" }

// MigrateUp applies every registered migration that has not been applied yet.
func MigrateUp(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var applied int64
		if err := db.Model(&schemaMigration{}).Where("version = ?", m.Version).Count(&applied).Error; err != nil {
			return err
		}
		if applied > 0 {
			continue
		}

		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.UpScript).Error; err != nil {
				return fmt.Errorf("migration %d_%s failed: %w", m.Version, m.Name, err)
			}
			return tx.Create(&schemaMigration{Version: m.Version}).Error
		})
		if err != nil {
			return err
		}
		middleware.Logger.Info("Applied migration",
			slog.Int("version", m.Version), slog.String("name", m.Name))
	}
	return nil
}

// MigrateDown rolls back the most recently applied migration.
func MigrateDown(db *gorm.DB) error {
	var last schemaMigration
	if err := db.Order("version DESC").First(&last).Error; err != nil {
		return fmt.Errorf("no applied migrations to roll back: %w", err)
	}

	for _, m := range migrations {
		if m.Version != last.Version {
			continue
		}
		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Exec(m.DownScript).Error; err != nil {
				return fmt.Errorf("rollback %d_%s failed: %w", m.Version, m.Name, err)
			}
			return tx.Delete(&schemaMigration{Version: m.Version}).Error
		})
	}
	return fmt.Errorf("applied version %d has no registered migration", last.Version)
}
