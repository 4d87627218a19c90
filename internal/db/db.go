package db

import (
	"fmt"

	"inkblog/internal/config"
	"inkblog/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open connects to the configured database. SQLite is limited to a single
// connection so concurrent writers queue instead of failing with SQLITE_BUSY.
func Open(cfg config.DBConfig, log zerolog.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case config.DriverPostgres:
		dialector = postgres.Open(cfg.DSN)
	case config.DriverSQLite:
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}
	if cfg.Driver == config.DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	log.Info().Str("driver", cfg.Driver).Msg("Database connection established")
	return gdb, nil
}

// Migrate creates or updates every table, including the unique indexes the
// hit and vote paths rely on.
func Migrate(gdb *gorm.DB) error {
	err := gdb.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Article{},
		&models.IPAddress{},
		&models.ArticleHit{},
		&models.Comment{},
		&models.Reaction{},
		&models.ReactionInstance{},
		&models.Flag{},
		&models.FlagInstance{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// SeedCategories creates the starter categories on an empty database.
func SeedCategories(gdb *gorm.DB, log zerolog.Logger) error {
	var count int64
	if err := gdb.Model(&models.Category{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		log.Debug().Msg("Categories already seeded, skipping")
		return nil
	}

	categories := []models.Category{
		{Title: "Programming", Slug: "programming", Position: 1, Status: true},
		{Title: "Life", Slug: "life", Position: 2, Status: true},
		{Title: "News", Slug: "news", Position: 3, Status: true},
	}
	if err := gdb.Create(&categories).Error; err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}
	log.Info().Int("count", len(categories)).Msg("Initial categories created")
	return nil
}
