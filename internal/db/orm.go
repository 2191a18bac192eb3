package db

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"infinite-experiment/logbook/internal/logging"
	gormModels "infinite-experiment/logbook/internal/models/gorm"
)

// OpenHistoryDB opens the run history database. Postgres URLs and key=value
// DSNs go to the postgres driver; "sqlite:" prefixed paths, ":memory:" and
// *.db files go to sqlite. The schema is migrated on open.
func OpenHistoryDB(dsn string) (*gorm.DB, error) {
	dialector, err := dialectorFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}
	if err := db.AutoMigrate(&gormModels.IngestionRun{}); err != nil {
		return nil, fmt.Errorf("failed to migrate history database: %w", err)
	}

	logging.Info("Connected to history database", "driver", dialector.Name())
	return db, nil
}

func dialectorFor(dsn string) (gorm.Dialector, error) {
	trimmed := strings.TrimSpace(dsn)
	switch {
	case trimmed == "":
		return nil, fmt.Errorf("history database DSN is empty")
	case strings.HasPrefix(trimmed, "postgres://"), strings.HasPrefix(trimmed, "postgresql://"), strings.Contains(trimmed, "host="):
		return postgres.Open(trimmed), nil
	case strings.HasPrefix(trimmed, "sqlite:"):
		return sqlite.Open(strings.TrimPrefix(trimmed, "sqlite:")), nil
	case trimmed == ":memory:", strings.HasSuffix(trimmed, ".db"), strings.HasSuffix(trimmed, ".sqlite"):
		return sqlite.Open(trimmed), nil
	}
	return nil, fmt.Errorf("unrecognized history database DSN %q", trimmed)
}
