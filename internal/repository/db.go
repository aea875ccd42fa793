package repository

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"daily-planner/internal/model"
)

// NewDB opens a SQLite database and runs migrations.
func NewDB(dsn string, log *logrus.Entry) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "daily_planner.db"
	}

	if err := ensureDirForSQLite(dsn); err != nil {
		return nil, err
	}

	cfg := &gorm.Config{Logger: logger.Discard}
	if log != nil {
		cfg.Logger = logger.New(
			log.WithField("component", "gorm"),
			logger.Config{
				SlowThreshold:             time.Second,
				LogLevel:                  logger.Warn,
				IgnoreRecordNotFoundError: true,
				Colorful:                  false,
			},
		)
	}

	db, err := gorm.Open(sqlite.Open(withForeignKeys(dsn)), cfg)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if err := db.AutoMigrate(
		&model.TaskList{},
		&model.Label{},
		&model.Task{},
		&model.Subtask{},
		&model.Reminder{},
		&model.ActivityLog{},
		&model.Chat{},
	); err != nil {
		return nil, fmt.Errorf("migrate db: %w", err)
	}

	return db, nil
}

// withForeignKeys turns on SQLite foreign key enforcement for every pooled connection.
func withForeignKeys(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk=") {
		return dsn
	}
	if strings.Contains(dsn, "?") {
		return dsn + "&_foreign_keys=on"
	}
	return dsn + "?_foreign_keys=on"
}

// ensureDirForSQLite creates parent dir for SQLite file if needed.
func ensureDirForSQLite(dsn string) error {
	// Ignore DSNs with explicit mode=memory or network.
	if strings.Contains(dsn, ":memory:") || strings.Contains(dsn, "mode=memory") {
		return nil
	}
	// Strip file: prefix if present.
	clean := strings.TrimPrefix(dsn, "file:")
	clean = strings.Split(clean, "?")[0]
	dir := filepath.Dir(clean)
	if dir == "." || dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create db dir %q: %w", dir, err)
	}
	return nil
}

// saveStamped saves value and then stores the caller's updated_at, which Save
// would otherwise replace with the driver clock. A zero stamp is left to gorm.
func saveStamped(db *gorm.DB, value any, updatedAt *time.Time, omit ...string) error {
	stamp := *updatedAt
	return db.Transaction(func(tx *gorm.DB) error {
		q := tx
		if len(omit) > 0 {
			q = tx.Omit(omit...)
		}
		if err := q.Save(value).Error; err != nil {
			return err
		}
		if stamp.IsZero() {
			return nil
		}
		*updatedAt = stamp
		return tx.Model(value).Omit(clause.Associations).UpdateColumn("updated_at", stamp).Error
	})
}
