package sqlite

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Backend wraps one gorm/SQLite database shared by all repositories.
type Backend struct {
	db     *gorm.DB
	logger *slog.Logger
}

// slogAdapter adapts slog.Logger to gorm's logger.Interface.
type slogAdapter struct {
	logger *slog.Logger
}

var _ gormlogger.Interface = (*slogAdapter)(nil)

func (l *slogAdapter) LogMode(gormlogger.LogLevel) gormlogger.Interface {
	return l
}

func (l *slogAdapter) Info(_ context.Context, msg string, args ...any) {
	l.logger.Info(fmt.Sprintf(msg, args...))
}

func (l *slogAdapter) Warn(_ context.Context, msg string, args ...any) {
	l.logger.Warn(fmt.Sprintf(msg, args...))
}

func (l *slogAdapter) Error(_ context.Context, msg string, args ...any) {
	l.logger.Error(fmt.Sprintf(msg, args...))
}

func (l *slogAdapter) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if err != nil && err != gorm.ErrRecordNotFound {
		sql, rows := fc()
		l.logger.Debug("query failed", "sql", sql, "rows", rows, "elapsed", time.Since(begin), "err", err)
	}
}

// OpenBackend opens (and migrates) the catalog database at the given path.
// Pass ":memory:" for an ephemeral database in tests. The parent directory
// is created if it doesn't exist.
func OpenBackend(path string) (*Backend, error) {
	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
		dsn = path + "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         &slogAdapter{logger: slog.Default()},
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open catalog %s: %w", path, err)
	}

	if err := db.AutoMigrate(
		&subjectRow{},
		&assetRow{},
		&statusRow{},
		&pageRow{},
		&ocrRow{},
		&chunkRow{},
		&notesRow{},
		&notesChunkRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate catalog: %w", err)
	}

	return &Backend{
		db:     db,
		logger: slog.Default(),
	}, nil
}

// Close closes the underlying database connection.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping verifies the database connection is alive.
func (b *Backend) Ping(ctx context.Context) error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
