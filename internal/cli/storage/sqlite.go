package storage

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is the row layout of the shared state database
type kvEntry struct {
	Key       string `gorm:"column:kv_key;primaryKey;type:varchar(255)"`
	Value     []byte
	Writer    string `gorm:"type:varchar(26);not null"`
	Revision  int64  `gorm:"not null;default:1"`
	Deleted   bool   `gorm:"not null;default:false"`
	UpdatedAt time.Time
}

func (kvEntry) TableName() string { return "kv_entries" }

// SQLiteBackend stores entries in a SQLite file shared by every client
// process of the same user profile.
type SQLiteBackend struct {
	db *gorm.DB
}

// OpenSQLite opens (or creates) the state database at path
func OpenSQLite(path string) (*SQLiteBackend, error) {
	const (
		maxOpenConns = 4
		busyTimeout  = 5000 // ms
	)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stderr, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open state database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)

	// WAL lets several client processes read while one writes
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to migrate state database: %w", err)
	}

	return &SQLiteBackend{db: db}, nil
}

func (s *SQLiteBackend) Get(key string) (Entry, bool, error) {
	var row kvEntry
	err := s.db.Where("kv_key = ? AND deleted = ?", key, false).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to read %q: %w", key, err)
	}
	return row.toEntry(), true, nil
}

func (s *SQLiteBackend) Put(key string, value []byte, writer string) error {
	row := kvEntry{Key: key, Value: value, Writer: writer, Revision: 1, UpdatedAt: time.Now()}
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "kv_key"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"value":      value,
			"writer":     writer,
			"deleted":    false,
			"revision":   gorm.Expr("kv_entries.revision + 1"),
			"updated_at": row.UpdatedAt,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(key, writer string) error {
	err := s.db.Model(&kvEntry{}).
		Where("kv_key = ? AND deleted = ?", key, false).
		Updates(map[string]interface{}{
			"value":      nil,
			"writer":     writer,
			"deleted":    true,
			"revision":   gorm.Expr("revision + 1"),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) List(prefix string) ([]Entry, error) {
	var rows []kvEntry
	q := s.db.Order("kv_key")
	if prefix != "" {
		q = q.Where(`kv_key LIKE ? ESCAPE '\'`, escapeLike(prefix)+"%")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list %q: %w", prefix, err)
	}
	out := make([]Entry, len(rows))
	for i := range rows {
		out[i] = rows[i].toEntry()
	}
	return out, nil
}

func (s *SQLiteBackend) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (r kvEntry) toEntry() Entry {
	return Entry{Key: r.Key, Value: r.Value, Writer: r.Writer, Revision: r.Revision, Deleted: r.Deleted}
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
