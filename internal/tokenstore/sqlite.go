package tokenstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/oklog/ulid/v2"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Credential is one persisted key/value row. Rows are scoped by Namespace
// (the API base URL) so tokens issued by one backend are never read for another.
type Credential struct {
	ID        string    `gorm:"primaryKey;type:varchar(26)"`
	Namespace string    `gorm:"uniqueIndex:idx_credentials_scope;not null;default:''"`
	Name      string    `gorm:"uniqueIndex:idx_credentials_scope;not null"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// BeforeCreate generates a ULID for the ID field if it's empty
func (c *Credential) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = ulid.Make().String()
	}
	return nil
}

// SQLiteBackend stores tokens in a local sqlite database.
// Useful when several shell processes share one machine account.
type SQLiteBackend struct {
	db        *gorm.DB
	namespace string
}

// legacyNameIndex made names unique across all namespaces
const legacyNameIndex = "idx_credentials_name"

// OpenSQLiteBackend opens (or creates) the database at path, migrates the
// schema and scopes every operation to namespace.
// Pass "file::memory:" for a throwaway database.
func OpenSQLiteBackend(path, namespace string) (*SQLiteBackend, error) {
	const busyTimeout = 5000 // 5 seconds

	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create token directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open token database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	// sqlite allows a single writer; one connection also keeps in-memory databases alive
	sqlDB.SetMaxOpenConns(1)

	if err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout)).Error; err != nil {
		return nil, fmt.Errorf("failed to apply pragma: %w", err)
	}

	if err := db.AutoMigrate(&Credential{}); err != nil {
		return nil, fmt.Errorf("failed to migrate token database: %w", err)
	}
	if db.Migrator().HasIndex(&Credential{}, legacyNameIndex) {
		if err := db.Migrator().DropIndex(&Credential{}, legacyNameIndex); err != nil {
			return nil, fmt.Errorf("failed to drop legacy index: %w", err)
		}
	}

	return &SQLiteBackend{db: db, namespace: namespace}, nil
}

func (s *SQLiteBackend) Get(key string) (string, error) {
	var cred Credential
	if err := s.scope(key).First(&cred).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("failed to load %s: %w", key, err)
	}
	return cred.Value, nil
}

func (s *SQLiteBackend) Set(key, value string) error {
	cred := Credential{Namespace: s.namespace, Name: key, Value: value}
	err := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&cred).Error
	if err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) Delete(key string) error {
	if err := s.scope(key).Delete(&Credential{}).Error; err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

func (s *SQLiteBackend) scope(key string) *gorm.DB {
	return s.db.Where("namespace = ? AND name = ?", s.namespace, key)
}

// Close releases the database handle
func (s *SQLiteBackend) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
