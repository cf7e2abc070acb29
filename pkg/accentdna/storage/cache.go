// Package storage keeps speaker embeddings keyed by audio content hash so the
// same reference sample is only embedded once.
package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/vmihailenco/msgpack/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// MemoryDSN keeps the cache for the lifetime of the process only.
const MemoryDSN = ":memory:"

const errCacheNil = "embedding cache is nil"

// Embedding is one cached vector. Vector holds the msgpack-encoded []float64.
type Embedding struct {
	Key       string `gorm:"primaryKey;type:varchar(64)"`
	Model     string `gorm:"primaryKey;type:varchar(128)"`
	Dim       int
	Vector    []byte
	CreatedAt time.Time
}

type EmbeddingCache struct {
	DB *gorm.DB
	db *sql.DB
}

// Open opens (and migrates) the cache at dsn. An empty dsn means MemoryDSN.
func Open(dsn string) (*EmbeddingCache, error) {
	if dsn == "" {
		dsn = MemoryDSN
	}

	maxConns := 25
	if dsn == MemoryDSN {
		// every connection to :memory: is a separate database
		maxConns = 1
	} else if dir := filepath.Dir(dsn); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite cache: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxConns)
	sqlDB.SetMaxIdleConns(1)
	if dsn == MemoryDSN {
		sqlDB.SetConnMaxLifetime(0)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := db.AutoMigrate(&Embedding{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &EmbeddingCache{DB: db, db: sqlDB}, nil
}

func (c *EmbeddingCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Get returns the cached vector for key under model. ok is false on a miss.
func (c *EmbeddingCache) Get(key, model string) (vec []float64, ok bool, err error) {
	if c == nil || c.DB == nil {
		return nil, false, errors.New(errCacheNil)
	}

	var row Embedding
	err = c.DB.Where(&Embedding{Key: key, Model: model}).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying embedding: %w", err)
	}

	if err := msgpack.Unmarshal(row.Vector, &vec); err != nil {
		return nil, false, fmt.Errorf("decoding embedding %s: %w", key, err)
	}
	if len(vec) != row.Dim {
		return nil, false, fmt.Errorf("embedding %s: stored dim %d, decoded %d", key, row.Dim, len(vec))
	}
	return vec, true, nil
}

// Put stores vec for key under model, replacing any previous value.
func (c *EmbeddingCache) Put(key, model string, vec []float64) error {
	if c == nil || c.DB == nil {
		return errors.New(errCacheNil)
	}

	blob, err := msgpack.Marshal(vec)
	if err != nil {
		return fmt.Errorf("encoding embedding: %w", err)
	}

	row := Embedding{Key: key, Model: model, Dim: len(vec), Vector: blob}
	err = c.DB.Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("storing embedding: %w", err)
	}
	return nil
}

// Count returns the number of cached vectors.
func (c *EmbeddingCache) Count() (int64, error) {
	if c == nil || c.DB == nil {
		return 0, errors.New(errCacheNil)
	}
	var n int64
	if err := c.DB.Model(&Embedding{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
