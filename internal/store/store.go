package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Result is one finished round.
type Result struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RoundID    string    `gorm:"uniqueIndex;size:64" json:"roundId"`
	Mode       string    `gorm:"size:16" json:"mode"`
	Winner     string    `gorm:"size:16" json:"winner"`
	RedScore   int       `json:"redScore"`
	BlueScore  int       `json:"blueScore"`
	DurationMs int64     `json:"durationMs"`
	EndedAt    time.Time `gorm:"index" json:"endedAt"`
}

// Store persists round results.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string, log zerolog.Logger) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", path, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	// a single connection keeps :memory: databases shared
	sqlDB.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA synchronous = NORMAL;",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	if err := db.AutoMigrate(&Result{}); err != nil {
		return nil, fmt.Errorf("migrate results: %w", err)
	}

	log.Info().Str("path", path).Msg("result store ready")
	return &Store{db: db, log: log}, nil
}

// Record inserts a result.
func (s *Store) Record(ctx context.Context, r Result) error {
	if err := s.db.WithContext(ctx).Create(&r).Error; err != nil {
		return fmt.Errorf("record round %s: %w", r.RoundID, err)
	}
	s.log.Debug().Str("round", r.RoundID).Str("winner", r.Winner).Msg("round recorded")
	return nil
}

// Recent returns up to limit results, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Result, error) {
	var out []Result
	err := s.db.WithContext(ctx).
		Order("ended_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("list results: %w", err)
	}
	return out, nil
}

// Close releases the database.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
