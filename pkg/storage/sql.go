package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type documentRow struct {
	Path      string `gorm:"primaryKey"`
	Body      string
	UpdatedAt time.Time
}

func (documentRow) TableName() string {
	return "documents"
}

// SQLStore keeps documents in a single SQL table via GORM.
type SQLStore struct {
	db *gorm.DB
}

// FromSQL creates a new SQL store
func FromSQL(dialect gorm.Dialector, opts ...gorm.Option) (*SQLStore, error) {
	db, err := gorm.Open(dialect, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, path string) (Document, error) {
	var row documentRow
	result := s.db.WithContext(ctx).First(&row, "path = ?", path)
	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, notFound(path)
	}
	if result.Error != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", result.Error)
	}

	var doc Document
	if err := json.Unmarshal([]byte(row.Body), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return doc, nil
}

func (s *SQLStore) Set(ctx context.Context, path string, doc any, merge bool) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := documentRow{Path: path}
		var current Document

		result := tx.First(&row, "path = ?", path)
		switch {
		case errors.Is(result.Error, gorm.ErrRecordNotFound):
		case result.Error != nil:
			return fmt.Errorf("failed to fetch document: %w", result.Error)
		default:
			if err := json.Unmarshal([]byte(row.Body), &current); err != nil {
				return fmt.Errorf("failed to unmarshal document: %w", err)
			}
		}

		next, err := apply(current, doc, merge)
		if err != nil {
			return err
		}
		content, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}

		row.Path = path
		row.Body = string(content)
		if err := tx.Save(&row).Error; err != nil {
			return fmt.Errorf("failed to store document: %w", err)
		}
		return nil
	})
}

// Paths lists the stored paths starting with prefix.
func (s *SQLStore) Paths(ctx context.Context, prefix string) ([]string, error) {
	var paths []string
	result := s.db.WithContext(ctx).Model(&documentRow{}).
		Where("path LIKE ?", prefix+"%").
		Order("path").
		Pluck("path", &paths)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list documents: %w", result.Error)
	}
	return paths, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}
	return sqlDB.Close()
}
