package datastore

import (
	"context"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AddTiffPaths queues every non-blank path, ignoring ones already queued, and
// returns how many were inserted.
func (s *Store) AddTiffPaths(ctx context.Context, paths []string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}

	added := 0
	err := s.withDB(ctx, "add-tiff-paths", func(db *gorm.DB) error {
		return db.Transaction(func(tx *gorm.DB) error {
			for _, p := range paths {
				if strings.TrimSpace(p) == "" {
					continue
				}
				res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&TiffFile{Path: p})
				if res.Error != nil {
					return dbError(res.Error, "insert-tiff-path")
				}
				if res.RowsAffected == 1 {
					added++
				}
			}
			return nil
		})
	})
	if err != nil {
		return 0, err
	}
	return added, nil
}

// ListTiffPaths returns queued paths in insertion order.
func (s *Store) ListTiffPaths(ctx context.Context) ([]string, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	paths := []string{}
	err := s.withDB(ctx, "list-tiff-paths", func(db *gorm.DB) error {
		if err := db.Model(&TiffFile{}).Order("created_at ASC, id ASC").Pluck("path", &paths).Error; err != nil {
			return dbError(err, "select-tiff-paths")
		}
		return nil
	})
	return paths, err
}

// RemoveTiffPath removes path from the queue. Missing paths are not an error.
func (s *Store) RemoveTiffPath(ctx context.Context, path string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withDB(ctx, "remove-tiff-path", func(db *gorm.DB) error {
		if err := db.Where("path = ?", path).Delete(&TiffFile{}).Error; err != nil {
			return dbError(err, "delete-tiff-path")
		}
		return nil
	})
}
