package datastore

import (
	"context"
	"slices"

	"gorm.io/gorm"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

// LoadConfig returns the newest configuration row, or DefaultConfig when the
// table is empty.
func (s *Store) LoadConfig(ctx context.Context) (AppConfig, error) {
	if err := s.ready(ctx); err != nil {
		return AppConfig{}, err
	}

	var cfg AppConfig
	err := s.withDB(ctx, "load-config", func(db *gorm.DB) error {
		var err error
		cfg, err = latestConfig(db)
		return err
	})
	return cfg, err
}

// SaveConfig appends c as the new current configuration. History is never rewritten.
func (s *Store) SaveConfig(ctx context.Context, c AppConfig) error {
	if c.Device != "" && !slices.Contains([]string{DeviceAuto, DeviceCPU, DeviceCUDA}, c.Device) {
		return errors.Newf("unsupported device %q, expected auto, cpu or cuda", c.Device).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("device", c.Device).
			Build()
	}
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withDB(ctx, "save-config", func(db *gorm.DB) error {
		return appendConfig(db, c)
	})
}

// latestConfig is the single read path for the current configuration.
func latestConfig(db *gorm.DB) (AppConfig, error) {
	var rows []AppConfig
	if err := db.Order("id DESC").Limit(1).Find(&rows).Error; err != nil {
		return AppConfig{}, dbError(err, "select-latest-config")
	}
	if len(rows) == 0 {
		return DefaultConfig(), nil
	}
	cfg := rows[0]
	if cfg.Device == "" {
		cfg.Device = DeviceAuto
	}
	return cfg, nil
}

func appendConfig(db *gorm.DB, c AppConfig) error {
	c.ID = 0
	if c.Device == "" {
		c.Device = DeviceAuto
	}
	if err := db.Create(&c).Error; err != nil {
		return dbError(err, "insert-config")
	}
	return nil
}
