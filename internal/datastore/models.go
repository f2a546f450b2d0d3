package datastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/gorm"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// maxUniqueSuffix bounds the collision search in UniquePath.
const maxUniqueSuffix = 9999

// ListModels returns the model library ordered by id, flagging the active model.
func (s *Store) ListModels(ctx context.Context) ([]YoloModel, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var models []YoloModel
	err := s.withDB(ctx, "list-models", func(db *gorm.DB) error {
		cfg, err := latestConfig(db)
		if err != nil {
			return err
		}
		if err := db.Order("id").Find(&models).Error; err != nil {
			return dbError(err, "select-models")
		}
		for i := range models {
			models[i].IsActive = cfg.ActiveModelID != nil && *cfg.ActiveModelID == models[i].ID
		}
		return nil
	})
	return models, err
}

// AddModel copies srcPath into the models directory and records it. A blank
// name defaults to the file name without extension.
func (s *Store) AddModel(ctx context.Context, name, srcPath string) (*YoloModel, error) {
	info, err := os.Stat(srcPath)
	if err != nil || info.IsDir() {
		return nil, errors.New(fmt.Errorf("%w: %s", ErrSourceNotFound, srcPath)).
			Component("datastore").
			Category(errors.CategoryValidation).
			Context("operation", "add-model").
			Build()
	}
	if strings.TrimSpace(name) == "" {
		name = strings.TrimSuffix(filepath.Base(srcPath), filepath.Ext(srcPath))
	}

	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.modelsDir, 0o755); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("operation", "create-models-dir").
			Build()
	}

	dest := UniquePath(filepath.Join(s.modelsDir, filepath.Base(srcPath)))
	if err := copyFile(srcPath, dest); err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("operation", "copy-model").
			Build()
	}

	model := &YoloModel{Name: name, Path: dest}
	err = s.withDB(ctx, "add-model", func(db *gorm.DB) error {
		if err := db.Create(model).Error; err != nil {
			return dbError(err, "insert-model")
		}
		cfg, err := latestConfig(db)
		if err != nil {
			return err
		}
		model.IsActive = cfg.ActiveModelID != nil && *cfg.ActiveModelID == model.ID
		return nil
	})
	if err != nil {
		_ = os.Remove(dest)
		return nil, err
	}

	s.log.Info("model imported",
		logger.Int64("model_id", model.ID),
		logger.String("name", model.Name),
		logger.String("path", model.Path))
	return model, nil
}

// RemoveModel deletes the row and, best-effort, the managed file. Removing the
// active model clears the selection.
func (s *Store) RemoveModel(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}

	var path string
	err := s.withDB(ctx, "remove-model", func(db *gorm.DB) error {
		model, err := findModel(db, id)
		if err != nil {
			return err
		}
		path = model.Path

		return db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&YoloModel{}, id).Error; err != nil {
				return dbError(err, "delete-model", "model_id", id)
			}
			cfg, err := latestConfig(tx)
			if err != nil {
				return err
			}
			if cfg.ActiveModelID != nil && *cfg.ActiveModelID == id {
				cfg.ActiveModelID = nil
				return appendConfig(tx, cfg)
			}
			return nil
		})
	})
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		s.log.Warn("failed to remove model file",
			logger.String("path", path),
			logger.Error(err))
	}
	return nil
}

// SetActiveModel records id as the active model in a new configuration row.
func (s *Store) SetActiveModel(ctx context.Context, id int64) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.withDB(ctx, "set-active-model", func(db *gorm.DB) error {
		if _, err := findModel(db, id); err != nil {
			return err
		}
		cfg, err := latestConfig(db)
		if err != nil {
			return err
		}
		cfg.ActiveModelID = &id
		return appendConfig(db, cfg)
	})
}

// ActiveModel returns the active model, or nil when none is selected or the
// selection points at a deleted row.
func (s *Store) ActiveModel(ctx context.Context) (*YoloModel, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}

	var active *YoloModel
	err := s.withDB(ctx, "active-model", func(db *gorm.DB) error {
		cfg, err := latestConfig(db)
		if err != nil || cfg.ActiveModelID == nil {
			return err
		}
		model, err := findModel(db, *cfg.ActiveModelID)
		if errors.Is(err, ErrModelNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		model.IsActive = true
		active = model
		return nil
	})
	return active, err
}

// ActiveModelPath returns the filesystem path of the active model.
func (s *Store) ActiveModelPath(ctx context.Context) (string, bool, error) {
	model, err := s.ActiveModel(ctx)
	if err != nil || model == nil {
		return "", false, err
	}
	return model.Path, true, nil
}

func findModel(db *gorm.DB, id int64) (*YoloModel, error) {
	var model YoloModel
	err := db.Where("id = ?", id).First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(fmt.Errorf("%w: id %d", ErrModelNotFound, id)).
			Component("datastore").
			Category(errors.CategoryNotFound).
			Context("model_id", id).
			Build()
	}
	if err != nil {
		return nil, dbError(err, "select-model", "model_id", id)
	}
	return &model, nil
}

// UniquePath returns p if it does not exist, otherwise the first free
// "<stem>_<n><ext>" for n in 1..9999, falling back to "<stem>_0<ext>".
func UniquePath(p string) string {
	if _, err := os.Stat(p); os.IsNotExist(err) {
		return p
	}
	dir := filepath.Dir(p)
	ext := filepath.Ext(p)
	stem := strings.TrimSuffix(filepath.Base(p), ext)
	if stem == "" {
		stem = "model"
	}
	for n := 1; n <= maxUniqueSuffix; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s_%d%s", stem, n, ext))
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
	return filepath.Join(dir, fmt.Sprintf("%s_0%s", stem, ext))
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	return out.Close()
}
