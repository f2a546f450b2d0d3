package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/jaja2302/Palm-counting-AI/internal/datastore"
	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/specs"
)

// GetSpecs returns the static hardware summary.
func (a *App) GetSpecs(ctx context.Context) (*specs.SystemSpecs, error) {
	return a.probe.SystemSpecs(ctx)
}

// GetRealtimeUsage samples current CPU and GPU load.
func (a *App) GetRealtimeUsage(ctx context.Context) (*specs.RealtimeUsage, error) {
	return a.probe.RealtimeUsage(ctx)
}

// LoadConfig returns the current configuration.
func (a *App) LoadConfig(ctx context.Context) (datastore.AppConfig, error) {
	return a.store.LoadConfig(ctx)
}

// SaveConfig appends cfg as the new current configuration.
func (a *App) SaveConfig(ctx context.Context, cfg datastore.AppConfig) error {
	return a.store.SaveConfig(ctx, cfg)
}

// ListModels returns the model library.
func (a *App) ListModels(ctx context.Context) ([]datastore.YoloModel, error) {
	return a.store.ListModels(ctx)
}

// AddModel imports one model file. A blank name uses the file stem.
func (a *App) AddModel(ctx context.Context, path, name string) (*datastore.YoloModel, error) {
	return a.store.AddModel(ctx, name, path)
}

// AddModels imports several files, reporting each one through
// model-conversion events. Failures are reported and skipped; the call fails
// only when nothing could be imported.
func (a *App) AddModels(ctx context.Context, sources []string) ([]datastore.YoloModel, error) {
	total := len(sources)
	if total == 0 {
		return nil, badInput("no model files given", "add-models")
	}
	if total > 1 {
		a.pub.ConversionStart(fmt.Sprintf("Adding %d models...", total))
	}

	var added []datastore.YoloModel
	failed := 0
	for i, src := range sources {
		name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		a.pub.ConversionStart(fmt.Sprintf("[%d/%d] Adding %s...", i+1, total, name))

		model, err := a.store.AddModel(ctx, "", src)
		if err != nil {
			failed++
			a.pub.ConversionError(fmt.Sprintf("[%d/%d] Failed to add %s: %v", i+1, total, name, err))
			continue
		}
		added = append(added, *model)
		a.pub.ConversionDone(fmt.Sprintf("[%d/%d] Added %s", i+1, total, name))
	}

	if total > 1 {
		summary := fmt.Sprintf("Completed: %d successful, %d failed out of %d", len(added), failed, total)
		if failed == 0 {
			a.pub.ConversionDone(summary)
		} else {
			a.pub.ConversionError(summary)
		}
	}

	if len(added) == 0 {
		return nil, errors.Newf("failed to add any models. %d failed out of %d", failed, total).
			Component("app").
			Category(errors.CategoryValidation).
			Context("operation", "add-models").
			Build()
	}
	return added, nil
}

// RemoveModel deletes a model and its managed file.
func (a *App) RemoveModel(ctx context.Context, id int64) error {
	return a.store.RemoveModel(ctx, id)
}

// SetActiveModel selects the model used by processing runs.
func (a *App) SetActiveModel(ctx context.Context, id int64) error {
	return a.store.SetActiveModel(ctx, id)
}

// ListTiffPaths returns the work queue in insertion order.
func (a *App) ListTiffPaths(ctx context.Context) ([]string, error) {
	return a.store.ListTiffPaths(ctx)
}

// AddTiffPaths queues paths and returns how many were new.
func (a *App) AddTiffPaths(ctx context.Context, paths []string) (int, error) {
	return a.store.AddTiffPaths(ctx, paths)
}

// RemoveTiffPath drops path from the queue. Missing paths are ignored.
func (a *App) RemoveTiffPath(ctx context.Context, path string) error {
	return a.store.RemoveTiffPath(ctx, path)
}

func badInput(message, operation string) error {
	return errors.Newf("%s", message).
		Component("app").
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}
