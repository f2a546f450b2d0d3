package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/jaja2302/Palm-counting-AI/internal/cancel"
	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
	"github.com/jaja2302/Palm-counting-AI/internal/sidecar"
)

// RunProcessing checks its inputs, then runs the sidecar over files in the
// background. Input problems are returned directly and nothing is emitted.
// Once dispatched, every outcome ends with exactly one processing-done event.
// A front end must not enter its running state when the call returns an error,
// since no processing-done event will follow.
// A blank modelName uses the active model's display name.
func (a *App) RunProcessing(ctx context.Context, files []string, modelName string) error {
	files = nonBlank(files)
	if len(files) == 0 {
		return badInput("No files to process", "run-processing")
	}

	model, err := a.store.ActiveModel(ctx)
	if err != nil {
		return err
	}
	if model == nil {
		return errors.Newf("No active model. Add and select a YOLO model first.").
			Component("app").
			Category(errors.CategoryNoActiveModel).
			Build()
	}
	if st, err := os.Stat(model.Path); err != nil || st.IsDir() {
		return errors.Newf("model file not found: %s", model.Path).
			Component("app").
			Category(errors.CategoryValidation).
			Context("model_id", model.ID).
			Build()
	}

	exe, err := sidecar.Locate(a.paths.BinariesDir(), a.exeNames, a.sidecarMin)
	if err != nil {
		return err
	}

	cfg, err := a.store.LoadConfig(ctx)
	if err != nil {
		return err
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = model.Name
	}

	a.mu.Lock()
	if a.processingFlag != nil {
		a.mu.Unlock()
		return badInput("processing already running", "run-processing")
	}
	flag := cancel.New()
	a.processingFlag = flag
	a.mu.Unlock()

	req := sidecar.Request{
		Executable: exe,
		Files:      files,
		ModelPath:  model.Path,
		ModelName:  modelName,
		Config:     sidecar.ConfigFromApp(cfg),
	}

	log := a.log.With(logger.String("run_id", uuid.New().String()[:8]))
	a.wg.Go(func() {
		defer a.clearFlag(&a.processingFlag, flag)
		log.Info("processing started",
			logger.Int("files", len(files)),
			logger.String("model", modelName))
		done, err := a.supervisor.Run(a.baseCtx, req, flag)
		if err != nil {
			log.Error("processing run failed", logger.Error(err))
			a.pub.Log(fmt.Sprintf("Error: %v", err))
			a.pub.Done(events.DonePayload{Done: true})
			return
		}
		log.Info("processing finished",
			logger.Int("successful", done.Successful),
			logger.Int("failed", done.Failed))
	})
	return nil
}

// CancelProcessing asks the running sidecar to stop. The child is killed if
// it does not produce another line in time.
func (a *App) CancelProcessing() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.processingFlag.Set()
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return out
}
