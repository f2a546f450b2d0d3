// Package aipack downloads, installs and validates the AI pack: the archive
// holding the inference sidecar and its runtime files.
package aipack

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jaja2302/Palm-counting-AI/internal/cancel"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/httpclient"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// Options configures a Manager.
type Options struct {
	PartialPath string
	ArchivePath string
	BinariesDir string
	ChunkSize   int
	MinPackSize int64
	ExeNames    []string
}

// Manager runs a complete fetch-then-install cycle and reports failures as
// ai-pack-error events.
type Manager struct {
	fetcher   *Fetcher
	installer *Installer
	pub       *events.Publisher
	log       logger.Logger
}

// NewManager wires a fetcher and installer sharing pub and log.
func NewManager(client *httpclient.Client, pub *events.Publisher, log logger.Logger, opts Options) *Manager {
	return &Manager{
		fetcher:   NewFetcher(client, pub, log, opts.PartialPath, opts.ArchivePath, opts.ChunkSize),
		installer: NewInstaller(pub, log, opts.BinariesDir, opts.ExeNames, opts.MinPackSize),
		pub:       pub,
		log:       log,
	}
}

// Download fetches the pack from baseURL and installs it. A pause returns
// nil without installing. Any error is also emitted as ai-pack-error.
func (m *Manager) Download(ctx context.Context, baseURL string, flag *cancel.Flag) error {
	runID := uuid.New().String()[:8]
	ctx = logger.WithTraceID(ctx, runID)
	log := m.log.WithContext(ctx).With(logger.String("base_url", baseURL))
	started := time.Now()

	log.Info("pack download started")

	err := m.run(ctx, baseURL, flag)
	if err != nil {
		log.Error("pack download failed",
			logger.Error(err),
			logger.Duration("elapsed", time.Since(started)))
		m.pub.PackError(err.Error())
		return err
	}
	log.Info("pack download finished", logger.Duration("elapsed", time.Since(started)))
	return nil
}

func (m *Manager) run(ctx context.Context, baseURL string, flag *cancel.Flag) error {
	res, err := m.fetcher.Fetch(ctx, baseURL, flag)
	if err != nil {
		return err
	}
	if res.Paused {
		return nil
	}
	return m.installer.Install(ctx, res.Archive)
}
