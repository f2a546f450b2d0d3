package aipack

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"

	"github.com/klauspost/compress/zip"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// extractProgressEvery is the entry interval between extract-progress events.
const extractProgressEvery = 50

// Installer extracts a committed archive into the binaries directory and
// validates the result.
type Installer struct {
	pub         *events.Publisher
	log         logger.Logger
	binDir      string
	exeNames    []string
	minPackSize int64
	goos        string
}

// NewInstaller creates an installer for binDir. exeNames is the accepted
// sidecar name set; minPackSize is the exclusive lower bound on the
// extracted directory size.
func NewInstaller(pub *events.Publisher, log logger.Logger, binDir string, exeNames []string, minPackSize int64) *Installer {
	return &Installer{
		pub:         pub,
		log:         log,
		binDir:      binDir,
		exeNames:    exeNames,
		minPackSize: minPackSize,
		goos:        runtime.GOOS,
	}
}

// Install extracts archive, validates the binaries directory and deletes the
// archive on success. A failed validation leaves the archive in place.
func (in *Installer) Install(ctx context.Context, archive string) error {
	if err := in.Extract(ctx, archive); err != nil {
		return err
	}
	if _, err := in.Validate(); err != nil {
		return err
	}
	if err := os.Remove(archive); err != nil && !os.IsNotExist(err) {
		in.log.Warn("failed to remove installed archive",
			logger.String("archive", archive),
			logger.Error(err))
	}
	in.pub.PackDone()
	return nil
}

// Extract unpacks archive into the binaries directory.
func (in *Installer) Extract(ctx context.Context, archive string) error {
	zr, err := zip.OpenReader(archive)
	if err != nil {
		return extractError(err, "open-archive", archive)
	}
	defer func() { _ = zr.Close() }()

	if err := os.MkdirAll(in.binDir, 0o755); err != nil {
		return extractError(err, "create-binaries-dir", in.binDir)
	}

	total := len(zr.File)
	in.pub.PackExtracting(total)
	in.log.Info("extracting pack",
		logger.String("archive", archive),
		logger.String("destination", in.binDir),
		logger.Int("entries", total))

	for i, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return errors.New(err).
				Component("aipack").
				Category(errors.CategoryCancellation).
				Context("operation", "extract").
				Build()
		}

		if name := NormalizeEntryName(f.Name); name != "" {
			if err := in.extractEntry(f, name); err != nil {
				return err
			}
		}

		current := i + 1
		if current%extractProgressEvery == 0 || current == total {
			in.pub.PackExtractProgress(current, total)
		}
	}
	return nil
}

func (in *Installer) extractEntry(f *zip.File, name string) error {
	dest := filepath.Join(in.binDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(in.binDir, dest)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return extractError(fmt.Errorf("archive entry %q escapes the destination", f.Name), "extract-entry", dest)
	}

	if f.FileInfo().IsDir() {
		if err := os.MkdirAll(dest, 0o755); err != nil {
			return extractError(err, "create-dir", dest)
		}
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return extractError(err, "create-dir", filepath.Dir(dest))
	}

	src, err := f.Open()
	if err != nil {
		return extractError(err, "open-entry", f.Name)
	}
	defer func() { _ = src.Close() }()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	if in.goos != "windows" && slices.Contains(in.exeNames, filepath.Base(dest)) {
		mode = 0o755
	}

	out, err := os.OpenFile(dest, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return extractError(err, "create-file", dest)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return extractError(err, "write-file", dest)
	}
	if err := out.Close(); err != nil {
		return extractError(err, "close-file", dest)
	}
	// OpenFile does not change the mode of a file that already existed.
	if in.goos != "windows" {
		if err := os.Chmod(dest, mode); err != nil {
			return extractError(err, "chmod", dest)
		}
	}
	return nil
}

// NormalizeEntryName converts backslashes, strips a leading "binaries/" and
// returns "" for directory entries.
func NormalizeEntryName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "binaries/")
	if name == "" || strings.HasSuffix(name, "/") {
		return ""
	}
	return name
}

func extractError(err error, operation, path string) error {
	return errors.New(err).
		Component("aipack").
		Category(errors.CategoryExtract).
		Context("operation", operation).
		Context("path", path).
		Build()
}
