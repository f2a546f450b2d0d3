package aipack

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// ReasonExecutableNotFound is reported when no expected executable exists.
const ReasonExecutableNotFound = "executable not found"

// Validation is the evidence gathered about an extracted binaries directory.
type Validation struct {
	Path      string
	SizeBytes int64
	ExeFound  bool
	MinSize   int64
}

// SizeMB is SizeBytes in decimal megabytes.
func (v Validation) SizeMB() float64 { return float64(v.SizeBytes) / 1_000_000 }

// Valid reports whether the directory passes both predicates.
func (v Validation) Valid() bool { return v.ExeFound && v.SizeBytes > v.MinSize }

// Reason names the failed predicate, or "" when valid. A missing executable
// takes precedence over the size check.
func (v Validation) Reason() string {
	switch {
	case !v.ExeFound:
		return ReasonExecutableNotFound
	case v.SizeBytes <= v.MinSize:
		return fmt.Sprintf("below %g MB", v.thresholdMB())
	default:
		return ""
	}
}

func (v Validation) thresholdMB() float64 { return float64(v.MinSize) / 1_000_000 }

// Validate inspects the binaries directory, publishes the diagnostic as
// ai-pack-log and returns a PackInvalid error when the pack is unusable.
func (in *Installer) Validate() (Validation, error) {
	v := Validation{Path: in.binDir, MinSize: in.minPackSize}

	size, err := DirSize(in.binDir)
	if err != nil {
		return v, errors.New(err).
			Component("aipack").
			Category(errors.CategoryFileIO).
			Context("operation", "measure-binaries").
			Context("path", in.binDir).
			Build()
	}
	v.SizeBytes = size
	v.ExeFound = HasExecutable(in.binDir, in.exeNames)

	in.pub.PackLog(
		fmt.Sprintf("Validation: folder=%s, size=%d bytes (%.2f MB), exe_found=%t, minimum=%g MB",
			v.Path, v.SizeBytes, v.SizeMB(), v.ExeFound, v.thresholdMB()),
		map[string]any{
			"path":         v.Path,
			"size_bytes":   v.SizeBytes,
			"size_mb":      v.SizeMB(),
			"threshold_mb": v.thresholdMB(),
			"exe_found":    v.ExeFound,
		})

	if v.Valid() {
		in.log.Info("pack validated",
			logger.String("path", v.Path),
			logger.Int64("size_bytes", v.SizeBytes))
		return v, nil
	}

	detail := fmt.Sprintf("Folder: %s | Size: %d bytes (%.2f MB) | Minimum: %g MB | Reason: %s",
		v.Path, v.SizeBytes, v.SizeMB(), v.thresholdMB(), v.Reason())
	in.pub.PackLog(detail, nil)

	return v, errors.Newf("downloaded file is not a valid AI pack. %s", detail).
		Component("aipack").
		Category(errors.CategoryPackInvalid).
		Context("reason", v.Reason()).
		Context("size_bytes", v.SizeBytes).
		Context("exe_found", v.ExeFound).
		Build()
}

// DirSize returns the total size of regular files under root. A missing root is 0.
func DirSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == root {
				return fs.SkipAll
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// HasExecutable reports whether dir directly contains a regular file with one of names.
func HasExecutable(dir string, names []string) bool {
	for _, name := range names {
		if st, err := os.Stat(filepath.Join(dir, name)); err == nil && st.Mode().IsRegular() {
			return true
		}
	}
	return false
}
