package sidecar

import (
	"os"
	"path/filepath"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

// Locate returns the first candidate in binDir that exists and is at least
// minSize bytes. Smaller files are build placeholders and do not qualify.
func Locate(binDir string, names []string, minSize int64) (string, error) {
	for _, name := range names {
		p := filepath.Join(binDir, name)
		st, err := os.Stat(p)
		if err != nil || !st.Mode().IsRegular() {
			continue
		}
		if st.Size() >= minSize {
			return p, nil
		}
	}
	return "", errors.Newf("AI pack not installed: no infer_worker executable in %s", binDir).
		Component("sidecar").
		Category(errors.CategorySidecarMissing).
		Context("binaries_dir", binDir).
		Context("min_size", minSize).
		Build()
}

// Installed reports whether Locate would succeed.
func Installed(binDir string, names []string, minSize int64) bool {
	_, err := Locate(binDir, names, minSize)
	return err == nil
}
