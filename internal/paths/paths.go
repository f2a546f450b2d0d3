// Package paths resolves the per-user locations the application reads and writes.
// All functions are pure: nothing here creates directories.
package paths

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/jaja2302/Palm-counting-AI/internal/errors"
)

// ProductName is the directory name used under the platform's local data directory.
const ProductName = "palm-counting-ai"

const (
	DatabaseFileName = "database.db"
	ModelsDirName    = "models"
	BinariesDirName  = "binaries"
	LogsDirName      = "logs"

	// Fixed names so an interrupted download resumes across restarts.
	PartialFileName = "palm-ai-pack-download.partial"
	ArchiveFileName = "palm-ai-pack-download.zip"
)

// Resolver computes canonical application paths from an app-data root and a temp directory.
type Resolver struct {
	root    string
	tempDir string
}

// New returns a Resolver. An empty root resolves to the platform default,
// an empty tempDir to os.TempDir().
func New(root, tempDir string) (*Resolver, error) {
	if root == "" {
		var err error
		root, err = DefaultAppDataRoot()
		if err != nil {
			return nil, err
		}
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Resolver{root: filepath.Clean(root), tempDir: filepath.Clean(tempDir)}, nil
}

// AppDataRoot returns the application data root.
func (r *Resolver) AppDataRoot() string { return r.root }

// ModelsDir returns the managed directory holding imported model files.
func (r *Resolver) ModelsDir() string { return filepath.Join(r.root, ModelsDirName) }

// BinariesDir returns the directory the AI pack is installed into.
func (r *Resolver) BinariesDir() string { return filepath.Join(r.root, BinariesDirName) }

// DatabasePath returns the location of the embedded store.
func (r *Resolver) DatabasePath() string { return filepath.Join(r.root, DatabaseFileName) }

// LogPath returns the default log file location.
func (r *Resolver) LogPath() string { return filepath.Join(r.root, LogsDirName, "palm-counting.log") }

// TempDir returns the directory holding download artifacts.
func (r *Resolver) TempDir() string { return r.tempDir }

// PartialPath returns the file accumulating bytes of an in-progress download.
func (r *Resolver) PartialPath() string { return filepath.Join(r.tempDir, PartialFileName) }

// ArchivePath returns the committed archive location.
func (r *Resolver) ArchivePath() string { return filepath.Join(r.tempDir, ArchiveFileName) }

// DefaultAppDataRoot returns the platform's local data directory joined with ProductName.
func DefaultAppDataRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.New(err).
			Component("paths").
			Category(errors.CategorySystem).
			Context("operation", "get-home-directory").
			Build()
	}
	dir := localDataDir(runtime.GOOS, os.Getenv, home)
	return filepath.Join(dir, ProductName), nil
}

// localDataDir mirrors the conventional per-user, non-roaming data location:
// %LOCALAPPDATA% on Windows, ~/Library/Application Support on macOS and
// $XDG_DATA_HOME (default ~/.local/share) elsewhere.
func localDataDir(goos string, getenv func(string) string, home string) string {
	switch goos {
	case "windows":
		if dir := getenv("LOCALAPPDATA"); dir != "" {
			return dir
		}
		return filepath.Join(home, "AppData", "Local")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support")
	default:
		if dir := getenv("XDG_DATA_HOME"); filepath.IsAbs(dir) {
			return dir
		}
		return filepath.Join(home, ".local", "share")
	}
}
