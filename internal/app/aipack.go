package app

import (
	"os"
	"strings"

	"github.com/jaja2302/Palm-counting-AI/internal/cancel"
	"github.com/jaja2302/Palm-counting-AI/internal/conf"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
	"github.com/jaja2302/Palm-counting-AI/internal/sidecar"
)

// StartDownloadAIPack fetches and installs the AI pack in the background.
// Progress, pause, completion and failure are reported as ai-pack events.
// A blank baseURL uses the configured server.
func (a *App) StartDownloadAIPack(baseURL string) error {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		baseURL = a.settings.AIPack.BaseURL
	}
	if baseURL == "" {
		baseURL = conf.DefaultBaseURL
	}

	a.mu.Lock()
	if a.downloadFlag != nil {
		a.mu.Unlock()
		return badInput("AI pack download already running", "start-download")
	}
	flag := cancel.New()
	a.downloadFlag = flag
	a.mu.Unlock()

	a.wg.Go(func() {
		defer a.clearFlag(&a.downloadFlag, flag)
		if err := a.pack.Download(a.baseCtx, baseURL, flag); err != nil {
			a.log.Debug("download run ended with error", logger.Error(err))
		}
	})
	return nil
}

// PauseDownloadAIPack asks the active download to stop at the next chunk
// boundary. The partial file is kept so the next start resumes.
func (a *App) PauseDownloadAIPack() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.downloadFlag.Set()
}

// CheckAIPackInstalled reports whether a usable sidecar executable is present.
func (a *App) CheckAIPackInstalled() bool {
	return sidecar.Installed(a.paths.BinariesDir(), a.exeNames, a.sidecarMin)
}

// GetAIPackPath returns the binaries directory and whether it exists.
func (a *App) GetAIPackPath() (string, bool) {
	dir := a.paths.BinariesDir()
	st, err := os.Stat(dir)
	return dir, err == nil && st.IsDir()
}

// clearFlag releases the run slot held by flag.
func (a *App) clearFlag(slot **cancel.Flag, flag *cancel.Flag) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if *slot == flag {
		*slot = nil
	}
}
