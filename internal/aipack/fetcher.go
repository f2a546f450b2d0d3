package aipack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/jaja2302/Palm-counting-AI/internal/cancel"
	"github.com/jaja2302/Palm-counting-AI/internal/errors"
	"github.com/jaja2302/Palm-counting-AI/internal/events"
	"github.com/jaja2302/Palm-counting-AI/internal/httpclient"
	"github.com/jaja2302/Palm-counting-AI/internal/logger"
)

// PackInfo is the /info response of the pack server. Only SizeBytes is
// required; the rest is informational.
type PackInfo struct {
	Available *bool   `json:"available,omitempty"`
	Filename  string  `json:"filename,omitempty"`
	SizeBytes uint64  `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb,omitempty"`
	Version   string  `json:"version,omitempty"`
	Message   string  `json:"message,omitempty"`
}

// FetchResult describes how a fetch attempt ended without error.
type FetchResult struct {
	Paused     bool
	Downloaded uint64
	Total      uint64
	Archive    string
}

// Fetcher downloads the pack into a fixed partial file and commits it to the
// archive path by rename once every advertised byte arrived.
type Fetcher struct {
	client      *httpclient.Client
	pub         *events.Publisher
	log         logger.Logger
	partialPath string
	archivePath string
	chunkSize   int
}

// NewFetcher creates a fetcher writing to partialPath and committing to archivePath.
func NewFetcher(client *httpclient.Client, pub *events.Publisher, log logger.Logger, partialPath, archivePath string, chunkSize int) *Fetcher {
	if chunkSize <= 0 {
		chunkSize = 64 * 1024
	}
	return &Fetcher{
		client:      client,
		pub:         pub,
		log:         log,
		partialPath: partialPath,
		archivePath: archivePath,
		chunkSize:   chunkSize,
	}
}

// Info queries {baseURL}/info.
func (f *Fetcher) Info(ctx context.Context, baseURL string) (*PackInfo, error) {
	infoURL := strings.TrimRight(baseURL, "/") + "/info"

	resp, err := f.client.Get(ctx, infoURL, nil)
	if err != nil {
		return nil, transferError(err, "info", infoURL)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusNotFound {
		return nil, unavailableError("AI pack tidak tersedia di server", infoURL)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, transferError(fmt.Errorf("pack info request failed: %s", resp.Status), "info", infoURL)
	}

	var info PackInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, transferError(fmt.Errorf("invalid pack info: %w", err), "info", infoURL)
	}
	if info.Available != nil && !*info.Available {
		return nil, unavailableError("AI pack tidak tersedia di server", infoURL)
	}
	if info.SizeBytes == 0 {
		return nil, unavailableError("AI pack tidak tersedia (size 0)", infoURL)
	}
	return &info, nil
}

// Fetch downloads the pack advertised at baseURL, resuming a previous partial
// file when one exists. A set flag ends the attempt as a pause, not an error.
func (f *Fetcher) Fetch(ctx context.Context, baseURL string, flag *cancel.Flag) (*FetchResult, error) {
	info, err := f.Info(ctx, baseURL)
	if err != nil {
		return nil, err
	}
	total := info.SizeBytes
	f.log.Info("pack info received",
		logger.Uint64("size_bytes", total),
		logger.String("version", info.Version),
		logger.String("filename", info.Filename))

	start := f.resumeOffset(total)
	downloadURL := strings.TrimRight(baseURL, "/") + "/download"

	header := http.Header{}
	if start > 0 {
		header.Set("Range", fmt.Sprintf("bytes=%d-", start))
	}
	resp, err := f.client.Get(ctx, downloadURL, header)
	if err != nil {
		return nil, transferError(err, "download", downloadURL)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusPartialContent:
	case http.StatusOK:
		if start > 0 {
			f.log.Warn("server ignored range request, restarting from zero",
				logger.Uint64("requested_offset", start))
			start = 0
		}
	default:
		return nil, transferError(fmt.Errorf("download failed: %s", resp.Status), "download", downloadURL)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if start > 0 {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(f.partialPath, flags, 0o644)
	if err != nil {
		return nil, errors.New(err).
			Component("aipack").
			Category(errors.CategoryFileIO).
			Context("operation", "open-partial").
			Context("path", f.partialPath).
			Build()
	}

	downloaded, paused, copyErr := f.stream(resp.Body, file, start, total, flag)
	closeErr := file.Close()
	if copyErr != nil {
		return nil, copyErr
	}
	if closeErr != nil {
		return nil, transferError(closeErr, "close-partial", f.partialPath)
	}
	if paused {
		f.log.Info("download paused",
			logger.Uint64("downloaded", downloaded),
			logger.Uint64("total", total))
		f.pub.PackPaused(downloaded, total)
		return &FetchResult{Paused: true, Downloaded: downloaded, Total: total}, nil
	}

	if downloaded != total {
		return nil, errors.Newf("download ended early: received %d of %d bytes", downloaded, total).
			Component("aipack").
			Category(errors.CategoryTransfer).
			Context("operation", "download").
			Context("downloaded", downloaded).
			Context("total", total).
			Build()
	}

	if err := os.Rename(f.partialPath, f.archivePath); err != nil {
		return nil, errors.New(err).
			Component("aipack").
			Category(errors.CategoryFileIO).
			Context("operation", "commit-archive").
			Context("path", f.archivePath).
			Build()
	}
	f.log.Info("download committed",
		logger.String("archive", f.archivePath),
		logger.Uint64("bytes", downloaded))
	return &FetchResult{Downloaded: downloaded, Total: total, Archive: f.archivePath}, nil
}

// resumeOffset returns the size of an existing partial file, discarding it
// when it cannot belong to a pack of size total.
func (f *Fetcher) resumeOffset(total uint64) uint64 {
	st, err := os.Stat(f.partialPath)
	if err != nil || !st.Mode().IsRegular() {
		return 0
	}
	start := uint64(st.Size())
	if start >= total {
		f.log.Info("discarding stale partial download",
			logger.Uint64("partial_bytes", start),
			logger.Uint64("total", total))
		_ = os.Remove(f.partialPath)
		return 0
	}
	return start
}

// stream copies body into w chunk by chunk. The flag is sampled after each
// read and before the bytes are written.
func (f *Fetcher) stream(body io.Reader, w io.Writer, start, total uint64, flag *cancel.Flag) (downloaded uint64, paused bool, err error) {
	downloaded = start
	buf := make([]byte, f.chunkSize)
	logEvery := rate.NewLimiter(rate.Every(2*time.Second), 1)

	for {
		n, readErr := body.Read(buf)
		if n > 0 {
			if flag.IsSet() {
				return downloaded, true, nil
			}
			if downloaded+uint64(n) > total {
				return downloaded, false, errors.Newf("server sent more than the advertised %d bytes", total).
					Component("aipack").
					Category(errors.CategoryTransfer).
					Context("operation", "download").
					Context("downloaded", downloaded).
					Build()
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return downloaded, false, errors.New(werr).
					Component("aipack").
					Category(errors.CategoryFileIO).
					Context("operation", "write-partial").
					Build()
			}
			downloaded += uint64(n)
			f.pub.PackProgress(downloaded, total)
			if logEvery.Allow() {
				f.log.Debug("download progress",
					logger.Uint64("downloaded", downloaded),
					logger.Uint64("total", total),
					logger.Uint64("percent", events.Percent(downloaded, total)))
			}
		}
		if readErr == io.EOF {
			return downloaded, false, nil
		}
		if readErr != nil {
			return downloaded, false, transferError(readErr, "read-body", "")
		}
	}
}

func transferError(err error, operation, target string) error {
	b := errors.New(err).
		Component("aipack").
		Category(errors.CategoryTransfer).
		Context("operation", operation)
	if target != "" {
		b = b.Context("target", target)
	}
	return b.Build()
}

func unavailableError(message, url string) error {
	return errors.Newf("%s", message).
		Component("aipack").
		Category(errors.CategoryPackUnavailable).
		Context("url", url).
		Build()
}
