package installer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"univdl/internal/config"
	"univdl/internal/logging"
	"univdl/internal/services"
)

// Downloader fetches release assets over HTTP with retries.
type Downloader struct {
	client    *http.Client
	userAgent string
	retries   int
	backoff   func(attempt int) time.Duration
	logger    *slog.Logger
	// bar is where the interactive progress bar is drawn; nil selects
	// sampled log lines instead.
	bar io.Writer
}

// DownloaderOption configures a Downloader.
type DownloaderOption func(*Downloader)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) DownloaderOption {
	return func(d *Downloader) {
		if client != nil {
			d.client = client
		}
	}
}

// WithBackoff replaces the delay between attempts.
func WithBackoff(backoff func(attempt int) time.Duration) DownloaderOption {
	return func(d *Downloader) {
		if backoff != nil {
			d.backoff = backoff
		}
	}
}

// WithProgressWriter forces the progress bar onto w; nil disables it.
func WithProgressWriter(w io.Writer) DownloaderOption {
	return func(d *Downloader) {
		d.bar = w
	}
}

// NewDownloader builds a downloader from the installer configuration. The
// progress bar is drawn on stderr when it is a terminal.
func NewDownloader(cfg *config.Config, logger *slog.Logger, opts ...DownloaderOption) *Downloader {
	d := &Downloader{
		client:    &http.Client{Timeout: cfg.InstallTimeout()},
		userAgent: cfg.Installer.UserAgent,
		retries:   cfg.Installer.Retries,
		backoff:   defaultBackoff,
		logger:    logging.NewComponentLogger(logger, "installer"),
	}
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		d.bar = os.Stderr
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.retries <= 0 {
		d.retries = 1
	}
	return d
}

func defaultBackoff(attempt int) time.Duration {
	return time.Duration(1+attempt) * time.Second
}

// statusError is a non-2xx HTTP response.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return "unexpected HTTP status " + strconv.Itoa(e.code) + " " + http.StatusText(e.code)
}

// permanent reports whether retrying cannot help.
func (e *statusError) permanent() bool {
	return e.code >= 400 && e.code < 500 && e.code != http.StatusTooManyRequests && e.code != http.StatusRequestTimeout
}

// Fetch downloads url to dest and returns the number of bytes written. The
// body is written to dest.part first and renamed when complete.
func (d *Downloader) Fetch(ctx context.Context, url, dest, label string) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= d.retries; attempt++ {
		if err := ctx.Err(); err != nil {
			return 0, services.Wrap(services.ErrCanceled, "installer", "download "+label, "canceled", err)
		}
		written, err := d.fetchOnce(ctx, url, dest, label)
		if err == nil {
			d.logger.Info("download completed",
				logging.String(logging.FieldEventType, "asset_downloaded"),
				logging.String("asset", label),
				logging.String("size", humanize.Bytes(uint64(written))),
			)
			return written, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return 0, services.Wrap(services.ErrCanceled, "installer", "download "+label, "canceled", ctx.Err())
		}
		var status *statusError
		if errors.As(err, &status) && status.permanent() {
			marker := services.ErrExternalTool
			if status.code == http.StatusNotFound {
				marker = services.ErrNotFound
			}
			return 0, services.Wrap(marker, "installer", "download "+label, url, err)
		}
		logging.WarnWithContext(d.logger, "download attempt failed", "asset_download_retry",
			logging.String("asset", label),
			logging.String("attempt", fmt.Sprintf("%d/%d", attempt, d.retries)),
			logging.Error(err),
			logging.Impact("retrying download"),
			logging.Hint("check network access or set installer.region = \"cn\""),
		)
		if attempt == d.retries {
			break
		}
		timer := time.NewTimer(d.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return 0, services.Wrap(services.ErrCanceled, "installer", "download "+label, "canceled", ctx.Err())
		case <-timer.C:
		}
	}
	return 0, services.Wrap(services.ErrTransient, "installer", "download "+label,
		fmt.Sprintf("failed after %d attempts", d.retries), lastErr)
}

func (d *Downloader) fetchOnce(ctx context.Context, url, dest, label string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("build request: %w", err)
	}
	if d.userAgent != "" {
		req.Header.Set("User-Agent", d.userAgent)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, &statusError{code: resp.StatusCode}
	}

	part := dest + ".part"
	file, err := os.Create(part)
	if err != nil {
		return 0, fmt.Errorf("create partial file: %w", err)
	}
	progress := d.progress(label, resp.ContentLength)
	written, copyErr := io.Copy(io.MultiWriter(file, progress), resp.Body)
	closeErr := file.Close()
	progress.finish()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && resp.ContentLength > 0 && written != resp.ContentLength {
		copyErr = fmt.Errorf("short body: got %d of %d bytes", written, resp.ContentLength)
	}
	if copyErr != nil {
		_ = os.Remove(part)
		return 0, copyErr
	}
	if err := os.Rename(part, dest); err != nil {
		_ = os.Remove(part)
		return 0, fmt.Errorf("finalize download: %w", err)
	}
	return written, nil
}

// progressSink receives downloaded bytes for display.
type progressSink interface {
	io.Writer
	finish()
}

func (d *Downloader) progress(label string, total int64) progressSink {
	if d.bar != nil {
		bar := progressbar.NewOptions64(total,
			progressbar.OptionSetWriter(d.bar),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(d.bar) }),
			progressbar.OptionSpinnerType(14),
			progressbar.OptionFullWidth(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		)
		return barSink{bar: bar}
	}
	return &logSink{
		logger:  d.logger,
		label:   label,
		total:   total,
		sampler: logging.NewProgressSampler(10),
	}
}

type barSink struct {
	bar *progressbar.ProgressBar
}

func (b barSink) Write(p []byte) (int, error) { return b.bar.Write(p) }

func (b barSink) finish() { _ = b.bar.Finish() }

// logSink reports download progress as sampled log lines for non-interactive
// output.
type logSink struct {
	logger  *slog.Logger
	label   string
	total   int64
	written int64
	sampler *logging.ProgressSampler
}

func (s *logSink) Write(p []byte) (int, error) {
	s.written += int64(len(p))
	if s.total <= 0 {
		return len(p), nil
	}
	percent := float64(s.written) * 100 / float64(s.total)
	if s.sampler.ShouldLog(percent, s.label) {
		s.logger.Info("downloading",
			logging.String("asset", s.label),
			logging.Float64(logging.FieldProgressPercent, percent),
			logging.String("progress", humanize.Bytes(uint64(s.written))+" / "+humanize.Bytes(uint64(s.total))),
		)
	}
	return len(p), nil
}

func (s *logSink) finish() {}
