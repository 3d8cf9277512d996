package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// VersionPlaceholder is substituted in URL and file name templates.
const VersionPlaceholder = "{version}"

// Confirmer answers yes/no questions. ui.Prompter satisfies it.
type Confirmer interface {
	Confirm(question string, defaultYes bool) (bool, error)
}

// Acquirer downloads template archives, reusing a cached copy when allowed.
type Acquirer struct {
	urlTemplate  string
	nameTemplate string
	userAgent    string
	httpClient   *http.Client
	progress     io.Writer
	onDownload   func(url string)
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithHTTPClient sets a custom HTTP client (useful for testing).
func WithHTTPClient(c *http.Client) Option {
	return func(a *Acquirer) {
		a.httpClient = c
	}
}

// WithProgress sets where download percentages are written. A nil writer
// disables progress output.
func WithProgress(w io.Writer) Option {
	return func(a *Acquirer) {
		a.progress = w
	}
}

// WithUserAgent overrides the User-Agent header sent with downloads.
func WithUserAgent(ua string) Option {
	return func(a *Acquirer) {
		a.userAgent = ua
	}
}

// WithDownloadHook registers fn to be called just before a download starts.
func WithDownloadHook(fn func(url string)) Option {
	return func(a *Acquirer) {
		a.onDownload = fn
	}
}

// New creates an Acquirer for the given URL and file name templates. Both
// may contain VersionPlaceholder.
func New(urlTemplate, nameTemplate string, opts ...Option) *Acquirer {
	a := &Acquirer{
		urlTemplate:  urlTemplate,
		nameTemplate: nameTemplate,
		userAgent:    "harvest",
		httpClient:   http.DefaultClient,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// URL returns the download URL for version.
func (a *Acquirer) URL(version string) string {
	return strings.ReplaceAll(a.urlTemplate, VersionPlaceholder, version)
}

// FileName returns the local archive file name for version.
func (a *Acquirer) FileName(version string) string {
	return strings.ReplaceAll(a.nameTemplate, VersionPlaceholder, version)
}

// Result describes an acquired archive.
type Result struct {
	Path       string
	Downloaded bool
}

// Acquire makes the archive for version available in dir. When the file is
// already present, confirm is asked whether to download it again; a nil
// confirm reuses the cached file without asking.
func (a *Acquirer) Acquire(ctx context.Context, dir, version string, confirm Confirmer) (*Result, error) {
	name := a.FileName(version)
	path := filepath.Join(dir, name)

	if _, err := os.Stat(path); err == nil {
		redownload := false
		if confirm != nil {
			redownload, err = confirm.Confirm(name+" archive already exists. Redownload? ", false)
			if err != nil {
				return nil, err
			}
		}
		if !redownload {
			return &Result{Path: path}, nil
		}
		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("removing cached archive: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("checking cached archive: %w", err)
	}

	url := a.URL(version)
	if a.onDownload != nil {
		a.onDownload(url)
	}
	if err := a.download(ctx, url, path); err != nil {
		return nil, err
	}
	return &Result{Path: path, Downloaded: true}, nil
}

// download streams url into a temp file next to destPath and renames it into
// place once the body has been read completely.
func (a *Acquirer) download(ctx context.Context, url, destPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating download request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download of %s returned status %d", url, resp.StatusCode)
	}

	tmp, err := os.CreateTemp(filepath.Dir(destPath), "."+filepath.Base(destPath)+".*.part")
	if err != nil {
		return fmt.Errorf("creating download file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := a.copyWithProgress(tmp, resp.Body, resp.ContentLength); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing download: %w", err)
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("moving download into place: %w", err)
	}
	return nil
}

func (a *Acquirer) copyWithProgress(dst io.Writer, src io.Reader, total int64) error {
	var downloaded int64
	lastPercent := -1

	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return fmt.Errorf("writing download: %w", writeErr)
			}
			downloaded += int64(n)
			if a.progress != nil && total > 0 {
				percent := int(downloaded * 100 / total)
				if percent != lastPercent {
					fmt.Fprintf(a.progress, "\rDownloading... %d%%", percent)
					lastPercent = percent
				}
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return fmt.Errorf("reading download stream: %w", readErr)
		}
	}
	if a.progress != nil && total > 0 {
		fmt.Fprintln(a.progress)
	}
	return nil
}
