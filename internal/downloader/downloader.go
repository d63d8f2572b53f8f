// Package downloader fetches the files behind a discovered catalog to local
// storage. It is a consumer of the discovery engine's output, deliberately
// kept behind the discovery.Downloader interface.
package downloader

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// FileDownloader saves each catalog record's file under
// <output_dir>/<category>/<category>_<year>_<month>_<basename>.
type FileDownloader struct {
	fetcher   discovery.Fetcher
	outputDir string
	logger    *zap.Logger
}

// New builds a FileDownloader rooted at outputDir.
func New(fetcher discovery.Fetcher, outputDir string, logger *zap.Logger) (*FileDownloader, error) {
	if strings.TrimSpace(outputDir) == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("create output dir %s: %w", outputDir, err)
	}
	return &FileDownloader{
		fetcher:   fetcher,
		outputDir: outputDir,
		logger:    logger,
	}, nil
}

// Download fetches every record in the catalog and returns the paths of the
// files written. Individual download failures are logged and skipped; the
// run keeps going so one broken link does not starve the rest of the
// pipeline. Files already on disk are not fetched again.
func (d *FileDownloader) Download(ctx context.Context, catalog discovery.Catalog) ([]string, error) {
	saved := make([]string, 0, len(catalog))
	failures := 0
	for _, rec := range catalog {
		if err := ctx.Err(); err != nil {
			return saved, fmt.Errorf("download canceled: %w", err)
		}

		target := d.targetPath(rec)
		if _, err := os.Stat(target); err == nil {
			d.logger.Debug("File already downloaded", zap.String("path", target))
			saved = append(saved, target)
			continue
		}

		body, err := d.fetcher.Fetch(ctx, rec.URL)
		if err != nil {
			failures++
			d.logger.Warn("Download failed",
				zap.String("url", rec.URL),
				zap.String("category", string(rec.Category)),
				zap.Error(err),
			)
			continue
		}
		if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
			return saved, fmt.Errorf("create category dir for %s: %w", target, err)
		}
		if err := os.WriteFile(target, body, 0o600); err != nil {
			return saved, fmt.Errorf("write %s: %w", target, err)
		}
		saved = append(saved, target)
		d.logger.Info("File downloaded",
			zap.String("url", rec.URL),
			zap.String("path", target),
			zap.Int("bytes", len(body)),
		)
	}

	d.logger.Info("Download run finished",
		zap.Int("requested", len(catalog)),
		zap.Int("saved", len(saved)),
		zap.Int("failed", failures),
	)
	return saved, nil
}

func (d *FileDownloader) targetPath(rec discovery.LinkRecord) string {
	category := strings.ToLower(string(rec.Category))
	base := urlBasename(rec.URL)
	name := fmt.Sprintf("%s_%04d_%02d_%s", category, rec.Year, rec.Month, base)
	return filepath.Join(d.outputDir, category, name)
}

func urlBasename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" || u.Path == "/" {
		return "arquivo.xls"
	}
	base := path.Base(u.EscapedPath())
	if base == "" || base == "." || base == "/" {
		return "arquivo.xls"
	}
	return base
}
