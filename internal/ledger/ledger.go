// Package ledger persists the first-seen record of discovered file URLs.
// The ledger is what lets discovery answer "what is new since last run?"
// across process restarts.
package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// FileName is the ledger file kept under the cache directory. Deleting it
// forces a full rediscovery on the next run.
const FileName = "known_links.json"

// Entry is the immutable first-seen metadata stored per URL.
type Entry struct {
	Category    discovery.Category `json:"category"`
	Year        int                `json:"year"`
	Month       int                `json:"month"`
	CollectedAt time.Time          `json:"collected_at"`
}

// Ledger maps URL to first-seen metadata, backed by a JSON file. It is
// read in full at load and written in full at save; there are no partial
// writes. Not safe for concurrent use.
type Ledger struct {
	path    string
	entries map[string]Entry
	logger  *zap.Logger
}

// Open creates the cache directory if needed and loads any persisted state.
// A missing or corrupt ledger file degrades to an empty ledger; only an
// unusable cache directory is an error, because Save would be guaranteed to
// fail later.
func Open(cacheDir string, logger *zap.Logger) (*Ledger, error) {
	if err := os.MkdirAll(cacheDir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir %s: %w", cacheDir, err)
	}
	l := &Ledger{
		path:    filepath.Join(cacheDir, FileName),
		entries: make(map[string]Entry),
		logger:  logger,
	}
	l.Load()
	return l, nil
}

// Load replaces the in-memory state with the persisted state. Any failure
// degrades to an empty ledger: the engine can always re-discover from the
// source page, so durability is best-effort, never a correctness
// requirement.
func (l *Ledger) Load() {
	l.entries = make(map[string]Entry)

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			l.logger.Debug("No ledger file; starting empty", zap.String("path", l.path))
		} else {
			l.logger.Warn("Failed to read ledger; starting empty",
				zap.String("path", l.path), zap.Error(err))
		}
		return
	}

	var entries map[string]Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		l.logger.Warn("Ledger file malformed; starting empty",
			zap.String("path", l.path), zap.Error(err))
		return
	}
	if entries == nil {
		// A file holding JSON "null" unmarshals into a nil map without
		// error; Merge must never write into that.
		l.logger.Warn("Ledger file malformed; starting empty", zap.String("path", l.path))
		return
	}
	l.entries = entries
	l.logger.Info("Ledger loaded", zap.String("path", l.path), zap.Int("known_links", len(entries)))
}

// Merge inserts every catalog record whose URL is not yet known, stamped
// with now, and returns the newly added URLs in sorted order. Existing
// entries are left untouched even if a later crawl reclassified the same
// URL: a published file's identity and period do not change.
func (l *Ledger) Merge(catalog discovery.Catalog, now time.Time) []string {
	var added []string
	for _, rec := range catalog {
		if _, known := l.entries[rec.URL]; known {
			continue
		}
		l.entries[rec.URL] = Entry{
			Category:    rec.Category,
			Year:        rec.Year,
			Month:       rec.Month,
			CollectedAt: now,
		}
		added = append(added, rec.URL)
	}
	sort.Strings(added)
	return added
}

// Save serializes the full ledger atomically: the JSON document is written
// to a temp file in the same directory and renamed over the previous state,
// so a crash mid-write cannot corrupt the last good ledger.
func (l *Ledger) Save() error {
	payload, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	dir := filepath.Dir(l.path)
	tmp, err := os.CreateTemp(dir, FileName+".tmp-*")
	if err != nil {
		return fmt.Errorf("create ledger temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(payload); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write ledger temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close ledger temp file: %w", err)
	}
	if err := os.Rename(tmpName, l.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace ledger file: %w", err)
	}

	l.logger.Debug("Ledger saved", zap.String("path", l.path), zap.Int("known_links", len(l.entries)))
	return nil
}

// Clear empties the in-memory ledger without touching the persisted state
// until the next Save. Used for forced full rediscovery.
func (l *Ledger) Clear() {
	l.entries = make(map[string]Entry)
}

// Len reports the number of known URLs.
func (l *Ledger) Len() int {
	return len(l.entries)
}

// PeriodsFor returns the distinct periods known for a category.
func (l *Ledger) PeriodsFor(category discovery.Category) map[discovery.Period]struct{} {
	periods := make(map[discovery.Period]struct{})
	for _, entry := range l.entries {
		if entry.Category != category {
			continue
		}
		periods[discovery.Period{Year: entry.Year, Month: entry.Month}] = struct{}{}
	}
	return periods
}

// Records returns the full ledger as a deterministically ordered catalog.
func (l *Ledger) Records() discovery.Catalog {
	catalog := make(discovery.Catalog, 0, len(l.entries))
	for url, entry := range l.entries {
		catalog = append(catalog, discovery.LinkRecord{
			Category:    entry.Category,
			Year:        entry.Year,
			Month:       entry.Month,
			MonthName:   discovery.MonthName(entry.Month),
			URL:         url,
			CollectedAt: entry.CollectedAt,
		})
	}
	catalog.Sort()
	return catalog
}
