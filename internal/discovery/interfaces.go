package discovery

import (
	"context"
	"time"
)

// Fetcher retrieves the raw HTML of a single page. Implementations must
// bound the request with a timeout; a non-2xx response or transport failure
// surfaces as a *FetchError.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Downloader consumes a catalog and fetches each record's file to local
// storage. The download pipeline is a collaborator of the engine, not part
// of it.
type Downloader interface {
	Download(ctx context.Context, catalog Catalog) ([]string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// LinkStore is the durable first-seen ledger of discovered URLs. The engine
// owns exactly one store instance; implementations need not be safe for
// concurrent use.
type LinkStore interface {
	// Merge inserts every catalog record whose URL is absent, stamping it
	// with now, and returns the newly added URLs. Existing entries are
	// never overwritten: first-seen metadata is authoritative.
	Merge(catalog Catalog, now time.Time) []string
	// Save persists the full ledger atomically.
	Save() error
	// Clear empties the in-memory ledger; persisted state is untouched
	// until the next Save.
	Clear()
	// PeriodsFor returns the distinct periods known for a category.
	PeriodsFor(category Category) map[Period]struct{}
	// Records returns the full ledger as a deterministically ordered
	// catalog.
	Records() Catalog
	// Len reports the number of known URLs.
	Len() int
}
