package discovery

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TotalFetches tracks index-page fetch attempts.
	TotalFetches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_fetches_total",
		Help: "The total number of index page fetch attempts.",
	})
	// TotalFetchErrors tracks fetch attempts that failed.
	TotalFetchErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_fetch_errors_total",
		Help: "The total number of failed index page fetches.",
	})
	// TotalLinksSeen tracks hyperlinks extracted from fetched pages.
	TotalLinksSeen = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_links_seen_total",
		Help: "The total number of hyperlinks examined by the classifier.",
	})
	// TotalLinksMatched tracks links classified into a catalog record.
	TotalLinksMatched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_links_matched_total",
		Help: "The total number of links classified as price table files.",
	})
	// TotalLinksDropped tracks discarded links by drop reason. Operators
	// watch the no_category/no_date series to detect site drift that needs
	// new patterns.
	TotalLinksDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_links_dropped_total",
		Help: "The total number of discarded links, partitioned by reason.",
	}, []string{"reason"})
	// TotalNewLinks tracks URLs newly added to the ledger.
	TotalNewLinks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_new_links_total",
		Help: "The total number of URLs first seen and merged into the ledger.",
	})
)
