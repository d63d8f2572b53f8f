package hybrid

import (
	"go.uber.org/zap"

	"github.com/lucianohb/cmed-crawler/internal/discovery"
)

// LogReporter is the default Reporter: it writes the gap report to the
// structured log, one line per missing period.
type LogReporter struct {
	logger *zap.Logger
}

// NewLogReporter builds a log-backed reporter.
func NewLogReporter(logger *zap.Logger) *LogReporter {
	return &LogReporter{logger: logger}
}

// Report logs the report summary and each missing period.
func (r *LogReporter) Report(report discovery.GapReport) {
	r.logger.Info("Gap report",
		zap.String("category", string(report.Category)),
		zap.String("start", report.Start.String()),
		zap.String("end", report.End.String()),
		zap.Int("expected", report.Expected),
		zap.Int("observed", len(report.Observed)),
		zap.Float64("coverage_pct", report.CoveragePct),
	)
	for _, p := range report.Missing {
		r.logger.Warn("Missing period",
			zap.String("category", string(report.Category)),
			zap.String("period", p.String()),
		)
	}
}
