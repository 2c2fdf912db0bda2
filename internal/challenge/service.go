// Package challenge is the engine's entry point: it scores submissions,
// writes them to the ledger and answers reporting and bonus queries.
package challenge

import (
	"context"
	"html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"example.com/fitchallenge/internal/aggregate"
	"example.com/fitchallenge/internal/cache"
	"example.com/fitchallenge/internal/consistency"
	"example.com/fitchallenge/internal/ledger"
	"example.com/fitchallenge/internal/period"
	"example.com/fitchallenge/internal/scoring"
)

// Service orchestrates challenge workflows over one ledger.
type Service struct {
	store      *ledger.Store
	scorer     *scoring.Scorer
	aggregator *aggregate.Aggregator
	evaluator  *consistency.Evaluator
	reports    cache.ReportCache
	policy     *bluemonday.Policy
	logger     *zap.Logger
	now        func() time.Time
	epoch      time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithReportCache sets the cache used for summary reports.
func WithReportCache(c cache.ReportCache) Option {
	return func(s *Service) {
		if c != nil {
			s.reports = c
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithEpoch sets the first day of the "all" period.
func WithEpoch(epoch time.Time) Option {
	return func(s *Service) {
		if !epoch.IsZero() {
			s.epoch = period.Day(epoch)
		}
	}
}

// NewService constructs a Service.
func NewService(store *ledger.Store, scorer *scoring.Scorer, opts ...Option) *Service {
	s := &Service{
		store:   store,
		scorer:  scorer,
		reports: cache.NoopReportCache{},
		policy:  bluemonday.StrictPolicy(),
		logger:  zap.NewNop(),
		now:     time.Now,
		epoch:   period.DefaultEpoch,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.aggregator = aggregate.New(store)
	s.evaluator = consistency.NewEvaluator(store, scorer.Rules().ConsistencyTiers, s.now)
	return s
}

// Mode reports the configured scoring mode.
func (s *Service) Mode() scoring.Mode {
	return s.scorer.Mode()
}

func (s *Service) today() time.Time {
	return period.Day(s.now())
}

// cleanText strips markup from free text and trims it.
func (s *Service) cleanText(value string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

// invalidateReports drops cached reports after a ledger mutation. Failures
// only cost freshness until the cache TTL, so they are logged.
func (s *Service) invalidateReports(ctx context.Context) {
	if err := s.reports.Invalidate(ctx); err != nil {
		s.logger.Warn("report cache invalidation failed", zap.Error(err))
	}
}
