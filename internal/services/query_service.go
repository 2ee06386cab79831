package services

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"plstats/internal/cohort"
	"plstats/internal/config"
	"plstats/internal/errors"
	"plstats/internal/stats"
	"plstats/pkg/contracts/domain"
)

// TracerName identifies query-service spans.
const TracerName = "plstats.query"

var errNoSnapshot = stderrors.New("no dataset published yet")

// QueryService answers cohort queries against the currently published
// snapshot.
type QueryService struct {
	holder   *cohort.Holder
	engine   *stats.Engine
	validate *validator.Validate
	cfg      config.QueryConfig
	logger   *slog.Logger
	tracer   trace.Tracer
}

// NewQueryService creates a query service. The logger must not be nil.
func NewQueryService(holder *cohort.Holder, engine *stats.Engine, cfg config.QueryConfig, logger *slog.Logger) *QueryService {
	return &QueryService{
		holder:   holder,
		engine:   engine,
		validate: validator.New(),
		cfg:      cfg,
		logger:   logger.With(slog.String("component", "query_service")),
		tracer:   otel.Tracer(TracerName),
	}
}

// Percentiles computes the 1st..99th percentile curves of each lift within
// the filtered cohort.
func (s *QueryService) Percentiles(ctx context.Context, filters domain.FilterSet) (*domain.PercentileResult, error) {
	ctx, span := s.tracer.Start(ctx, "query.percentiles")
	defer span.End()

	rows, err := s.selectCohort(ctx, filters)
	if err != nil {
		return nil, err
	}

	curves, sampleSize, err := s.engine.Percentiles(rows)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("cohort.sample_size", sampleSize))
	return &domain.PercentileResult{
		Percentiles: curves,
		SampleSize:  sampleSize,
		Filters:     filters,
	}, nil
}

// Distribution computes normalized histograms of each lift within the
// filtered cohort. A zero binCount selects the configured default.
func (s *QueryService) Distribution(ctx context.Context, filters domain.FilterSet, binCount int) (*domain.DistributionResult, error) {
	ctx, span := s.tracer.Start(ctx, "query.distribution")
	defer span.End()

	if binCount == 0 {
		binCount = s.cfg.DefaultBins
	}
	if binCount < 1 || binCount > s.cfg.MaxBins {
		return nil, errors.NewInvalidFilter("bins", fmt.Sprintf("%d", binCount),
			fmt.Errorf("bins must be between 1 and %d", s.cfg.MaxBins))
	}

	rows, err := s.selectCohort(ctx, filters)
	if err != nil {
		return nil, err
	}

	distributions, sampleSize, err := s.engine.Distributions(rows, binCount)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("cohort.sample_size", sampleSize),
		attribute.Int("histogram.bins", binCount))
	return &domain.DistributionResult{
		Distributions: distributions,
		SampleSize:    sampleSize,
		Filters:       filters,
	}, nil
}

// Statistics computes summary statistics of each lift within the filtered
// cohort. Unlike percentiles and distributions this is not gated on the
// minimum sample size; an empty cohort yields zeroed statistics.
func (s *QueryService) Statistics(ctx context.Context, filters domain.FilterSet) (*domain.StatisticsResult, error) {
	ctx, span := s.tracer.Start(ctx, "query.statistics")
	defer span.End()

	rows, err := s.selectCohort(ctx, filters)
	if err != nil {
		return nil, err
	}

	result := s.engine.Statistics(rows)
	result.Filters = filters

	span.SetAttributes(attribute.Int("cohort.sample_size", result.SampleSize))
	return &result, nil
}

// Rank places the user's lifts within the filtered cohort as percentile
// ranks.
func (s *QueryService) Rank(ctx context.Context, filters domain.FilterSet, user domain.LiftValues) (*domain.RankResult, error) {
	ctx, span := s.tracer.Start(ctx, "query.rank")
	defer span.End()

	if user.Squat < 0 || user.Bench < 0 || user.Deadlift < 0 || user.Total < 0 {
		return nil, errors.NewInvalidFilter("lifts", "negative",
			stderrors.New("lift values must be non-negative"))
	}

	rows, err := s.selectCohort(ctx, filters)
	if err != nil {
		return nil, err
	}

	result := s.engine.Rank(rows, user)
	result.Filters = filters
	return &result, nil
}

// Metadata returns the filterable universe of the current snapshot.
func (s *QueryService) Metadata(ctx context.Context) (*domain.Metadata, error) {
	_, span := s.tracer.Start(ctx, "query.metadata")
	defer span.End()

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	md := snap.Metadata()
	return &md, nil
}

// FilterOptions returns the values the given dimension takes among records
// matching the other constrained dimensions.
func (s *QueryService) FilterOptions(ctx context.Context, dimension string, filters domain.FilterSet) ([]string, error) {
	_, span := s.tracer.Start(ctx, "query.filter_options",
		trace.WithAttributes(attribute.String("dimension", dimension)))
	defer span.End()

	if !slices.Contains(domain.Dimensions, dimension) {
		return nil, errors.NewInvalidFilter("dimension", dimension,
			stderrors.New("unknown dimension"))
	}
	if err := s.validateFilters(filters); err != nil {
		return nil, err
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	options := snap.FilterOptions(dimension, filters)
	if options == nil {
		options = []string{}
	}
	return options, nil
}

// selectCohort validates the filters and resolves them against the current
// snapshot.
func (s *QueryService) selectCohort(ctx context.Context, filters domain.FilterSet) ([]domain.LiftValues, error) {
	if err := s.validateFilters(filters); err != nil {
		return nil, err
	}

	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows := snap.Select(filters)

	s.logger.DebugContext(ctx, "cohort selected",
		slog.Int("rows", len(rows)),
		slog.Duration("duration", time.Since(start)))
	return rows, nil
}

func (s *QueryService) validateFilters(filters domain.FilterSet) error {
	if err := s.validate.Struct(filters); err != nil {
		var fieldErrs validator.ValidationErrors
		if stderrors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			first := fieldErrs[0]
			return errors.NewInvalidFilter(first.Field(), fmt.Sprintf("%v", first.Value()),
				fmt.Errorf("failed %s validation", first.Tag()))
		}
		return errors.NewInvalidFilter("filters", "", err)
	}
	if _, _, err := filters.YearValue(); err != nil {
		return errors.NewInvalidFilter(domain.DimYear, filters.Year, err)
	}
	return nil
}

func (s *QueryService) snapshot() (*cohort.Snapshot, error) {
	snap := s.holder.Current()
	if snap == nil {
		return nil, errors.NewSourceDataError("snapshot", errNoSnapshot)
	}
	return snap, nil
}
