package http

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	apierrors "plstats/internal/errors"
	"plstats/internal/services"
	"plstats/pkg/contracts/domain"
)

// QueryHandler serves the cohort query API.
type QueryHandler struct {
	service      *services.QueryService
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewQueryHandler creates a query handler.
func NewQueryHandler(service *services.QueryService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *QueryHandler {
	return &QueryHandler{
		service:      service,
		logger:       logger.With(slog.String("component", "query_handler")),
		errorHandler: errorHandler,
	}
}

// Routes returns the query API routes.
func (h *QueryHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/percentiles", h.GetPercentiles)
	r.Get("/distribution", h.GetDistribution)
	r.Get("/statistics", h.GetStatistics)
	r.Get("/rank", h.GetRank)
	r.Get("/metadata", h.GetMetadata)
	r.Get("/filter-options/{dimension}", h.GetFilterOptions)

	return r
}

// Query parameters shared by every cohort endpoint.
var filterParams = map[string]bool{
	domain.DimSex: true, domain.DimEquipment: true, domain.DimWeightClass: true,
	domain.DimAgeDiv: true, domain.DimTested: true, domain.DimCountry: true,
	domain.DimState: true, domain.DimFederation: true, domain.DimYear: true,
}

// Extra parameters accepted per endpoint on top of the filters.
var (
	distributionParams = map[string]bool{"bins": true}
	rankParams         = map[string]bool{"squat": true, "bench": true, "deadlift": true, "total": true}
)

// GetPercentiles handles GET /api/percentiles.
func (h *QueryHandler) GetPercentiles(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query(), nil)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Percentiles(r.Context(), filters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetDistribution handles GET /api/distribution.
func (h *QueryHandler) GetDistribution(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters, err := parseFilters(query, distributionParams)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	binCount := 0
	if raw := query.Get("bins"); raw != "" {
		binCount, err = strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.HandleError(w, r,
				apierrors.NewInvalidFilter("bins", raw, fmt.Errorf("not an integer")))
			return
		}
	}

	result, err := h.service.Distribution(r.Context(), filters, binCount)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetStatistics handles GET /api/statistics.
func (h *QueryHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query(), nil)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Statistics(r.Context(), filters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetRank handles GET /api/rank.
func (h *QueryHandler) GetRank(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filters, err := parseFilters(query, rankParams)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	user, err := parseLifts(query)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	result, err := h.service.Rank(r.Context(), filters, user)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetMetadata handles GET /api/metadata.
func (h *QueryHandler) GetMetadata(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Metadata(r.Context())
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

// GetFilterOptions handles GET /api/filter-options/{dimension}.
func (h *QueryHandler) GetFilterOptions(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r.URL.Query(), nil)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	dimension := chi.URLParam(r, "dimension")
	options, err := h.service.FilterOptions(r.Context(), dimension, filters)
	if err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]any{
		"dimension": dimension,
		"options":   options,
	})
}

// parseFilters builds a FilterSet from query parameters. Unknown parameters
// are rejected rather than ignored, so a typoed filter can't silently widen
// a cohort.
func parseFilters(query url.Values, extra map[string]bool) (domain.FilterSet, error) {
	for key := range query {
		if !filterParams[key] && !extra[key] {
			return domain.FilterSet{}, apierrors.NewInvalidFilter(key, query.Get(key),
				fmt.Errorf("unknown query parameter"))
		}
	}

	return domain.FilterSet{
		Sex:         query.Get(domain.DimSex),
		Equipment:   query.Get(domain.DimEquipment),
		WeightClass: query.Get(domain.DimWeightClass),
		AgeDiv:      query.Get(domain.DimAgeDiv),
		Tested:      query.Get(domain.DimTested),
		Country:     query.Get(domain.DimCountry),
		State:       query.Get(domain.DimState),
		Federation:  query.Get(domain.DimFederation),
		Year:        query.Get(domain.DimYear),
	}, nil
}

// parseLifts reads the user's lift values for the rank endpoint. Missing
// parameters read as zero and are simply not ranked.
func parseLifts(query url.Values) (domain.LiftValues, error) {
	parse := func(key string) (float64, error) {
		raw := query.Get(key)
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, apierrors.NewInvalidFilter(key, raw, fmt.Errorf("not a number"))
		}
		return v, nil
	}

	var lifts domain.LiftValues
	var err error
	if lifts.Squat, err = parse("squat"); err != nil {
		return domain.LiftValues{}, err
	}
	if lifts.Bench, err = parse("bench"); err != nil {
		return domain.LiftValues{}, err
	}
	if lifts.Deadlift, err = parse("deadlift"); err != nil {
		return domain.LiftValues{}, err
	}
	if lifts.Total, err = parse("total"); err != nil {
		return domain.LiftValues{}, err
	}
	return lifts, nil
}
