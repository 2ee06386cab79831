package errors

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"plstats/internal/infrastructure"
)

// ErrorHandler provides centralized error-to-problem conversion for the
// HTTP transport.
type ErrorHandler struct {
	logger *slog.Logger
}

// NewErrorHandler creates a new error handler.
func NewErrorHandler(logger *slog.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger: logger.With(slog.String("component", "error_handler")),
	}
}

// HandleError converts any error to RFC 7807 format and responds.
func (h *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		return
	}

	reqID := infrastructure.GetTraceID(r.Context())

	// Insufficient data is an expected outcome, keep it out of the error log.
	logLevel := slog.LevelError
	if IsInsufficientData(err) || IsInvalidFilter(err) {
		logLevel = slog.LevelInfo
	}
	h.logger.Log(r.Context(), logLevel, "request failed",
		slog.String("error", err.Error()),
		slog.String("request_id", reqID),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
	)

	problem := h.ErrorToProblem(err, r)
	problem.WithExtension("trace_id", reqID)

	render.Render(w, r, problem)
}

// ErrorToProblem converts an error to RFC 7807 Problem Details.
func (h *ErrorHandler) ErrorToProblem(err error, r *http.Request) *ProblemDetails {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return NewProblemDetails(
			http.StatusGatewayTimeout,
			TypeTimeout,
			"Request Timeout",
			"The request took too long to process and was cancelled",
			r.URL.Path,
		)
	}

	var insufficient *InsufficientDataError
	if errors.As(err, &insufficient) {
		return NewProblemDetails(
			http.StatusUnprocessableEntity,
			TypeInsufficientData,
			"Insufficient Data",
			"Not enough qualifying records for the selected filters",
			r.URL.Path,
		).WithExtension("sample_size", insufficient.SampleSize).
			WithExtension("min_required", insufficient.MinRequired)
	}

	var invalid *InvalidFilterError
	if errors.As(err, &invalid) {
		return NewProblemDetails(
			http.StatusBadRequest,
			TypeInvalidFilter,
			"Invalid Filter",
			invalid.Error(),
			r.URL.Path,
		).WithExtension("filter_key", invalid.Key).
			WithExtension("filter_value", invalid.Value)
	}

	var source *SourceDataError
	if errors.As(err, &source) {
		return NewProblemDetails(
			http.StatusServiceUnavailable,
			TypeServiceDown,
			"Snapshot Unavailable",
			"The data snapshot could not be loaded",
			r.URL.Path,
		)
	}

	return NewProblemDetails(
		http.StatusInternalServerError,
		TypeInternal,
		"Internal Server Error",
		"An unexpected error occurred",
		r.URL.Path,
	)
}
