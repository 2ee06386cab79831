package errors

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plstats/internal/shared/testutil"
)

func TestDomainErrorKinds(t *testing.T) {
	insufficient := NewInsufficientData(7, 10)
	assert.True(t, IsInsufficientData(insufficient))
	assert.True(t, IsInsufficientData(fmt.Errorf("query: %w", insufficient)))
	assert.Contains(t, insufficient.Error(), "7 qualifying records")

	invalid := NewInvalidFilter("year", "20x5", nil)
	assert.True(t, IsInvalidFilter(invalid))
	assert.False(t, IsInvalidFilter(insufficient))
	assert.Contains(t, invalid.Error(), `year="20x5"`)

	source := NewSourceDataError("openpowerlifting.csv", fmt.Errorf("missing header"))
	assert.True(t, IsSourceDataError(source))
	assert.Contains(t, source.Error(), "openpowerlifting.csv")
	assert.EqualError(t, source.Unwrap(), "missing header")
}

func TestProblemDetailsMarshalIncludesExtensions(t *testing.T) {
	pd := NewProblemDetails(http.StatusBadRequest, TypeInvalidFilter, "Invalid Filter", "bad year", "/api/percentiles")
	pd.WithExtension("filter_key", "year")

	data, err := json.Marshal(pd)
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "/errors/invalid-filter", doc["type"])
	assert.Equal(t, float64(http.StatusBadRequest), doc["status"])
	assert.Equal(t, "year", doc["filter_key"])
}

func TestHandleErrorStatusMapping(t *testing.T) {
	logger, _ := testutil.NewTestLogger()
	handler := NewErrorHandler(logger)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{
			name:       "insufficient data",
			err:        NewInsufficientData(3, 10),
			wantStatus: http.StatusUnprocessableEntity,
			wantType:   TypeInsufficientData,
		},
		{
			name:       "invalid filter",
			err:        NewInvalidFilter("equipment", "Bands", nil),
			wantStatus: http.StatusBadRequest,
			wantType:   TypeInvalidFilter,
		},
		{
			name:       "source data",
			err:        NewSourceDataError("db", fmt.Errorf("corrupt")),
			wantStatus: http.StatusServiceUnavailable,
			wantType:   TypeServiceDown,
		},
		{
			name:       "unknown",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantType:   TypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodGet, "/api/percentiles", nil)

			handler.HandleError(w, r, tt.err)

			assert.Equal(t, tt.wantStatus, w.Code)

			var doc map[string]interface{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
			assert.Equal(t, tt.wantType, doc["type"])
		})
	}
}
