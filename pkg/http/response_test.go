package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	apperrors "repairdesk/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteError_UsesAppErrorStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"validation", apperrors.Validation("bad", nil), http.StatusBadRequest, apperrors.CodeValidation},
		{"slot full", apperrors.SlotFull("s1"), http.StatusConflict, apperrors.CodeSlotFull},
		{"transition", apperrors.InvalidTransition("draft", "confirmed"), http.StatusConflict, apperrors.CodeInvalidTransition},
		{"dependency", apperrors.Dependency("catalog", errors.New("down")), http.StatusBadGateway, apperrors.CodeDependency},
		{"plain error", errors.New("secret driver failure"), http.StatusInternalServerError, apperrors.CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			require.NoError(t, WriteError(rec, tt.err))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.code, body.Code)
			assert.NotContains(t, body.Error, "secret")
		})
	}
}

func TestWritePaginated(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WritePaginated(rec, []string{"a"}, 3, 1, 2))

	var body PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(3), body.TotalCount)
	assert.Equal(t, 1, body.Limit)
	assert.Equal(t, int64(2), body.Offset)
}

func TestExtractLimitOffset(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=500&offset=-3", nil)
	limit, offset, err := ExtractLimitOffset(r)
	require.NoError(t, err)
	assert.Equal(t, 100, limit)
	assert.Equal(t, int64(0), offset)

	r = httptest.NewRequest(http.MethodGet, "/api/v1/bookings?limit=ten", nil)
	_, _, err = ExtractLimitOffset(r)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidInput))
}

func TestDecodeJSON(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}

	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"fix"}`))
	require.NoError(t, DecodeJSON(r, &target))
	assert.Equal(t, "fix", target.Name)

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(``))
	assert.True(t, apperrors.HasCode(DecodeJSON(r, &target), apperrors.CodeInvalidInput))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":`))
	assert.True(t, apperrors.HasCode(DecodeJSON(r, &target), apperrors.CodeInvalidInput))

	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}{"name":"b"}`))
	assert.True(t, apperrors.HasCode(DecodeJSON(r, &target), apperrors.CodeInvalidInput))
}
