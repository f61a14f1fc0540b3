package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorResponse(t *testing.T) {
	rec := httptest.NewRecorder()
	ErrorResponse(rec, httptest.NewRequest(http.MethodGet, "/", nil), http.StatusUnauthorized, "Invalid token.")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"message": "Invalid token."}, body)
}

func TestDecodeJSONBody(t *testing.T) {
	type payload struct {
		Usuario string `json:"usuario"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{name: "Valid", body: `{"usuario":"ana"}`},
		{name: "Empty", body: ``, wantErr: "body must not be empty"},
		{name: "Malformed", body: `{"usuario":}`, wantErr: "badly-formed JSON"},
		{name: "WrongType", body: `{"usuario":1}`, wantErr: `incorrect JSON type for field "usuario"`},
		{name: "UnknownField", body: `{"usuario":"ana","email":"x"}`, wantErr: `unknown key "email"`},
		{name: "TrailingData", body: `{"usuario":"ana"}{}`, wantErr: "single JSON value"},
		{name: "TooLarge", body: `{"usuario":"` + strings.Repeat("a", 1_048_577) + `"}`, wantErr: "must not be larger than"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var dst payload
			err := DecodeJSONBody(httptest.NewRecorder(), req, &dst)
			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "ana", dst.Usuario)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
