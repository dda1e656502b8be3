package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iota-uz/tenancy/pkg/httpapi"
)

func TestWriteError_Envelope(t *testing.T) {
	rec := httptest.NewRecorder()
	err := httpapi.WriteError(rec, http.StatusServiceUnavailable, "router.cooldown", "module cooling down", map[string]any{
		"module": "inventory",
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	var envelope httpapi.ErrorEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.False(t, envelope.Success)
	assert.Equal(t, "router.cooldown", envelope.Code)
	assert.Equal(t, "module cooling down", envelope.Message)
	assert.Equal(t, "inventory", envelope.Meta["module"])
}

func TestWriteJSON_NilPayload(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, httpapi.WriteJSON(rec, http.StatusNoContent, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())
}
