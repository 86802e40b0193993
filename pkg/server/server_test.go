package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shishobooks/kino/pkg/config"
	"github.com/shishobooks/kino/pkg/identifier"
	"github.com/shishobooks/kino/pkg/metadata"
	"github.com/shishobooks/kino/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	cfg := config.NewForTest()
	cfg.ServerPort = 4000

	srv, err := New(cfg, testutils.NewDB(t), metadata.NewEngine(metadata.NewRegistry(nil), metadata.EngineOptions{}), identifier.NewDefault())
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:4000", srv.Addr)
}

func TestRoutes(t *testing.T) {
	e, err := newEcho(config.NewForTest(), testutils.NewDB(t), metadata.NewEngine(metadata.NewRegistry(nil), metadata.EngineOptions{}), identifier.NewDefault())
	require.NoError(t, err)

	tests := []struct {
		target string
		code   int
	}{
		{"/shows", http.StatusOK},
		{"/videos/guesses", http.StatusOK},
		{"/metadata/providers", http.StatusOK},
		{"/config", http.StatusOK},
		{"/identify?path=/clip.mkv", http.StatusUnprocessableEntity},
		{"/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.code, rec.Code, rec.Body.String())
		})
	}
}
