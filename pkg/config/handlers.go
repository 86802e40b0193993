package config

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// PublicConfig is the subset of the configuration that is safe to expose over HTTP.
type PublicConfig struct {
	SyncIntervalMinutes  int      `json:"sync_interval_minutes"`
	WorkerProcesses      int      `json:"worker_processes"`
	DefaultProviderOrder []string `json:"default_provider_order"`
	ProviderTimeout      string   `json:"provider_timeout"`
	TmdbEnabled          bool     `json:"tmdb_enabled"`
}

type handler struct {
	config *Config
}

func (h *handler) retrieve(c echo.Context) error {
	public := PublicConfig{
		SyncIntervalMinutes:  h.config.SyncIntervalMinutes,
		WorkerProcesses:      h.config.WorkerProcesses,
		DefaultProviderOrder: h.config.DefaultProviderOrder,
		ProviderTimeout:      h.config.ProviderTimeout.String(),
		TmdbEnabled:          h.config.TmdbAPIKey != "",
	}
	if public.DefaultProviderOrder == nil {
		public.DefaultProviderOrder = []string{}
	}

	return errors.WithStack(c.JSON(http.StatusOK, public))
}
