package handler

import (
	"context"
	"net/http"

	"github.com/wadjakorntonsri/linkstats/pkg/app"
	"github.com/wadjakorntonsri/linkstats/pkg/config"
	"github.com/wadjakorntonsri/linkstats/pkg/logging"
)

var mux http.Handler

func init() {
	cfg := config.Load()
	log := logging.New(cfg.AppEnv, cfg.LogLevel)

	// Note: On Vercel, the local database is ephemeral unless DATABASE_URL points at Turso
	a, err := app.Build(context.Background(), cfg, log)
	if err != nil {
		panic(err)
	}
	mux = a.Handler
}

// Handler is the entrypoint for Vercel
func Handler(w http.ResponseWriter, r *http.Request) {
	mux.ServeHTTP(w, r)
}
