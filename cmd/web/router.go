// cmd/web/router.go
//
// Root chi router: global middleware, probes, metrics, and components.

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/eyegonal/internal/component"
	"github.com/yanizio/eyegonal/internal/config"
	"github.com/yanizio/eyegonal/internal/middleware"
	"github.com/yanizio/eyegonal/internal/requestinfo"
	"github.com/yanizio/eyegonal/internal/respond"
)

func newRouter(cfg *config.Config, ping func(context.Context) error) chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(middleware.Recover)
	r.Use(middleware.Logger)
	r.Use(middleware.Security)
	if cfg.HTTP.ForceHTTPS {
		r.Use(middleware.ForceHTTPS(cfg.HTTP.TrustProxy))
	}
	r.Use(requestinfo.Enrich(trustedProxies(cfg.HTTP)))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if ping != nil {
			if err := ping(ctx); err != nil {
				zap.L().Warn("health check", zap.Error(err))
				respond.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
				return
			}
		}
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	component.Mount(r)
	return r
}

// trustedProxies returns nil unless trust_proxy is on.  The list was
// validated at load time, so a parse failure only drops header trust.
func trustedProxies(h config.HTTP) requestinfo.Proxies {
	if !h.TrustProxy {
		return nil
	}
	if len(h.TrustedProxies) == 0 {
		return requestinfo.DefaultProxies
	}
	p, err := requestinfo.ParseProxies(h.TrustedProxies...)
	if err != nil {
		zap.L().Error("trusted proxies ignored", zap.Error(err))
		return nil
	}
	return p
}
