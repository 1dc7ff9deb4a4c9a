// Package http serves the HackPal JSON API.
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sandevgo/hackpal/internal/config"
	"github.com/sandevgo/hackpal/pkg/log"
)

type Server struct {
	srv *http.Server
}

func NewServer(ctx context.Context, cfg *config.AppConfig, api *API) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              cfg.GetListenAddr(),
			Handler:           NewRouter(ctx, cfg, api),
			ReadHeaderTimeout: 10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
	}
}

func NewRouter(ctx context.Context, cfg *config.AppConfig, api *API) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(withLogger(ctx))
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/health"))
	r.Use(cors(cfg.CORSOrigins))
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}

	api.RegisterRoutes(r)
	return r
}

func (s *Server) Start(ctx context.Context) error {
	log.FromCtx(ctx).Info().Str("addr", s.srv.Addr).Msg("starting http server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
