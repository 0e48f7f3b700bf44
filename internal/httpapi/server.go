// Package httpapi is spec.md §1's "HTTP framework" external collaborator:
// routing, body parsing, and middleware around the discovery orchestrator.
// It owns none of the core discovery logic in internal/discovery — it only
// translates HTTP requests into discovery.Request values and discovery.Result
// values into status codes and headers, per spec.md §6.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sovereign-xds/sovereign/internal/auth"
	"github.com/sovereign-xds/sovereign/internal/discovery"
	"github.com/sovereign-xds/sovereign/internal/xdstemplate"
)

// Server is the xDS discovery HTTP server, mirroring the teacher's
// xds.Server: a thin struct holding the wired collaborators plus Serve/Seed
// lifecycle methods the cmd entrypoint drives.
type Server struct {
	mux *http.ServeMux
	log *slog.Logger
}

// Options configures the routes a Server registers.
type Options struct {
	Orchestrator          *discovery.Orchestrator
	Authenticator         *auth.Authenticator
	Templates             *xdstemplate.Registry
	Warmed                func() bool
	NoChangesResponseCode int
	// VersionedAPIVersions lists additional "/v{N}/discovery:{xds_type}"
	// prefixes to register alongside the fixed "/v2/discovery:{xds_type}"
	// route, e.g. []int{3} for "/v3/discovery:...".
	VersionedAPIVersions []int
}

// NewServer builds a Server with every discovery route wired per spec.md
// §6, plus /healthcheck and /healthcheck/ready.
func NewServer(log *slog.Logger, opts Options) *Server {
	mux := http.NewServeMux()

	registerDiscoveryRoutes(mux, "v2", opts)
	for _, v := range opts.VersionedAPIVersions {
		registerDiscoveryRoutes(mux, versionPathSegment(v), opts)
	}

	mux.HandleFunc("GET /healthcheck", healthcheckHandler)
	mux.HandleFunc("GET /healthcheck/ready", readinessHandler(opts.Warmed))

	return &Server{mux: mux, log: log}
}

func registerDiscoveryRoutes(mux *http.ServeMux, apiVersion string, opts Options) {
	h := &discoveryHandler{
		apiVersion:            apiVersion,
		orchestrator:          opts.Orchestrator,
		authenticator:         opts.Authenticator,
		isKnownType:           opts.Templates.IsKnownType,
		noChangesResponseCode: opts.NoChangesResponseCode,
	}
	mux.Handle(fmt.Sprintf("POST /%s/discovery:{xds_type}", apiVersion), h)
}

// Handler wraps the registered routes with the logging and panic-recovery
// middleware, in the teacher's style of a single entrypoint the cmd package
// hands to http.Server.
func (s *Server) Handler() http.Handler {
	return recoverPanic(s.log, withRequestContext(s.log, s.mux))
}

// Serve runs the HTTP server on addr until ctx is cancelled, then shuts
// down gracefully — mirroring the teacher's xds.Server.Serve's ctx.Done
// shutdown hook.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}

	s.log.Info("discovery server listening", "addr", addr)

	go func() {
		<-ctx.Done()
		s.log.Info("shutting down discovery server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.Serve(lis); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
