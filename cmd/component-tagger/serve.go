package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/xeipuuv/gojsonschema"
	"go.opentelemetry.io/otel/trace"

	"github.com/twhy/react-component-tagger/pkg/observability"
	"github.com/twhy/react-component-tagger/pkg/plugin"
)

const defaultShutdownGrace = 5 * time.Second

// transformRequestSchema validates POST /api/transform bodies.
const transformRequestSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "code"],
  "additionalProperties": false,
  "properties": {
    "id":   {"type": "string", "minLength": 1},
    "code": {"type": "string"}
  }
}`

// TransformRequest is the body of POST /api/transform.
type TransformRequest struct {
	ID   string `json:"id"`
	Code string `json:"code"`
}

type errorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

type serverDeps struct {
	plugin         *plugin.Plugin
	logger         *slog.Logger
	tracer         trace.Tracer
	red            *observability.REDMetrics
	metricsHandler http.Handler
	maxBodyBytes   int64
}

func serveCmd(a *app) *cobra.Command {
	var (
		port int
		host string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the transform over HTTP",
		Long: `Start an HTTP server for build tools that cannot embed the plugin.

Endpoints:
  POST /api/transform  {"id": "/abs/path/App.tsx", "code": "..."} -> 200 {"code","map"} or 204
  GET  /healthz        liveness
  GET  /readyz         readiness
  GET  /metrics        Prometheus metrics`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("port") {
				a.cfg.Server.Port = port
			}

			if cmd.Flags().Changed("host") {
				a.cfg.Server.Host = host
			}

			return a.runServe(cmd.Context(), cmd.ErrOrStderr())
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 0, "port to listen on (default from config, 5174)")
	cmd.Flags().StringVar(&host, "host", "", "host to bind (default from config, 127.0.0.1)")

	return cmd
}

func (a *app) runServe(ctx context.Context, logOut io.Writer) error {
	obsCfg := a.observabilityConfig(observability.ModeServe)
	obsCfg.Prometheus = true

	providers, err := observability.InitWithWriter(obsCfg, logOut)
	if err != nil {
		return fmt.Errorf("init observability: %w", err)
	}

	defer func() {
		shutdownErr := providers.Shutdown(context.Background())
		if shutdownErr != nil {
			providers.Logger.Warn("observability shutdown failed", "error", shutdownErr)
		}
	}()

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return err
	}

	taggerMetrics, err := observability.NewTaggerMetrics(providers.Meter)
	if err != nil {
		return err
	}

	p, err := a.plugin(func(o *plugin.Options) {
		o.Logger = providers.Logger
		o.Tracer = providers.Tracer
		o.Metrics = taggerMetrics
	})
	if err != nil {
		return err
	}

	maxBody, err := a.cfg.Server.MaxBodyBytes()
	if err != nil {
		return err
	}

	handler, err := newServerHandler(serverDeps{
		plugin:         p,
		logger:         providers.Logger,
		tracer:         providers.Tracer,
		red:            red,
		metricsHandler: providers.MetricsHandler,
		maxBodyBytes:   maxBody,
	})
	if err != nil {
		return err
	}

	if !isLoopback(a.cfg.Server.Host) {
		providers.Logger.Warn("listening on a non-loopback address", "host", a.cfg.Server.Host)
	}

	srv := &http.Server{
		Addr:         a.cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		IdleTimeout:  a.cfg.Server.IdleTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	return serveUntilDone(ctx, srv, providers.Logger, a.cfg.Telemetry.ShutdownTimeout)
}

func serveUntilDone(ctx context.Context, srv *http.Server, logger *slog.Logger, grace time.Duration) error {
	errCh := make(chan error, 1)

	go func() {
		logger.Info("server starting", "addr", "http://"+srv.Addr)

		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}

		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("server stopping")

	if grace <= 0 {
		grace = defaultShutdownGrace
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()

	err := srv.Shutdown(shutdownCtx)
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}

// newServerHandler builds the router. The schema is compiled once.
func newServerHandler(deps serverDeps) (http.Handler, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(transformRequestSchema))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}

	logger := deps.logger
	if logger == nil {
		logger = observability.Discard()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)

	if deps.tracer != nil {
		r.Use(observability.HTTPMiddleware(deps.tracer, deps.red))
	}

	r.Method(http.MethodGet, "/healthz", observability.HealthHandler())
	r.Method(http.MethodGet, "/readyz", observability.ReadyHandler(func(ctx context.Context) error {
		return ctx.Err()
	}))

	if deps.metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", deps.metricsHandler)
	}

	h := &transformHandler{plugin: deps.plugin, schema: schema, logger: logger, maxBody: deps.maxBodyBytes}
	r.Post("/api/transform", h.ServeHTTP)

	return r, nil
}

type transformHandler struct {
	plugin  *plugin.Plugin
	schema  *gojsonschema.Schema
	logger  *slog.Logger
	maxBody int64
}

func (h *transformHandler) ServeHTTP(rw http.ResponseWriter, hr *http.Request) {
	body := hr.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(rw, hr.Body, h.maxBody)
	}

	raw, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(rw, http.StatusRequestEntityTooLarge, errorResponse{Error: "request body too large"})

			return
		}

		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "read body: " + err.Error()})

		return
	}

	result, err := h.schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "invalid JSON: " + err.Error()})

		return
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, re := range result.Errors() {
			details = append(details, re.String())
		}

		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "request does not match schema", Details: details})

		return
	}

	var req TransformRequest

	err = json.Unmarshal(raw, &req)
	if err != nil {
		writeJSON(rw, http.StatusBadRequest, errorResponse{Error: "decode request: " + err.Error()})

		return
	}

	out := h.plugin.Transform(hr.Context(), req.Code, req.ID)
	if out == nil {
		rw.WriteHeader(http.StatusNoContent)

		return
	}

	h.logger.DebugContext(hr.Context(), "transformed", "id", req.ID, "bytes", len(out.Code))

	writeJSON(rw, http.StatusOK, out)
}

func writeJSON(rw http.ResponseWriter, code int, v any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	//nolint:errcheck // nothing useful to do when the client has gone away
	json.NewEncoder(rw).Encode(v)
}

func isLoopback(host string) bool {
	return host == "localhost" || strings.HasPrefix(host, "127.") || host == "::1"
}
