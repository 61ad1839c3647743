package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"calcagent/internal/metrics"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const shutdownTimeout = 10 * time.Second

// Mountable is a handler tree served under a path prefix.
type Mountable interface {
	Handler() http.Handler
	MountPath() string
}

type Server struct {
	mux *http.ServeMux
}

func NewServer(app Mountable) *Server {
	s := &Server{mux: http.NewServeMux()}
	s.routes()
	s.mount(app.MountPath(), app.Handler())
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /ping", s.handlePing)
	s.mux.Handle("GET /metrics", metrics.Handler())
}

// mount serves h for every path under prefix, with the prefix stripped.
func (s *Server) mount(prefix string, h http.Handler) {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		s.mux.Handle("/", h)
		return
	}
	stripped := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r2 := r.Clone(r.Context())
		r2.URL.Path = strings.TrimPrefix(r.URL.Path, prefix)
		if r2.URL.Path == "" {
			r2.URL.Path = "/"
		}
		r2.URL.RawPath = ""
		h.ServeHTTP(w, r2)
	})
	s.mux.Handle(prefix, stripped)
	s.mux.Handle(prefix+"/", stripped)
}

func (s *Server) Handler() http.Handler {
	return otelhttp.NewHandler(s.mux, "calcagent",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/ping" && r.URL.Path != "/metrics"
		}),
	)
}

// ListenAndServe blocks until ctx is cancelled or the listener fails. On
// cancellation in-flight requests get shutdownTimeout to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", ln.Addr().String())
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("gateway shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
