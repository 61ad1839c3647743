// Package a2aserver exposes an agent over the A2A JSON-RPC binding using
// the a2a-go request handler.
package a2aserver

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"calcagent/internal/agent"
	"calcagent/internal/metrics"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"
)

const (
	// DefaultHTTPURL is advertised when no runtime URL is configured.
	DefaultHTTPURL = "http://127.0.0.1:9000/"
	DefaultVersion = "0.0.1"

	ProtocolVersion = "0.3.0"

	// CardPath is where the agent card is served relative to MountPath.
	CardPath = a2asrv.WellKnownAgentCardPath
	// LegacyCardPath is the pre-0.3 card location, still fetched by older clients.
	LegacyCardPath = "/.well-known/agent.json"

	maxBodyBytes = 1 << 20
)

// Agent is the capability served over A2A.
type Agent interface {
	agent.Runner
	Name() string
	Description() string
	Tools() []agent.Tool
}

type Option func(*Server)

// WithHTTPURL sets the URL advertised in the agent card. It does not change
// where the handler is served unless serve-at-root is disabled.
func WithHTTPURL(u string) Option {
	return func(s *Server) { s.httpURL = u }
}

// WithServeAtRoot controls whether the handler is mounted at "/" regardless
// of the advertised URL's path. Defaults to true.
func WithServeAtRoot(v bool) Option {
	return func(s *Server) { s.serveAtRoot = v }
}

func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

// WithTaskStore persists tasks in store. Without it tasks live in memory.
func WithTaskStore(store a2asrv.TaskStore) Option {
	return func(s *Server) { s.store = store }
}

// Server adapts an Agent to the A2A JSON-RPC binding.
type Server struct {
	agent       Agent
	executor    *Executor
	store       a2asrv.TaskStore
	httpURL     string
	serveAtRoot bool
	version     string
}

func NewServer(a Agent, opts ...Option) *Server {
	s := &Server{
		agent:       a,
		executor:    NewExecutor(a),
		httpURL:     DefaultHTTPURL,
		serveAtRoot: true,
		version:     DefaultVersion,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Card returns the agent card advertised by this server.
func (s *Server) Card() *a2a.AgentCard {
	tools := s.agent.Tools()
	skills := make([]a2a.AgentSkill, 0, len(tools))
	for _, t := range tools {
		skills = append(skills, a2a.AgentSkill{
			ID:          t.Name(),
			Name:        t.Name(),
			Description: t.Description(),
			Tags:        []string{},
		})
	}

	return &a2a.AgentCard{
		ProtocolVersion:    ProtocolVersion,
		Name:               s.agent.Name(),
		Description:        s.agent.Description(),
		URL:                s.httpURL,
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		Version:            s.version,
		Capabilities: a2a.AgentCapabilities{
			Streaming: true,
		},
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             skills,
	}
}

// MountPath is the local path prefix the handler should be served under.
func (s *Server) MountPath() string {
	if s.serveAtRoot {
		return "/"
	}
	u, err := url.Parse(s.httpURL)
	if err != nil {
		slog.Warn("a2a: unparsable http url, serving at root", "url", s.httpURL, "error", err)
		return "/"
	}
	p := strings.TrimRight(u.Path, "/")
	if p == "" {
		return "/"
	}
	return p
}

// Handler returns the A2A routes relative to MountPath.
func (s *Server) Handler() http.Handler {
	var opts []a2asrv.RequestHandlerOption
	if s.store != nil {
		opts = append(opts, a2asrv.WithTaskStore(s.store))
	}
	rpc := a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(s.executor, opts...))
	card := a2asrv.NewStaticAgentCardHandler(s.Card())

	mux := http.NewServeMux()
	mux.Handle("GET "+CardPath, card)
	mux.Handle("GET "+LegacyCardPath, card)
	mux.Handle("POST /{$}", countRequests(rpc))
	return mux
}

var knownMethods = map[string]bool{
	"message/send":                        true,
	"message/stream":                      true,
	"tasks/get":                           true,
	"tasks/cancel":                        true,
	"tasks/resubscribe":                   true,
	"tasks/pushNotificationConfig/set":    true,
	"tasks/pushNotificationConfig/get":    true,
	"tasks/pushNotificationConfig/list":   true,
	"tasks/pushNotificationConfig/delete": true,
	"agent/getAuthenticatedExtendedCard":  true,
}

// countRequests records the JSON-RPC method of every request before handing
// it to next.
func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		r.Body.Close()
		if err != nil {
			metrics.RPCRequests.WithLabelValues("unknown").Inc()
			http.Error(w, "reading request body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		var req struct {
			Method string `json:"method"`
		}
		method := "unknown"
		if json.Unmarshal(body, &req) == nil && knownMethods[req.Method] {
			method = req.Method
		}
		slog.Debug("a2a: request", "method", method)
		metrics.RPCRequests.WithLabelValues(method).Inc()
		next.ServeHTTP(w, r)
	})
}
