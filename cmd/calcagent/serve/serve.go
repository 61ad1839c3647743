package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"calcagent/internal/a2aserver"
	"calcagent/internal/agent"
	"calcagent/internal/config"
	"calcagent/internal/db"
	"calcagent/internal/gateway"
	"calcagent/internal/llm"
	"calcagent/internal/taskstore"
	"calcagent/internal/tools"
	"calcagent/internal/trace"

	"github.com/a2aproject/a2a-go/a2asrv"
	"github.com/spf13/cobra"
)

var (
	configPath string
	addr       string
	runtimeURL string
)

var Cmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the calculator agent over A2A",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, err := LoadConfig()
		if err != nil {
			return err
		}

		logRuntimeURL(cfg)

		shutdownTracing, err := trace.Init(ctx, cfg.Trace)
		if err != nil {
			return fmt.Errorf("initialising tracing: %w", err)
		}
		defer shutdownTracing(context.Background())

		store, closeStore, err := OpenStore(ctx, cfg.Tasks)
		if err != nil {
			return err
		}
		defer closeStore()

		provider := llm.NewOpenAI(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model)
		calcAgent := NewAgent(cfg, provider)
		a2aServer := NewA2AServer(cfg, calcAgent, store)

		srv := gateway.NewServer(a2aServer)
		slog.Info("starting server",
			"addr", cfg.Server.Addr,
			"agent", calcAgent.Name(),
			"mount_path", a2aServer.MountPath(),
			"task_store", cfg.Tasks.Store,
		)
		return srv.ListenAndServe(ctx, cfg.Server.Addr)
	},
}

func init() {
	AddConfigFlags(Cmd)
	Cmd.Flags().StringVarP(&addr, "addr", "a", "", "override listen address")
}

// AddConfigFlags registers the flags LoadConfig honours on cmd.
func AddConfigFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config.toml")
	cmd.Flags().StringVar(&runtimeURL, "runtime-url", "", "override the URL advertised to A2A clients")
}

// LoadConfig loads configuration and applies command-line overrides.
func LoadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}
	if runtimeURL != "" {
		cfg.Server.RuntimeURL = runtimeURL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// NewAgent builds the calculator agent. The observer stays a no-op unless
// agent debugging is enabled.
func NewAgent(cfg *config.Config, provider llm.Provider) *agent.Agent {
	registry := agent.NewRegistry(tools.NewCalculator())

	var observer agent.Observer = agent.NopObserver{}
	if cfg.Agent.Debug {
		observer = agent.LogObserver{}
	}

	return agent.New(provider, registry, agent.Profile{
		Name:          cfg.Agent.Name,
		Description:   cfg.Agent.Description,
		SystemPrompt:  cfg.Agent.SystemPrompt,
		MaxIterations: cfg.Agent.MaxIterations,
	}, agent.WithObserver(observer))
}

// logRuntimeURL reports the URL advertised to A2A clients and whether it
// also decides the mount path.
func logRuntimeURL(cfg *config.Config) {
	slog.Info("runtime url", "url", cfg.Server.RuntimeURL, "serve_at_root", cfg.Server.ServeAtRoot)
}

// NewA2AServer wires the agent into the A2A handler. A nil store keeps
// tasks in memory.
func NewA2AServer(cfg *config.Config, a a2aserver.Agent, store a2asrv.TaskStore) *a2aserver.Server {
	opts := []a2aserver.Option{
		a2aserver.WithHTTPURL(cfg.Server.RuntimeURL),
		a2aserver.WithServeAtRoot(cfg.Server.ServeAtRoot),
		a2aserver.WithVersion(cfg.Agent.Version),
	}
	if store != nil {
		opts = append(opts, a2aserver.WithTaskStore(store))
	}
	return a2aserver.NewServer(a, opts...)
}

// OpenStore returns the configured task store and a func releasing it. The
// memory store is the request handler's own, so it comes back nil.
func OpenStore(ctx context.Context, cfg config.TasksConfig) (a2asrv.TaskStore, func() error, error) {
	switch cfg.Store {
	case "sqlite":
		database, err := db.Open(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("opening database: %w", err)
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, nil, fmt.Errorf("migrating database: %w", err)
		}
		slog.Info("task store ready", "store", "sqlite", "path", database.Path())
		return taskstore.NewSQL(database), database.Close, nil
	default:
		return nil, func() error { return nil }, nil
	}
}
