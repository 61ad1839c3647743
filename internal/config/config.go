package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"calcagent/internal/trace"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DefaultAddr       = "0.0.0.0:9000"
	DefaultRuntimeURL = "http://127.0.0.1:9000/"

	DefaultAgentName        = "Calculator Agent"
	DefaultAgentDescription = "A calculator agent that can perform basic arithmetic operations."
)

type Config struct {
	Server ServerConfig `toml:"server"`
	Agent  AgentConfig  `toml:"agent"`
	LLM    LLMConfig    `toml:"llm"`
	Tasks  TasksConfig  `toml:"tasks"`
	Trace  trace.Config `toml:"trace"`
}

type ServerConfig struct {
	Addr string `toml:"addr" envconfig:"CALCAGENT_ADDR" validate:"required"`
	// RuntimeURL is advertised to A2A clients; it never changes the listen
	// address.
	RuntimeURL  string `toml:"runtime_url" envconfig:"AGENTCORE_RUNTIME_URL" validate:"required,url"`
	ServeAtRoot bool   `toml:"serve_at_root" envconfig:"CALCAGENT_SERVE_AT_ROOT"`
}

type AgentConfig struct {
	Name          string `toml:"name" ignored:"true" validate:"required"`
	Description   string `toml:"description" ignored:"true"`
	Version       string `toml:"version" ignored:"true" validate:"required"`
	SystemPrompt  string `toml:"system_prompt" ignored:"true"`
	MaxIterations int    `toml:"max_iterations" ignored:"true" validate:"gte=1"`
	Debug         bool   `toml:"debug" envconfig:"CALCAGENT_DEBUG"`
}

type LLMConfig struct {
	Model   string `toml:"model" envconfig:"OPENAI_MODEL" validate:"required"`
	BaseURL string `toml:"base_url" envconfig:"OPENAI_BASE_URL" validate:"omitempty,url"`
	APIKey  string `toml:"api_key" envconfig:"OPENAI_API_KEY"`
}

type TasksConfig struct {
	Store  string `toml:"store" envconfig:"CALCAGENT_TASK_STORE" validate:"oneof=memory sqlite"`
	DBPath string `toml:"db_path" envconfig:"CALCAGENT_DB_PATH" validate:"required_if=Store sqlite"`
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:        DefaultAddr,
			RuntimeURL:  DefaultRuntimeURL,
			ServeAtRoot: true,
		},
		Agent: AgentConfig{
			Name:          DefaultAgentName,
			Description:   DefaultAgentDescription,
			Version:       "0.0.1",
			MaxIterations: 10,
		},
		LLM: LLMConfig{
			Model: "gpt-4o-mini",
		},
		Tasks: TasksConfig{
			Store:  "memory",
			DBPath: defaultDBPath(),
		},
	}
}

// Load builds the configuration from defaults, the TOML file at path (or
// CALCAGENT_CONFIG, or the user config dir) when it exists, a .env file in
// the working directory and finally the process environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CALCAGENT_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Save writes c as TOML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := toml.NewEncoder(f).Encode(c); err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	return f.Close()
}

// DefaultPath is where Load looks when neither a path nor CALCAGENT_CONFIG
// is given.
func DefaultPath() string {
	dir, _ := os.UserConfigDir()
	return filepath.Join(dir, "calcagent", "config.toml")
}

func defaultDBPath() string {
	dir, _ := os.UserHomeDir()
	return filepath.Join(dir, ".local", "share", "calcagent", "tasks.db")
}
