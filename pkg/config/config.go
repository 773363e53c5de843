package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Agent   AgentConfig   `json:"agent"`
	Memory  MemoryConfig  `json:"memory"`
	Tracing TracingConfig `json:"tracing"`
	mu      sync.RWMutex
}

type AgentConfig struct {
	Workspace string `json:"workspace" env:"FINAGENT_AGENT_WORKSPACE"`
	Version   string `json:"version" env:"FINAGENT_AGENT_VERSION"`
	Model     string `json:"model" env:"FINAGENT_AGENT_MODEL"`
}

type MemoryConfig struct {
	SessionTTLDays     int     `json:"session_ttl_days" env:"FINAGENT_MEMORY_SESSION_TTL_DAYS"`
	ConversationWindow int     `json:"conversation_window" env:"FINAGENT_MEMORY_CONVERSATION_WINDOW"`
	SummaryTurns       int     `json:"summary_turns" env:"FINAGENT_MEMORY_SUMMARY_TURNS"`
	LearnMinConfidence float64 `json:"learn_min_confidence" env:"FINAGENT_MEMORY_LEARN_MIN_CONFIDENCE"`
	SweepCron          string  `json:"sweep_cron" env:"FINAGENT_MEMORY_SWEEP_CRON"`
}

type TracingConfig struct {
	CompletedRetention int  `json:"completed_retention" env:"FINAGENT_TRACING_COMPLETED_RETENTION"`
	Durable            bool `json:"durable" env:"FINAGENT_TRACING_DURABLE"`
}

func DefaultConfig() *Config {
	return &Config{
		Agent: AgentConfig{
			Workspace: "~/.finagent/workspace",
			Version:   "dev",
			Model:     "heuristic-v1",
		},
		Memory: MemoryConfig{
			SessionTTLDays:     1,
			ConversationWindow: 50,
			SummaryTurns:       10,
			LearnMinConfidence: 0.8,
			SweepCron:          "0 * * * *",
		},
		Tracing: TracingConfig{
			CompletedRetention: 512,
			Durable:            false,
		},
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Missing file means env + defaults only.
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, nil
		}
		return nil, err
	}

	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}

func (c *Config) WorkspacePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.Agent.Workspace)
}

// DatabasePath returns the sqlite file location under the workspace.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.WorkspacePath(), "state", "finagent.db")
}

// TracesPath returns the durable trace database location.
func (c *Config) TracesPath() string {
	return filepath.Join(c.WorkspacePath(), "state", "traces.db")
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
