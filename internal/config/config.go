// Package config loads the orchestrator's process configuration through
// viper: state and audit directories, repository coordinates, GitHub App
// credentials, polling bounds, and the path of the topic-routing policy.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ProjectConfig identifies the repository under orchestration.
type ProjectConfig struct {
	Name       string `mapstructure:"name"`
	Repository string `mapstructure:"repository"` // "owner/repo"
	RepoPath   string `mapstructure:"repo_path"`  // local checkout
	MainBranch string `mapstructure:"main_branch"`
}

// GitHubConfig contains GitHub App authentication settings.
type GitHubConfig struct {
	AppID            string `mapstructure:"app_id"`
	InstallationID   int64  `mapstructure:"installation_id"`
	Token            string `mapstructure:"token"`              // PAT alternative to App auth
	PrivateKeyPath   string `mapstructure:"private_key_path"`   // PEM on disk
	PrivateKeySecret string `mapstructure:"private_key_secret"` // Secret Manager resource
}

// CloudConfig contains the optional Cloud Logging settings.
type CloudConfig struct {
	Project        string `mapstructure:"project"`
	LoggingEnabled bool   `mapstructure:"logging_enabled"`
}

// StateConfig locates the durable orchestrator state.
type StateConfig struct {
	Dir      string `mapstructure:"dir"`
	AuditDir string `mapstructure:"audit_dir"`
}

// PollingConfig bounds the signal poller.
type PollingConfig struct {
	TimeoutSeconds  int `mapstructure:"timeout_seconds"`
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// HubConfig locates the topic-routing policy and the runner to dispatch with.
type HubConfig struct {
	RoutingFile string `mapstructure:"routing_file"`
	Runner      string `mapstructure:"runner"`
}

// Config is the full orchestrator configuration.
type Config struct {
	Project ProjectConfig `mapstructure:"project"`
	GitHub  GitHubConfig  `mapstructure:"github"`
	Cloud   CloudConfig   `mapstructure:"cloud"`
	State   StateConfig   `mapstructure:"state"`
	Polling PollingConfig `mapstructure:"polling"`
	Hub     HubConfig     `mapstructure:"hub"`
}

// Load unmarshals the configuration viper has already read and applies
// defaults.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// applyDefaults sets default values for unset fields.
func applyDefaults(cfg *Config) {
	if cfg.Project.MainBranch == "" {
		cfg.Project.MainBranch = "main"
	}
	if cfg.Project.RepoPath == "" {
		cfg.Project.RepoPath = "."
	}
	if cfg.State.Dir == "" {
		cfg.State.Dir = ".farmer-code/state"
	}
	if cfg.State.AuditDir == "" {
		cfg.State.AuditDir = ".farmer-code/audit"
	}
	if cfg.Polling.TimeoutSeconds == 0 {
		cfg.Polling.TimeoutSeconds = 3600
	}
	if cfg.Polling.IntervalSeconds == 0 {
		cfg.Polling.IntervalSeconds = 30
	}
	if cfg.Hub.RoutingFile == "" {
		cfg.Hub.RoutingFile = "routing.yaml"
	}
	if cfg.Hub.Runner == "" {
		cfg.Hub.Runner = "claude-cli"
	}
}

// PollTimeout returns the poll timeout as a duration.
func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Polling.TimeoutSeconds) * time.Second
}

// PollInterval returns the poll interval as a duration.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

// RepoOwnerName splits "owner/repo" into its parts.
func (c *Config) RepoOwnerName() (string, string, error) {
	parts := strings.SplitN(c.Project.Repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("repository must be owner/repo, got %q", c.Project.Repository)
	}
	return parts[0], parts[1], nil
}

// Validate checks the configuration for required fields.
func (c *Config) Validate() error {
	if c.Project.Repository == "" {
		return fmt.Errorf("project.repository is required")
	}
	if _, _, err := c.RepoOwnerName(); err != nil {
		return err
	}
	if c.GitHub.Token == "" && c.GitHub.AppID == "" {
		return fmt.Errorf("either github.token or github.app_id is required")
	}
	if c.GitHub.AppID != "" {
		if c.GitHub.InstallationID <= 0 {
			return fmt.Errorf("github.installation_id is required with app auth")
		}
		if c.GitHub.PrivateKeyPath == "" && c.GitHub.PrivateKeySecret == "" {
			return fmt.Errorf("github.private_key_path or github.private_key_secret is required with app auth")
		}
	}
	if c.Cloud.LoggingEnabled && c.Cloud.Project == "" {
		return fmt.Errorf("cloud.project is required when cloud logging is enabled")
	}
	return nil
}
