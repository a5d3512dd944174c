package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v3"

	"github.com/povarna/corporate-assistant/internal/models"
)

// AgentProfile describes one domain agent: its persona, chat copy and
// per-domain tuning knobs. Loaded from configs/agents.yaml.
type AgentProfile struct {
	Domain  string `yaml:"domain"`
	Persona string `yaml:"persona"`
	Welcome string `yaml:"welcome"`
	Help    string `yaml:"help"`

	// TopK overrides the global top-k when positive.
	TopK int `yaml:"top_k"`
	// DeadlineMS overrides the global completion deadline when positive.
	DeadlineMS int `yaml:"deadline_ms"`
}

// AgentsConfig is the parsed agent profile file.
type AgentsConfig struct {
	Agents []AgentProfile `yaml:"agents"`
}

// LoadAgents reads and validates the agent profile file. Every known domain
// must have exactly one profile.
func LoadAgents(path string) (*AgentsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agents config: %w", err)
	}

	var cfg AgentsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse agents config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks profile completeness and domain coverage.
func (c *AgentsConfig) Validate() error {
	seen := make(map[models.Domain]bool)
	for _, p := range c.Agents {
		domain, ok := models.ParseDomain(p.Domain)
		if !ok {
			return fmt.Errorf("unknown agent domain %q", p.Domain)
		}
		if seen[domain] {
			return fmt.Errorf("duplicate agent profile for domain %q", p.Domain)
		}
		seen[domain] = true

		if p.Persona == "" {
			return fmt.Errorf("agent %q has no persona", p.Domain)
		}
		if p.Welcome == "" {
			return fmt.Errorf("agent %q has no welcome message", p.Domain)
		}
	}

	for _, d := range models.Domains {
		if !seen[d] {
			return fmt.Errorf("missing agent profile for domain %q", d)
		}
	}
	return nil
}

// Profile returns the profile for a domain. Validate guarantees presence.
func (c *AgentsConfig) Profile(domain models.Domain) (AgentProfile, bool) {
	for _, p := range c.Agents {
		if models.Domain(p.Domain) == domain {
			return p, true
		}
	}
	return AgentProfile{}, false
}
