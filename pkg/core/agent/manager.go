package agent

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	"univ_financials/pkg/core/llm"

	"gopkg.in/yaml.v2"
)

// Agent roles that can be routed to different providers.
const (
	RoleFieldExtractor   = "field_extractor"
	RoleSegmentExtractor = "segment_extractor"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Models         map[string]string      `yaml:"models"` // provider name -> model
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Model       string `yaml:"model"`    // Optional override
	Description string `yaml:"description"`
}

// DefaultConfig routes every role to Gemini with its default model.
func DefaultConfig() Config {
	return Config{ActiveProvider: "gemini"}
}

// LoadConfig reads a models.yaml file. A missing file yields DefaultConfig.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return Config{}, fmt.Errorf("failed to read model config %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse model config %s: %w", path, err)
	}
	return cfg, nil
}

// Factory builds a provider for the given model ("" means provider default).
type Factory func(model string) (llm.Provider, error)

// Manager hands out providers per agent role. Providers are built on first
// use so an unused provider never needs its API key.
type Manager struct {
	config    Config
	factories map[string]Factory

	mu        sync.Mutex
	providers map[string]llm.Provider
}

func NewManager(config Config) *Manager {
	return &Manager{
		config: config,
		factories: map[string]Factory{
			"gemini": func(model string) (llm.Provider, error) { return llm.NewGeminiProvider(model) },
			"openai": func(model string) (llm.Provider, error) { return llm.NewOpenAIProvider(model) },
		},
		providers: make(map[string]llm.Provider),
	}
}

// RegisterFactory adds or replaces a provider factory.
func (m *Manager) RegisterFactory(name string, factory Factory) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.factories[name] = factory
}

// GetProvider resolves the provider for an agent role:
// agent override, then the active provider.
func (m *Manager) GetProvider(agentType string) (llm.Provider, error) {
	name := m.config.ActiveProvider
	model := ""
	if agentConfig, ok := m.config.Agents[agentType]; ok {
		if agentConfig.Provider != "" {
			name = agentConfig.Provider
		}
		model = agentConfig.Model
	}
	if model == "" {
		model = m.config.Models[name]
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := name + "|" + model
	if p, ok := m.providers[key]; ok {
		return p, nil
	}

	factory, ok := m.factories[name]
	if !ok {
		return nil, fmt.Errorf("provider %s not found", name)
	}
	p, err := factory(model)
	if err != nil {
		return nil, err
	}
	slog.Debug("agent.provider.created", "agent", agentType, "provider", p.Name())
	m.providers[key] = p
	return p, nil
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.factories[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	return nil
}

// SetModel overrides the model used for a provider.
func (m *Manager) SetModel(provider, model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.Models == nil {
		m.config.Models = make(map[string]string)
	}
	m.config.Models[provider] = model
}

func (m *Manager) GetActiveProvider() string {
	return m.config.ActiveProvider
}
