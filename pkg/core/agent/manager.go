package agent

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"intrinseco/pkg/core/llm"
	"intrinseco/pkg/core/logging"
)

// Agent types used by the extraction step.
const (
	Cleaner   = "cleaner"
	Submitter = "submitter"
)

type Config struct {
	ActiveProvider string                 `yaml:"active_provider"`
	Agents         map[string]AgentConfig `yaml:"agents"`
}

type AgentConfig struct {
	Provider    string `yaml:"provider"` // Optional override
	Description string `yaml:"description"`
}

type Manager struct {
	mu        sync.RWMutex
	config    Config
	providers map[string]llm.Provider
}

// NewManager registers the built-in providers.
func NewManager(config Config) *Manager {
	return NewManagerWithProviders(config, map[string]llm.Provider{
		"openai":        llm.NewOpenAI(),
		"deepseek":      llm.NewDeepSeek(),
		"qwen":          llm.NewQwen(),
		"gemini":        &llm.GeminiProvider{},
		"gemini-legacy": &llm.GeminiLegacyProvider{},
	})
}

// NewManagerWithProviders uses the given provider set instead of the
// built-in one.
func NewManagerWithProviders(config Config, providers map[string]llm.Provider) *Manager {
	return &Manager{config: config, providers: providers}
}

// GetProvider resolves the provider for an agent type: the agent's own
// override first, then the active provider, then openai.
func (m *Manager) GetProvider(agentType string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if agentConfig, ok := m.config.Agents[agentType]; ok && agentConfig.Provider != "" {
		if p, ok := m.providers[agentConfig.Provider]; ok {
			return p
		}
		logging.Named("agent").Warn("agent override names unknown provider",
			zap.String("agent", agentType), zap.String("provider", agentConfig.Provider))
	}

	if p, ok := m.providers[m.config.ActiveProvider]; ok {
		return p
	}
	return m.providers["openai"]
}

// GetProviderByName retrieves a provider instance by its specific name.
func (m *Manager) GetProviderByName(name string) llm.Provider {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.providers[name]
}

// ExecutePrompt adapts the system prompt for the agent's provider and runs it.
func (m *Manager) ExecutePrompt(ctx context.Context, agentType string, rawPrompt string, rawSystemPrompt string, options map[string]interface{}) (string, error) {
	provider := m.GetProvider(agentType)
	if provider == nil {
		return "", fmt.Errorf("no provider available for agent %s", agentType)
	}
	return provider.GenerateResponse(ctx, rawPrompt, provider.AdaptInstructions(rawSystemPrompt), options)
}

func (m *Manager) SetGlobalProvider(newProvider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.providers[newProvider]; !ok {
		return fmt.Errorf("provider %s not found", newProvider)
	}
	m.config.ActiveProvider = newProvider
	logging.Named("agent").Info("global provider switched", zap.String("provider", newProvider))
	return nil
}

func (m *Manager) GetActiveProvider() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config.ActiveProvider
}

// Available lists registered provider names in sorted order.
func (m *Manager) Available() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.providers))
	for name := range m.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
