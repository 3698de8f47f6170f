package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinseco/pkg/core/llm"
)

type namedProvider struct {
	name   string
	prefix string
}

func (p namedProvider) GenerateResponse(_ context.Context, prompt, system string, _ map[string]interface{}) (string, error) {
	return p.name + "|" + system + "|" + prompt, nil
}

func (p namedProvider) AdaptInstructions(raw string) string {
	return p.prefix + raw
}

func testManager(cfg Config) *Manager {
	return NewManagerWithProviders(cfg, map[string]llm.Provider{
		"openai": namedProvider{name: "openai"},
		"gemini": namedProvider{name: "gemini", prefix: "G:"},
	})
}

func TestManager_GetProvider(t *testing.T) {
	m := testManager(Config{
		ActiveProvider: "gemini",
		Agents: map[string]AgentConfig{
			Submitter: {Provider: "openai"},
			Cleaner:   {Provider: "unknown"},
		},
	})

	assert.Equal(t, namedProvider{name: "openai"}, m.GetProvider(Submitter))
	assert.Equal(t, "gemini", m.GetProvider(Cleaner).(namedProvider).name)
	assert.Equal(t, "gemini", m.GetProvider("other").(namedProvider).name)
}

func TestManager_FallsBackToOpenAI(t *testing.T) {
	m := testManager(Config{ActiveProvider: "missing"})
	assert.Equal(t, "openai", m.GetProvider(Cleaner).(namedProvider).name)
}

func TestManager_ExecutePromptAdaptsInstructions(t *testing.T) {
	m := testManager(Config{ActiveProvider: "gemini"})

	out, err := m.ExecutePrompt(context.Background(), Cleaner, "chunk", "extract", nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini|G:extract|chunk", out)
}

func TestManager_SetGlobalProvider(t *testing.T) {
	m := testManager(Config{ActiveProvider: "openai"})

	require.NoError(t, m.SetGlobalProvider("gemini"))
	assert.Equal(t, "gemini", m.GetActiveProvider())
	assert.Error(t, m.SetGlobalProvider("kimi"))
	assert.Equal(t, "gemini", m.GetActiveProvider())
	assert.Equal(t, []string{"gemini", "openai"}, m.Available())
}

func TestNewManager_RegistersBuiltins(t *testing.T) {
	m := NewManager(Config{ActiveProvider: "deepseek"})

	assert.Equal(t, []string{"deepseek", "gemini", "gemini-legacy", "openai", "qwen"}, m.Available())
	assert.NotNil(t, m.GetProviderByName("gemini-legacy"))
	assert.Nil(t, m.GetProviderByName("doubao"))
}
