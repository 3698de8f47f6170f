package prompt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryHasBuiltins(t *testing.T) {
	r := NewRegistry()

	assert.Equal(t, []string{ExtractCleaner, ExtractSubmitter}, r.ListPrompts())

	system, err := r.GetSystemPrompt(ExtractSubmitter)
	require.NoError(t, err)
	assert.Contains(t, system, "JSON")

	_, err = r.GetPrompt("missing")
	assert.Error(t, err)
}

func TestRender(t *testing.T) {
	r := NewRegistry()

	ctx := NewContext().
		Set("Statement", "balance sheet").
		Set("Fields", "current_assets, equity").
		Set("Units", int64(1000)).
		Set("Text", "Total current assets 1,200")

	system, user, err := r.Render(ExtractCleaner, ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, system)
	assert.Contains(t, user, "Statement: balance sheet")
	assert.Contains(t, user, "Reported units: 1000")
	assert.Contains(t, user, "Total current assets 1,200")

	ctx.Set("Units", int64(0))
	_, user, err = r.Render(ExtractCleaner, ctx)
	require.NoError(t, err)
	assert.NotContains(t, user, "Reported units")
}

func TestRenderMissingVariable(t *testing.T) {
	r := NewRegistry()

	_, _, err := r.Render(ExtractSubmitter, NewContext().Set("Period", "2024-FY"))
	assert.Error(t, err)
}

func TestLoadFromDirectoryOverrides(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "extract"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "extract", "submitter.json"), []byte(`{
		"system_prompt": "custom system",
		"user_prompt_template": "{{.Period}}|{{.Fields}}|{{.Text}}"
	}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))

	r := NewRegistry()
	require.NoError(t, r.LoadFromDirectory(dir))

	pt, err := r.GetPrompt(ExtractSubmitter)
	require.NoError(t, err)
	assert.Equal(t, "extract", pt.Category)
	assert.Equal(t, "custom system", pt.SystemPrompt)
	assert.Equal(t, 2, r.Count())

	_, user, err := r.Render(ExtractSubmitter, NewContext().Set("Period", "2024-FY").Set("Fields", "eps").Set("Text", "EPS 1.2"))
	require.NoError(t, err)
	assert.Equal(t, "2024-FY|eps|EPS 1.2", user)
}

func TestLoadFromDirectoryErrors(t *testing.T) {
	r := NewRegistry()
	assert.Error(t, r.LoadFromDirectory(filepath.Join(t.TempDir(), "absent")))

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte(`{"user_prompt_template": "{{.Text"}`), 0o644))
	assert.Error(t, r.LoadFromDirectory(dir))

	bad := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(bad, "bad.json"), []byte(`{not json`), 0o644))
	assert.Error(t, r.LoadFromDirectory(bad))
}
