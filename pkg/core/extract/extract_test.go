package extract

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"intrinseco/pkg/core/agent"
	"intrinseco/pkg/core/chunker"
	"intrinseco/pkg/core/clean"
	"intrinseco/pkg/core/llm"
	"intrinseco/pkg/core/utils"
)

type call struct {
	agentType string
	prompt    string
	options   map[string]interface{}
}

// fakeExecutor answers cleaner prompts with canned line items and submitter
// prompts with the reply registered for the statement's first field.
type fakeExecutor struct {
	mu      sync.Mutex
	calls   []call
	replies map[string]string
	err     error
}

func (f *fakeExecutor) ExecutePrompt(_ context.Context, agentType, p, _ string, options map[string]interface{}) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call{agentType: agentType, prompt: p, options: options})
	f.mu.Unlock()

	if f.err != nil {
		return "", f.err
	}
	if agentType == agent.Cleaner {
		return "cleaned items", nil
	}
	for marker, reply := range f.replies {
		if strings.Contains(p, marker) {
			return reply, nil
		}
	}
	return "", nil
}

func (f *fakeExecutor) byAgent(agentType string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.agentType == agentType {
			out = append(out, c)
		}
	}
	return out
}

func cleanedChunks() map[chunker.Category]clean.CleanedChunk {
	return map[chunker.Category]clean.CleanedChunk{
		chunker.Balance:  {Text: "Total current assets 100", Units: clean.UnitsMillions},
		chunker.Income:   {Text: "Revenue 400", Units: clean.UnitsUnknown},
		chunker.CashFlow: {Text: "Operating activities 50", Units: clean.UnitsMillions},
	}
}

func TestRunGatesOnMinHits(t *testing.T) {
	exec := &fakeExecutor{replies: map[string]string{
		"cash_and_equivalents": `{"cash_and_equivalents": 30, "current_assets": 100, "equity": null, "bogus": 1}`,
	}}
	e := New(exec, nil)

	hits := map[chunker.Category]int{chunker.Balance: 5, chunker.Income: 2, chunker.CashFlow: 1}
	res, err := e.Run(context.Background(), cleanedChunks(), hits, 3, "2024-FY")
	require.NoError(t, err)

	assert.Len(t, exec.byAgent(agent.Cleaner), 1)
	assert.Len(t, exec.byAgent(agent.Submitter), 1)

	require.NotNil(t, res.Balance["cash_and_equivalents"])
	assert.Equal(t, 30.0, *res.Balance["cash_and_equivalents"])
	assert.Nil(t, res.Balance["equity"])
	assert.NotContains(t, res.Balance, "bogus")
	assert.Equal(t, 1e6, *res.Balance[UnitsField])

	assert.Equal(t, Template(chunker.Income), res.Income)
	assert.Equal(t, Template(chunker.CashFlow), res.CashFlow)
}

func TestRunSubmitterPrompt(t *testing.T) {
	exec := &fakeExecutor{}
	e := New(exec, nil)

	hits := map[chunker.Category]int{chunker.Balance: 3, chunker.Income: 3, chunker.CashFlow: 3}
	res, err := e.Run(context.Background(), cleanedChunks(), hits, 3, "2024-FY")
	require.NoError(t, err)

	submitters := exec.byAgent(agent.Submitter)
	require.Len(t, submitters, 3)
	for _, c := range submitters {
		assert.Equal(t, true, c.options[llm.OptionJSON])
		assert.Contains(t, c.prompt, "Period: 2024-FY")
		assert.Contains(t, c.prompt, "cleaned items")
		if strings.Contains(c.prompt, "revenue") {
			assert.Contains(t, c.prompt, "Keys: units, revenue")
		} else {
			assert.NotContains(t, c.prompt, "units")
		}
	}

	// Empty replies keep the template but known units are still forced.
	assert.Equal(t, 1e6, *res.CashFlow[UnitsField])
	assert.Nil(t, res.Income[UnitsField])
}

func TestRunDumpsSubmitterPrompt(t *testing.T) {
	dir := t.TempDir()
	e := New(&fakeExecutor{}, nil, WithDumpWriter(utils.NewDumpWriter(dir)))

	ctx := utils.WithDumpPrefix(context.Background(), "SAN_2024-FY")
	hits := map[chunker.Category]int{chunker.Balance: 3}
	_, err := e.Run(ctx, cleanedChunks(), hits, 3, "2024-FY")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "SAN_2024-FY_balance_submitter.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Period: 2024-FY")
}

func TestRunFailure(t *testing.T) {
	exec := &fakeExecutor{err: errors.New("rate limited")}
	e := New(exec, nil)

	hits := map[chunker.Category]int{chunker.Balance: 3, chunker.Income: 3, chunker.CashFlow: 3}
	_, err := e.Run(context.Background(), cleanedChunks(), hits, 3, "2024-FY")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtraction)
	assert.Contains(t, err.Error(), "rate limited")

	_, err = e.Run(context.Background(), nil, hits, 3, "2024-FY")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestRunUnparseableReply(t *testing.T) {
	exec := &fakeExecutor{replies: map[string]string{"revenue": "I could not find the statement."}}
	e := New(exec, nil)

	hits := map[chunker.Category]int{chunker.Income: 3}
	_, err := e.Run(context.Background(), cleanedChunks(), hits, 3, "2024-FY")
	assert.ErrorIs(t, err, ErrExtraction)
}

func TestParseStatement(t *testing.T) {
	raw := "```json\n{\"units\": 1000, \"revenue\": \"1,200\", \"net_income\": \"(300)\", \"eps\": 1.5,}\n```"

	s, err := parseStatement(chunker.Income, raw)
	require.NoError(t, err)

	assert.Equal(t, 1000.0, *s[UnitsField])
	assert.Equal(t, 1200.0, *s["revenue"])
	assert.Equal(t, -300.0, *s["net_income"])
	assert.Equal(t, 1.5, *s["eps"])
}

func TestResultFinances(t *testing.T) {
	res := NewResult()
	res.Balance["current_assets"] = ptr(100)
	res.Balance[UnitsField] = ptr(1000)
	res.Income["revenue"] = ptr(400)
	res.Income["eps"] = ptr(2)
	res.Income[UnitsField] = ptr(1e6)
	res.CashFlow["cash_flow_from_operations"] = ptr(50)

	f := res.Finances()

	assert.Equal(t, 100000.0, *f.CurrentAssets)
	assert.Equal(t, 4e8, *f.Revenue)
	assert.Equal(t, 2.0, *f.EPS)
	assert.Equal(t, 50.0, *f.CashFlowFromOperations)
	assert.Nil(t, f.Equity)
}

func ptr(v float64) *float64 { return &v }
