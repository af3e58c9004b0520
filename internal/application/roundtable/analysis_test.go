package roundtable

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
)

var trials = analysis.Dataset{
	"trials.csv": {
		Columns: []string{"trial", "duration_days"},
		Rows: []analysis.Record{
			{"trial": "A", "duration_days": 10.0},
			{"trial": "B", "duration_days": 20.0},
			{"trial": "C", "duration_days": 30.0},
		},
	},
}

const generated = "Here you go:\n```python\ndef generateAnalysis(data):\n    df = data['trials.csv']\n    return {'average_duration_days': float(df['duration_days'].mean())}\n```"

func TestRunAnalysisAverageDuration(t *testing.T) {
	llm := newFakeLLM().
		reply(appai.OpAnalysisCode, generated).
		reply(appai.OpAnalysisExplain, "## Summary\nThe average is 20 days.")
	h := newHarness(t, llm, Options{})
	h.exec.result = map[string]any{"average_duration_days": 20.0}

	res, err := h.orch.RunAnalysis(context.Background(), "What is the average trial duration?", trials)
	require.NoError(t, err)

	assert.Equal(t, analysis.OutcomeTable, res.Outcome)
	require.NotNil(t, res.Table)
	assert.Equal(t, []analysis.Record{{"average_duration_days": 20.0}}, res.Table.Rows)
	assert.Equal(t, "## Summary\nThe average is 20 days.", res.Explanation)
	assert.True(t, strings.HasPrefix(res.GeneratedCode, "def generateAnalysis"))

	// imports prepended, driver appended
	assert.True(t, strings.HasPrefix(h.exec.program, "import json\nimport pandas as pd\nimport numpy as np\n"))
	assert.Contains(t, h.exec.program, "result = generateAnalysis(")
	assert.Equal(t, trials.Payload(), h.exec.data)
}

func TestRunAnalysisEmptyDatasetIsNoTable(t *testing.T) {
	llm := newFakeLLM()
	h := newHarness(t, llm, Options{})

	for _, ds := range []analysis.Dataset{
		{"empty.csv": {}},
		{"header.csv": {Columns: []string{"a", "b"}}},
	} {
		res, err := h.orch.RunAnalysis(context.Background(), "q", ds)
		require.NoError(t, err)
		assert.Equal(t, analysis.OutcomeNoTable, res.Outcome)
		assert.Nil(t, res.Table)
	}
	assert.Zero(t, llm.total())
}

func TestRunAnalysisResultWithoutRows(t *testing.T) {
	llm := newFakeLLM().
		reply(appai.OpAnalysisCode, generated).
		reply(appai.OpAnalysisExplain, "nothing found")
	h := newHarness(t, llm, Options{})
	h.exec.result = map[string]any{}

	res, err := h.orch.RunAnalysis(context.Background(), "q", trials)
	require.NoError(t, err)
	assert.Equal(t, analysis.OutcomeNoTable, res.Outcome)
	assert.Equal(t, "nothing found", res.Explanation)
}

func TestRunAnalysisExecutionError(t *testing.T) {
	llm := newFakeLLM().reply(appai.OpAnalysisCode, generated)
	h := newHarness(t, llm, Options{})
	h.exec.err = &analysis.ExecError{ID: "1", Message: "KeyError: 'duration'"}

	_, err := h.orch.RunAnalysis(context.Background(), "q", trials)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Equal(t, "Sorry, there was an error analyzing the data: KeyError: 'duration'", err.Error())

	var execErr *analysis.ExecError
	assert.ErrorAs(t, err, &execErr)
}

func TestRunAnalysisGenerationError(t *testing.T) {
	llm := newFakeLLM().reply(appai.OpAnalysisCode, "I cannot help with that")
	h := newHarness(t, llm, Options{})

	_, err := h.orch.RunAnalysis(context.Background(), "q", trials)
	assert.ErrorIs(t, err, ErrAnalysisFailed)
	assert.Contains(t, err.Error(), "does not define generateAnalysis")
}

func TestRunAnalysisExplainFallback(t *testing.T) {
	llm := newFakeLLM().
		reply(appai.OpAnalysisCode, generated).
		fail(appai.OpAnalysisExplain, errors.New("timeout"))
	h := newHarness(t, llm, Options{})
	h.exec.result = map[string]any{"average_duration_days": 20.0}

	res, err := h.orch.RunAnalysis(context.Background(), "What is the average trial duration?", trials)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Explanation, "## Analysis Results for: What is the average trial duration?"))
	assert.Contains(t, res.Explanation, `"average_duration_days": 20`)
}

func TestEnsureImportsKeepsExisting(t *testing.T) {
	code := "import pandas as pd\ndef generateAnalysis(data):\n    return {}"
	out := ensureImports(code)

	assert.Equal(t, 1, strings.Count(out, "import pandas as pd"))
	assert.True(t, strings.HasPrefix(out, "import json\nimport numpy as np\n"))

	full := "import json\nimport pandas as pd\nimport numpy as np\n" + code
	assert.Equal(t, full, ensureImports(full))
}

func TestExtractCodeUnfenced(t *testing.T) {
	code, err := extractCode("def generateAnalysis(data):\n    return {'a': 1}\n")
	require.NoError(t, err)
	assert.Equal(t, "def generateAnalysis(data):\n    return {'a': 1}", code)
}
