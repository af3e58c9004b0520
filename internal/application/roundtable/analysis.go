package roundtable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/metrics"
)

// NoDataExplanation is the answer for datasets without a single data row.
const NoDataExplanation = "The uploaded tables contain no data rows, so there is no tabular result to show."

const driverCall = "\n\nresult = " + analysis.EntryPoint +
	"({name: pd.DataFrame(rows) for name, rows in data.items()})\n"

// RunAnalysis generates a snippet for question, runs it in the sandbox,
// normalizes the result and explains it. Generation and execution failures
// come back as *AnalysisError; an empty dataset or a result without rows is
// an OutcomeNoTable result, not an error.
func (o *Orchestrator) RunAnalysis(ctx context.Context, question string, data analysis.Dataset) (*analysis.Result, error) {
	if data.Empty() {
		return &analysis.Result{Outcome: analysis.OutcomeNoTable, Explanation: NoDataExplanation}, nil
	}

	out, err := o.llm.Complete(ctx, appai.OpAnalysisCode, o.prompts.AnalysisCode(question, data.Schema()))
	if err != nil {
		return nil, o.analysisErr(ctx, "", fmt.Errorf("code generation failed: %w", err))
	}
	code, err := extractCode(out)
	if err != nil {
		return nil, o.analysisErr(ctx, "", err)
	}
	program := ensureImports(code) + driverCall

	raw, err := o.executor.Execute(ctx, program, data.Payload(), map[string]any{})
	if err != nil {
		return nil, o.analysisErr(ctx, code, err)
	}

	res := &analysis.Result{GeneratedCode: code, RawResult: raw, Outcome: analysis.OutcomeTable}
	table, shape, err := analysis.Normalize(raw)
	if errors.Is(err, analysis.ErrNoTable) {
		res.Outcome = analysis.OutcomeNoTable
	} else {
		res.Table = table
	}
	o.logger.Debug("analysis result normalized",
		zap.String("shape", shape.String()),
		zap.String("outcome", string(res.Outcome)),
	)

	res.Explanation = o.explain(ctx, question, raw)
	return res, nil
}

func (o *Orchestrator) analysisErr(ctx context.Context, code string, err error) error {
	// abandoned turns report the cancellation, not a user-facing failure
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return &AnalysisError{Code: code, Err: err}
}

func (o *Orchestrator) explain(ctx context.Context, question string, raw any) string {
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		return analysis.FallbackExplanation(question, raw)
	}
	out, err := o.llm.Complete(ctx, appai.OpAnalysisExplain, o.prompts.AnalysisExplain(question, string(b)))
	if err != nil || strings.TrimSpace(out) == "" {
		metrics.SoftFailures.WithLabelValues("explain_fallback").Inc()
		o.logger.Warn("analysis explanation failed, using raw result",
			zap.String("operation", string(appai.OpAnalysisExplain)),
			zap.Error(err),
		)
		return analysis.FallbackExplanation(question, raw)
	}
	return strings.TrimSpace(out)
}

// extractCode takes the first python fence, or the whole reply when unfenced.
func extractCode(reply string) (string, error) {
	code := strings.TrimSpace(reply)
	if m := pythonFence.FindStringSubmatch(reply); m != nil {
		code = strings.TrimSpace(m[1])
	}
	if !strings.Contains(code, "def "+analysis.EntryPoint) {
		return "", fmt.Errorf("generated code does not define %s", analysis.EntryPoint)
	}
	return code, nil
}

// ensureImports prepends the required imports the snippet omits.
func ensureImports(code string) string {
	present := map[string]bool{}
	for _, line := range strings.Split(code, "\n") {
		present[strings.TrimSpace(line)] = true
	}
	var missing []string
	for _, imp := range analysis.RequiredImports {
		if !present[imp] {
			missing = append(missing, imp)
		}
	}
	if len(missing) == 0 {
		return code
	}
	return strings.Join(missing, "\n") + "\n" + code
}
