package roundtable

import (
	"context"
	"strings"

	"go.uber.org/zap"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/metrics"
)

// NeedsTabularAnalysis decides whether question needs computation over the
// loaded tables. Without tabular documents it answers false without calling
// the LLM. Any failure or unclear answer falls back to the expert panel.
func (o *Orchestrator) NeedsTabularAnalysis(ctx context.Context, question string, hasTabular bool, schema string) bool {
	if !hasTabular {
		return false
	}
	out, err := o.llm.Complete(ctx, appai.OpClassify, o.prompts.Classify(question, schema))
	if err != nil {
		metrics.SoftFailures.WithLabelValues("router_fallback").Inc()
		o.logger.Warn("analysis router failed, using expert panel",
			zap.String("operation", string(appai.OpClassify)),
			zap.Error(err),
		)
		return false
	}
	return strings.Contains(strings.ToLower(out), "yes")
}
