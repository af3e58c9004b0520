package roundtable

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
	"github.com/bryanwahyu/roundtable/internal/metrics"
)

// Synthesize merges the experts' Q&A and summaries into the final answer.
func (o *Orchestrator) Synthesize(ctx context.Context, question string, experts []*panel.Expert, docs, conversation string) (string, error) {
	out, err := o.llm.Complete(ctx, appai.OpFinalAnswer, o.prompts.FinalAnswer(question, experts, docs, conversation))
	if err != nil {
		return "", fmt.Errorf("Failed to synthesize final answer: %w", err)
	}
	out = strings.TrimSpace(out)
	if out == "" {
		return "", fmt.Errorf("Failed to synthesize final answer: %w", ai.ErrEmptyResponse)
	}
	return out, nil
}

// FollowUps proposes up to three next questions. Never fails; an empty
// list means no suggestions.
func (o *Orchestrator) FollowUps(ctx context.Context, question, finalAnswer, conversation string) []FollowUp {
	out, err := o.llm.Complete(ctx, appai.OpFollowUps, o.prompts.FollowUps(question, finalAnswer, conversation))
	if err != nil {
		o.softFailure("followups", appai.OpFollowUps, err)
		return []FollowUp{}
	}
	list := parseFollowUps(out)
	if len(list) == 0 {
		o.softFailure("followups", appai.OpFollowUps, errMalformed)
		return []FollowUp{}
	}
	return list
}

// GenerateMindmaps asks every available expert for a mindmap. Missing or
// invalid mindmaps are left empty and the expert is skipped when rendering.
// Unavailable experts lose the mindmap of an earlier turn.
func (o *Orchestrator) GenerateMindmaps(ctx context.Context, p *panel.Panel, question, finalAnswer string) {
	for _, e := range p.Experts {
		if e.Unavailable {
			e.Mindmap = ""
		}
	}
	experts := p.Available()
	maps := make([]string, len(experts))
	one := func(ctx context.Context, i int) {
		e := experts[i]
		out, err := o.llm.Complete(ctx, appai.OpExpertMindmap, o.prompts.ExpertMindmap(question, e, finalAnswer))
		if err != nil {
			o.softFailure("mindmap", appai.OpExpertMindmap, err, expertField(e))
			return
		}
		code, ok := panel.ExtractMindmap(out)
		if !ok {
			o.softFailure("mindmap", appai.OpExpertMindmap, errMalformed, expertField(e))
			return
		}
		maps[i] = code
	}

	if o.opts.Concurrent {
		var g errgroup.Group
		for i := range experts {
			g.Go(func() error {
				one(ctx, i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range experts {
			one(ctx, i)
		}
	}
	for i, e := range experts {
		e.Mindmap = maps[i]
	}
}

// CumulativeMindmap combines all experts into one node tree; nil when the
// reply does not validate.
func (o *Orchestrator) CumulativeMindmap(ctx context.Context, question string, experts []*panel.Expert) *panel.NodeTree {
	out, err := o.llm.Complete(ctx, appai.OpCumulativeMindmap, o.prompts.CumulativeMindmap(question, experts))
	if err != nil {
		o.softFailure("cumulative_mindmap", appai.OpCumulativeMindmap, err)
		return nil
	}
	tree, ok := panel.ParseNodeTree(jsonBody(out))
	if !ok {
		o.softFailure("cumulative_mindmap", appai.OpCumulativeMindmap, errMalformed)
		return nil
	}
	return tree
}

// RelatedQuestion turns a mindmap node into a new question.
func (o *Orchestrator) RelatedQuestion(ctx context.Context, nodeText, currentQuestion string) (string, error) {
	nodeText = strings.TrimSpace(nodeText)
	if nodeText == "" {
		return "", invalid("node_text", "must not be empty")
	}
	if strings.TrimSpace(currentQuestion) == "" {
		return "", invalid("question", "no current question in this session")
	}
	out, err := o.llm.Complete(ctx, appai.OpRelatedQuestion, o.prompts.RelatedQuestion(nodeText, currentQuestion))
	if err != nil {
		return "", fmt.Errorf("Failed to generate related question: %w", err)
	}
	q := strings.Trim(strings.TrimSpace(out), `"`)
	if q == "" {
		return "", fmt.Errorf("Failed to generate related question: %w", ai.ErrEmptyResponse)
	}
	return q, nil
}

func (o *Orchestrator) softFailure(kind string, op appai.Operation, err error, fields ...zap.Field) {
	metrics.SoftFailures.WithLabelValues(kind).Inc()
	fields = append(fields, zap.String("operation", string(op)), zap.Error(err))
	o.logger.Warn("non-fatal step failed", fields...)
}
