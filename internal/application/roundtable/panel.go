package roundtable

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
	"github.com/bryanwahyu/roundtable/internal/metrics"
)

// FormPanel asks for exactly panel.Size experts. Any failure is fatal to the turn.
func (o *Orchestrator) FormPanel(ctx context.Context, question, docs, conversation string) (*panel.Panel, error) {
	out, err := o.llm.Complete(ctx, appai.OpIdentifyExperts, o.prompts.IdentifyExperts(question, conversation, docs))
	if err != nil {
		return nil, fmt.Errorf("Failed to identify experts: %w", err)
	}
	profiles, err := parseProfiles(out)
	if err != nil {
		return nil, fmt.Errorf("Failed to identify experts: %w", err)
	}
	p, err := panel.New(question, profiles, o.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("Failed to identify experts: %w", err)
	}
	return p, nil
}

// Consult runs question generation, answering and summarizing for every
// expert of p, appending to each expert's history. Steps for one expert are
// sequential; experts run in panel order, or concurrently when configured.
//
// With IsolateFailures a failing expert is marked unavailable and reported
// in warnings; the turn fails only when no expert is left.
func (o *Orchestrator) Consult(ctx context.Context, p *panel.Panel, question, docs, conversation string) (warnings []string, err error) {
	for _, e := range p.Experts {
		e.ClearFailure()
	}

	errs := make([]error, len(p.Experts))
	if o.opts.Concurrent {
		g, gctx := errgroup.WithContext(ctx)
		for i, e := range p.Experts {
			g.Go(func() error {
				errs[i] = o.consultExpert(gctx, e, question, docs, conversation)
				if errs[i] != nil && !o.opts.IsolateFailures {
					return errs[i]
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, e := range p.Experts {
			errs[i] = o.consultExpert(ctx, e, question, docs, conversation)
			if errs[i] != nil && !o.opts.IsolateFailures {
				return nil, errs[i]
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	for i, e := range p.Experts {
		if errs[i] == nil {
			continue
		}
		e.MarkUnavailable(errs[i])
		metrics.ExpertsUnavailable.Inc()
		o.logger.Warn("expert unavailable for this turn", expertField(e), zap.Error(errs[i]))
		warnings = append(warnings, fmt.Sprintf("%s is unavailable: %v", e.Title, errs[i]))
	}
	if len(p.Available()) == 0 {
		return warnings, fmt.Errorf("all experts failed: %w", errors.Join(errs...))
	}
	return warnings, nil
}

// consultExpert works on a copy of e and writes it back only when questions,
// answers and the summary all succeeded, so a failure leaves e untouched and
// the summary always covers the full history.
func (o *Orchestrator) consultExpert(ctx context.Context, e *panel.Expert, question, docs, conversation string) error {
	out, err := o.llm.Complete(ctx, appai.OpExpertQuestions, o.prompts.ExpertQuestions(question, e, docs, conversation))
	if err != nil {
		return fmt.Errorf("Failed to generate questions for %s: %w", e.Title, err)
	}
	questions := splitLines(out)
	if len(questions) > o.opts.QuestionsPerExpert {
		questions = questions[:o.opts.QuestionsPerExpert]
	}
	if len(questions) == 0 {
		return fmt.Errorf("Failed to generate questions for %s: %w", e.Title, errMalformed)
	}
	if len(questions) < o.opts.QuestionsPerExpert {
		o.logger.Warn("expert generated fewer questions than requested",
			expertField(e),
			zap.Int("requested", o.opts.QuestionsPerExpert),
			zap.Int("generated", len(questions)),
		)
	}

	out, err = o.llm.Complete(ctx, appai.OpExpertAnswers, o.prompts.ExpertAnswers(question, e, questions, docs, conversation))
	if err != nil {
		return fmt.Errorf("Failed to get answers from %s: %w", e.Title, err)
	}
	answers := parseAnswers(out)

	work := e.Clone()
	if n := work.AppendQA(questions, answers); n < len(questions) {
		o.logger.Warn("expert answered fewer questions than asked",
			expertField(e),
			zap.Int("asked", len(questions)),
			zap.Int("answered", n),
		)
	}

	// tanpa jawaban, tidak ada yang bisa diringkas
	if work.HasAnswers() {
		summary, err := o.llm.Complete(ctx, appai.OpExpertSummary, o.prompts.ExpertSummary(question, work))
		if err != nil {
			return fmt.Errorf("Failed to summarize %s: %w", e.Title, err)
		}
		work.Summary = strings.TrimSpace(summary)
	}
	*e = *work
	return nil
}
