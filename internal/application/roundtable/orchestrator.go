// Package roundtable drives one question through the analysis router, the
// tabular pipeline or the expert panel, synthesis and follow-up generation.
package roundtable

import (
	"go.uber.org/zap"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
)

type Options struct {
	// QuestionsPerExpert is how many questions each expert gets per turn.
	QuestionsPerExpert int
	// Concurrent fans the per-expert steps out; results stay in panel order.
	Concurrent bool
	// IsolateFailures marks a failing expert unavailable instead of failing the turn.
	IsolateFailures bool
}

// Orchestrator holds the stateless steps of a turn. Session state is owned
// by Service and passed in explicitly.
type Orchestrator struct {
	llm      LLM
	prompts  Prompts
	executor analysis.Executor
	clock    Clock
	logger   *zap.Logger
	opts     Options
}

func NewOrchestrator(llm LLM, prompts Prompts, executor analysis.Executor, clock Clock, opts Options, logger *zap.Logger) *Orchestrator {
	if opts.QuestionsPerExpert <= 0 {
		opts.QuestionsPerExpert = 3
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		llm:      llm,
		prompts:  prompts,
		executor: executor,
		clock:    clock,
		logger:   logger,
		opts:     opts,
	}
}

func expertField(e *panel.Expert) zap.Field {
	return zap.String("expert", e.Title)
}
