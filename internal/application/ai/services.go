package ai

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/roundtable/internal/domain/ai"
	"github.com/bryanwahyu/roundtable/internal/metrics"
)

// Operation labels one kind of LLM call for logs and metrics.
type Operation string

const (
	OpClassify          Operation = "classify"
	OpAnalysisCode      Operation = "analysis_code"
	OpAnalysisExplain   Operation = "analysis_explain"
	OpIdentifyExperts   Operation = "identify_experts"
	OpExpertQuestions   Operation = "expert_questions"
	OpExpertAnswers     Operation = "expert_answers"
	OpExpertSummary     Operation = "expert_summary"
	OpExpertMindmap     Operation = "expert_mindmap"
	OpFinalAnswer       Operation = "final_answer"
	OpFollowUps         Operation = "follow_ups"
	OpCumulativeMindmap Operation = "cumulative_mindmap"
	OpRelatedQuestion   Operation = "related_question"
)

// Service wraps the gateway with per-operation logging and metrics.
type Service struct {
	client ai.Gateway
	logger *zap.Logger
}

func NewService(client ai.Gateway, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{client: client, logger: logger}
}

func (s *Service) Complete(ctx context.Context, op Operation, p ai.Prompt) (string, error) {
	start := time.Now()
	out, err := s.client.Complete(ctx, p)
	elapsed := time.Since(start)
	metrics.LLMDuration.WithLabelValues(string(op)).Observe(elapsed.Seconds())
	if err != nil {
		metrics.LLMCalls.WithLabelValues(string(op), "error").Inc()
		s.logger.Warn("llm call failed",
			zap.String("operation", string(op)),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
		return "", err
	}
	metrics.LLMCalls.WithLabelValues(string(op), "ok").Inc()
	s.logger.Debug("llm call",
		zap.String("operation", string(op)),
		zap.Duration("elapsed", elapsed),
		zap.Int("response_len", len(out)),
	)
	return out, nil
}
