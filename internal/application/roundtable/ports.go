package roundtable

import (
	"context"
	"time"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
)

// LLM is the instrumented completion call; *appai.Service satisfies it.
type LLM interface {
	Complete(ctx context.Context, op appai.Operation, p ai.Prompt) (string, error)
}

// Prompts is the prompt template strategy. prompt.Default is the stock set.
type Prompts interface {
	Classify(question, schema string) ai.Prompt
	AnalysisCode(question, schema string) ai.Prompt
	AnalysisExplain(question, resultJSON string) ai.Prompt

	IdentifyExperts(question, conversation, docs string) ai.Prompt
	ExpertQuestions(question string, e *panel.Expert, docs, conversation string) ai.Prompt
	ExpertAnswers(question string, e *panel.Expert, questions []string, docs, conversation string) ai.Prompt
	ExpertSummary(question string, e *panel.Expert) ai.Prompt
	ExpertMindmap(question string, e *panel.Expert, finalAnswer string) ai.Prompt
	FinalAnswer(question string, experts []*panel.Expert, docs, conversation string) ai.Prompt
	FollowUps(question, finalAnswer, conversation string) ai.Prompt
	CumulativeMindmap(question string, experts []*panel.Expert) ai.Prompt
	RelatedQuestion(nodeText, currentQuestion string) ai.Prompt
}

// Clock supaya gampang ditest
type Clock interface {
	Now() time.Time
}

type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now().UTC() }
