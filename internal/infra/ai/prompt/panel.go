package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/roundtable/internal/domain/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
)

// Default is the stock prompt template set.
type Default struct{}

func (Default) IdentifyExperts(question, conversation, docs string) ai.Prompt {
	return ai.Prompt{
		System: fmt.Sprintf(`You identify %d experts for a roundtable discussion on a specific question.
The experts must be able to analyze and interpret the provided documents: their content
and structure, data patterns and relationships, technical and domain-specific aspects.

Consider the full conversation history, the question may relate to earlier discussion points.
Each expert must have a different specialty and background.

Respond with one JSON object:
{
  "experts": [
    {
      "title": "Expert's title/profession",
      "specialty": "Expert's area of expertise",
      "background": "1-2 sentences on why this expert is relevant to the question, documents and conversation"
    }
  ]
}`, panel.Size),
		User: fmt.Sprintf("Question: %s\n\nPrevious Conversation:\n%s\n\nAvailable document content:\n%s",
			question, conversation, docs),
		JSON: true,
	}
}

func (Default) ExpertQuestions(question string, e *panel.Expert, docs, conversation string) ai.Prompt {
	return ai.Prompt{
		System: fmt.Sprintf(`You generate exactly 3 insightful questions related to the user's main question.
The questions are specialized for %s with expertise in %s.

The questions should:
1. Leverage this expert's unique perspective and knowledge
2. Focus on analyzing and interpreting the provided document content
3. Build on the previous conversation instead of repeating it
4. Address specific aspects of the user's question in relation to the documents

Output one question per line, no numbering, no extra text.`, e.Title, e.Specialty),
		User: fmt.Sprintf("Question: %s\n\nPrevious Conversation:\n%s\n\nDocument Context:\n%s\n\nExpert Background: %s",
			question, conversation, docs, e.Background),
	}
}

func (Default) ExpertAnswers(question string, e *panel.Expert, questions []string, docs, conversation string) ai.Prompt {
	var numbered strings.Builder
	for i, q := range questions {
		fmt.Fprintf(&numbered, "%d. %s\n", i+1, q)
	}
	return ai.Prompt{
		System: fmt.Sprintf(`You are %s, an expert in %s.
%s

Answer each question based on your expertise and the provided document content.
Reference specific data points or sections, stay factual and within your area of expertise.

Respond with one JSON object: {"answers": ["answer to question 1", "answer to question 2", ...]}
with exactly one answer per question, in the same order.`, e.Title, e.Specialty, e.Background),
		User: fmt.Sprintf("Main Question: %s\n\nPrevious Conversation:\n%s\n\nDocument Context:\n%s\n\nQuestions to Answer:\n%s",
			question, conversation, docs, numbered.String()),
		JSON: true,
	}
}

func (Default) ExpertSummary(question string, e *panel.Expert) ai.Prompt {
	return ai.Prompt{
		System: fmt.Sprintf(`You summarize the insights provided by %s, a %s with expertise in %s.

Review all of the expert's answers and write a concise 2-3 paragraph summary of their
key points and how they address the main question. Highlight the expert's unique perspective.`,
			e.Name, e.Title, e.Specialty),
		User: fmt.Sprintf("Main question: %s\n\nExpert: %s, %s\nSpecialty: %s\nBackground: %s\n\nQ&A:\n%s",
			question, e.Name, e.Title, e.Specialty, e.Background, qaBlock(e.QuestionsAndAnswers, "\n\n")),
	}
}

func (Default) ExpertMindmap(question string, e *panel.Expert, finalAnswer string) ai.Prompt {
	var analysis strings.Builder
	for i, qa := range e.QuestionsAndAnswers {
		if i > 0 {
			analysis.WriteString("\n\n")
		}
		fmt.Fprintf(&analysis, "Q%d: %s\nA%d: %s", i+1, qa.Question, i+1, qa.Answer)
	}
	return ai.Prompt{
		System: `You create a Mermaid mindmap. Follow these rules exactly:

1. First line: ` + "```mermaid" + `
2. Second line: mindmap
3. Use 2 spaces for each indentation level
4. Root node uses (( )) notation, child nodes are plain text
5. Only ASCII letters, digits and basic punctuation, no hyphens at line start
6. Keep node text under 40 characters

Example:
` + "```mermaid" + `
mindmap
  root((Expert Analysis))
    Finding 1
      Detail A
    Finding 2
      Detail B
` + "```" + `

Show the expert's key findings and how they connect to the final answer.
ONLY output the mermaid code block.`,
		User: fmt.Sprintf("Expert: %s\nSpecialty: %s\nQuestion: %s\n\nAnalysis:\n%s\n\nSummary: %s\nConclusion: %s",
			e.Title, e.Specialty, question, analysis.String(), e.Summary, finalAnswer),
	}
}

func (Default) FinalAnswer(question string, experts []*panel.Expert, docs, conversation string) ai.Prompt {
	var insights strings.Builder
	for _, e := range experts {
		fmt.Fprintf(&insights, "Expert: %s (%s)\nBackground: %s\nKey Questions and Answers:\n%s\nSummary: %s\n\n",
			e.Title, e.Specialty, e.Background, qaBlock(e.QuestionsAndAnswers, "\n"), e.Summary)
	}
	return ai.Prompt{
		System: `You synthesize expert insights into one comprehensive answer.
Consider the full conversation history, the current question may build on previous exchanges.

Your response should:
1. Address the current question directly
2. Reference relevant points from the previous conversation
3. Integrate expert insights and document evidence
4. Stay consistent with previous answers`,
		User: fmt.Sprintf("Current Question: %s\n\nPrevious Conversation:\n%s\n\nExpert Insights:\n%s\nDocument Context:\n%s",
			question, conversation, insights.String(), docs),
	}
}

func (Default) FollowUps(question, finalAnswer, conversation string) ai.Prompt {
	return ai.Prompt{
		System: `You propose 3 follow-up questions for the current conversation.
They should build on the discussion, explore angles not yet covered and be concise and diverse.

Respond with one JSON object:
{
  "questions": [
    {"text": "Question text", "context": "Why this is a relevant follow-up"}
  ]
}`,
		User: fmt.Sprintf("Current Question: %s\nFinal Answer: %s\n\nPrevious Conversation:\n%s",
			question, finalAnswer, conversation),
		JSON: true,
	}
}

func (Default) CumulativeMindmap(question string, experts []*panel.Expert) ai.Prompt {
	var b strings.Builder
	for _, e := range experts {
		fmt.Fprintf(&b, "%s (%s):\nQuestions Asked: %s\nSummary: %s\n\n",
			e.Name, e.Title, strings.Join(e.Questions, ", "), e.Summary)
	}
	return ai.Prompt{
		System: `You create a cumulative mindmap that combines the insights of all experts.
Return one JSON object in this exact format:
{
  "meta": {"name": "Question Summary", "author": "AI Assistant", "version": "1.0"},
  "format": "node_tree",
  "data": {"id": "root", "topic": "Main Question", "children": [{"id": "...", "topic": "...", "children": []}]}
}`,
		User: fmt.Sprintf("Question: %s\n\nExpert Analyses:\n%s", question, b.String()),
		JSON: true,
	}
}

func (Default) RelatedQuestion(nodeText, currentQuestion string) ai.Prompt {
	return ai.Prompt{
		System: `You turn a mindmap topic into one new, self-contained question that explores that topic
in the context of the current question. Output only the question.`,
		User: fmt.Sprintf("Current question: %s\nMindmap topic: %s", currentQuestion, nodeText),
	}
}

func qaBlock(qas []panel.QA, sep string) string {
	parts := make([]string, 0, len(qas))
	for _, qa := range qas {
		parts = append(parts, fmt.Sprintf("Q: %s\nA: %s", qa.Question, qa.Answer))
	}
	return strings.Join(parts, sep)
}
