package prompt

import (
	"fmt"
	"strings"

	"github.com/bryanwahyu/roundtable/internal/domain/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
)

// Classify asks whether a question needs computation over the tabular data.
func (Default) Classify(question, schema string) ai.Prompt {
	return ai.Prompt{
		System: `You decide whether a user question requires computing over tabular data
(aggregations, filtering, counting, statistics, grouping, ranking) rather than a
qualitative expert discussion.

Answer with exactly one word: "yes" or "no". No punctuation, no explanation.`,
		User: fmt.Sprintf("Question: %s\n\nAvailable datasets:\n%s", question, schema),
	}
}

// AnalysisCode asks for the analysis function with a fixed signature.
func (Default) AnalysisCode(question, schema string) ai.Prompt {
	return ai.Prompt{
		System: fmt.Sprintf(`You write Python code that answers a question about tabular data.

Rules:
- Define exactly one function: def %[1]s(data):
- data is a dict mapping sheet name to a pandas DataFrame.
- Return a flat, JSON-serializable dict (plain str/int/float/bool/list values, no DataFrames, no numpy types).
- Start the code with these imports:
%[2]s
- Do not call the function, do not print, do not read files or use the network.
- Output only the code inside a single %[3]spython fenced block.`,
			analysis.EntryPoint, strings.Join(analysis.RequiredImports, "\n"), "```"),
		User: fmt.Sprintf("Question: %s\n\nDataset schema:\n%s", question, schema),
	}
}

// AnalysisExplain turns the JSON result into a structured explanation.
func (Default) AnalysisExplain(question, resultJSON string) ai.Prompt {
	return ai.Prompt{
		System: `You explain the result of a data analysis to a non-technical reader.
Structure the answer in markdown with these sections:
## Summary
## Key Findings
## Detailed Results
## Conclusion
Address the original question directly and only use numbers present in the result.`,
		User: fmt.Sprintf("Original question: %s\n\nAnalysis result (JSON):\n%s", question, resultJSON),
	}
}
