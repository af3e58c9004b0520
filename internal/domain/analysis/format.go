package analysis

import (
	"encoding/json"
	"fmt"
)

func stringify(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// FallbackExplanation is the deterministic rendering used when the LLM
// cannot explain a result.
func FallbackExplanation(question string, raw any) string {
	b, err := json.MarshalIndent(raw, "", "  ")
	if err != nil {
		b = []byte(fmt.Sprint(raw))
	}
	return fmt.Sprintf("## Analysis Results for: %s\n\n```json\n%s\n```", question, b)
}
