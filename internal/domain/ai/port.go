package ai

import "context"

// Prompt pasangan system + user message untuk satu panggilan LLM.
type Prompt struct {
	System string
	User   string
	// JSON asks the provider for a single JSON object response.
	JSON bool
}

// Gateway is the LLM completion port.
type Gateway interface {
	Complete(ctx context.Context, p Prompt) (string, error)
}
