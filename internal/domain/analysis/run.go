package analysis

// Request is the message posted to a sandbox worker.
type Request struct {
	ID      string         `json:"id"`
	Code    string         `json:"code"`
	Data    any            `json:"data"`
	Context map[string]any `json:"context"`
}

// Response is the worker's reply, matched to its Request by ID.
// Exactly one of Result or Error is meaningful.
type Response struct {
	ID     string `json:"id"`
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ExecError is an interpreter-side exception reported by the worker.
type ExecError struct {
	ID      string
	Message string
}

func (e *ExecError) Error() string { return e.Message }

// EntryPoint is the function every generated snippet must define.
const EntryPoint = "generateAnalysis"

// RequiredImports are prepended to generated snippets that omit them.
var RequiredImports = []string{
	"import json",
	"import pandas as pd",
	"import numpy as np",
}
