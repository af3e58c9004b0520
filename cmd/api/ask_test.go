package main

import (
	"bytes"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/roundtable/internal/application/roundtable"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
)

func TestPrintResultText(t *testing.T) {
	askJSON = false
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	res := &roundtable.TurnResult{
		Answer: "Prices should rise 5%.",
		Experts: []*panel.Expert{
			{Profile: panel.Profile{Title: "Economist"}, Summary: "Demand is inelastic."},
			{Profile: panel.Profile{Title: "Marketer"}, Unavailable: true, Failure: "timeout"},
		},
		FollowUps: []roundtable.FollowUp{{Text: "What about churn?"}},
		Warnings:  []string{"Marketer unavailable"},
	}
	require.NoError(t, printResult(cmd, res))

	s := out.String()
	assert.Contains(t, s, "## Economist\nDemand is inelastic.")
	assert.Contains(t, s, "## Marketer (unavailable: timeout)")
	assert.Contains(t, s, "Prices should rise 5%.")
	assert.Contains(t, s, "warning: Marketer unavailable")
	assert.Contains(t, s, "1. What about churn?")
}

func TestPrintResultJSON(t *testing.T) {
	askJSON = true
	defer func() { askJSON = false }()
	var out bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&out)

	require.NoError(t, printResult(cmd, &roundtable.TurnResult{Route: roundtable.RouteAnalysis, Answer: "42", FollowUps: []roundtable.FollowUp{}}))
	assert.Contains(t, out.String(), `"route": "analysis"`)
	assert.Contains(t, out.String(), `"follow_ups": []`)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["ask"])
	assert.NotNil(t, askCmd.Flags().Lookup("file"))
}
