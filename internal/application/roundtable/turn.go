package roundtable

import (
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/domain/conversation"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
)

func (t *turn) analyze(data analysis.Dataset) (*TurnResult, error) {
	o := t.svc.orch
	t.stage("Analyzing data...")

	start := t.svc.clock.Now()
	res, err := o.RunAnalysis(t.ctx, t.q.Text, data)
	t.audit(res, err, t.svc.clock.Now().Sub(start).Milliseconds())
	if err != nil {
		var ae *AnalysisError
		if errors.As(err, &ae) {
			// pesan error tetap masuk history supaya turn berikutnya punya konteks
			t.ledger.Append(conversation.RoleAssistant, ae.Error(), t.svc.clock.Now())
			t.keepLedger = true
		}
		return nil, err
	}
	t.ledger.Append(conversation.RoleAssistant, res.Explanation, t.svc.clock.Now())

	t.stage("Generating follow-up questions...")
	followUps := o.FollowUps(t.ctx, t.q.Text, res.Explanation, t.ledger.Context())

	return &TurnResult{
		SessionID: t.q.SessionID,
		Question:  t.q.Text,
		Route:     RouteAnalysis,
		FollowUp:  t.q.FollowUp,
		Answer:    res.Explanation,
		Analysis:  res,
		FollowUps: followUps,
	}, nil
}

func (t *turn) audit(res *analysis.Result, err error, durationMS int64) {
	r := &analysis.Run{
		ID:         uuid.New().String(),
		TenantID:   t.q.TenantID,
		SessionID:  t.q.SessionID,
		Question:   t.q.Text,
		DurationMS: durationMS,
		CreatedAt:  t.svc.clock.Now(),
	}
	if err != nil {
		r.Outcome = analysis.OutcomeFailed
		r.Error = err.Error()
		var ae *AnalysisError
		if errors.As(err, &ae) {
			r.Code = ae.Code
		}
	} else {
		r.Outcome = res.Outcome
		r.Code = res.GeneratedCode
		if b, mErr := json.Marshal(res.RawResult); mErr == nil {
			r.ResultJSON = string(b)
		}
	}
	t.record = r
}

func (t *turn) discuss(docs, conv string) (*TurnResult, error) {
	o := t.svc.orch

	followUp := t.q.FollowUp && t.panel != nil
	if !followUp {
		t.newTopic = true
		t.panel = nil
		t.stage("Identifying expert panel...")
		p, err := o.FormPanel(t.ctx, t.q.Text, docs, conv)
		if err != nil {
			return nil, err
		}
		t.panel = p
	}

	t.stage("Consulting experts...")
	warnings, err := o.Consult(t.ctx, t.panel, t.q.Text, docs, conv)
	if err != nil {
		return nil, err
	}

	t.stage("Synthesizing final answer...")
	answer, err := o.Synthesize(t.ctx, t.q.Text, t.panel.Available(), docs, conv)
	if err != nil {
		return nil, err
	}
	t.ledger.Append(conversation.RoleAssistant, answer, t.svc.clock.Now())

	t.stage("Generating mindmaps...")
	o.GenerateMindmaps(t.ctx, t.panel, t.q.Text, answer)
	tree := o.CumulativeMindmap(t.ctx, t.q.Text, t.panel.Available())

	t.stage("Generating follow-up questions...")
	followUps := o.FollowUps(t.ctx, t.q.Text, answer, t.ledger.Context())

	return &TurnResult{
		SessionID:         t.q.SessionID,
		Question:          t.q.Text,
		Route:             RoutePanel,
		FollowUp:          followUp,
		Answer:            answer,
		Experts:           t.panel.Experts,
		Mindmaps:          mindmaps(t.panel),
		CumulativeMindmap: tree,
		FollowUps:         followUps,
		Warnings:          warnings,
	}, nil
}

func mindmaps(p *panel.Panel) []ExpertMindmap {
	var out []ExpertMindmap
	for _, e := range p.WithMindmaps() {
		out = append(out, ExpertMindmap{Expert: e.Title, Mindmap: e.Mindmap})
	}
	return out
}
