package roundtable

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	appai "github.com/bryanwahyu/roundtable/internal/application/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/session"
	"github.com/bryanwahyu/roundtable/internal/infra/ai/prompt"
)

type handler func(ctx context.Context, p ai.Prompt) (string, error)

type fakeLLM struct {
	mu       sync.Mutex
	handlers map[appai.Operation]handler
	prompts  map[appai.Operation][]ai.Prompt
}

func newFakeLLM() *fakeLLM {
	return &fakeLLM{
		handlers: map[appai.Operation]handler{},
		prompts:  map[appai.Operation][]ai.Prompt{},
	}
}

func (f *fakeLLM) on(op appai.Operation, h handler) *fakeLLM {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[op] = h
	return f
}

func (f *fakeLLM) reply(op appai.Operation, out string) *fakeLLM {
	return f.on(op, func(context.Context, ai.Prompt) (string, error) { return out, nil })
}

func (f *fakeLLM) fail(op appai.Operation, err error) *fakeLLM {
	return f.on(op, func(context.Context, ai.Prompt) (string, error) { return "", err })
}

func (f *fakeLLM) Complete(ctx context.Context, op appai.Operation, p ai.Prompt) (string, error) {
	f.mu.Lock()
	f.prompts[op] = append(f.prompts[op], p)
	h := f.handlers[op]
	f.mu.Unlock()
	if h == nil {
		return "", fmt.Errorf("unexpected llm call %s", op)
	}
	return h(ctx, p)
}

func (f *fakeLLM) calls(op appai.Operation) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts[op])
}

func (f *fakeLLM) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, ps := range f.prompts {
		n += len(ps)
	}
	return n
}

func (f *fakeLLM) last(op appai.Operation) ai.Prompt {
	f.mu.Lock()
	defer f.mu.Unlock()
	ps := f.prompts[op]
	if len(ps) == 0 {
		return ai.Prompt{}
	}
	return ps[len(ps)-1]
}

const (
	expertsJSON = `{"experts":[
		{"title":"Economist","specialty":"markets","background":"b1"},
		{"title":"Statistician","specialty":"inference","background":"b2"},
		{"title":"Historian","specialty":"history","background":"b3"}]}`
	validMindmap = "```mermaid\nmindmap\n  root((Findings))\n    Point\n```"
	nodeTreeJSON = `{"meta":{"name":"Q","author":"AI Assistant","version":"1.0"},"format":"node_tree",
		"data":{"id":"root","topic":"Main Question","children":[{"id":"a","topic":"A"}]}}`
)

// panelLLM answers every panel operation with well-formed output. Question
// and answer text carry a running number so appended history is visible.
func panelLLM() *fakeLLM {
	var mu sync.Mutex
	round := map[string]int{}
	next := func(key string) int {
		mu.Lock()
		defer mu.Unlock()
		round[key]++
		return round[key]
	}
	return newFakeLLM().
		reply(appai.OpIdentifyExperts, expertsJSON).
		on(appai.OpExpertQuestions, func(_ context.Context, p ai.Prompt) (string, error) {
			n := next("q" + p.System)
			return fmt.Sprintf("1. Question %d.1\n2. Question %d.2\n3. Question %d.3", n, n, n), nil
		}).
		reply(appai.OpExpertAnswers, `{"answers":["first","second","third"]}`).
		on(appai.OpExpertSummary, func(_ context.Context, p ai.Prompt) (string, error) {
			return fmt.Sprintf("summary of %d pairs", strings.Count(p.User, "Q: ")), nil
		}).
		reply(appai.OpFinalAnswer, "the final answer").
		reply(appai.OpExpertMindmap, validMindmap).
		reply(appai.OpCumulativeMindmap, nodeTreeJSON).
		reply(appai.OpFollowUps, `{"questions":[{"text":"What next?","context":"c"}]}`)
}

type fakeExecutor struct {
	mu      sync.Mutex
	program string
	data    any
	result  any
	err     error
}

func (f *fakeExecutor) Execute(_ context.Context, code string, data any, _ map[string]any) (any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.program = code
	f.data = data
	return f.result, f.err
}

// memStore keeps sessions as JSON so callers never share pointers.
type memStore struct {
	mu    sync.Mutex
	data  map[string][]byte
	saves []session.Status
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, tenant, id string) (*session.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.data[tenant+"/"+id]
	if !ok {
		return nil, session.ErrNotFound
	}
	var st session.State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (m *memStore) Save(_ context.Context, st *session.State) error {
	b, err := json.Marshal(st)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[st.TenantID+"/"+st.ID] = b
	m.saves = append(m.saves, st.Status)
	return nil
}

func (m *memStore) Delete(_ context.Context, tenant, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, tenant+"/"+id)
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type harness struct {
	llm     *fakeLLM
	exec    *fakeExecutor
	store   *memStore
	svc     *Service
	orch    *Orchestrator
	tenant  string
	session string
}

func newHarness(t *testing.T, llm *fakeLLM, opts Options) *harness {
	t.Helper()
	if opts.QuestionsPerExpert == 0 {
		opts.QuestionsPerExpert = 3
	}
	h := &harness{llm: llm, exec: &fakeExecutor{}, store: newMemStore(), tenant: "acme"}
	logger := zaptest.NewLogger(t)
	h.orch = NewOrchestrator(llm, prompt.Default{}, h.exec, fixedClock{testNow}, opts, logger)
	h.svc = NewService(h.orch, Deps{Sessions: h.store}, fixedClock{testNow}, logger)

	st, err := h.svc.CreateSession(context.Background(), h.tenant)
	require.NoError(t, err)
	h.session = st.ID
	return h
}

func (h *harness) ask(text string, followUp bool) (*TurnResult, error) {
	return h.svc.Ask(context.Background(), Question{
		TenantID:  h.tenant,
		SessionID: h.session,
		Text:      text,
		FollowUp:  followUp,
	})
}

func (h *harness) state(t *testing.T) *session.State {
	t.Helper()
	st, err := h.store.Get(context.Background(), h.tenant, h.session)
	require.NoError(t, err)
	return st
}
