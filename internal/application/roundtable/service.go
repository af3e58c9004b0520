package roundtable

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/domain/conversation"
	"github.com/bryanwahyu/roundtable/internal/domain/documents"
	"github.com/bryanwahyu/roundtable/internal/domain/panel"
	"github.com/bryanwahyu/roundtable/internal/domain/session"
	"github.com/bryanwahyu/roundtable/internal/domain/turnerrors"
	"github.com/bryanwahyu/roundtable/internal/metrics"
)

// Route is the path a turn took.
type Route string

const (
	RouteAnalysis Route = "analysis"
	RoutePanel    Route = "panel"
)

// Question command
type Question struct {
	TenantID  string
	SessionID string
	Text      string
	FollowUp  bool
}

type ExpertMindmap struct {
	Expert  string `json:"expert"`
	Mindmap string `json:"mindmap"`
}

// TurnResult is everything one turn hands to the rendering side.
type TurnResult struct {
	SessionID         string           `json:"session_id"`
	Question          string           `json:"question"`
	Route             Route            `json:"route"`
	FollowUp          bool             `json:"follow_up"`
	Answer            string           `json:"answer"`
	Analysis          *analysis.Result `json:"analysis,omitempty"`
	Experts           []*panel.Expert  `json:"experts,omitempty"`
	Mindmaps          []ExpertMindmap  `json:"mindmaps,omitempty"`
	CumulativeMindmap *panel.NodeTree  `json:"cumulative_mindmap,omitempty"`
	FollowUps         []FollowUp       `json:"follow_ups"`
	Warnings          []string         `json:"warnings,omitempty"`
}

// Deps are the optional persistence collaborators; nil repositories are skipped.
type Deps struct {
	Sessions    session.Store
	Transcripts conversation.TranscriptRepository
	Runs        analysis.Repository
	TurnErrors  turnerrors.Repository
	Extractors  []documents.Extractor
	Archive     documents.ArchiveStore
}

// Service implements the session use-cases. Turns of one session are
// serialized; a new question supersedes the one in flight.
// Service is safe for concurrent use.
type Service struct {
	orch   *Orchestrator
	deps   Deps
	clock  Clock
	logger *zap.Logger

	mu    sync.Mutex
	slots map[string]*slot
}

// slot serializes writers of one session.
type slot struct {
	sem    chan struct{}
	cancel context.CancelFunc
	seq    uint64
}

func NewService(orch *Orchestrator, deps Deps, clock Clock, logger *zap.Logger) *Service {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		orch:   orch,
		deps:   deps,
		clock:  clock,
		logger: logger,
		slots:  make(map[string]*slot),
	}
}

// acquire takes the session's writer slot. With supersede the in-flight
// turn is cancelled first. The returned context is cancelled when a later
// caller supersedes this one.
func (s *Service) acquire(ctx context.Context, tenant, id string, supersede bool) (context.Context, func(), error) {
	key := tenant + "/" + id

	s.mu.Lock()
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{sem: make(chan struct{}, 1)}
		s.slots[key] = sl
	}
	if supersede && sl.cancel != nil {
		sl.cancel()
	}
	turnCtx, cancel := context.WithCancel(ctx)
	var mine uint64
	if supersede {
		sl.seq++
		mine = sl.seq
		sl.cancel = cancel
	}
	s.mu.Unlock()

	select {
	case sl.sem <- struct{}{}:
	case <-turnCtx.Done():
		cancel()
		if ctx.Err() != nil {
			return nil, nil, ctx.Err()
		}
		return nil, nil, ErrTurnSuperseded
	}

	release := func() {
		<-sl.sem
		s.mu.Lock()
		if supersede && sl.seq == mine {
			sl.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
	return turnCtx, release, nil
}

func (s *Service) forget(tenant, id string) {
	s.mu.Lock()
	delete(s.slots, tenant+"/"+id)
	s.mu.Unlock()
}

// persist saves even when the turn context is already cancelled.
func (s *Service) persist(ctx context.Context, st *session.State) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	st.UpdatedAt = s.clock.Now()
	if err := s.deps.Sessions.Save(ctx, st); err != nil {
		s.logger.Error("failed to save session", zap.String("session_id", st.ID), zap.Error(err))
	}
}

// Ask runs one turn. Loading status is set while it runs and cleared on
// every exit path.
func (s *Service) Ask(ctx context.Context, q Question) (res *TurnResult, err error) {
	q.Text = strings.TrimSpace(q.Text)
	if q.Text == "" {
		return nil, invalid("question", "must not be empty")
	}

	turnCtx, release, err := s.acquire(ctx, q.TenantID, q.SessionID, true)
	if err != nil {
		metrics.TurnsTotal.WithLabelValues("", "superseded").Inc()
		return nil, err
	}
	defer release()

	st, err := s.deps.Sessions.Get(turnCtx, q.TenantID, q.SessionID)
	if err != nil {
		return nil, err
	}

	start := s.clock.Now()
	st.Begin("Processing question...", start)
	s.persist(ctx, st)

	t := &turn{
		svc:    s,
		ctx:    turnCtx,
		state:  st,
		q:      q,
		ledger: conversation.NewLedger(st.Ledger.Turns()),
		panel:  st.Panel.Clone(),
	}
	defer func() {
		st.End(err, s.clock.Now())
		s.persist(ctx, st)
	}()

	res, err = t.run()

	status := "ok"
	switch {
	case turnCtx.Err() != nil:
		// abandoned turn: nothing it produced is kept
		status = "superseded"
		res = nil
		if err = ctx.Err(); err == nil {
			err = ErrTurnSuperseded
		}
	case err != nil:
		status = "error"
		s.commit(ctx, st, t, false)
		s.recordFailure(ctx, t, err)
	default:
		s.commit(ctx, st, t, true)
	}
	if t.record != nil && status != "superseded" {
		s.saveRun(ctx, t.record)
	}

	metrics.TurnsTotal.WithLabelValues(string(t.route), status).Inc()
	metrics.TurnDuration.WithLabelValues(string(t.route)).Observe(s.clock.Now().Sub(start).Seconds())
	s.logger.Info("turn finished",
		zap.String("session_id", st.ID),
		zap.String("route", string(t.route)),
		zap.Bool("follow_up", q.FollowUp),
		zap.String("status", status),
		zap.Error(err),
	)
	return res, err
}

// commit moves the turn's results into the session. A failed turn keeps
// only what must survive failure: the analysis error message in the ledger,
// or a cleared panel when a new topic could not form its panel.
func (s *Service) commit(ctx context.Context, st *session.State, t *turn, ok bool) {
	before := st.Ledger.Len()
	switch {
	case ok:
		st.Ledger = t.ledger
		st.Panel = t.panel
	case t.keepLedger:
		st.Ledger = t.ledger
	case t.newTopic:
		st.ResetPanel()
	}
	s.archive(ctx, st, before)
}

func (s *Service) archive(ctx context.Context, st *session.State, from int) {
	if s.deps.Transcripts == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	turns := st.Ledger.Turns()
	for i := from; i < len(turns); i++ {
		rec := &conversation.ArchivedTurn{
			TenantID:  st.TenantID,
			SessionID: st.ID,
			Seq:       i + 1,
			Turn:      turns[i],
		}
		if err := s.deps.Transcripts.Append(ctx, rec); err != nil {
			s.logger.Error("failed to archive turn", zap.String("session_id", st.ID), zap.Error(err))
			return
		}
	}
}

func (s *Service) saveRun(ctx context.Context, r *analysis.Run) {
	if s.deps.Runs == nil {
		return
	}
	if err := s.deps.Runs.Save(context.WithoutCancel(ctx), r); err != nil {
		s.logger.Error("failed to save analysis run", zap.String("session_id", r.SessionID), zap.Error(err))
	}
}

func (s *Service) recordFailure(ctx context.Context, t *turn, cause error) {
	if s.deps.TurnErrors == nil {
		return
	}
	details, _ := json.Marshal(map[string]any{
		"question":  t.q.Text,
		"follow_up": t.q.FollowUp,
	})
	e := &turnerrors.TurnError{
		TenantID:    t.q.TenantID,
		SessionID:   t.q.SessionID,
		Route:       string(t.route),
		Stage:       t.stageName,
		Message:     cause.Error(),
		DetailsJSON: string(details),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.deps.TurnErrors.Save(context.WithoutCancel(ctx), e); err != nil {
		s.logger.Error("failed to record turn error", zap.String("session_id", t.q.SessionID), zap.Error(err))
	}
}

// turn is the working copy of one Ask call.
type turn struct {
	svc   *Service
	ctx   context.Context
	state *session.State
	q     Question

	ledger *conversation.Ledger
	panel  *panel.Panel

	route      Route
	stageName  string
	newTopic   bool
	keepLedger bool
	record     *analysis.Run
}

func (t *turn) stage(name string) {
	t.stageName = name
	t.state.Stage(name, t.svc.clock.Now())
	t.svc.persist(t.ctx, t.state)
}

func (t *turn) run() (*TurnResult, error) {
	o := t.svc.orch
	conv := t.ledger.Context()
	docs := t.state.Documents.Format()
	t.ledger.Append(conversation.RoleUser, t.q.Text, t.svc.clock.Now())

	t.route = RoutePanel
	dataset := t.state.Documents.Dataset()
	if t.state.Documents.HasTabular() {
		t.stage("Checking whether the question needs data analysis...")
	}
	if o.NeedsTabularAnalysis(t.ctx, t.q.Text, t.state.Documents.HasTabular(), dataset.Schema()) {
		t.route = RouteAnalysis
		return t.analyze(dataset)
	}
	return t.discuss(docs, conv)
}
