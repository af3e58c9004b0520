package roundtable

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/domain/conversation"
	"github.com/bryanwahyu/roundtable/internal/domain/documents"
	"github.com/bryanwahyu/roundtable/internal/domain/session"
	"github.com/bryanwahyu/roundtable/internal/domain/turnerrors"
)

// ErrUnsupportedDocument is returned for files no extractor accepts.
var ErrUnsupportedDocument = errors.New("unsupported document type")

func (s *Service) CreateSession(ctx context.Context, tenant string) (*session.State, error) {
	st := session.New(uuid.New().String(), tenant, s.clock.Now())
	if err := s.deps.Sessions.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return st, nil
}

func (s *Service) GetSession(ctx context.Context, tenant, id string) (*session.State, error) {
	return s.deps.Sessions.Get(ctx, tenant, id)
}

// DeleteSession cancels any turn in flight and removes the session.
func (s *Service) DeleteSession(ctx context.Context, tenant, id string) error {
	_, release, err := s.acquire(ctx, tenant, id, true)
	if err != nil {
		return err
	}
	defer func() {
		release()
		s.forget(tenant, id)
	}()
	return s.deps.Sessions.Delete(ctx, tenant, id)
}

// AddDocument extracts an uploaded file, archives the raw bytes when an
// archive is configured and adds the result to the session. It waits for a
// running turn instead of cancelling it.
func (s *Service) AddDocument(ctx context.Context, tenant, id, filename, contentType string, data []byte) (*documents.Document, error) {
	filename = path.Base(strings.TrimSpace(filename))
	var ex documents.Extractor
	for _, e := range s.deps.Extractors {
		if e.Supports(filename) {
			ex = e
			break
		}
	}
	if ex == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedDocument, filename)
	}
	doc, err := ex.Extract(filename, bytes.NewReader(data))
	if err != nil {
		return nil, invalid("file", err.Error())
	}

	_, release, err := s.acquire(ctx, tenant, id, false)
	if err != nil {
		return nil, err
	}
	defer release()

	st, err := s.deps.Sessions.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}

	if s.deps.Archive != nil {
		key := fmt.Sprintf("%s/%s/%s-%s", tenant, id, uuid.New().String(), filename)
		url, err := s.deps.Archive.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType)
		if err != nil {
			// arsip gagal tidak menghalangi dokumen dipakai
			s.logger.Warn("failed to archive document", zap.String("session_id", id), zap.String("filename", filename), zap.Error(err))
		} else {
			doc.ArchiveURL = url
		}
	}

	st.Documents.Add(doc)
	st.UpdatedAt = s.clock.Now()
	if err := s.deps.Sessions.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	return &doc, nil
}

// AskRelated turns a mindmap node into a question and runs it as a new topic.
func (s *Service) AskRelated(ctx context.Context, tenant, id, nodeText string) (*TurnResult, error) {
	st, err := s.deps.Sessions.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	current, _ := st.Ledger.LastUserQuestion()
	if st.Panel != nil {
		current = st.Panel.Question
	}
	q, err := s.orch.RelatedQuestion(ctx, nodeText, current)
	if err != nil {
		return nil, err
	}
	return s.Ask(ctx, Question{TenantID: tenant, SessionID: id, Text: q})
}

// Transcript pages through archived turns. Without a transcript archive the
// session's own ledger is paged instead.
func (s *Service) Transcript(ctx context.Context, tenant, id string, page, pageSize int) ([]*conversation.ArchivedTurn, error) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = 20
	}
	if s.deps.Transcripts != nil {
		return s.deps.Transcripts.Paginate(ctx, tenant, id, page, pageSize)
	}

	st, err := s.deps.Sessions.Get(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	turns := st.Ledger.Turns()
	out := []*conversation.ArchivedTurn{}
	for i := (page - 1) * pageSize; i < len(turns) && i < page*pageSize; i++ {
		out = append(out, &conversation.ArchivedTurn{
			TenantID:  tenant,
			SessionID: id,
			Seq:       i + 1,
			Turn:      turns[i],
		})
	}
	return out, nil
}

// ErrNotConfigured is returned by listings whose repository is not set up.
var ErrNotConfigured = errors.New("persistence not configured")

func (s *Service) TurnErrors(ctx context.Context, tenant, id string, limit int) ([]*turnerrors.TurnError, error) {
	if s.deps.TurnErrors == nil {
		return nil, ErrNotConfigured
	}
	return s.deps.TurnErrors.ListBySession(ctx, tenant, id, limit)
}

func (s *Service) AnalysisRuns(ctx context.Context, tenant, id string, page, pageSize int) ([]*analysis.Run, error) {
	if s.deps.Runs == nil {
		return nil, ErrNotConfigured
	}
	return s.deps.Runs.Paginate(ctx, tenant, id, page, pageSize)
}
