package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/bryanwahyu/roundtable/internal/application/roundtable"
	"github.com/bryanwahyu/roundtable/internal/domain/ai"
	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/domain/conversation"
	"github.com/bryanwahyu/roundtable/internal/domain/documents"
	"github.com/bryanwahyu/roundtable/internal/domain/session"
	"github.com/bryanwahyu/roundtable/internal/domain/turnerrors"
	"github.com/bryanwahyu/roundtable/internal/middleware"
)

// Sessions is the use-case surface the router drives.
type Sessions interface {
	CreateSession(ctx context.Context, tenant string) (*session.State, error)
	GetSession(ctx context.Context, tenant, id string) (*session.State, error)
	DeleteSession(ctx context.Context, tenant, id string) error
	AddDocument(ctx context.Context, tenant, id, filename, contentType string, data []byte) (*documents.Document, error)
	Ask(ctx context.Context, q roundtable.Question) (*roundtable.TurnResult, error)
	AskRelated(ctx context.Context, tenant, id, nodeText string) (*roundtable.TurnResult, error)
	Transcript(ctx context.Context, tenant, id string, page, pageSize int) ([]*conversation.ArchivedTurn, error)
	TurnErrors(ctx context.Context, tenant, id string, limit int) ([]*turnerrors.TurnError, error)
	AnalysisRuns(ctx context.Context, tenant, id string, page, pageSize int) ([]*analysis.Run, error)
}

type Options struct {
	APIKeys        map[string]string
	CORSOrigins    []string
	RateLimiter    *middleware.RateLimiter
	Checkers       map[string]middleware.HealthChecker
	MaxUploadBytes int64
}

type Router struct {
	svc       Sessions
	logger    *zap.Logger
	maxUpload int64
}

// badRequest marks malformed input caught by the handlers.
type badRequest struct{ msg string }

func (e badRequest) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return badRequest{msg: fmt.Sprintf(format, args...)}
}

func NewRouter(svc Sessions, opts Options, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Router{svc: svc, logger: logger, maxUpload: opts.MaxUploadBytes}
	if r.maxUpload <= 0 {
		r.maxUpload = 20 << 20
	}

	mux := chi.NewRouter()
	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(chimw.Recoverer)
	mux.Use(middleware.LoggingMiddleware(logger))
	mux.Use(middleware.MetricsMiddleware)
	if len(opts.CORSOrigins) > 0 {
		mux.Use(cors.Handler(cors.Options{
			AllowedOrigins: opts.CORSOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         300,
		}))
	}
	mux.Use(middleware.APIKeyAuth(opts.APIKeys))
	if opts.RateLimiter != nil {
		mux.Use(opts.RateLimiter.Middleware)
	}

	mux.Get("/health", middleware.HealthHandler(opts.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler(opts.Checkers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", middleware.MetricsHandler())

	mux.Route("/v1/{tenant}", func(rt chi.Router) {
		rt.Use(middleware.RequireValidTenant)
		rt.Post("/sessions", r.wrap(r.handleCreate))
		rt.Route("/sessions/{id}", func(rs chi.Router) {
			rs.Get("/", r.wrap(r.handleGet))
			rs.Delete("/", r.wrap(r.handleDelete))
			rs.Post("/documents", r.wrap(r.handleUpload))
			rs.Post("/questions", r.wrap(r.handleAsk))
			rs.Post("/related-question", r.wrap(r.handleRelated))
			rs.Get("/transcript", r.wrap(r.handleTranscript))
			rs.Get("/errors", r.wrap(r.handleTurnErrors))
			rs.Get("/analyses", r.wrap(r.handleAnalyses))
		})
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			status := statusFor(err)
			if status >= 500 {
				r.logger.Error("request failed",
					zap.String("path", req.URL.Path),
					zap.Int("status", status),
					zap.Error(err))
			}
			middleware.WriteError(w, status, err.Error())
		}
	}
}

func statusFor(err error) int {
	var verr *roundtable.ValidationError
	var gerr *ai.GatewayError
	var bad badRequest
	switch {
	case errors.As(err, &bad), errors.As(err, &verr), errors.Is(err, roundtable.ErrUnsupportedDocument):
		return http.StatusBadRequest
	case errors.Is(err, session.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, roundtable.ErrTurnSuperseded), errors.Is(err, context.Canceled):
		return http.StatusConflict
	case errors.Is(err, ai.ErrQuotaExceeded):
		return http.StatusTooManyRequests
	case errors.Is(err, roundtable.ErrNotConfigured):
		return http.StatusNotImplemented
	case errors.Is(err, roundtable.ErrAnalysisFailed), errors.As(err, &gerr), errors.Is(err, ai.ErrEmptyResponse):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

// sessionParams returns tenant and a validated session id.
func sessionParams(req *http.Request) (string, string, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateSessionID(id); err != nil {
		return "", "", badRequest{msg: err.Error()}
	}
	return chi.URLParam(req, "tenant"), id, nil
}

func decode(req *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(req.Body, 1<<20)).Decode(v); err != nil {
		return invalidf("invalid JSON body: %v", err)
	}
	return nil
}

func queryInt(req *http.Request, key string) int {
	n, _ := strconv.Atoi(req.URL.Query().Get(key))
	return n
}

// POST /v1/{tenant}/sessions
func (r *Router) handleCreate(w http.ResponseWriter, req *http.Request) error {
	st, err := r.svc.CreateSession(req.Context(), chi.URLParam(req, "tenant"))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusCreated, st)
	return nil
}

// GET /v1/{tenant}/sessions/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	st, err := r.svc.GetSession(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, st)
	return nil
}

// DELETE /v1/{tenant}/sessions/{id}
func (r *Router) handleDelete(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	if err := r.svc.DeleteSession(req.Context(), tenant, id); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// POST /v1/{tenant}/sessions/{id}/documents (multipart "file")
func (r *Router) handleUpload(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	req.Body = http.MaxBytesReader(w, req.Body, r.maxUpload)
	if err := req.ParseMultipartForm(r.maxUpload); err != nil {
		return invalidf("invalid upload: %v", err)
	}
	file, hdr, err := req.FormFile("file")
	if err != nil {
		return invalidf("missing multipart field \"file\"")
	}
	defer file.Close()

	if err := middleware.ValidateFilename(hdr.Filename); err != nil {
		return badRequest{msg: err.Error()}
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return invalidf("read upload: %v", err)
	}

	doc, err := r.svc.AddDocument(req.Context(), tenant, id, hdr.Filename, hdr.Header.Get("Content-Type"), data)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusCreated, doc)
	return nil
}

// POST /v1/{tenant}/sessions/{id}/questions
// Body: {"question": "...", "follow_up": false}
func (r *Router) handleAsk(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	var body struct {
		Question string `json:"question"`
		FollowUp bool   `json:"follow_up"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	q, err := middleware.ValidateQuestion(body.Question)
	if err != nil {
		return badRequest{msg: err.Error()}
	}

	res, err := r.svc.Ask(req.Context(), roundtable.Question{
		TenantID:  tenant,
		SessionID: id,
		Text:      q,
		FollowUp:  body.FollowUp,
	})
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, res)
	return nil
}

// POST /v1/{tenant}/sessions/{id}/related-question
// Body: {"node_text": "..."}
func (r *Router) handleRelated(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	var body struct {
		NodeText string `json:"node_text"`
	}
	if err := decode(req, &body); err != nil {
		return err
	}
	node, err := middleware.ValidateNodeText(body.NodeText)
	if err != nil {
		return badRequest{msg: err.Error()}
	}

	res, err := r.svc.AskRelated(req.Context(), tenant, id, node)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, res)
	return nil
}

// GET /v1/{tenant}/sessions/{id}/transcript?page=&page_size=
func (r *Router) handleTranscript(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	page := middleware.ValidatePage(queryInt(req, "page"))
	size := middleware.ValidateLimit(queryInt(req, "page_size"))

	list, err := r.svc.Transcript(req.Context(), tenant, id, page, size)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/sessions/{id}/errors?limit=
func (r *Router) handleTurnErrors(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	list, err := r.svc.TurnErrors(req.Context(), tenant, id, middleware.ValidateLimit(queryInt(req, "limit")))
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, list)
	return nil
}

// GET /v1/{tenant}/sessions/{id}/analyses?page=&page_size=
func (r *Router) handleAnalyses(w http.ResponseWriter, req *http.Request) error {
	tenant, id, err := sessionParams(req)
	if err != nil {
		return err
	}
	page := middleware.ValidatePage(queryInt(req, "page"))
	size := middleware.ValidateLimit(queryInt(req, "page_size"))

	list, err := r.svc.AnalysisRuns(req.Context(), tenant, id, page, size)
	if err != nil {
		return err
	}
	middleware.WriteJSON(w, http.StatusOK, list)
	return nil
}
