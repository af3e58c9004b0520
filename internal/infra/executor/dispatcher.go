// Package executor turns a message-passing sandbox transport into a
// request/response call. Every request gets a unique id; the response with
// the same id resolves it. Several ids may be outstanding at once.
package executor

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
	"github.com/bryanwahyu/roundtable/internal/metrics"
)

var ErrClosed = errors.New("sandbox dispatcher closed")

// Transport posts requests to a worker and delivers its responses.
// Responses() is closed when the worker stops.
type Transport interface {
	Post(ctx context.Context, req analysis.Request) error
	Responses() <-chan analysis.Response
	Close() error
}

type Dispatcher struct {
	transport Transport
	logger    *zap.Logger
	newID     func() string

	mu      sync.Mutex
	pending map[string]chan analysis.Response

	stop     chan struct{}
	stopped  chan struct{}
	stopOnce sync.Once
}

func NewDispatcher(t Transport, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{
		transport: t,
		logger:    logger,
		newID:     func() string { return uuid.New().String() },
		pending:   make(map[string]chan analysis.Response),
		stop:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.stopped)
	for {
		select {
		case resp, ok := <-d.transport.Responses():
			if !ok {
				return
			}
			d.resolve(resp)
		case <-d.stop:
			return
		}
	}
}

func (d *Dispatcher) resolve(resp analysis.Response) {
	d.mu.Lock()
	ch, ok := d.pending[resp.ID]
	delete(d.pending, resp.ID)
	d.mu.Unlock()
	if !ok {
		d.logger.Warn("dropping sandbox response with unknown id", zap.String("id", resp.ID))
		return
	}
	ch <- resp
}

// Execute implements analysis.Executor.
func (d *Dispatcher) Execute(ctx context.Context, code string, data any, execCtx map[string]any) (any, error) {
	select {
	case <-d.stopped:
		return nil, ErrClosed
	default:
	}
	if execCtx == nil {
		execCtx = map[string]any{}
	}

	id := d.newID()
	ch := make(chan analysis.Response, 1)
	d.mu.Lock()
	d.pending[id] = ch
	d.mu.Unlock()
	metrics.SandboxPending.Inc()
	defer func() {
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
		metrics.SandboxPending.Dec()
	}()

	if err := d.transport.Post(ctx, analysis.Request{ID: id, Code: code, Data: data, Context: execCtx}); err != nil {
		metrics.SandboxExecutions.WithLabelValues("post_error").Inc()
		return nil, err
	}

	select {
	case resp := <-ch:
		if resp.Error != "" {
			metrics.SandboxExecutions.WithLabelValues("exec_error").Inc()
			return nil, &analysis.ExecError{ID: id, Message: resp.Error}
		}
		metrics.SandboxExecutions.WithLabelValues("ok").Inc()
		return resp.Result, nil
	case <-ctx.Done():
		metrics.SandboxExecutions.WithLabelValues("cancelled").Inc()
		return nil, ctx.Err()
	case <-d.stopped:
		return nil, ErrClosed
	}
}

// Pending returns the number of outstanding request ids.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

func (d *Dispatcher) Close() error {
	var err error
	d.stopOnce.Do(func() {
		close(d.stop)
		<-d.stopped
		err = d.transport.Close()
	})
	return err
}
