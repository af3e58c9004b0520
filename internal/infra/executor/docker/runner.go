// Package docker runs analysis snippets in throwaway python containers.
// One container per request; the harness reads the request from stdin and
// writes a single JSON response line to stdout.
package docker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
)

var ErrTransportClosed = errors.New("docker transport closed")

const harness = `
import json, math, sys

def _plain(v):
    try:
        import numpy as np
        if isinstance(v, np.generic):
            return v.item()
        if isinstance(v, np.ndarray):
            return v.tolist()
    except ImportError:
        pass
    try:
        import pandas as pd
        if isinstance(v, pd.DataFrame):
            return {"columns": [str(c) for c in v.columns], "values": json.loads(v.to_json(orient="values", date_format="iso"))}
        if isinstance(v, pd.Series):
            return json.loads(v.to_json(date_format="iso"))
        if isinstance(v, pd.Timestamp):
            return v.isoformat()
    except ImportError:
        pass
    return str(v)

def _finite(v):
    if isinstance(v, float):
        return v if math.isfinite(v) else None
    if isinstance(v, dict):
        return {k: _finite(x) for k, x in v.items()}
    if isinstance(v, list):
        return [_finite(x) for x in v]
    return v

msg = json.load(sys.stdin)
out = {"id": msg.get("id")}
scope = dict(msg.get("context") or {})
scope["data"] = msg.get("data") or {}
try:
    exec(msg["code"], scope)
    out["result"] = _finite(json.loads(json.dumps(scope.get("result"), default=_plain)))
except Exception as e:
    out["error"] = "%s: %s" % (type(e).__name__, e)
try:
    line = json.dumps(out, allow_nan=False)
except ValueError as e:
    line = json.dumps({"id": out["id"], "error": "result is not valid JSON: %s" % e})
sys.stdout.write("\n" + line + "\n")
`

type Options struct {
	Image       string
	Timeout     time.Duration
	Memory      string
	Network     bool
	Concurrency int
}

type Runner struct {
	opts   Options
	logger *zap.Logger

	// command builds the process for one request; replaced in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd

	responses chan analysis.Response
	sem       chan struct{}
	done      chan struct{}
	wg        sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewRunner(opts Options, logger *zap.Logger) *Runner {
	if opts.Image == "" {
		opts.Image = "roundtable-sandbox:latest"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Memory == "" {
		opts.Memory = "512m"
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		opts:      opts,
		logger:    logger,
		command:   exec.CommandContext,
		responses: make(chan analysis.Response, opts.Concurrency),
		sem:       make(chan struct{}, opts.Concurrency),
		done:      make(chan struct{}),
	}
}

func (r *Runner) Responses() <-chan analysis.Response { return r.responses }

// Post starts a container for req. The response arrives on Responses().
func (r *Runner) Post(ctx context.Context, req analysis.Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("encode sandbox request: %w", err)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return ErrTransportClosed
	}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		resp := r.run(ctx, req.ID, payload)
		r.deliver(ctx, resp)
	}()
	return nil
}

func (r *Runner) deliver(ctx context.Context, resp analysis.Response) {
	select {
	case r.responses <- resp:
	case <-ctx.Done():
		// caller sudah pergi, response dibuang
	case <-r.done:
	}
}

func (r *Runner) run(ctx context.Context, id string, payload []byte) analysis.Response {
	select {
	case r.sem <- struct{}{}:
		defer func() { <-r.sem }()
	case <-ctx.Done():
		return analysis.Response{ID: id, Error: ctx.Err().Error()}
	}

	runCtx, cancel := context.WithTimeout(ctx, r.opts.Timeout)
	defer cancel()

	start := time.Now()
	cmd := r.command(runCtx, "docker", r.args()...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	r.logger.Debug("sandbox container finished",
		zap.String("id", id),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)
	if runCtx.Err() == context.DeadlineExceeded {
		return analysis.Response{ID: id, Error: fmt.Sprintf("execution timed out after %s", r.opts.Timeout)}
	}
	if resp, ok := parseOutput(id, stdout.Bytes()); ok {
		return resp
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return analysis.Response{ID: id, Error: "sandbox failed: " + msg}
	}
	return analysis.Response{ID: id, Error: "sandbox produced no result"}
}

func (r *Runner) args() []string {
	args := []string{"run", "--rm", "-i",
		"--memory", r.opts.Memory,
		"--pids-limit", "128",
		"--read-only",
		"--tmpfs", "/tmp",
	}
	if !r.opts.Network {
		args = append(args, "--network", "none")
	}
	return append(args, r.opts.Image, "python", "-c", harness)
}

// parseOutput reads the last JSON line of stdout. Snippets may print freely,
// only the harness line counts.
func parseOutput(id string, stdout []byte) (analysis.Response, bool) {
	lines := strings.Split(strings.TrimSpace(string(stdout)), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var resp analysis.Response
		if err := json.Unmarshal([]byte(line), &resp); err != nil {
			continue
		}
		if resp.ID != id {
			continue
		}
		return resp, true
	}
	return analysis.Response{}, false
}

// Ping checks that the docker daemon answers and the sandbox image exists.
func (r *Runner) Ping(ctx context.Context) error {
	var stderr bytes.Buffer
	cmd := r.command(ctx, "docker", "image", "inspect", "--format", "{{.Id}}", r.opts.Image)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return fmt.Errorf("sandbox image %s: %s", r.opts.Image, msg)
	}
	return nil
}

// Close waits for running containers and closes Responses().
func (r *Runner) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	close(r.done)
	r.mu.Unlock()

	r.wg.Wait()
	close(r.responses)
	return nil
}
