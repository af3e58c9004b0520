package docker

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bryanwahyu/roundtable/internal/domain/analysis"
)

func TestParseOutputSkipsSnippetPrints(t *testing.T) {
	out := []byte("hello from snippet\n{\"not\":\"ours\"}\n\n{\"id\":\"r1\",\"result\":{\"total\":3}}\n")

	resp, ok := parseOutput("r1", out)
	require.True(t, ok)
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, map[string]any{"total": float64(3)}, resp.Result)
}

func TestParseOutputWrongID(t *testing.T) {
	_, ok := parseOutput("r1", []byte(`{"id":"r2","result":1}`))
	assert.False(t, ok)

	_, ok = parseOutput("r1", []byte("Traceback (most recent call last):"))
	assert.False(t, ok)
}

func TestArgsDisableNetworkByDefault(t *testing.T) {
	r := NewRunner(Options{Image: "img:1"}, nil)
	args := r.args()

	assert.Contains(t, args, "none")
	assert.Contains(t, args, "img:1")
	assert.Equal(t, "-c", args[len(args)-2])

	r = NewRunner(Options{Image: "img:1", Network: true}, nil)
	assert.NotContains(t, r.args(), "none")
}

func TestRunnerDeliversResponse(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := NewRunner(Options{Timeout: 5 * time.Second}, nil)
	r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", `cat >/dev/null; echo '{"id":"abc","result":[1,2]}'`)
	}
	defer r.Close()

	require.NoError(t, r.Post(context.Background(), analysis.Request{ID: "abc", Code: "result = 1"}))

	select {
	case resp := <-r.Responses():
		assert.Equal(t, "abc", resp.ID)
		assert.Empty(t, resp.Error)
		assert.Equal(t, []any{float64(1), float64(2)}, resp.Result)
	case <-time.After(5 * time.Second):
		t.Fatal("no response")
	}
}

func TestRunnerReportsStderrOnFailure(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := NewRunner(Options{Timeout: 5 * time.Second}, nil)
	r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", `cat >/dev/null; echo 'no such image' >&2; exit 125`)
	}
	defer r.Close()

	require.NoError(t, r.Post(context.Background(), analysis.Request{ID: "x"}))
	resp := <-r.Responses()
	assert.Equal(t, "x", resp.ID)
	assert.Contains(t, resp.Error, "no such image")
}

func TestPostAfterClose(t *testing.T) {
	r := NewRunner(Options{}, nil)
	require.NoError(t, r.Close())
	assert.ErrorIs(t, r.Post(context.Background(), analysis.Request{ID: "x"}), ErrTransportClosed)

	_, open := <-r.Responses()
	assert.False(t, open)
}

func TestPing(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	r := NewRunner(Options{Image: "img:1"}, nil)
	defer r.Close()

	var got []string
	r.command = func(ctx context.Context, name string, args ...string) *exec.Cmd {
		got = append([]string{name}, args...)
		return exec.CommandContext(ctx, "sh", "-c", "exit 0")
	}
	require.NoError(t, r.Ping(context.Background()))
	assert.Equal(t, []string{"docker", "image", "inspect", "--format", "{{.Id}}", "img:1"}, got)

	r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "sh", "-c", "echo 'No such image: img:1' >&2; exit 1")
	}
	err := r.Ping(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such image")
}

func TestHarnessTurnsNonFiniteFloatsIntoNull(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	r := NewRunner(Options{Timeout: 20 * time.Second}, nil)
	r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "python3", "-c", harness)
	}
	defer r.Close()

	code := "result = {'average_duration_days': float('nan'), 'count': 0, 'spread': [1.5, float('inf'), -float('inf')]}"
	require.NoError(t, r.Post(context.Background(), analysis.Request{ID: "nan-1", Code: code}))

	select {
	case resp := <-r.Responses():
		assert.Equal(t, "nan-1", resp.ID)
		assert.Empty(t, resp.Error)
		assert.Equal(t, map[string]any{
			"average_duration_days": nil,
			"count":                 float64(0),
			"spread":                []any{1.5, nil, nil},
		}, resp.Result)
	case <-time.After(20 * time.Second):
		t.Fatal("no response")
	}
}

func TestHarnessReportsSnippetError(t *testing.T) {
	if _, err := exec.LookPath("python3"); err != nil {
		t.Skip("python3 not available")
	}
	r := NewRunner(Options{Timeout: 20 * time.Second}, nil)
	r.command = func(ctx context.Context, _ string, _ ...string) *exec.Cmd {
		return exec.CommandContext(ctx, "python3", "-c", harness)
	}
	defer r.Close()

	require.NoError(t, r.Post(context.Background(), analysis.Request{ID: "e-1", Code: "print('noise')\nresult = df.mean()"}))
	resp := <-r.Responses()
	assert.Equal(t, "e-1", resp.ID)
	assert.Nil(t, resp.Result)
	assert.Equal(t, "NameError: name 'df' is not defined", resp.Error)
}
