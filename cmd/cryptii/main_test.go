package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	cryptii "github.com/cryptii/cryptii-sub001"
	"github.com/cryptii/cryptii-sub001/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const caesarPipe = `{
	// shifts by three
	"items": [
		{"name": "text"},
		{"name": "caesar-cipher", "settings": {"shift": 3}},
		{"name": "text"},
	],
	/* plaintext */
	"content": "hello",
}`

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func execute(ctx context.Context, args ...string) (string, string, error) {
	var stdout, stderr syncBuffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	return stdout.String(), stderr.String(), err
}

func writePipe(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipe.jsonc")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestBricksCommand(t *testing.T) {
	out, _, err := execute(context.Background(), "bricks")
	require.NoError(t, err)
	names := strings.Fields(out)
	assert.Contains(t, names, "caesar-cipher")
	assert.Contains(t, names, "text")
	assert.IsNonDecreasing(t, names)
}

func TestRunCommand(t *testing.T) {
	path := writePipe(t, caesarPipe)
	ctx := context.Background()

	out, _, err := execute(ctx, "run", path)
	require.NoError(t, err)
	assert.Equal(t, "*[0] hello\n [1] khoor\n", out)

	out, _, err = execute(ctx, "run", path, "--content", "abc", "--bucket", "0")
	require.NoError(t, err)
	assert.Equal(t, "*[0] abc\n [1] def\n", out)

	out, _, err = execute(ctx, "run", path, "--content", "khoor", "--bucket", "1")
	require.NoError(t, err)
	assert.Equal(t, " [0] hello\n*[1] khoor\n", out)

	_, _, err = execute(ctx, "run", path, "--content", "x", "--bucket", "5")
	assert.ErrorIs(t, err, cryptii.ErrBucketOutOfRange)
}

func TestRunCommandTrace(t *testing.T) {
	out, _, err := execute(context.Background(), "run", writePipe(t, caesarPipe), "--trace")
	require.NoError(t, err)
	assert.Contains(t, out, "Runs:")
	assert.Contains(t, out, "caesar-cipher translate encode: committed")
	assert.Contains(t, out, `Chain(5 chars: "hello")`)
}

func TestRunCommandBinaryContent(t *testing.T) {
	path := writePipe(t, `{
		"items": [
			{"name": "text"},
			{"name": "hash", "settings": {"algorithm": "sha256"}},
			{"name": "bytes"},
		],
		"content": "abc",
	}`)
	out, _, err := execute(context.Background(), "run", path)
	require.NoError(t, err)
	assert.Contains(t, out, " [1] ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad\n")
}

func TestRunCommandRejectsBadFiles(t *testing.T) {
	ctx := context.Background()
	_, _, err := execute(ctx, "run", writePipe(t, `{"items": [], "content": "x"}`))
	assert.ErrorIs(t, err, cryptii.ErrInvalidPipeData)

	_, _, err = execute(ctx, "run", writePipe(t, `{"items": [{"name": "enigma"}], "content": "x"}`))
	assert.ErrorIs(t, err, cryptii.ErrInvalidPipeData)

	_, _, err = execute(ctx, "run", filepath.Join(t.TempDir(), "missing.jsonc"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, _, err = execute(ctx, "run")
	assert.Error(t, err)
}

func TestLogFlagsAreValidated(t *testing.T) {
	_, _, err := execute(context.Background(), "--log-format", "xml", "bricks")
	assert.Error(t, err)
}

func TestStoreCommands(t *testing.T) {
	t.Setenv("CRYPTII_STORE_DRIVER", "files")
	t.Setenv("CRYPTII_STORE_PATH", t.TempDir())
	ctx := context.Background()

	out, _, err := execute(ctx, "list")
	require.NoError(t, err)
	assert.Equal(t, "No pipes stored\n", out)

	out, stderr, err := execute(ctx, "save", writePipe(t, caesarPipe))
	require.NoError(t, err)
	id := strings.TrimSpace(out)
	assert.Contains(t, stderr, "pipe stored")

	out, _, err = execute(ctx, "list")
	require.NoError(t, err)
	assert.Contains(t, out, id)
	assert.Contains(t, out, "text > caesar-cipher > text")

	out, _, err = execute(ctx, "load", id, "--content", "abc", "--bucket", "0")
	require.NoError(t, err)
	assert.Equal(t, "*[0] abc\n [1] def\n", out)

	_, _, err = execute(ctx, "delete", id)
	require.NoError(t, err)
	_, _, err = execute(ctx, "load", id)
	assert.ErrorIs(t, err, store.ErrNotFound)
	_, _, err = execute(ctx, "delete", "not-an-id")
	assert.ErrorContains(t, err, "invalid pipe id")
}

func TestWatchCommand(t *testing.T) {
	path := writePipe(t, caesarPipe)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var stdout, stderr syncBuffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs([]string{"watch", path})
	done := make(chan error, 1)
	go func() { done <- root.ExecuteContext(ctx) }()

	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "[1] khoor")
	}, 5*time.Second, 10*time.Millisecond)

	updated := strings.Replace(caesarPipe, `"hello"`, `"abc"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.Eventually(t, func() bool {
		return strings.Contains(stdout.String(), "[1] def")
	}, 5*time.Second, 10*time.Millisecond)
	assert.Contains(t, stdout.String(), "changed")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
}
