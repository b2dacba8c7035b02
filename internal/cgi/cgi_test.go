package cgi

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "script")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestEnvGET(t *testing.T) {
	env := Env(Invocation{
		Program:    "./cgi-bin/adder",
		ScriptName: "/cgi-bin/adder",
		Args:       "first=3&second=4",
		Method:     "GET",
		Protocol:   "HTTP/1.0",
	})

	assert.Equal(t, "first=3&second=4", env[EnvQueryString])
	assert.Equal(t, "GET", env[EnvRequestMethod])
	assert.Equal(t, "/cgi-bin/adder", env[EnvScriptName])
	assert.Equal(t, "HTTP/1.0", env[EnvServerProtocol])
	assert.NotContains(t, env, EnvContentLength)
	assert.NotContains(t, env, EnvRemoteAddr)
}

func TestEnvPOST(t *testing.T) {
	env := Env(Invocation{Args: "first=1&second=2", Method: "POST"})

	assert.Equal(t, "first=1&second=2", env[EnvQueryString])
	assert.Equal(t, "16", env[EnvContentLength])
}

func TestEnvironOverrides(t *testing.T) {
	base := []string{"PATH=/bin", "QUERY_STRING=stale", "HOME=/root"}
	got := environ(base, map[string]string{
		EnvQueryString:   "a=1",
		EnvRequestMethod: "GET",
	})

	assert.Equal(t, []string{"PATH=/bin", "HOME=/root", "QUERY_STRING=a=1", "REQUEST_METHOD=GET"}, got)
}

func TestStartRelaysOutput(t *testing.T) {
	script := writeScript(t, `printf 'Content-Type: text/plain\r\n\r\n'
printf '%s %s %s' "$REQUEST_METHOD" "$QUERY_STRING" "$#"
`)
	runner := NewRunner(5*time.Second, zerolog.Nop())

	p, err := runner.Start(context.Background(), Invocation{
		Program: script,
		Args:    "x=1",
		Method:  "GET",
	})
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = io.Copy(&out, p.Output())
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	assert.Equal(t, "Content-Type: text/plain\r\n\r\nGET x=1 0", out.String())
	assert.Equal(t, 0, runner.Reaper().Active())
}

func TestStartInheritsEnvironment(t *testing.T) {
	t.Setenv("TINY_TEST_MARKER", "inherited")
	script := writeScript(t, `printf '%s' "$TINY_TEST_MARKER"`)
	runner := NewRunner(5*time.Second, zerolog.Nop())

	p, err := runner.Start(context.Background(), Invocation{Program: script, Method: "GET"})
	require.NoError(t, err)

	var out bytes.Buffer
	_, err = io.Copy(&out, p.Output())
	require.NoError(t, err)
	require.NoError(t, p.Wait())
	assert.Equal(t, "inherited", out.String())
}

func TestStartMissingProgram(t *testing.T) {
	runner := NewRunner(time.Second, zerolog.Nop())

	_, err := runner.Start(context.Background(), Invocation{
		Program: filepath.Join(t.TempDir(), "nope"),
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStart)
	assert.Equal(t, 0, runner.Reaper().Active())
}

func TestStartUnrunnableProgram(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken")
	require.NoError(t, os.WriteFile(path, []byte("\x00\x01garbage"), 0o755))
	runner := NewRunner(time.Second, zerolog.Nop())

	_, err := runner.Start(context.Background(), Invocation{Program: path})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStart)
	assert.Equal(t, 0, runner.Reaper().Active())
}

func TestKillEndsOutput(t *testing.T) {
	script := writeScript(t, "printf 'partial'\nexec sleep 10\n")
	runner := NewRunner(time.Minute, zerolog.Nop())

	p, err := runner.Start(context.Background(), Invocation{Program: script})
	require.NoError(t, err)

	buf := make([]byte, len("partial"))
	_, err = io.ReadFull(p.Output(), buf)
	require.NoError(t, err)
	assert.Equal(t, "partial", string(buf))

	require.NoError(t, p.Kill())
	rest, err := io.ReadAll(p.Output())
	require.NoError(t, err)
	assert.Empty(t, rest)
	assert.Error(t, p.Wait())
}

func TestTimeoutKillsProgram(t *testing.T) {
	script := writeScript(t, "exec sleep 10\n")
	runner := NewRunner(100*time.Millisecond, zerolog.Nop())

	start := time.Now()
	p, err := runner.Start(context.Background(), Invocation{Program: script})
	require.NoError(t, err)

	err = p.Wait()
	require.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestReaperKillAll(t *testing.T) {
	script := writeScript(t, "exec sleep 10\n")
	runner := NewRunner(time.Minute, zerolog.Nop())

	p, err := runner.Start(context.Background(), Invocation{Program: script})
	require.NoError(t, err)
	assert.Equal(t, 1, runner.Reaper().Active())

	assert.Equal(t, 1, runner.Reaper().KillAll())

	select {
	case <-p.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("process was not reaped after kill")
	}
	assert.Equal(t, 0, runner.Reaper().Active())
}

func TestStderrGoesToLog(t *testing.T) {
	script := writeScript(t, "echo oops >&2\n")
	logs := &syncBuffer{}
	runner := NewRunner(5*time.Second, zerolog.New(logs))

	p, err := runner.Start(context.Background(), Invocation{Program: script})
	require.NoError(t, err)
	require.NoError(t, p.Wait())

	assert.True(t, strings.Contains(logs.String(), "oops"))
}

// syncBuffer is written by the stderr copier and the reaper concurrently
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
