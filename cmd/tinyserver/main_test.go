package main

import (
	"bytes"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunUsage(t *testing.T) {
	var stderr bytes.Buffer

	code := run(nil, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "usage: tinyserver [flags] <port>")

	stderr.Reset()
	code = run([]string{"8080", "extra"}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "usage:")
}

func TestRunInvalidPort(t *testing.T) {
	var stderr bytes.Buffer

	code := run([]string{"http"}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), `invalid port "http"`)

	stderr.Reset()
	code = run([]string{"70000"}, &stderr)
	assert.Equal(t, 1, code)
}

func TestRunInvalidLogLevel(t *testing.T) {
	var stderr bytes.Buffer

	code := run([]string{"-log-level", "loud", "0"}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "loud")
}

func TestRunPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", ":0")
	require.NoError(t, err)
	defer ln.Close()

	port := ln.Addr().(*net.TCPAddr).Port
	var stderr bytes.Buffer

	code := run([]string{strconv.Itoa(port)}, &stderr)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr.String(), "cannot start server")
}
