package main

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderGET(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, "first=3&second=4", "GET")

	head, body, ok := strings.Cut(buf.String(), "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, body, "3 + 4 = 7")
	assert.Contains(t, head, "Content-Length: "+strconv.Itoa(len(body)))
	assert.Contains(t, head, "Content-Type: text/html")
}

func TestRenderHEAD(t *testing.T) {
	var buf bytes.Buffer
	render(&buf, "first=3&second=4", "HEAD")

	assert.True(t, strings.HasSuffix(buf.String(), "\r\n\r\n"))
	assert.NotContains(t, buf.String(), "3 + 4")
}

func TestOperands(t *testing.T) {
	first, second := operands("second=10&first=-2")
	assert.Equal(t, -2, first)
	assert.Equal(t, 10, second)

	first, second = operands("")
	assert.Equal(t, 0, first)
	assert.Equal(t, 0, second)

	first, second = operands("first=x&second=5")
	assert.Equal(t, 0, first)
	assert.Equal(t, 5, second)
}
