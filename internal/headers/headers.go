package headers

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrMalformedHeader = errors.New("malformed header")
	ErrLineFolding     = errors.New("obsolete line folding not supported")
)

type field struct {
	name   string
	values []string
}

// Headers is a case-insensitive header block that remembers insertion order,
// so a response emits its headers in the order they were set.
type Headers struct {
	index  map[string]int
	fields []field
}

func NewHeaders() *Headers {
	return &Headers{
		index: make(map[string]int),
	}
}

// Get returns the first value for a header
func (h *Headers) Get(key string) (string, bool) {
	i, ok := h.index[strings.ToLower(key)]
	if !ok || len(h.fields[i].values) == 0 {
		return "", false
	}
	return h.fields[i].values[0], true
}

// GetAll returns all values for a header
func (h *Headers) GetAll(key string) []string {
	i, ok := h.index[strings.ToLower(key)]
	if !ok {
		return nil
	}
	return h.fields[i].values
}

// Set replaces all values for a header. A header that already exists keeps
// its position.
func (h *Headers) Set(key, value string) {
	lower := strings.ToLower(key)
	if i, ok := h.index[lower]; ok {
		h.fields[i].values = []string{value}
		return
	}
	h.index[lower] = len(h.fields)
	h.fields = append(h.fields, field{name: key, values: []string{value}})
}

// Add appends a value to a header
func (h *Headers) Add(key, value string) {
	lower := strings.ToLower(key)
	if i, ok := h.index[lower]; ok {
		h.fields[i].values = append(h.fields[i].values, value)
		return
	}
	h.index[lower] = len(h.fields)
	h.fields = append(h.fields, field{name: key, values: []string{value}})
}

// Del removes a header
func (h *Headers) Del(key string) {
	lower := strings.ToLower(key)
	i, ok := h.index[lower]
	if !ok {
		return
	}
	h.fields = append(h.fields[:i], h.fields[i+1:]...)
	delete(h.index, lower)
	for j := i; j < len(h.fields); j++ {
		h.index[strings.ToLower(h.fields[j].name)] = j
	}
}

// Len returns the number of distinct header names.
func (h *Headers) Len() int {
	return len(h.fields)
}

// Each calls fn for every value in insertion order, using the name as it
// was first set.
func (h *Headers) Each(fn func(name, value string)) {
	for _, f := range h.fields {
		for _, v := range f.values {
			fn(f.name, v)
		}
	}
}

// ParseLine parses a single "Name: Value" header line. The trailing line
// terminator is optional.
func ParseLine(line []byte) (string, string, error) {
	line = bytes.TrimRight(line, "\r\n")
	if len(line) == 0 {
		return "", "", fmt.Errorf("%w: empty line", ErrMalformedHeader)
	}

	if line[0] == ' ' || line[0] == '\t' {
		return "", "", ErrLineFolding
	}

	colonIdx := bytes.IndexByte(line, ':')
	if colonIdx == -1 {
		return "", "", fmt.Errorf("%w: no colon", ErrMalformedHeader)
	}

	name := line[:colonIdx]
	value := line[colonIdx+1:]

	if len(name) == 0 {
		return "", "", fmt.Errorf("%w: empty name", ErrMalformedHeader)
	}

	if bytes.ContainsAny(name, " \t") {
		return "", "", fmt.Errorf("%w: whitespace in name", ErrMalformedHeader)
	}

	for _, b := range name {
		if !isValidHeaderChar(b) {
			return "", "", fmt.Errorf("%w: invalid character in name: %c", ErrMalformedHeader, b)
		}
	}

	return string(name), string(bytes.TrimSpace(value)), nil
}

func isValidHeaderChar(b byte) bool {
	return (b >= 'A' && b <= 'Z') ||
		(b >= 'a' && b <= 'z') ||
		(b >= '0' && b <= '9') ||
		b == '!' || b == '#' || b == '$' || b == '%' || b == '&' ||
		b == '\'' || b == '*' || b == '+' || b == '-' || b == '.' ||
		b == '^' || b == '_' || b == '`' || b == '|' || b == '~'
}
