package request

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Brownie44l1/tinyserver/internal/headers"
	"github.com/Brownie44l1/tinyserver/internal/rio"
)

const (
	MethodGet  = "GET"
	MethodHead = "HEAD"
	MethodPost = "POST"
)

// Size limits
const (
	DefaultMaxLineSize    = 1024    // request line and each header line
	DefaultMaxHeaderLines = 100     // header lines before the blank line
	DefaultMaxBodySize    = 1 << 20 // declared POST body length
)

var (
	ErrUnexpectedEOF    = errors.New("connection closed inside the header block")
	ErrTooManyHeaders   = errors.New("too many header lines")
	ErrBadContentLength = errors.New("invalid Content-Length")
	ErrBodyTooLarge     = errors.New("declared body exceeds maximum size")
)

const contentLengthPrefix = "content-length:"

// Request is one parsed HTTP/1.0 request.
type Request struct {
	Method        string // upper case, one of GET, HEAD, POST
	Target        string
	Version       string
	Headers       *headers.Headers
	ContentLength int64 // POST only, 0 otherwise
	Body          []byte
}

// Options bounds what Read accepts.
type Options struct {
	MaxLineSize    int
	MaxHeaderLines int
	MaxBodySize    int64
}

func DefaultOptions() Options {
	return Options{
		MaxLineSize:    DefaultMaxLineSize,
		MaxHeaderLines: DefaultMaxHeaderLines,
		MaxBodySize:    DefaultMaxBodySize,
	}
}

func (o Options) withDefaults() Options {
	if o.MaxLineSize <= 0 {
		o.MaxLineSize = DefaultMaxLineSize
	}
	if o.MaxHeaderLines <= 0 {
		o.MaxHeaderLines = DefaultMaxHeaderLines
	}
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = DefaultMaxBodySize
	}
	return o
}

func (r *Request) IsHead() bool {
	return r.Method == MethodHead
}

func (r *Request) IsPost() bool {
	return r.Method == MethodPost
}

// Read parses one request from r: the request line, the header block up to
// the first blank line and, for POST, a body of the declared length.
//
// An unsupported method stops parsing right after the request line and is
// reported as a *MethodError. A body cut short by the peer closing the
// stream is kept as received.
func Read(r *rio.Reader, opts Options) (*Request, error) {
	opts = opts.withDefaults()

	line, err := readLine(r, opts.MaxLineSize)
	if err != nil {
		if err == io.EOF {
			return nil, ErrNoRequest
		}
		return nil, fmt.Errorf("read request line: %w", err)
	}

	method, target, version, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	req := &Request{
		Method:  method,
		Target:  target,
		Version: version,
		Headers: headers.NewHeaders(),
	}

	if err := req.readHeaders(r, opts); err != nil {
		return nil, err
	}

	if req.ContentLength > 0 {
		body, err := r.ReadExact(int(req.ContentLength))
		if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
			return nil, fmt.Errorf("read body: %w", err)
		}
		req.Body = body
	}

	return req, nil
}

// readHeaders consumes header lines until a bare line terminator.
func (req *Request) readHeaders(r *rio.Reader, opts Options) error {
	count := 0
	for {
		line, err := readLine(r, opts.MaxLineSize)
		if err != nil {
			if err == io.EOF {
				return ErrUnexpectedEOF
			}
			return fmt.Errorf("read header: %w", err)
		}

		if isBlankLine(line) {
			return nil
		}

		count++
		if count > opts.MaxHeaderLines {
			return ErrTooManyHeaders
		}

		if req.Method == MethodPost && hasPrefixFold(line, contentLengthPrefix) {
			n, err := parseContentLength(line[len(contentLengthPrefix):], opts.MaxBodySize)
			if err != nil {
				return err
			}
			req.ContentLength = n
		}

		// Unparsable header lines are skipped, not fatal.
		if name, value, err := headers.ParseLine(line); err == nil {
			req.Headers.Add(name, value)
		}
	}
}

// readLine reads one line of at most maxLen bytes. The rest of a longer
// line is consumed and dropped so it is never taken for the next line.
func readLine(r *rio.Reader, maxLen int) ([]byte, error) {
	line, err := r.ReadLine(maxLen)
	if err != nil || len(line) < maxLen || line[len(line)-1] == '\n' {
		return line, err
	}

	for {
		rest, err := r.ReadLine(maxLen)
		if err == io.EOF {
			return line, nil
		}
		if err != nil {
			return nil, err
		}
		if rest[len(rest)-1] == '\n' {
			return line, nil
		}
	}
}

func parseContentLength(raw []byte, max int64) (int64, error) {
	value := strings.TrimSpace(string(raw))
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q", ErrBadContentLength, value)
	}
	if n > max {
		return 0, fmt.Errorf("%w: %d > %d", ErrBodyTooLarge, n, max)
	}
	return n, nil
}

func isBlankLine(line []byte) bool {
	return bytes.Equal(line, []byte("\r\n")) || bytes.Equal(line, []byte("\n"))
}

func hasPrefixFold(line []byte, prefix string) bool {
	return len(line) >= len(prefix) && strings.EqualFold(string(line[:len(prefix)]), prefix)
}
