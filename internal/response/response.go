package response

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/Brownie44l1/tinyserver/internal/headers"
	"github.com/Brownie44l1/tinyserver/internal/rio"
)

const (
	// Protocol is the only version this server speaks.
	Protocol = "HTTP/1.0"
	// ServerName is sent in the Server header.
	ServerName = "Tiny Web Server"
)

var (
	ErrStatusWritten  = errors.New("status line already written")
	ErrNoStatus       = errors.New("must write status line before headers")
	ErrNoHeaders      = errors.New("must write headers before body")
	ErrHeadersWritten = errors.New("headers already written")
)

// writerState tracks what's been written so far
type writerState int

const (
	stateStart writerState = iota
	stateStatusWritten
	stateHeadersWritten
	stateBodyWritten
)

// Writer writes one HTTP/1.0 response. Status line, headers and body go out
// strictly in that order; nothing is retried once written.
type Writer struct {
	w             *rio.Writer
	state         writerState
	statusCode    StatusCode
	contentLength int64 // -1 means unknown
	bodyBytes     int64
	hadError      bool
}

// NewWriter creates a new response writer
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		w:             rio.NewWriter(w),
		state:         stateStart,
		contentLength: -1,
	}
}

// WriteStatusLine writes the status line with the standard reason phrase
func (w *Writer) WriteStatusLine(code StatusCode) error {
	return w.writeStatus(code, StatusText(code))
}

func (w *Writer) writeStatus(code StatusCode, reason string) error {
	if w.state != stateStart {
		return ErrStatusWritten
	}

	line := fmt.Sprintf("%s %d %s\r\n", Protocol, code, reason)
	if err := w.write([]byte(line)); err != nil {
		return err
	}

	w.statusCode = code
	w.state = stateStatusWritten
	return nil
}

// WriteHeaders writes h in insertion order followed by the blank line
func (w *Writer) WriteHeaders(h *headers.Headers) error {
	switch w.state {
	case stateStart:
		return ErrNoStatus
	case stateHeadersWritten, stateBodyWritten:
		return ErrHeadersWritten
	}

	if cl, ok := h.Get("content-length"); ok {
		if length, err := strconv.ParseInt(cl, 10, 64); err == nil {
			w.contentLength = length
		}
	}

	var buf bytes.Buffer
	h.Each(func(name, value string) {
		fmt.Fprintf(&buf, "%s: %s\r\n", name, value)
	})
	buf.WriteString("\r\n")

	if err := w.write(buf.Bytes()); err != nil {
		return err
	}

	w.state = stateHeadersWritten
	return nil
}

// WriteBody writes the complete response body
func (w *Writer) WriteBody(data []byte) error {
	if w.state != stateHeadersWritten {
		return ErrNoHeaders
	}

	if err := w.write(data); err != nil {
		return err
	}

	w.bodyBytes += int64(len(data))
	w.state = stateBodyWritten
	return nil
}

// WriteFrom streams r as the body in one bulk transfer.
func (w *Writer) WriteFrom(r io.Reader) (int64, error) {
	if w.state != stateHeadersWritten {
		return 0, ErrNoHeaders
	}

	n, err := w.w.ReadFrom(r)
	w.bodyBytes += n
	if err != nil {
		w.hadError = true
		return n, err
	}

	w.state = stateBodyWritten
	return n, nil
}

// WritePreamble starts a response whose remaining headers and body come
// from another producer: the 200 status line and the Server header, without
// the blank line that ends the header block.
func (w *Writer) WritePreamble() error {
	if err := w.WriteStatusLine(StatusOK); err != nil {
		return err
	}
	if err := w.write([]byte("Server: " + ServerName + "\r\n")); err != nil {
		return err
	}
	w.state = stateHeadersWritten
	return nil
}

func (w *Writer) write(p []byte) error {
	if _, err := w.w.Write(p); err != nil {
		w.hadError = true
		return err
	}
	return nil
}

// StaticHeaders returns the header block for a file of size bytes.
func StaticHeaders(size int64, contentType string) *headers.Headers {
	h := headers.NewHeaders()
	h.Set("Server", ServerName)
	h.Set("Connection", "close")
	h.Set("Content-Length", strconv.FormatInt(size, 10))
	h.Set("Content-Type", contentType)
	return h
}

// State tracking methods for logging and metrics

// Started reports whether any byte of the response was written.
func (w *Writer) Started() bool {
	return w.state != stateStart
}

// HadError reports whether a write to the connection failed part way.
func (w *Writer) HadError() bool {
	return w.hadError
}

func (w *Writer) StatusCode() StatusCode {
	return w.statusCode
}

func (w *Writer) ContentLength() int64 {
	return w.contentLength
}

func (w *Writer) BodyBytes() int64 {
	return w.bodyBytes
}
