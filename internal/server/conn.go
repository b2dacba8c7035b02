package server

import (
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"

	"github.com/Brownie44l1/tinyserver/internal/request"
	"github.com/Brownie44l1/tinyserver/internal/resource"
	"github.com/Brownie44l1/tinyserver/internal/response"
	"github.com/Brownie44l1/tinyserver/internal/rio"
)

// transaction is the state one worker owns for its single request.
type transaction struct {
	conn  net.Conn
	r     *rio.Reader
	w     *response.Writer
	req   *request.Request
	res   resource.Resource
	log   zerolog.Logger
	start time.Time
}

// serveConn runs one request/response transaction and closes the
// connection, whatever the exit path.
func (s *Server) serveConn(conn net.Conn) {
	defer s.workers.Done()
	defer conn.Close()

	s.metrics.ActiveConnections.Add(1)
	defer s.metrics.ActiveConnections.Add(-1)

	t := &transaction{
		conn:  conn,
		r:     rio.NewReader(conn),
		w:     response.NewWriter(conn),
		log:   s.Logger.With().Str("remote", conn.RemoteAddr().String()).Logger(),
		start: time.Now(),
	}
	defer t.r.Close()

	defer func() {
		if rec := recover(); rec != nil {
			t.log.Error().
				Interface("panic", rec).
				Str("stack", string(debug.Stack())).
				Msg("worker panic recovered")
			s.handle500(t)
		}
		s.finish(t)
	}()

	if s.cfg.ReadTimeout > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	}

	req, err := request.Read(t.r, s.cfg.requestOptions())
	if err != nil {
		s.handleReadError(t, err)
		return
	}
	t.req = req

	t.log.Debug().
		Str("method", req.Method).
		Str("target", sanitize(req.Target)).
		Str("version", req.Version).
		Int("headers", req.Headers.Len()).
		Int64("content_length", req.ContentLength).
		Msg("request parsed")

	if s.cfg.WriteTimeout > 0 {
		conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}

	if err := s.handle(t); err != nil {
		s.handleWriteError(t, err)
	}
}

// handle resolves the target and runs the static or dynamic branch.
func (s *Server) handle(t *transaction) error {
	res, err := s.resolver.Resolve(t.req.Target)
	if err != nil {
		return t.w.ClientError(t.req.Target, response.StatusForbidden, "Forbidden",
			"Tiny refuses to serve paths outside its content root")
	}
	t.res = res

	info, err := os.Stat(res.Filename)
	if err != nil {
		return t.w.ClientError(res.Filename, response.StatusNotFound, "Not found",
			"Tiny couldn't find this file")
	}

	mode := info.Mode()
	switch res.Kind {
	case resource.Dynamic:
		if !mode.IsRegular() || mode.Perm()&0o100 == 0 {
			return t.w.ClientError(res.Filename, response.StatusForbidden, "Forbidden",
				"Tiny couldn't run the CGI program")
		}
		return s.serveDynamic(t)
	default:
		if !mode.IsRegular() || mode.Perm()&0o400 == 0 {
			return t.w.ClientError(res.Filename, response.StatusForbidden, "Forbidden",
				"Tiny couldn't read the file")
		}
		return s.serveStatic(t)
	}
}

// handleReadError turns a parse failure into an error response, or into a
// silent close when there is no usable request to answer.
func (s *Server) handleReadError(t *transaction, err error) {
	var methodErr *request.MethodError
	var werr error

	switch {
	case errors.As(err, &methodErr):
		werr = t.w.ClientError(methodErr.Method, response.StatusNotImplemented, "Not Implemented",
			"Tiny does not implement this method")
	case errors.Is(err, request.ErrBodyTooLarge):
		werr = t.w.ClientError("Content-Length", response.StatusRequestEntityTooLarge, "Request Entity Too Large",
			fmt.Sprintf("Tiny accepts request bodies up to %d bytes", s.cfg.MaxBodySize))
	case errors.Is(err, request.ErrBadContentLength), errors.Is(err, request.ErrTooManyHeaders):
		werr = t.w.ClientError("headers", response.StatusBadRequest, "Bad Request",
			"Tiny couldn't parse the request headers")
	case errors.Is(err, request.ErrNoRequest),
		errors.Is(err, request.ErrMalformedRequestLine),
		errors.Is(err, request.ErrUnexpectedEOF),
		errors.Is(err, io.ErrUnexpectedEOF):
		t.log.Debug().Err(err).Msg("no usable request, closing")
		return
	case rio.IsTimeout(err):
		t.log.Info().Err(err).Msg("read timed out")
		werr = t.w.ClientError("request", response.StatusRequestTimeout, "Request Timeout",
			"Tiny gave up waiting for the complete request")
	case rio.IsBrokenPipe(err):
		t.log.Debug().Err(err).Msg("peer went away while reading")
		return
	default:
		t.log.Warn().Err(err).Msg("read request failed")
		return
	}

	if werr != nil {
		s.handleWriteError(t, werr)
	}
}

func (s *Server) handleWriteError(t *transaction, err error) {
	switch {
	case rio.IsBrokenPipe(err):
		t.log.Debug().Err(err).Msg("peer went away, transaction abandoned")
	case rio.IsTimeout(err):
		t.log.Info().Err(err).Msg("write timed out")
	default:
		t.log.Warn().Err(err).Msg("transaction failed")
	}
}

// handle500 sends 500 response
// Only when nothing has gone out yet: the status line can't be sent twice.
func (s *Server) handle500(t *transaction) {
	if t.w.Started() {
		return
	}
	err := t.w.ClientError("server", response.StatusInternalServerError, "Internal Server Error",
		"Tiny hit an internal error")
	if err != nil {
		s.handleWriteError(t, err)
	}
}

// finish writes the access log line and records metrics.
func (s *Server) finish(t *transaction) {
	duration := time.Since(t.start)

	if !t.w.Started() {
		s.metrics.Abandoned.Add(1)
		return
	}
	code := t.w.StatusCode()
	s.metrics.RecordRequest(code, duration)

	ev := t.log.Info()
	if t.w.HadError() {
		ev = t.log.Warn().Bool("incomplete", true)
	}
	if t.req != nil {
		ev = ev.Str("method", t.req.Method).Str("target", sanitize(t.req.Target))
	}
	if t.res.Filename != "" {
		ev = ev.Str("kind", t.res.Kind.String()).Str("file", sanitize(t.res.Filename))
	}
	ev.Int("status", int(code)).
		Int64("bytes", t.w.BodyBytes()).
		Dur("duration", duration).
		Msg("request handled")
}
