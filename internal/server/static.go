package server

import (
	"os"

	"github.com/Brownie44l1/tinyserver/internal/response"
)

// serveStatic sends the resolved file. The file is opened once per
// request and released before returning; nothing is cached.
func (s *Server) serveStatic(t *transaction) error {
	f, err := os.Open(t.res.Filename)
	if err != nil {
		return t.w.ClientError(t.res.Filename, response.StatusForbidden, "Forbidden",
			"Tiny couldn't read the file")
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return t.w.ClientError(t.res.Filename, response.StatusForbidden, "Forbidden",
			"Tiny couldn't read the file")
	}

	h := response.StaticHeaders(info.Size(), response.ContentType(t.res.Filename))
	if err := t.w.WriteStatusLine(response.StatusOK); err != nil {
		return err
	}
	if err := t.w.WriteHeaders(h); err != nil {
		return err
	}

	// HEAD gets the full-size Content-Length but no body
	if t.req.IsHead() {
		return nil
	}

	_, err = t.w.WriteFrom(f)
	return err
}
