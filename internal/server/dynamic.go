package server

import (
	"github.com/Brownie44l1/tinyserver/internal/cgi"
	"github.com/Brownie44l1/tinyserver/internal/response"
)

// serveDynamic runs the CGI program and relays its standard output to the
// connection after the response preamble. The program writes the rest of
// the headers and the body. A program that cannot be started gets a 500
// before anything else is written. The worker keeps the connection until
// the program has been reaped, then the caller closes it.
func (s *Server) serveDynamic(t *transaction) error {
	args := t.res.Args
	if t.req.IsPost() {
		args = string(t.req.Body)
	}

	inv := cgi.Invocation{
		Program:    t.res.Filename,
		ScriptName: t.res.Path,
		Args:       args,
		Method:     t.req.Method,
		Protocol:   response.Protocol,
		Software:   response.ServerName,
		RemoteAddr: t.conn.RemoteAddr().String(),
	}

	proc, err := s.runner.Start(s.baseCtx, inv)
	if err != nil {
		t.log.Warn().Err(err).Msg("cgi program did not start")
		return t.w.ClientError(t.res.Filename, response.StatusInternalServerError, "Internal Server Error",
			"Tiny couldn't start the CGI program")
	}
	s.metrics.CGILaunched.Add(1)

	err = t.w.WritePreamble()
	if err == nil {
		_, err = t.w.WriteFrom(proc.Output())
	}
	if err != nil {
		// nobody is reading the rest
		proc.Kill()
	}

	if werr := proc.Wait(); werr != nil {
		t.log.Info().Err(werr).Int("pid", proc.Pid).Msg("cgi program exited abnormally")
	}
	return err
}
