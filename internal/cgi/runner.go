package cgi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"time"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds how long a program may run.
const DefaultTimeout = 30 * time.Second

// waitDelay is how long output is still read after the program exits or is
// killed, for programs whose children hold the output open.
const waitDelay = time.Second

var ErrStart = errors.New("cgi: start program")

// Runner launches programs and hands them to its Reaper.
type Runner struct {
	Timeout time.Duration
	Stderr  io.Writer

	reaper *Reaper
	logger zerolog.Logger
}

func NewRunner(timeout time.Duration, logger zerolog.Logger) *Runner {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Runner{
		Timeout: timeout,
		Stderr:  logger.With().Str("stream", "stderr").Logger(),
		reaper:  NewReaper(logger),
		logger:  logger,
	}
}

// Reaper returns the reaper collecting this runner's programs.
func (r *Runner) Reaper() *Reaper {
	return r.reaper
}

// Start runs inv.Program with an empty argument list and the server's
// environment extended by Env(inv). The program writes its standard output
// into a pipe read through Process.Output, so a program that cannot be
// executed is reported here before anything reaches the client. Start does
// not wait for the program; the returned Process is reaped in the
// background and its Wait releases the pipe.
func (r *Runner) Start(ctx context.Context, inv Invocation) (*Process, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrStart, inv.Program, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)

	cmd := exec.CommandContext(ctx, inv.Program)
	cmd.Env = processEnviron(Env(inv))
	cmd.Stdout = pw
	cmd.Stderr = r.Stderr
	cmd.WaitDelay = waitDelay

	err = cmd.Start()
	// the child holds its own copy of the write end now
	pw.Close()
	if err != nil {
		pr.Close()
		cancel()
		return nil, fmt.Errorf("%w %s: %w", ErrStart, inv.Program, err)
	}

	started := time.Now()
	// a leftover child of the program may hold the pipe open past the timeout
	pr.SetReadDeadline(started.Add(r.Timeout + waitDelay))

	p := &Process{
		Pid:     cmd.Process.Pid,
		Program: inv.Program,
		Started: started,
		cmd:     cmd,
		stdout:  pr,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	r.reaper.track(p)

	r.logger.Debug().
		Int("pid", p.Pid).
		Str("program", inv.Program).
		Str("method", inv.Method).
		Msg("cgi program started")

	return p, nil
}
