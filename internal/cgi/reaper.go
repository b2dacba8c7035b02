package cgi

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Process is a started program.
type Process struct {
	Pid     int
	Program string
	Started time.Time

	cmd    *exec.Cmd
	stdout *os.File
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Done is closed once the process has been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Output is the program's standard output. It reports EOF once the program
// and everything it started have closed their copies.
func (p *Process) Output() io.Reader {
	return p.stdout
}

// Kill stops the program early, for a client that is no longer listening.
func (p *Process) Kill() error {
	return p.cmd.Process.Kill()
}

// Wait blocks until the process has been reaped, then releases its output
// pipe. Anything not read from Output by then is discarded.
func (p *Process) Wait() error {
	<-p.done
	p.stdout.Close()
	return p.err
}

// Reaper collects exited programs. Every tracked process gets its own
// waiting goroutine, so nothing that starts a program ever blocks on it, and
// each entry is dropped as soon as its process is reaped.
type Reaper struct {
	mu     sync.Mutex
	procs  map[int]*Process
	logger zerolog.Logger
}

func NewReaper(logger zerolog.Logger) *Reaper {
	return &Reaper{
		procs:  make(map[int]*Process),
		logger: logger,
	}
}

func (r *Reaper) track(p *Process) {
	r.mu.Lock()
	r.procs[p.Pid] = p
	r.mu.Unlock()

	go r.reap(p)
}

func (r *Reaper) reap(p *Process) {
	err := p.cmd.Wait()
	p.cancel()

	r.mu.Lock()
	delete(r.procs, p.Pid)
	r.mu.Unlock()

	p.err = err
	ev := r.logger.Debug()
	var exitErr *exec.ExitError
	if err != nil && !errors.As(err, &exitErr) {
		// the process could not be waited on; not fatal to anyone
		ev = r.logger.Warn().Err(err)
	} else if exitErr != nil {
		ev = r.logger.Info().Int("exit_code", exitErr.ExitCode())
	}
	ev.Int("pid", p.Pid).
		Str("program", p.Program).
		Dur("elapsed", time.Since(p.Started)).
		Msg("cgi program reaped")

	close(p.done)
}

// Active returns the number of programs not yet reaped.
func (r *Reaper) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// KillAll kills every live program and returns how many were signalled.
// The reaping goroutines still collect them.
func (r *Reaper) KillAll() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	killed := 0
	for _, p := range r.procs {
		if p.cmd.Process == nil {
			continue
		}
		if err := p.cmd.Process.Kill(); err == nil {
			killed++
		}
	}
	return killed
}
