package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/Brownie44l1/tinyserver/internal/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	cfg := server.DefaultConfig()

	fs := flag.NewFlagSet("tinyserver", flag.ContinueOnError)
	fs.SetOutput(stderr)
	root := fs.String("root", cfg.Root, "content root directory")
	index := fs.String("index", cfg.DefaultDocument, "document served for targets ending in /")
	level := fs.String("log-level", "info", "log level: debug, info, warn, error")
	maxConns := fs.Int("max-conns", cfg.MaxConns, "concurrent connection cap, 0 for none")
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: %s [flags] <port>\n", fs.Name())
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 1
	}

	port, err := strconv.ParseUint(fs.Arg(0), 10, 16)
	if err != nil {
		fmt.Fprintf(stderr, "invalid port %q\n", fs.Arg(0))
		fs.Usage()
		return 1
	}

	console := false
	if f, ok := stderr.(*os.File); ok {
		console = isatty.IsTerminal(f.Fd())
	}
	logger, err := server.NewLogger(stderr, *level, console)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	cfg.Addr = fmt.Sprintf(":%d", port)
	cfg.Root = *root
	cfg.DefaultDocument = *index
	cfg.MaxConns = *maxConns

	srv := server.New(cfg, logger)
	ln, err := srv.Listen()
	if err != nil {
		logger.Error().Err(err).Msg("cannot start server")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, server.ErrServerClosed) {
			logger.Error().Err(err).Msg("server stopped")
			return 1
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown incomplete")
		}
	}

	stats := srv.Stats()
	logger.Info().
		Int64("requests", stats.RequestsTotal).
		Int64("errors_4xx", stats.Errors4xx).
		Int64("errors_5xx", stats.Errors5xx).
		Int64("cgi", stats.CGILaunched).
		Int64("abandoned", stats.Abandoned).
		Dur("avg_latency", stats.AverageLatency).
		Msg("final stats")
	return 0
}
