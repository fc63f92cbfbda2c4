// Package main is the entry point for the ghrelease CLI.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/relicta-tech/ghrelease/internal/cli"
	rperrors "github.com/relicta-tech/ghrelease/internal/errors"
)

// Version information set by ldflags during build.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// shutdownTimeout is the maximum time to wait for graceful shutdown.
const shutdownTimeout = 30 * time.Second

// Exit codes.
const (
	exitOK       = 0
	exitError    = 1
	exitConflict = 2
	exitCanceled = 130
)

func main() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cli.SetVersionInfo(version, commit, date)
	os.Exit(run(context.Background(), sigChan, cli.ExecuteContext, cli.Cleanup, os.Stderr, os.Exit))
}

// run executes the CLI and maps its outcome to an exit code. The first
// signal cancels the context; a second one, or the shutdown timeout,
// forces exit through exitFn.
func run(parent context.Context, sigChan <-chan os.Signal, execute func(context.Context) error, cleanup func(), stderr io.Writer, exitFn func(int)) int {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	done := make(chan struct{})
	var handler sync.WaitGroup
	handler.Add(1)
	go func() {
		defer handler.Done()

		var sig os.Signal
		select {
		case sig = <-sigChan:
		case <-done:
			return
		}
		fmt.Fprintf(stderr, "\nReceived signal %v, initiating graceful shutdown...\n", sig)
		cancel()

		// A second signal that is already pending wins over completion.
		select {
		case sig = <-sigChan:
			fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
			exitFn(exitError)
			return
		default:
		}

		shutdownTimer := time.NewTimer(shutdownTimeout)
		defer shutdownTimer.Stop()

		select {
		case <-done:
		case <-shutdownTimer.C:
			fmt.Fprintf(stderr, "\nShutdown timeout (%v) exceeded, forcing exit\n", shutdownTimeout)
			exitFn(exitError)
		case sig = <-sigChan:
			fmt.Fprintf(stderr, "\nReceived second signal %v, forcing exit\n", sig)
			exitFn(exitError)
		}
	}()

	err := execute(ctx)
	canceled := ctx.Err() != nil

	close(done)
	handler.Wait()
	cleanup()

	switch {
	case err == nil:
		return exitOK
	case canceled:
		fmt.Fprintln(stderr, "Operation canceled")
		return exitCanceled
	case rperrors.IsKind(err, rperrors.KindConflict):
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitConflict
	default:
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
}
