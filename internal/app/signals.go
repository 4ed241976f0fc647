package app

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"convertit/internal/logging"
)

const (
	// GracefulShutdownTimeout is the maximum time to wait for graceful shutdown.
	GracefulShutdownTimeout = 10 * time.Second
	// ForcedShutdownTimeout is the time after which we force exit.
	ForcedShutdownTimeout = 15 * time.Second
)

// GoroutineTracker tracks running goroutines for graceful shutdown.
type GoroutineTracker struct {
	wg     sync.WaitGroup
	mu     sync.Mutex
	closed bool
}

// NewGoroutineTracker creates a new goroutine tracker.
func NewGoroutineTracker() *GoroutineTracker {
	return &GoroutineTracker{}
}

// Add registers a new goroutine to track.
func (t *GoroutineTracker) Add() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.wg.Add(1)
	return true
}

// Done marks a goroutine as completed.
func (t *GoroutineTracker) Done() {
	t.wg.Done()
}

// Wait waits for all tracked goroutines to complete.
func (t *GoroutineTracker) Wait() {
	t.wg.Wait()
}

// WaitWithTimeout waits for all goroutines with a timeout.
// Returns true if all goroutines completed, false if timed out.
func (t *GoroutineTracker) WaitWithTimeout(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		t.Wait()
		close(done)
	}()

	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

// Close prevents new goroutines from being added.
func (t *GoroutineTracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
}

// setupSignalHandler shuts the app down cleanly on SIGINT, SIGTERM or
// SIGQUIT. The returned function stops listening.
func (a *App) setupSignalHandler() func() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)

	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigChan:
			logging.Debug("received signal", "signal", sig)

			forceExitTimer := time.AfterFunc(ForcedShutdownTimeout, func() {
				logging.Warn("forced shutdown due to timeout")
				os.Exit(1)
			})
			defer forceExitTimer.Stop()

			shutdownCtx, cancel := context.WithTimeout(context.Background(), GracefulShutdownTimeout)
			defer cancel()

			a.gracefulShutdown(shutdownCtx)

			if sig == syscall.SIGQUIT {
				os.Exit(128 + int(syscall.SIGQUIT))
			}
			os.Exit(0)

		case <-done:
			return

		case <-a.ctx.Done():
			return
		}
	}()

	return func() {
		signal.Stop(sigChan)
		close(done)
	}
}

// OnShutdown registers fn to run during shutdown, after the app itself has
// been closed. Hooks run in reverse registration order.
func (a *App) OnShutdown(name string, fn func() error) {
	a.shutdownMu.Lock()
	defer a.shutdownMu.Unlock()
	a.shutdownHooks = append(a.shutdownHooks, shutdownHook{name: name, fn: fn})
}

type shutdownHook struct {
	name string
	fn   func() error
}

// Shutdown closes the app and runs the registered hooks. It is safe to
// call more than once.
func (a *App) Shutdown(ctx context.Context) {
	a.gracefulShutdown(ctx)
}

// gracefulShutdown performs a graceful shutdown with timeout.
func (a *App) gracefulShutdown(ctx context.Context) {
	a.shutdownOnce.Do(func() {
		logging.Debug("starting graceful shutdown")

		if a.signalCleanup != nil {
			a.signalCleanup()
			a.signalCleanup = nil
		}

		// 1. Stop the sweep, hang up any call and flush state
		closed := make(chan error, 1)
		go func() { closed <- a.Close() }()
		select {
		case err := <-closed:
			LogIgnoredError("close app", err)
		case <-ctx.Done():
			logging.Warn("app close timed out")
		}

		// 2. Collaborators: config watcher, metrics endpoint, notifier
		a.shutdownMu.Lock()
		hooks := a.shutdownHooks
		a.shutdownHooks = nil
		a.shutdownMu.Unlock()
		for i := len(hooks) - 1; i >= 0; i-- {
			logging.Debug("shutdown hook", "name", hooks[i].name)
			LogIgnoredError(hooks[i].name, hooks[i].fn())
		}

		// 3. Close logging last
		logging.Debug("shutdown complete")
		logging.Close()
	})
}
