package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"syscall"
	"testing"
	"time"
)

type fakeServer struct {
	closed chan struct{}
	once   sync.Once
}

func (f *fakeServer) ListenAndServe() error {
	<-f.closed
	return http.ErrServerClosed
}

func (f *fakeServer) Shutdown(ctx context.Context) error {
	f.once.Do(func() { close(f.closed) })
	return nil
}

type slowWorkers struct {
	release chan struct{}
	mu      sync.Mutex
	stopped bool
}

func (w *slowWorkers) Stop() {
	<-w.release
	w.mu.Lock()
	w.stopped = true
	w.mu.Unlock()
}

func (w *slowWorkers) isStopped() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stopped
}

func TestServe_WaitsForWorkersAfterShutdown(t *testing.T) {
	srv := &fakeServer{closed: make(chan struct{})}
	workers := &slowWorkers{release: make(chan struct{})}
	sig := make(chan os.Signal, 1)

	returned := make(chan error, 1)
	go func() { returned <- serve(srv, workers, sig, time.Second) }()

	sig <- syscall.SIGTERM

	select {
	case <-returned:
		t.Fatal("serve returned while workers were still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(workers.release)

	select {
	case err := <-returned:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("serve did not return after workers stopped")
	}
	if !workers.isStopped() {
		t.Fatal("expected workers to be stopped")
	}
}

type failingServer struct{}

func (failingServer) ListenAndServe() error              { return errors.New("address in use") }
func (failingServer) Shutdown(ctx context.Context) error { return nil }

func TestServe_ReturnsListenError(t *testing.T) {
	workers := &slowWorkers{release: make(chan struct{})}

	err := serve(failingServer{}, workers, make(chan os.Signal), time.Second)
	if err == nil || err.Error() != "address in use" {
		t.Fatalf("expected listen error, got %v", err)
	}
}
