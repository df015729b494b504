package manager

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/prith27/lra/internal/kernel"
	"github.com/prith27/lra/internal/sandbox"
	"github.com/prith27/lra/internal/validator"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(Config{}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

// inject registers a sandbox entry pointing at an arbitrary host port,
// bypassing container provisioning.
func inject(m *Manager, id string, port int) {
	sb := &sandbox.Sandbox{ID: id, Port: port}
	sb.Touch()
	m.mu.Lock()
	m.sandboxes[id] = &entry{sb: sb}
	m.mu.Unlock()
}

// fakeKernel serves the kernel's execute contract on a loopback port and
// returns that port.
func fakeKernel(t *testing.T, res kernel.Result) int {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/execute" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		var req kernel.ExecuteRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		json.NewEncoder(w).Encode(res)
	}))
	t.Cleanup(ts.Close)

	u, err := url.Parse(ts.URL)
	if err != nil {
		t.Fatalf("parse test server url: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("parse test server port: %v", err)
	}
	return port
}

func TestCreateRejectsUnsupportedLanguage(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Create(context.Background(), "go")
	if !errors.Is(err, ErrUnsupportedLanguage) {
		t.Fatalf("Create(\"go\") error = %v, want ErrUnsupportedLanguage", err)
	}
}

func TestExecuteUnknownIDIsNotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.Execute(context.Background(), "nope1234", "1+1")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Execute(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestExecuteScreensBeforeAnything(t *testing.T) {
	m := newTestManager(t)

	// Forbidden code is rejected before lookup or any network call,
	// even for an id that does not exist.
	_, err := m.Execute(context.Background(), "nope1234", "import os")
	var rej *validator.RejectionError
	if !errors.As(err, &rej) {
		t.Fatalf("Execute(forbidden) error = %v, want *validator.RejectionError", err)
	}
}

func TestExecuteRoutesToKernel(t *testing.T) {
	m := newTestManager(t)
	want := kernel.Result{Type: "result", Stdout: "4\n", Success: true}
	port := fakeKernel(t, want)
	inject(m, "a1b2c3d4", port)

	got, err := m.Execute(context.Background(), "a1b2c3d4", "print(2+2)")
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != want {
		t.Errorf("result = %+v, want %+v", got, want)
	}
}

func TestExecutePropagatesUserFailureAsResult(t *testing.T) {
	m := newTestManager(t)
	want := kernel.Result{Type: "result", Stderr: "ValueError: x", Success: false}
	port := fakeKernel(t, want)
	inject(m, "a1b2c3d4", port)

	got, err := m.Execute(context.Background(), "a1b2c3d4", "raise ValueError('x')")
	if err != nil {
		t.Fatalf("user-code failure must not be a manager error, got %v", err)
	}
	if got.Success {
		t.Error("Success = true, want false")
	}
}

func TestExecuteUnreachableKernel(t *testing.T) {
	m := newTestManager(t)
	port, err := m.ports.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	// Nothing listens on the allocated port.
	inject(m, "dead0000", port)

	_, err = m.Execute(context.Background(), "dead0000", "print(1)")
	if !errors.Is(err, ErrSandboxUnreachable) {
		t.Fatalf("Execute error = %v, want ErrSandboxUnreachable", err)
	}
}

func TestExecuteTouchesLastUsed(t *testing.T) {
	m := newTestManager(t)
	port := fakeKernel(t, kernel.Result{Type: "result", Success: true})
	inject(m, "a1b2c3d4", port)

	before := m.sandboxes["a1b2c3d4"].sb.LastUsed()
	time.Sleep(10 * time.Millisecond)
	if _, err := m.Execute(context.Background(), "a1b2c3d4", "print(1)"); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	after := m.sandboxes["a1b2c3d4"].sb.LastUsed()
	if !after.After(before) {
		t.Error("LastUsed not advanced by Execute")
	}
}

func TestDeleteUnknownIDIsNotFound(t *testing.T) {
	m := newTestManager(t)

	if err := m.Delete(context.Background(), "nope1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestGetUnknownIDIsNotFound(t *testing.T) {
	m := newTestManager(t)

	if _, err := m.Get(context.Background(), "nope1234"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestReapDeletesIdleSandboxes(t *testing.T) {
	m, err := New(Config{IdleTTL: 50 * time.Millisecond}, zap.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	stalePort, err := m.ports.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	inject(m, "stale000", stalePort)
	inject(m, "fresh111", 49999)

	time.Sleep(60 * time.Millisecond)
	m.sandboxes["fresh111"].sb.Touch()

	m.reap()

	if _, err := m.Get(context.Background(), "stale000"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(stale) after reap error = %v, want ErrNotFound", err)
	}
	if _, err := m.Get(context.Background(), "fresh111"); err != nil {
		t.Errorf("Get(fresh) after reap error = %v, recently used sandbox must survive", err)
	}

	m.ports.mu.Lock()
	reserved := m.ports.inUse[stalePort]
	m.ports.mu.Unlock()
	if reserved {
		t.Errorf("port %d still reserved after reap", stalePort)
	}
}

func TestReapLeavesActiveSandboxesAlone(t *testing.T) {
	m := newTestManager(t)
	inject(m, "a1b2c3d4", 49999)

	// Default TTL is 30 minutes; a just-touched sandbox is not stale.
	m.reap()

	if m.Count() != 1 {
		t.Fatalf("Count() after reap = %d, want 1", m.Count())
	}
}

func TestPortAllocatorReservesAndReleases(t *testing.T) {
	p := newPortAllocator()

	a, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	b, err := p.Allocate()
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if a == b {
		t.Fatalf("two live allocations returned the same port %d", a)
	}

	p.Release(a)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.inUse[a] {
		t.Errorf("port %d still reserved after Release", a)
	}
	if !p.inUse[b] {
		t.Errorf("port %d lost its reservation", b)
	}
}
