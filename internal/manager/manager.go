// Package manager owns the registry of live sandboxes: it provisions one
// kernel container per session, routes execution requests to the right
// kernel instance, reaps idle sandboxes, and tears everything down on
// shutdown. A Manager is an explicit, injectable service object; construct
// one per process and pass it by handle, never through package state.
package manager

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/docker/docker/client"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prith27/lra/internal/kernel"
	"github.com/prith27/lra/internal/sandbox"
	"github.com/prith27/lra/internal/validator"
)

// Default operational settings.
const (
	DefaultExecTimeout   = 30 * time.Second
	DefaultIdleTTL       = 30 * time.Minute
	DefaultReapInterval  = time.Minute
	DefaultShutdownGrace = 2 * time.Second
)

// LanguagePython is the only execution runtime provided.
const LanguagePython = "python"

// Config holds manager-level settings on top of the per-container ones.
type Config struct {
	// Sandbox configures each container the manager creates.
	Sandbox sandbox.Config

	// ExecTimeout bounds one kernel call. A timeout surfaces as
	// ErrSandboxUnreachable, never as an indefinite hang.
	ExecTimeout time.Duration

	// IdleTTL is how long a sandbox may sit unused before the reaper
	// deletes it.
	IdleTTL time.Duration

	// ReapInterval is how often the background sweep runs.
	ReapInterval time.Duration

	// ShutdownGrace bounds each container stop during process shutdown.
	ShutdownGrace time.Duration
}

// Validate applies defaults in place.
func (c *Config) Validate() {
	c.Sandbox.Validate()
	if c.ExecTimeout <= 0 {
		c.ExecTimeout = DefaultExecTimeout
	}
	if c.IdleTTL <= 0 {
		c.IdleTTL = DefaultIdleTTL
	}
	if c.ReapInterval <= 0 {
		c.ReapInterval = DefaultReapInterval
	}
	if c.ShutdownGrace <= 0 {
		c.ShutdownGrace = DefaultShutdownGrace
	}
}

// Info is the externally visible view of one sandbox.
type Info struct {
	ID     string         `json:"id"`
	Status sandbox.Status `json:"status"`
	Port   int            `json:"port"`
}

// entry pairs a sandbox with its lifecycle mutex. The mutex serializes
// create/delete/reap per id; it is never held across a kernel call, so
// operations on unrelated sandboxes proceed concurrently.
type entry struct {
	mu sync.Mutex
	sb *sandbox.Sandbox
}

// Manager is the registry of live sandboxes plus the container runtime
// handle. All methods are safe for concurrent use.
type Manager struct {
	config Config
	logger *zap.Logger
	cli    *client.Client
	httpc  *http.Client
	ports  *portAllocator

	mu        sync.RWMutex
	sandboxes map[string]*entry

	stopReaper chan struct{}
	reaperDone chan struct{}
	stopOnce   sync.Once
}

// New constructs a Manager with a Docker client from the environment.
func New(cfg Config, logger *zap.Logger) (*Manager, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}
	return NewWithClient(cfg, logger, cli), nil
}

// NewWithClient constructs a Manager around an existing Docker client.
func NewWithClient(cfg Config, logger *zap.Logger, cli *client.Client) *Manager {
	cfg.Validate()
	return &Manager{
		config:     cfg,
		logger:     logger,
		cli:        cli,
		httpc:      &http.Client{Timeout: cfg.ExecTimeout},
		ports:      newPortAllocator(),
		sandboxes:  make(map[string]*entry),
		stopReaper: make(chan struct{}),
		reaperDone: make(chan struct{}),
	}
}

// Create provisions a new sandbox for the given language. Only "python"
// is accepted; anything else is a client error and is not attempted. A
// runtime daemon that cannot be reached surfaces as ErrRuntimeUnavailable.
func (m *Manager) Create(ctx context.Context, lang string) (Info, error) {
	if lang != LanguagePython {
		return Info{}, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, lang)
	}

	if _, err := m.cli.Ping(ctx); err != nil {
		return Info{}, fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)
	}

	port, err := m.ports.Allocate()
	if err != nil {
		return Info{}, err
	}

	id := uuid.NewString()[:8]
	sb, err := sandbox.Create(ctx, m.cli, m.config.Sandbox, id, port)
	if err != nil {
		m.ports.Release(port)
		return Info{}, fmt.Errorf("failed to create sandbox: %w", err)
	}

	m.mu.Lock()
	m.sandboxes[id] = &entry{sb: sb}
	m.mu.Unlock()

	m.logger.Info("sandbox created",
		zap.String("id", id),
		zap.Int("port", port),
		zap.String("container", sb.ContainerID()))

	return Info{ID: id, Status: sandbox.StatusRunning, Port: port}, nil
}

// List returns every registered sandbox with freshly polled status. A
// poll failure on one entry yields StatusUnknown for that entry without
// aborting the rest.
func (m *Manager) List(ctx context.Context) []Info {
	m.mu.RLock()
	snapshot := make([]*sandbox.Sandbox, 0, len(m.sandboxes))
	for _, e := range m.sandboxes {
		snapshot = append(snapshot, e.sb)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(snapshot))
	for _, sb := range snapshot {
		infos = append(infos, Info{ID: sb.ID, Status: sb.Status(ctx), Port: sb.Port})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// Get returns one sandbox with freshly polled status. Not-found is a
// distinct condition from unreachable.
func (m *Manager) Get(ctx context.Context, id string) (Info, error) {
	e, ok := m.lookup(id)
	if !ok {
		return Info{}, ErrNotFound
	}
	return Info{ID: id, Status: e.sb.Status(ctx), Port: e.sb.Port}, nil
}

// Execute pattern-screens the code, then forwards it to the sandbox's
// kernel over the private endpoint with a bounded timeout. The kernel's
// result is propagated verbatim. Rejected code never reaches a kernel;
// an unreachable kernel surfaces as ErrSandboxUnreachable, distinct from
// a failure of the code itself.
func (m *Manager) Execute(ctx context.Context, id, code string) (kernel.Result, error) {
	if err := validator.ScreenPatterns(code); err != nil {
		return kernel.Result{}, err
	}

	e, ok := m.lookup(id)
	if !ok {
		return kernel.Result{}, ErrNotFound
	}

	res, err := m.callKernel(ctx, e.sb.Port, code)
	if err != nil {
		return kernel.Result{}, err
	}

	e.sb.Touch()
	return res, nil
}

// callKernel posts code to the kernel bound to the given host port.
func (m *Manager) callKernel(ctx context.Context, port int, code string) (kernel.Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, m.config.ExecTimeout)
	defer cancel()

	body, err := json.Marshal(kernel.ExecuteRequest{Code: code})
	if err != nil {
		return kernel.Result{}, err
	}

	url := fmt.Sprintf("http://127.0.0.1:%d/execute", port)
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return kernel.Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpc.Do(req)
	if err != nil {
		return kernel.Result{}, fmt.Errorf("%w: %v", ErrSandboxUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return kernel.Result{}, fmt.Errorf("%w: kernel returned status %d", ErrSandboxUnreachable, resp.StatusCode)
	}

	var res kernel.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return kernel.Result{}, fmt.Errorf("%w: bad kernel response: %v", ErrSandboxUnreachable, err)
	}
	return res, nil
}

// Delete stops and removes the sandbox's container, drops the registry
// entry, and releases the port. Deleting an unknown id is ErrNotFound,
// not a no-op. The entry disappears from the registry before the
// container stop, so the id can never resurrect.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	e, ok := m.sandboxes[id]
	if ok {
		delete(m.sandboxes, id)
	}
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.sb.Stop(ctx, 0)
	m.ports.Release(e.sb.Port)
	if err != nil {
		return fmt.Errorf("failed to delete sandbox %s: %w", id, err)
	}

	m.logger.Info("sandbox deleted", zap.String("id", id))
	return nil
}

// StartReaper launches the periodic idle sweep. Sandboxes idle past the
// TTL are deleted through the same path as explicit deletion, port
// release included.
func (m *Manager) StartReaper() {
	go func() {
		defer close(m.reaperDone)
		ticker := time.NewTicker(m.config.ReapInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.reap()
			case <-m.stopReaper:
				return
			}
		}
	}()
}

func (m *Manager) reap() {
	m.mu.RLock()
	var stale []string
	for id, e := range m.sandboxes {
		if e.sb.IdleFor() > m.config.IdleTTL {
			stale = append(stale, id)
		}
	}
	m.mu.RUnlock()

	for _, id := range stale {
		ctx, cancel := context.WithTimeout(context.Background(), m.config.Sandbox.StopGrace+10*time.Second)
		err := m.Delete(ctx, id)
		cancel()
		if err != nil && err != ErrNotFound {
			m.logger.Warn("failed to reap idle sandbox", zap.String("id", id), zap.Error(err))
			continue
		}
		m.logger.Info("reaped idle sandbox", zap.String("id", id))
	}
}

// Shutdown stops the reaper and best-effort tears down every live
// sandbox. One container failing to stop never blocks cleanup of the
// rest; failures are logged and cleanup continues.
func (m *Manager) Shutdown(ctx context.Context) {
	m.stopOnce.Do(func() {
		close(m.stopReaper)
	})

	m.mu.Lock()
	entries := m.sandboxes
	m.sandboxes = make(map[string]*entry)
	m.mu.Unlock()

	for id, e := range entries {
		e.mu.Lock()
		stopCtx, cancel := context.WithTimeout(ctx, m.config.ShutdownGrace+10*time.Second)
		if err := e.sb.Stop(stopCtx, m.config.ShutdownGrace); err != nil {
			m.logger.Warn("failed to stop sandbox during shutdown", zap.String("id", id), zap.Error(err))
		}
		cancel()
		m.ports.Release(e.sb.Port)
		e.mu.Unlock()
	}

	m.logger.Info("manager shut down", zap.Int("cleaned", len(entries)))
}

// Count returns the number of registered sandboxes.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sandboxes)
}

func (m *Manager) lookup(id string) (*entry, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sandboxes[id]
	return e, ok
}
