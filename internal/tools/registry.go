// Package tools keeps a registry of user-defined Python functions that can
// be invoked inside a sandbox. Each tool is a single function whose source
// passes the same screening as ad-hoc code; accepted tools are persisted as
// .py files so they survive restarts.
package tools

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/prith27/lra/internal/validator"
)

// ErrToolNotFound is returned when a requested tool doesn't exist in the registry.
type ErrToolNotFound struct {
	Name string
}

func (e ErrToolNotFound) Error() string {
	return fmt.Sprintf("tool %q not found", e.Name)
}

// ErrToolAlreadyExists is returned when registering a name that is taken.
type ErrToolAlreadyExists struct {
	Name string
}

func (e ErrToolAlreadyExists) Error() string {
	return fmt.Sprintf("tool %q already exists", e.Name)
}

// ErrInvalidTool is returned when a tool definition is malformed.
type ErrInvalidTool struct {
	Name   string
	Reason string
}

func (e ErrInvalidTool) Error() string {
	return fmt.Sprintf("invalid tool %q: %s", e.Name, e.Reason)
}

var identifierRe = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Entry is a registered tool.
type Entry struct {
	Name      string    `json:"name"`
	Params    string    `json:"params"`
	Docstring string    `json:"docstring,omitempty"`
	Body      string    `json:"-"`
	Source    string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	path      string
}

// Registry stores tools in memory and mirrors them to a directory.
// Persisted tools are loaded lazily on first access.
type Registry struct {
	dir string

	mu     sync.RWMutex
	tools  map[string]*Entry
	loaded bool
}

// NewRegistry creates a registry backed by dir. The directory is created
// on the first successful Register; a missing directory just means no
// persisted tools yet.
func NewRegistry(dir string) *Registry {
	return &Registry{
		dir:   dir,
		tools: make(map[string]*Entry),
	}
}

// Register validates, screens, and persists a tool definition.
// The assembled function source must pass both the pattern screen and
// the syntax screen before it is accepted.
func (r *Registry) Register(name, params, body, docstring string) (*Entry, error) {
	if !identifierRe.MatchString(name) {
		return nil, ErrInvalidTool{Name: name, Reason: "name must be a valid Python identifier"}
	}
	if strings.TrimSpace(body) == "" {
		return nil, ErrInvalidTool{Name: name, Reason: "body must not be empty"}
	}

	source := assemble(name, params, body, docstring)
	if err := validator.ScreenPatterns(source); err != nil {
		return nil, err
	}
	if err := validator.ScreenSyntax(source); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(); err != nil {
		return nil, err
	}

	if _, exists := r.tools[name]; exists {
		return nil, ErrToolAlreadyExists{Name: name}
	}

	entry := &Entry{
		Name:      name,
		Params:    params,
		Docstring: docstring,
		Body:      body,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating tools dir: %w", err)
	}
	entry.path = filepath.Join(r.dir, fmt.Sprintf("%s_%s.py", name, uuid.NewString()[:8]))
	if err := os.WriteFile(entry.path, []byte(source), 0o644); err != nil {
		return nil, fmt.Errorf("persisting tool %q: %w", name, err)
	}

	r.tools[name] = entry
	return entry, nil
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) (*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	e, ok := r.tools[name]
	if !ok {
		return nil, ErrToolNotFound{Name: name}
	}
	return e, nil
}

// List returns all tools sorted by name.
func (r *Registry) List() ([]*Entry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(); err != nil {
		return nil, err
	}
	out := make([]*Entry, 0, len(r.tools))
	for _, e := range r.tools {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Remove deletes a tool from the registry and its persisted file.
func (r *Registry) Remove(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.loadLocked(); err != nil {
		return err
	}
	e, ok := r.tools[name]
	if !ok {
		return ErrToolNotFound{Name: name}
	}
	if e.path != "" {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("removing tool file: %w", err)
		}
	}
	delete(r.tools, name)
	return nil
}

// loadLocked reads persisted tools from the directory once.
// Caller must hold r.mu.
func (r *Registry) loadLocked() error {
	if r.loaded {
		return nil
	}
	r.loaded = true

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading tools dir: %w", err)
	}

	for _, de := range entries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".py") {
			continue
		}
		path := filepath.Join(r.dir, de.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading tool file %s: %w", de.Name(), err)
		}
		entry, err := parseSource(string(data))
		if err != nil {
			// Skip files that were not written by us.
			continue
		}
		entry.path = path
		if info, err := de.Info(); err == nil {
			entry.CreatedAt = info.ModTime().UTC()
		}
		if _, exists := r.tools[entry.Name]; !exists {
			r.tools[entry.Name] = entry
		}
	}
	return nil
}

// assemble renders the function definition from its parts.
func assemble(name, params, body, docstring string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "def %s(%s):\n", name, params)
	if docstring != "" {
		fmt.Fprintf(&b, "    \"\"\"%s\"\"\"\n", docstring)
	}
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if line == "" {
			b.WriteString("\n")
			continue
		}
		b.WriteString("    " + line + "\n")
	}
	return b.String()
}

var defRe = regexp.MustCompile(`(?m)^def ([a-zA-Z_][a-zA-Z0-9_]*)\(([^)]*)\):$`)

// parseSource recovers an Entry from a persisted tool file.
func parseSource(source string) (*Entry, error) {
	m := defRe.FindStringSubmatch(source)
	if m == nil {
		return nil, fmt.Errorf("no function definition found")
	}
	e := &Entry{Name: m[1], Params: m[2], Source: source}

	rest := source[strings.Index(source, m[0])+len(m[0]):]
	rest = strings.TrimPrefix(rest, "\n")
	if strings.HasPrefix(strings.TrimSpace(rest), `"""`) {
		trimmed := strings.TrimSpace(rest)
		if end := strings.Index(trimmed[3:], `"""`); end >= 0 {
			e.Docstring = trimmed[3 : 3+end]
			rest = trimmed[3+end+3:]
			rest = strings.TrimPrefix(rest, "\n")
		}
	}

	var body []string
	for _, line := range strings.Split(strings.TrimRight(rest, "\n"), "\n") {
		body = append(body, strings.TrimPrefix(line, "    "))
	}
	e.Body = strings.Join(body, "\n")
	return e, nil
}
