package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/prith27/lra/internal/kernel"
)

// Executor runs code inside a sandbox. *manager.Manager satisfies it.
type Executor interface {
	Execute(ctx context.Context, sandboxID, code string) (kernel.Result, error)
}

// ErrToolInvocation is returned when invoking a tool fails before the
// sandbox could run it.
type ErrToolInvocation struct {
	Name string
	Err  error
}

func (e ErrToolInvocation) Error() string {
	return fmt.Sprintf("tool %q invocation failed: %v", e.Name, e.Err)
}

func (e ErrToolInvocation) Unwrap() error {
	return e.Err
}

// Invoke runs a registered tool in the given sandbox. Arguments are passed
// verbatim as a Python argument list, and the call's return value is printed
// so it lands on stdout. The composed program goes through the sandbox
// manager and is screened like any other submission.
func (r *Registry) Invoke(ctx context.Context, exec Executor, sandboxID, name string, args []string) (kernel.Result, error) {
	entry, err := r.Get(name)
	if err != nil {
		return kernel.Result{}, err
	}

	var b strings.Builder
	b.WriteString(entry.Source)
	b.WriteString("\n")
	fmt.Fprintf(&b, "print(%s(%s))\n", entry.Name, strings.Join(args, ", "))

	result, err := exec.Execute(ctx, sandboxID, b.String())
	if err != nil {
		return kernel.Result{}, ErrToolInvocation{Name: name, Err: err}
	}
	return result, nil
}
