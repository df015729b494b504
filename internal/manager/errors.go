package manager

import "errors"

// Error taxonomy for the sandbox subsystem. Execution failures inside user
// code are not errors here; they come back as results with Success=false.
var (
	// ErrUnsupportedLanguage marks a client error: the requested runtime
	// is not provided (only python is).
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrNotFound marks an unknown sandbox id.
	ErrNotFound = errors.New("sandbox not found")

	// ErrRuntimeUnavailable marks the container daemon being unreachable.
	// It is surfaced, never retried automatically.
	ErrRuntimeUnavailable = errors.New("container runtime unavailable")

	// ErrSandboxUnreachable marks a provisioned sandbox whose kernel
	// endpoint is not responding; distinct from a failure of the code it
	// runs. The caller may recover by recreating the sandbox.
	ErrSandboxUnreachable = errors.New("sandbox unreachable")
)
