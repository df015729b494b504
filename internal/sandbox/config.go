// Package sandbox manages one isolated kernel container per session.
package sandbox

import "time"

// Default configuration values.
const (
	DefaultImage      = "lra-kernel:latest"
	DefaultMemoryMB   = 512
	DefaultCPUPercent = 0.5
	DefaultPidsLimit  = 64
	DefaultKernelPort = 8000
	DefaultStopGrace  = 5 * time.Second
)

// Config holds the per-container settings. Every sandbox created from the
// same manager shares one Config.
type Config struct {
	// Image is the pre-built kernel image to run.
	Image string

	// MemoryMB is the hard memory ceiling in megabytes.
	MemoryMB int64

	// CPUPercent is the CPU quota as a fraction of one core (0.0-1.0].
	CPUPercent float64

	// PidsLimit caps the number of processes inside the container.
	PidsLimit int64

	// KernelPort is the in-container port the kernel listens on; it is
	// bound to the sandbox's allocated host port at creation.
	KernelPort int

	// StopGrace is how long a container gets to stop cleanly before it
	// is killed.
	StopGrace time.Duration
}

// DefaultConfig returns a Config with the standard quota ceilings.
func DefaultConfig() Config {
	return Config{
		Image:      DefaultImage,
		MemoryMB:   DefaultMemoryMB,
		CPUPercent: DefaultCPUPercent,
		PidsLimit:  DefaultPidsLimit,
		KernelPort: DefaultKernelPort,
		StopGrace:  DefaultStopGrace,
	}
}

// Validate applies defaults in place for zero or out-of-range fields.
func (c *Config) Validate() {
	if c.Image == "" {
		c.Image = DefaultImage
	}
	if c.MemoryMB <= 0 {
		c.MemoryMB = DefaultMemoryMB
	}
	if c.CPUPercent <= 0 || c.CPUPercent > 1.0 {
		c.CPUPercent = DefaultCPUPercent
	}
	if c.PidsLimit <= 0 {
		c.PidsLimit = DefaultPidsLimit
	}
	if c.KernelPort <= 0 {
		c.KernelPort = DefaultKernelPort
	}
	if c.StopGrace <= 0 {
		c.StopGrace = DefaultStopGrace
	}
}
