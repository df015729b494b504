package sandbox

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/network"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// Status is the observed container state. It is derived by polling the
// runtime on demand, never cached as source of truth.
type Status string

const (
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusUnknown  Status = "unknown"
)

// Sandbox is one unit of isolation: an exclusive handle on a kernel
// container plus the host port its listener is bound to. The handle is
// owned by exactly one registry entry; nothing else may mutate it.
type Sandbox struct {
	ID        string
	Port      int
	CreatedAt time.Time

	config      Config
	cli         *client.Client
	containerID string

	lastUsed atomic.Int64 // unix nanos
}

// Create starts a new kernel container from the configured image, with the
// in-container kernel port published on the given host port. The Docker
// client is shared with the manager; the container itself belongs to the
// returned Sandbox alone.
func Create(ctx context.Context, cli *client.Client, cfg Config, id string, hostPort int) (*Sandbox, error) {
	cfg.Validate()

	s := &Sandbox{
		ID:        id,
		Port:      hostPort,
		CreatedAt: time.Now(),
		config:    cfg,
		cli:       cli,
	}
	s.Touch()

	kernelPort := nat.Port(fmt.Sprintf("%d/tcp", cfg.KernelPort))

	containerCfg := &container.Config{
		Image: cfg.Image,
		ExposedPorts: nat.PortSet{
			kernelPort: struct{}{},
		},
	}

	hostCfg := &container.HostConfig{
		PortBindings: nat.PortMap{
			kernelPort: []nat.PortBinding{
				{HostIP: "127.0.0.1", HostPort: fmt.Sprintf("%d", hostPort)},
			},
		},

		// The kernel image is immutable; only /tmp is writable.
		ReadonlyRootfs: true,
		Tmpfs: map[string]string{
			"/tmp": "rw,noexec,nosuid,size=64m",
		},

		CapDrop:     []string{"ALL"},
		SecurityOpt: []string{"no-new-privileges:true"},

		Resources: container.Resources{
			Memory:     cfg.MemoryMB * 1024 * 1024,
			MemorySwap: cfg.MemoryMB * 1024 * 1024,
			CPUQuota:   int64(cfg.CPUPercent * 100000),
			CPUPeriod:  100000,
			PidsLimit:  &cfg.PidsLimit,
		},
	}

	resp, err := cli.ContainerCreate(ctx, containerCfg, hostCfg, &network.NetworkingConfig{}, nil, "sandbox-"+id)
	if err != nil {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}
	s.containerID = resp.ID

	if err := cli.ContainerStart(ctx, s.containerID, container.StartOptions{}); err != nil {
		_ = cli.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true})
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	return s, nil
}

// Status polls the runtime for the container's current state. A poll
// failure yields StatusUnknown, never an error; the caller decides what
// unknown means for it.
func (s *Sandbox) Status(ctx context.Context) Status {
	if s.containerID == "" {
		return StatusUnknown
	}
	insp, err := s.cli.ContainerInspect(ctx, s.containerID)
	if err != nil {
		return StatusUnknown
	}
	if insp.State != nil && insp.State.Running {
		return StatusRunning
	}
	return StatusStopping
}

// Stop stops the container within the given grace period (the configured
// default if grace <= 0) and removes it, forcing removal if the clean
// stop fails.
func (s *Sandbox) Stop(ctx context.Context, graceOverride time.Duration) error {
	if s.containerID == "" {
		// Handle without a container; nothing to stop.
		return nil
	}
	if graceOverride <= 0 {
		graceOverride = s.config.StopGrace
	}
	grace := int(graceOverride / time.Second)
	if err := s.cli.ContainerStop(ctx, s.containerID, container.StopOptions{Timeout: &grace}); err != nil {
		if rmErr := s.cli.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true}); rmErr != nil {
			return fmt.Errorf("failed to stop container: %w", err)
		}
		return nil
	}
	if err := s.cli.ContainerRemove(ctx, s.containerID, container.RemoveOptions{Force: true}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}
	return nil
}

// Touch records activity for idle-TTL accounting.
func (s *Sandbox) Touch() {
	s.lastUsed.Store(time.Now().UnixNano())
}

// LastUsed returns the time of the most recent creation or execution.
func (s *Sandbox) LastUsed() time.Time {
	return time.Unix(0, s.lastUsed.Load())
}

// IdleFor returns how long the sandbox has gone without use.
func (s *Sandbox) IdleFor() time.Duration {
	return time.Since(s.LastUsed())
}

// ContainerID returns the underlying container id, for logging.
func (s *Sandbox) ContainerID() string {
	return s.containerID
}
