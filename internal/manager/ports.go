package manager

import (
	"fmt"
	"net"
	"sync"
)

// portAllocator hands out free ephemeral host ports and remembers which
// ones are bound to live sandboxes, so two creations racing each other
// cannot pick the same port. Released ports may be handed out again.
type portAllocator struct {
	mu    sync.Mutex
	inUse map[int]bool
}

func newPortAllocator() *portAllocator {
	return &portAllocator{inUse: make(map[int]bool)}
}

// Allocate asks the OS for a free port and reserves it. The listener is
// closed before the container binds the port; the reservation in inUse is
// what prevents reuse by a concurrent Allocate.
func (p *portAllocator) Allocate() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for attempt := 0; attempt < 10; attempt++ {
		l, err := net.Listen("tcp", "127.0.0.1:0")
		if err != nil {
			return 0, fmt.Errorf("failed to allocate port: %w", err)
		}
		port := l.Addr().(*net.TCPAddr).Port
		l.Close()

		if !p.inUse[port] {
			p.inUse[port] = true
			return port, nil
		}
	}
	return 0, fmt.Errorf("failed to allocate port: no free port after retries")
}

// Release returns a port to the pool.
func (p *portAllocator) Release(port int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.inUse, port)
}
