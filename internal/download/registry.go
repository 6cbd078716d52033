package download

import (
	"fmt"
	"slices"
	"sync"

	"github.com/vmunix/fetcharr/pkg/release"
)

// Registry holds the configured clients.
type Registry struct {
	mu      sync.RWMutex
	entries []registryEntry
}

type registryEntry struct {
	client   Client
	priority int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a client. Lower priority values are preferred; ties keep
// registration order. Registering a duplicate name fails.
func (r *Registry) Register(c Client, priority int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.entries {
		if e.client.Name() == c.Name() {
			return fmt.Errorf("download client %q already registered", c.Name())
		}
	}
	r.entries = append(r.entries, registryEntry{client: c, priority: priority})
	slices.SortStableFunc(r.entries, func(a, b registryEntry) int {
		return a.priority - b.priority
	})
	return nil
}

// Get returns the client with the given name.
func (r *Registry) Get(name string) (Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.client.Name() == name {
			return e.client, true
		}
	}
	return nil, false
}

// ForProtocol returns the preferred client for a protocol.
func (r *Registry) ForProtocol(p release.Protocol) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, e := range r.entries {
		if e.client.Protocol() == p {
			return e.client, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrNoClient, p)
}

// ForSubmission returns the preferred client for p that can take s. A
// discography skips clients without the capability; when every client for p
// lacks it, the preferred one's *CapabilityError is returned.
func (r *Registry) ForSubmission(s *Submission) (Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var incapable Client
	for _, e := range r.entries {
		if e.client.Protocol() != s.Protocol {
			continue
		}
		if s.Discography && !e.client.Capabilities().Discography {
			if incapable == nil {
				incapable = e.client
			}
			continue
		}
		return e.client, nil
	}
	if incapable != nil {
		return nil, unsupported(incapable.Name(), OpDiscography)
	}
	return nil, fmt.Errorf("%w for %s", ErrNoClient, s.Protocol)
}

// HasProtocol reports whether any client handles p.
func (r *Registry) HasProtocol(p release.Protocol) bool {
	_, err := r.ForProtocol(p)
	return err == nil
}

// Clients returns every client in preference order.
func (r *Registry) Clients() []Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	clients := make([]Client, 0, len(r.entries))
	for _, e := range r.entries {
		clients = append(clients, e.client)
	}
	return clients
}
