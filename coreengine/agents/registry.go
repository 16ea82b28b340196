package agents

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
)

var (
	// ErrAgentNotFound is returned when a capability name has no registered agent.
	ErrAgentNotFound = errors.New("agent not found")
	// ErrInvalidAgent is returned when registering an empty name or a nil agent.
	ErrInvalidAgent = errors.New("invalid agent registration")
)

// Registry maps capability names to agents.
//
// Writers copy the map and publish it atomically; Get never takes a lock.
type Registry struct {
	mu     sync.Mutex
	agents atomic.Pointer[map[string]CapabilityAgent]
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	r := &Registry{}
	empty := make(map[string]CapabilityAgent)
	r.agents.Store(&empty)
	return r
}

// Register binds name to agent. Registering an existing name replaces the
// previous agent and reports replaced=true.
func (r *Registry) Register(name string, agent CapabilityAgent) (replaced bool, err error) {
	if name == "" {
		return false, fmt.Errorf("%w: empty capability name", ErrInvalidAgent)
	}
	if agent == nil {
		return false, fmt.Errorf("%w: nil agent for %q", ErrInvalidAgent, name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.agents.Load()
	next := make(map[string]CapabilityAgent, len(current)+1)
	for k, v := range current {
		next[k] = v
	}
	_, replaced = next[name]
	next[name] = agent
	r.agents.Store(&next)
	return replaced, nil
}

// Unregister removes name. It reports whether an agent was removed.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := *r.agents.Load()
	if _, ok := current[name]; !ok {
		return false
	}
	next := make(map[string]CapabilityAgent, len(current))
	for k, v := range current {
		if k != name {
			next[k] = v
		}
	}
	r.agents.Store(&next)
	return true
}

// Get returns the agent registered under name.
func (r *Registry) Get(name string) (CapabilityAgent, bool) {
	agent, ok := (*r.agents.Load())[name]
	return agent, ok
}

// Lookup returns the agent registered under name or ErrAgentNotFound.
func (r *Registry) Lookup(name string) (CapabilityAgent, error) {
	agent, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAgentNotFound, name)
	}
	return agent, nil
}

// Names returns the registered capability names in sorted order.
func (r *Registry) Names() []string {
	current := *r.agents.Load()
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered agents.
func (r *Registry) Len() int {
	return len(*r.agents.Load())
}
