// Package memory is an in-process rmiregistry.Registry, grounded on the
// teacher's pkg/registry/memory.memRegistry.
package memory

import (
	"sync"

	"github.com/f0mster/rmi/pkg/rmi/addr"
	"github.com/f0mster/rmi/pkg/rmiregistry"
)

type namespace struct {
	instances                map[string]*addr.Address
	watchRegisteredCancels   map[int64]func()
	watchUnregisteredCancels map[int64]func()
}

type Registry struct {
	mu   sync.RWMutex
	data map[string]*namespace
	next int64
}

var _ rmiregistry.Registry = (*Registry)(nil)

func New() *Registry {
	return &Registry{data: map[string]*namespace{}}
}

func (r *Registry) ns(serviceName string) *namespace {
	n, ok := r.data[serviceName]
	if !ok {
		n = &namespace{
			instances:               map[string]*addr.Address{},
			watchRegisteredCancels:   map[int64]func(){},
			watchUnregisteredCancels: map[int64]func(){},
		}
		r.data[serviceName] = n
	}
	return n
}

func (r *Registry) Register(serviceName string, address *addr.Address) {
	r.mu.Lock()
	n := r.ns(serviceName)
	wasEmpty := len(n.instances) == 0
	n.instances[address.String()] = address
	callbacks := make([]func(), 0, len(n.watchRegisteredCancels))
	for _, cb := range n.watchRegisteredCancels {
		callbacks = append(callbacks, cb)
	}
	r.mu.Unlock()
	if wasEmpty {
		for _, cb := range callbacks {
			go cb()
		}
	}
}

func (r *Registry) Unregister(serviceName string, address *addr.Address) {
	r.mu.Lock()
	n := r.ns(serviceName)
	wasEmpty := len(n.instances) == 0
	delete(n.instances, address.String())
	becameEmpty := !wasEmpty && len(n.instances) == 0
	callbacks := make([]func(), 0, len(n.watchUnregisteredCancels))
	for _, cb := range n.watchUnregisteredCancels {
		callbacks = append(callbacks, cb)
	}
	r.mu.Unlock()
	if becameEmpty {
		for _, cb := range callbacks {
			go cb()
		}
	}
}

func (r *Registry) Instances(serviceName string) []*addr.Address {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.data[serviceName]
	if !ok {
		return nil
	}
	out := make([]*addr.Address, 0, len(n.instances))
	for _, a := range n.instances {
		out = append(out, a)
	}
	return out
}

func (r *Registry) WatchRegistered(serviceName string, onChange func()) rmiregistry.CancelFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.ns(serviceName)
	id := r.next
	r.next++
	n.watchRegisteredCancels[id] = onChange
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(n.watchRegisteredCancels, id)
	}
}

func (r *Registry) WatchUnregistered(serviceName string, onChange func()) rmiregistry.CancelFunc {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := r.ns(serviceName)
	id := r.next
	r.next++
	n.watchUnregisteredCancels[id] = onChange
	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(n.watchUnregisteredCancels, id)
	}
}
