// Package rmiregistry defines an optional service registry a skeleton can
// advertise itself into and a stub factory can resolve a service name
// through, supplementing (never replacing) the three address-based
// StubFactory.Create overloads of spec §4.3/§6.
//
// Grounded on the teacher's pkg/registry.Registry interface; adapted to
// carry addr.Address values instead of the teacher's opaque InstanceId.
package rmiregistry

import "github.com/f0mster/rmi/pkg/rmi/addr"

// CancelFunc stops a previously registered watch.
type CancelFunc func()

// Registerer is implemented by anything a skeleton can advertise itself
// into on start and remove itself from on stop.
type Registerer interface {
	Register(serviceName string, address *addr.Address)
	Unregister(serviceName string, address *addr.Address)
}

// Watcher lets a stub factory resolve a service name to a live address,
// and react as instances come and go.
type Watcher interface {
	Instances(serviceName string) []*addr.Address
	WatchRegistered(serviceName string, onChange func()) CancelFunc
	WatchUnregistered(serviceName string, onChange func()) CancelFunc
}

type Registry interface {
	Registerer
	Watcher
}
