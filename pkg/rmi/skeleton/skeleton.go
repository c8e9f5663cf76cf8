// Package skeleton implements the RMI runtime's server side: a listening
// socket, a listener task, and one service task per accepted connection,
// dispatching each request to an implementation object by reflection.
//
// Grounded on original_source/rmi/Skeleton.java's ListenThread/
// ServiceThread pair, adapted to Go goroutines and an explicit lock-guarded
// state field (spec §3, §5) instead of Java's synchronized methods.
package skeleton

import (
	"fmt"
	"net"
	"os"
	"reflect"
	"sync"
	"time"

	"github.com/f0mster/rmi/pkg/events"
	"github.com/f0mster/rmi/pkg/logging"
	"github.com/f0mster/rmi/pkg/rmi/addr"
	"github.com/f0mster/rmi/pkg/rmi/descriptor"
	rmierrors "github.com/f0mster/rmi/pkg/rmi/errors"
	"github.com/f0mster/rmi/pkg/rmi/wire"
	"github.com/f0mster/rmi/pkg/rmiregistry"
)

// State is one of the four states of spec §3's SkeletonState machine.
type State int

const (
	Created State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Config carries the skeleton's overridable hooks (spec §4.4.5) and its
// ambient/domain dependencies, in the teacher's functional-options style
// (pkg/server.Config's Before*/After* fields).
type Config struct {
	Logger logging.Logger
	Events events.Sink

	// Registry and ServiceName are optional: when Registry is set the
	// skeleton advertises itself under ServiceName on Start and withdraws
	// on Stop (package rmiregistry, a SPEC_FULL domain addition).
	Registry    rmiregistry.Registry
	ServiceName string

	// Stopped is called exactly once, after the listener task has fully
	// exited, with the cause of termination or nil for a clean stop.
	Stopped func(cause error)
	// ListenError is called on any top-level accept-loop error; returning
	// true resumes accepting, false (the default, via a nil func) shuts
	// the skeleton down.
	ListenError func(err error) bool
	// ServiceError is called for any service-task failure that is not
	// the user method's own failure.
	ServiceError func(err *rmierrors.Error)
}

type Option func(*Config)

func WithLogger(l logging.Logger) Option           { return func(c *Config) { c.Logger = l } }
func WithEvents(e events.Sink) Option              { return func(c *Config) { c.Events = e } }
func WithStoppedHook(f func(error)) Option         { return func(c *Config) { c.Stopped = f } }
func WithListenErrorHook(f func(error) bool) Option { return func(c *Config) { c.ListenError = f } }
func WithServiceErrorHook(f func(*rmierrors.Error)) Option {
	return func(c *Config) { c.ServiceError = f }
}

// WithRegistry makes the skeleton advertise itself under serviceName on
// Start and withdraw on Stop.
func WithRegistry(reg rmiregistry.Registry, serviceName string) Option {
	return func(c *Config) { c.Registry = reg; c.ServiceName = serviceName }
}

// Skeleton owns a listening socket and dispatches each accepted
// connection's single Request to impl, per spec §4.4.
type Skeleton struct {
	mu      sync.Mutex
	state   State
	desc    *descriptor.Descriptor
	impl    reflect.Value
	address *addr.Address

	listener     net.Listener
	listenerDone chan struct{}

	config Config
}

// New validates the descriptor (spec §4.1), rejects a nil descriptor or
// implementation with NullArgument, and rejects an implementation that
// does not satisfy the described interface with BadInterface.
func New(desc *descriptor.Descriptor, impl interface{}, address *addr.Address, opts ...Option) (*Skeleton, error) {
	if desc == nil {
		return nil, rmierrors.New(rmierrors.NullArgument, "descriptor is nil")
	}
	if impl == nil {
		return nil, rmierrors.New(rmierrors.NullArgument, "implementation is nil")
	}
	if err := descriptor.Validate(desc); err != nil {
		return nil, err
	}
	implType := reflect.TypeOf(impl)
	if !implType.Implements(desc.Type) {
		return nil, rmierrors.New(rmierrors.BadInterface, "implementation does not implement the descriptor's interface")
	}

	cfg := Config{}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Skeleton{
		desc:    desc,
		impl:    reflect.ValueOf(impl),
		address: address,
		config:  cfg,
		state:   Created,
	}, nil
}

// Address reports the skeleton's current address, safe to call in any
// state. ok is false only while the skeleton has no address at all: it was
// constructed with a nil address and has not yet started. An address given
// at construction is reported before Start, with its configured port.
func (s *Skeleton) Address() (host string, port int, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address == nil {
		return "", 0, false
	}
	return s.address.Host, s.address.Port, true
}

// GetAddress mirrors spec §6's skeleton.getAddress() accessor.
func (s *Skeleton) GetAddress() *addr.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.address == nil {
		return nil
	}
	cp := *s.address
	return &cp
}

// GetPort mirrors spec §6's skeleton.getPort() accessor.
func (s *Skeleton) GetPort() int {
	_, port, _ := s.Address()
	return port
}

func (s *Skeleton) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start binds the listening socket and launches the listener task,
// returning immediately (spec §4.4.1). Calling Start on a Running skeleton
// fails with Transport; calling it from Stopping does too. Stopped and
// Created both succeed, making the skeleton restartable in place (spec
// §3's STOPPED -> RUNNING transition).
func (s *Skeleton) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Running {
		return rmierrors.New(rmierrors.Transport, "already running")
	}
	if s.state == Stopping {
		return rmierrors.New(rmierrors.Transport, "skeleton is stopping")
	}

	hostport := ":0"
	if s.address != nil {
		hostport = fmt.Sprintf("%s:%d", s.address.Host, s.address.Port)
	}
	ln, err := net.Listen("tcp", hostport)
	if err != nil {
		return rmierrors.Wrap(rmierrors.Transport, err)
	}

	tcpAddr := ln.Addr().(*net.TCPAddr)
	if s.address == nil {
		host, hostErr := os.Hostname()
		if hostErr != nil {
			host = "localhost"
		}
		s.address = &addr.Address{Host: host, Port: tcpAddr.Port}
	} else {
		s.address.Port = tcpAddr.Port
	}

	s.listener = ln
	s.state = Running
	s.listenerDone = make(chan struct{})

	if s.config.Registry != nil {
		s.config.Registry.Register(s.config.ServiceName, s.address)
	}
	if s.config.Logger != nil {
		s.config.Logger.Info("skeleton started", map[string]interface{}{"address": s.address.String()})
	}

	go s.listen(ln)
	return nil
}

// Stop signals the listener to exit, closes the listening socket, waits
// for the listener task to join, and calls the Stopped hook exactly once
// (spec §4.4.4). In-flight service tasks are not cancelled. Stop on a
// non-Running skeleton is a no-op: no hook is called.
func (s *Skeleton) Stop() {
	s.mu.Lock()
	if s.state != Running {
		s.mu.Unlock()
		return
	}
	s.state = Stopping
	ln := s.listener
	done := s.listenerDone
	s.mu.Unlock()

	_ = ln.Close()
	<-done
}

func (s *Skeleton) listen(ln net.Listener) {
	var cause error
	defer func() {
		s.mu.Lock()
		s.state = Stopped
		serviceName, addrCopy := s.config.ServiceName, s.address
		done := s.listenerDone
		s.mu.Unlock()

		if s.config.Registry != nil && addrCopy != nil {
			s.config.Registry.Unregister(serviceName, addrCopy)
		}
		if s.config.Logger != nil {
			s.config.Logger.Info("skeleton stopped", map[string]interface{}{"cause": fmt.Sprint(cause)})
		}
		if s.config.Stopped != nil {
			s.config.Stopped(cause)
		}
		close(done)
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			stopping := s.state == Stopping
			s.mu.Unlock()
			if stopping {
				return
			}
			if s.config.ListenError != nil && s.config.ListenError(err) {
				continue
			}
			cause = err
			return
		}
		go s.serve(conn)
	}
}

func (s *Skeleton) reportServiceError(err *rmierrors.Error) {
	if s.config.Logger != nil {
		s.config.Logger.Error(err, "service task failed", nil)
	}
	if s.config.ServiceError != nil {
		s.config.ServiceError(err)
	}
}

func (s *Skeleton) publish(evt events.Event) {
	if s.config.Events == nil {
		return
	}
	evt.Interface = s.desc.Name
	evt.At = time.Now()
	s.config.Events.Publish(evt)
}

// serve is the service task of spec §4.4.3: exactly one request/response
// pair per accepted connection.
func (s *Skeleton) serve(conn net.Conn) {
	defer conn.Close()

	codec, err := wire.NewCodec(conn)
	if err != nil {
		s.reportServiceError(rmierrors.Wrap(rmierrors.Transport, err))
		return
	}
	defer codec.Close()

	req, err := codec.ReadRequest()
	if err != nil {
		tErr := rmierrors.Wrap(rmierrors.Transport, err)
		s.reportServiceError(tErr)
		_ = codec.WriteResponse(&wire.Response{Status: wire.StatusFailed, Payload: tErr})
		return
	}

	s.publish(events.Event{Type: events.CallStarted, Method: req.MethodName})

	resp := s.dispatch(req)
	if resp.Status == wire.StatusFailed {
		if tErr, ok := resp.Payload.(*rmierrors.Error); ok {
			s.reportServiceError(tErr)
		}
	}
	_ = codec.WriteResponse(resp)
	s.publish(events.Event{Type: events.CallCompleted, Method: req.MethodName})
}

// dispatch resolves the method and reflectively invokes it on the
// implementation object, recovering from any panic raised by a mismatched
// argument so a malformed request can never crash the skeleton (spec §5:
// "the runtime guarantees only that it never calls a method with malformed
// arguments").
func (s *Skeleton) dispatch(req *wire.Request) (resp *wire.Response) {
	method, ok := s.desc.Resolve(req.MethodName, req.ParameterTypeNames)
	if !ok {
		return &wire.Response{
			Status: wire.StatusFailed,
			Payload: rmierrors.New(rmierrors.Transport,
				fmt.Sprintf("no method %s%v on %s", req.MethodName, req.ParameterTypeNames, s.desc.Name)),
		}
	}
	if len(req.Arguments) != len(method.ParamTypes) {
		return &wire.Response{
			Status:  wire.StatusFailed,
			Payload: rmierrors.New(rmierrors.Transport, "argument count mismatch"),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			resp = &wire.Response{
				Status:  wire.StatusFailed,
				Payload: rmierrors.New(rmierrors.Transport, fmt.Sprintf("dispatch panic: %v", r)),
			}
		}
	}()

	args := make([]reflect.Value, len(method.ParamTypes))
	for i, pt := range method.ParamTypes {
		if req.Arguments[i] == nil {
			args[i] = reflect.Zero(pt)
			continue
		}
		v := reflect.ValueOf(req.Arguments[i])
		if !v.Type().AssignableTo(pt) {
			if v.Type().ConvertibleTo(pt) {
				v = v.Convert(pt)
			} else {
				return &wire.Response{
					Status: wire.StatusFailed,
					Payload: rmierrors.New(rmierrors.Transport,
						fmt.Sprintf("argument %d: cannot use %s as %s", i, v.Type(), pt)),
				}
			}
		}
		args[i] = v
	}

	results := s.impl.MethodByName(method.Name).Call(args)
	errVal := results[len(results)-1]
	if !errVal.IsNil() {
		callErr := errVal.Interface().(error)
		return &wire.Response{Status: wire.StatusFailed, Payload: callErr}
	}
	if method.ReturnType == nil {
		return &wire.Response{Status: wire.StatusVoid}
	}
	return &wire.Response{Status: wire.StatusSuccess, Payload: results[0].Interface()}
}
