// Package descriptor builds and validates RemoteInterfaceDescriptor values:
// the shared shape the stub factory and the skeleton both use to agree on
// which methods a remote interface exposes and how to resolve one on the
// wire.
//
// Go has no equivalent of Java's checked exceptions, so there is no
// reflection API that hands back "the exception types a method declares".
// Describe therefore takes an explicit failures map alongside the
// interface's reflect.Type: for each method, the set of concrete error
// types that method promises to return. Validate's job is exactly the
// Java source's validate(): reject anything that is not an interface, and
// reject any method whose declared failure set does not include the
// runtime's transport failure type.
package descriptor

import (
	"fmt"
	"reflect"

	rmierrors "github.com/f0mster/rmi/pkg/rmi/errors"
)

// transportFailureType is the sentinel every declared method must carry in
// its failure set; it is the wire representation of errors.Transport.
var transportFailureType = reflect.TypeOf(&rmierrors.Error{})

// Method describes one method of a remote interface: its name, its ordered
// declared parameter types, its declared return type (nil for methods that
// only return an error), and the set of concrete failure types it may
// raise.
type Method struct {
	Name             string
	ParamTypes       []reflect.Type
	ReturnType       reflect.Type
	DeclaredFailures []reflect.Type
}

// ParamTypeNames returns the stable type identifiers used on the wire to
// match a Request against this method (see wire.Request).
func (m *Method) ParamTypeNames() []string {
	names := make([]string, len(m.ParamTypes))
	for i, t := range m.ParamTypes {
		names[i] = TypeID(t)
	}
	return names
}

// ReturnTypeName is the stable type identifier of the declared return type,
// or "" for a method that returns only an error.
func (m *Method) ReturnTypeName() string {
	if m.ReturnType == nil {
		return ""
	}
	return TypeID(m.ReturnType)
}

// DeclaresFailure reports whether failureType is in this method's declared
// failure set. Used by the stub to decide whether a decoded failure is
// re-raised as-is or wrapped in a transport failure (spec §4.3).
func (m *Method) DeclaresFailure(failureType reflect.Type) bool {
	for _, t := range m.DeclaredFailures {
		if t == failureType {
			return true
		}
	}
	return false
}

// Descriptor is a RemoteInterfaceDescriptor: a handle to a user interface
// type, its fully qualified name, and its declared methods.
type Descriptor struct {
	Name    string
	Type    reflect.Type
	Methods []*Method
}

// MethodByName finds a declared method by name, or (nil, false).
func (d *Descriptor) MethodByName(name string) (*Method, bool) {
	for _, m := range d.Methods {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// Resolve finds the declared method matching (name, paramTypeNames) by
// exact match, as the skeleton does when dispatching a Request (spec
// §4.2/§4.4.3): no widening, no auto-boxing beyond what Go's type system
// gives for free.
func (d *Descriptor) Resolve(name string, paramTypeNames []string) (*Method, bool) {
	m, ok := d.MethodByName(name)
	if !ok {
		return nil, false
	}
	got := m.ParamTypeNames()
	if len(got) != len(paramTypeNames) {
		return nil, false
	}
	for i := range got {
		if got[i] != paramTypeNames[i] {
			return nil, false
		}
	}
	return m, true
}

// TypeID is the stable type identifier used on the wire for a parameter or
// return type. reflect.Type.String() is stable within a single build of a
// Go program, which is all the wire protocol needs since both endpoints of
// spec §4.2 run the same compiled interface descriptor.
func TypeID(t reflect.Type) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// Describe builds a Descriptor from an interface's reflect.Type. failures
// maps each method name to the concrete error types that method promises
// to raise; every entry must include the runtime's transport failure type,
// enforced by Validate, not by Describe itself, matching spec §4.1's "both
// the stub factory... and the skeleton constructor... invoke this check"
// two-caller-one-rule design.
func Describe(ifaceType reflect.Type, failures map[string][]reflect.Type) (*Descriptor, error) {
	if ifaceType == nil {
		return nil, rmierrors.New(rmierrors.NullArgument, "interface type is nil")
	}
	if ifaceType.Kind() != reflect.Interface {
		return nil, rmierrors.New(rmierrors.BadInterface, "type does not represent an interface")
	}

	d := &Descriptor{
		Name: qualifiedName(ifaceType),
		Type: ifaceType,
	}

	for i := 0; i < ifaceType.NumMethod(); i++ {
		rm := ifaceType.Method(i)
		mt := rm.Type

		numOut := mt.NumOut()
		if numOut == 0 || numOut > 2 {
			return nil, rmierrors.New(rmierrors.BadInterface,
				fmt.Sprintf("method %s must return (value, error) or (error)", rm.Name))
		}
		errType := reflect.TypeOf((*error)(nil)).Elem()
		if !mt.Out(numOut - 1).Implements(errType) {
			return nil, rmierrors.New(rmierrors.BadInterface,
				fmt.Sprintf("method %s's last return value must implement error", rm.Name))
		}

		var returnType reflect.Type
		if numOut == 2 {
			returnType = mt.Out(0)
		}

		params := make([]reflect.Type, mt.NumIn())
		for j := 0; j < mt.NumIn(); j++ {
			params[j] = mt.In(j)
		}

		m := &Method{
			Name:             rm.Name,
			ParamTypes:       params,
			ReturnType:       returnType,
			DeclaredFailures: failures[rm.Name],
		}
		d.Methods = append(d.Methods, m)
	}

	return d, nil
}

// Validate enforces spec §4.1's two rules, in order:
//  1. descriptor must be non-nil and represent an interface.
//  2. every declared method's failure set must include the runtime's
//     transport failure type.
//
// Both the stub factory (before creating a proxy) and the skeleton
// constructor (before accepting requests) call this.
func Validate(d *Descriptor) error {
	if d == nil || d.Type == nil {
		return rmierrors.New(rmierrors.BadInterface, "descriptor is nil")
	}
	if d.Type.Kind() != reflect.Interface {
		return rmierrors.New(rmierrors.BadInterface, "descriptor does not represent an interface")
	}
	for _, m := range d.Methods {
		if !m.DeclaresFailure(transportFailureType) {
			return rmierrors.New(rmierrors.BadInterface,
				fmt.Sprintf("method %s does not declare the transport failure kind", m.Name))
		}
	}
	return nil
}

func qualifiedName(t reflect.Type) string {
	if t.PkgPath() == "" {
		return t.Name()
	}
	return t.PkgPath() + "." + t.Name()
}
