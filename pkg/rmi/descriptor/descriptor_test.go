package descriptor_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/rmi/pkg/rmi/descriptor"
	rmierrors "github.com/f0mster/rmi/pkg/rmi/errors"
)

type Pinger interface {
	Ping(i int32) (string, error)
}

type BadPinger interface {
	Ping(i int32) (string, error)
}

type NotAnInterfaceType struct{}

func pingerFailures() map[string][]reflect.Type {
	return map[string][]reflect.Type{
		"Ping": {reflect.TypeOf(&rmierrors.Error{})},
	}
}

func TestDescribe_ValidRemoteInterface(t *testing.T) {
	ifaceType := reflect.TypeOf((*Pinger)(nil)).Elem()
	d, err := descriptor.Describe(ifaceType, pingerFailures())
	require.NoError(t, err)
	require.NoError(t, descriptor.Validate(d))
	require.Contains(t, d.Name, "Pinger")

	m, ok := d.MethodByName("Ping")
	require.True(t, ok)
	require.Equal(t, []string{"int32"}, m.ParamTypeNames())
	require.Equal(t, "string", m.ReturnTypeName())
}

func TestValidate_RejectsMissingTransportFailure(t *testing.T) {
	ifaceType := reflect.TypeOf((*BadPinger)(nil)).Elem()
	d, err := descriptor.Describe(ifaceType, map[string][]reflect.Type{
		"Ping": {reflect.TypeOf("")}, // does not declare *errors.Error
	})
	require.NoError(t, err)

	err = descriptor.Validate(d)
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.BadInterface))
}

func TestDescribe_RejectsNonInterface(t *testing.T) {
	_, err := descriptor.Describe(reflect.TypeOf(NotAnInterfaceType{}), nil)
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.BadInterface))
}

func TestDescribe_RejectsNilType(t *testing.T) {
	_, err := descriptor.Describe(nil, nil)
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.NullArgument))
}

func TestResolve_ExactMatchOnly(t *testing.T) {
	ifaceType := reflect.TypeOf((*Pinger)(nil)).Elem()
	d, err := descriptor.Describe(ifaceType, pingerFailures())
	require.NoError(t, err)

	m, ok := d.Resolve("Ping", []string{"int32"})
	require.True(t, ok)
	require.Equal(t, "Ping", m.Name)

	_, ok = d.Resolve("Ping", []string{"int64"})
	require.False(t, ok)

	_, ok = d.Resolve("Pong", []string{"int32"})
	require.False(t, ok)
}
