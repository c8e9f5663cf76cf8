package stub_test

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/rmi/pkg/rmi/addr"
	"github.com/f0mster/rmi/pkg/rmi/descriptor"
	rmierrors "github.com/f0mster/rmi/pkg/rmi/errors"
	"github.com/f0mster/rmi/pkg/rmi/skeleton"
	"github.com/f0mster/rmi/pkg/rmi/stub"
	"github.com/f0mster/rmi/pkg/rmiregistry/memory"
)

type Pinger interface {
	Ping(i int32) (string, error)
}

type pingerImpl struct{}

func (pingerImpl) Ping(i int32) (string, error) { return "pong", nil }

func pingerDescriptor(t *testing.T) *descriptor.Descriptor {
	t.Helper()
	ifaceType := reflect.TypeOf((*Pinger)(nil)).Elem()
	d, err := descriptor.Describe(ifaceType, map[string][]reflect.Type{
		"Ping": {reflect.TypeOf(&rmierrors.Error{})},
	})
	require.NoError(t, err)
	return d
}

// skeletonSatisfiesAddressProvider is a compile-time check that
// *skeleton.Skeleton structurally satisfies stub's unexported
// addressProvider interface, without either package importing the other's
// concrete type.
func skeletonSatisfiesAddressProvider(s *skeleton.Skeleton) interface {
	Address() (string, int, bool)
} {
	return s
}

func TestInvoker_EqualityIsNetworkFree(t *testing.T) {
	d := pingerDescriptor(t)
	factory := stub.NewFactory()

	a1 := &addr.Address{Host: "host-a", Port: 1234}
	a2 := &addr.Address{Host: "host-a", Port: 1234}
	a3 := &addr.Address{Host: "host-b", Port: 1234}

	i1, err := factory.CreateAtAddress(d, a1)
	require.NoError(t, err)
	i2, err := factory.CreateAtAddress(d, a2)
	require.NoError(t, err)
	i3, err := factory.CreateAtAddress(d, a3)
	require.NoError(t, err)

	require.True(t, i1.Equal(i2))
	require.False(t, i1.Equal(i3))
	require.Equal(t, i1.HashCode(), i2.HashCode())
}

func TestInvoker_DifferentInterfaceNotEqual(t *testing.T) {
	type OtherIface interface {
		Ping(i int32) (string, error)
	}
	other := reflect.TypeOf((*OtherIface)(nil)).Elem()
	otherDesc, err := descriptor.Describe(other, map[string][]reflect.Type{
		"Ping": {reflect.TypeOf(&rmierrors.Error{})},
	})
	require.NoError(t, err)

	d := pingerDescriptor(t)
	factory := stub.NewFactory()
	a := &addr.Address{Host: "host-a", Port: 1234}

	i1, err := factory.CreateAtAddress(d, a)
	require.NoError(t, err)
	i2, err := factory.CreateAtAddress(otherDesc, a)
	require.NoError(t, err)

	require.False(t, i1.Equal(i2))
}

func TestInvoker_String(t *testing.T) {
	d := pingerDescriptor(t)
	factory := stub.NewFactory()
	a := &addr.Address{Host: "127.0.0.1", Port: 9000}

	in, err := factory.CreateAtAddress(d, a)
	require.NoError(t, err)
	require.Equal(t, d.Name+", 127.0.0.1:9000", in.String())
}

func TestFactory_CreateRejectsNilDescriptor(t *testing.T) {
	factory := stub.NewFactory()
	_, err := factory.CreateAtAddress(nil, &addr.Address{Host: "h", Port: 1})
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.NullArgument))
}

func TestFactory_CreateAtAddressRejectsNilAddress(t *testing.T) {
	d := pingerDescriptor(t)
	factory := stub.NewFactory()
	_, err := factory.CreateAtAddress(d, nil)
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.NullArgument))
}

func TestFactory_CreateFailsBeforeSkeletonStarted(t *testing.T) {
	d := pingerDescriptor(t)
	sk, err := skeleton.New(d, pingerImpl{}, nil)
	require.NoError(t, err)

	_, err = stub.NewFactory().Create(d, sk)
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.IllegalState))
}

func TestFactory_CreateWithHostnameRejectsEmptyHostname(t *testing.T) {
	d := pingerDescriptor(t)
	sk, err := skeleton.New(d, pingerImpl{}, &addr.Address{Host: "127.0.0.1", Port: 0})
	require.NoError(t, err)
	require.NoError(t, sk.Start())
	defer sk.Stop()

	_, err = stub.NewFactory().CreateWithHostname(d, sk, "")
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.NullArgument))
}

func TestFactory_CreateDiscoveredRejectsUnknownService(t *testing.T) {
	d := pingerDescriptor(t)
	reg := memory.New()
	factory := stub.NewFactory()

	_, err := factory.CreateDiscovered(d, reg, "no-such-service")
	require.Error(t, err)
	require.True(t, rmierrors.Is(err, rmierrors.IllegalState))
}

func TestFactory_CreateDiscoveredResolvesRegisteredInstance(t *testing.T) {
	d := pingerDescriptor(t)
	reg := memory.New()
	a := &addr.Address{Host: "127.0.0.1", Port: 4000}
	reg.Register("pinger", a)

	factory := stub.NewFactory()
	in, err := factory.CreateDiscovered(d, reg, "pinger")
	require.NoError(t, err)
	require.Equal(t, a.String(), in.Address().String())
}
