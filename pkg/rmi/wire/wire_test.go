package wire_test

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/f0mster/rmi/pkg/rmi/wire"
)

func TestCodec_RequestResponseRoundTrip(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		codec, err := wire.NewCodec(conn)
		if err != nil {
			serverDone <- err
			return
		}
		defer codec.Close()

		req, err := codec.ReadRequest()
		if err != nil {
			serverDone <- err
			return
		}
		if req.MethodName != "Ping" {
			serverDone <- err
			return
		}
		serverDone <- codec.WriteResponse(&wire.Response{
			Status:  wire.StatusSuccess,
			Payload: "pong0",
		})
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	codec, err := wire.NewCodec(conn)
	require.NoError(t, err)
	defer codec.Close()

	req := &wire.Request{
		MethodName:         "Ping",
		ParameterTypeNames: []string{"int32"},
		Arguments:          []interface{}{int32(0)},
		DeclaredReturnType: "string",
	}
	require.NoError(t, codec.WriteRequest(req))

	resp, err := codec.ReadResponse()
	require.NoError(t, err)
	require.Equal(t, wire.StatusSuccess, resp.Status)
	require.Equal(t, "pong0", resp.Payload)

	require.NoError(t, <-serverDone)
}

func TestCodec_RejectsBadHeader(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		_, _ = conn.Write([]byte("XXXX"))
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	_, err = wire.NewCodec(conn)
	require.Error(t, err)
}
