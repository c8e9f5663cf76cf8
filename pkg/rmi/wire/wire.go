// Package wire implements the RMI runtime's WireEnvelope: the Request and
// Response shapes carried over a connection, and the codec that reads and
// writes them.
//
// Arguments and return values are arbitrary Go values, so the codec is
// built on encoding/gob rather than a fixed-schema serializer: gob is the
// standard idiom for round-tripping values of a type unknown to the codec
// ahead of time (the same reason net/rpc's default codec uses it), and no
// third-party library in scope offers that without requiring every
// argument type to be a generated message. Concrete argument and failure
// types must be registered with Register before they cross the wire,
// exactly as encoding/gob requires for values carried behind an interface.
package wire

import (
	"bufio"
	"encoding/gob"
	"fmt"
	"io"
	"net"

	rmierrors "github.com/f0mster/rmi/pkg/rmi/errors"
)

// header is exchanged by both endpoints before any envelope is sent, so
// that a write-flush-then-read discipline is enforced structurally instead
// of relying on gob's own lazy type-header behavior. Both the stub and the
// skeleton write their own header and flush it before attempting to read
// the peer's, which is what breaks the classic deadlock where both ends
// block on read (spec §4.2, §4.4.3 step 1).
const header = "RMI1"

func init() {
	gob.Register(&rmierrors.Error{})
}

// Register makes a concrete type transportable as an argument, a return
// value, or a failure payload. Call it once at program init for every
// concrete type your remote interfaces exchange, mirroring how
// encoding/gob itself requires interface-held concrete types to be known
// ahead of decode time.
func Register(value interface{}) {
	gob.Register(value)
}

// Status is one of the three literal response tags fixed by spec §3 and
// §9 (the source's inconsistent "FAILED"/"SUCCESS" casing is not carried
// forward).
type Status string

const (
	StatusSuccess Status = "success"
	StatusVoid    Status = "void"
	StatusFailed  Status = "failed"
)

// Request is sent once, client to server, per connection.
type Request struct {
	MethodName         string
	ParameterTypeNames []string
	Arguments          []interface{}
	DeclaredReturnType string
}

// Response is sent once, server to client, per connection, after which the
// connection is closed.
type Response struct {
	Status  Status
	Payload interface{}
}

// Codec reads and writes envelopes on one connection. The same type serves
// both the stub (one Request out, one Response in) and the skeleton's
// per-connection service task (one Request in, one Response out): the
// header exchange and buffering discipline are identical on both sides.
type Codec struct {
	conn net.Conn
	bw   *bufio.Writer
	enc  *gob.Encoder
	dec  *gob.Decoder
}

// NewCodec writes and flushes this endpoint's header, then reads the
// peer's header, before constructing the gob encoder/decoder pair. Both
// endpoints call this identically; because the write happens before the
// read on both sides, the two header writes cross in flight instead of
// each side blocking on the other's read.
func NewCodec(conn net.Conn) (*Codec, error) {
	bw := bufio.NewWriter(conn)
	if _, err := bw.WriteString(header); err != nil {
		return nil, rmierrors.Wrap(rmierrors.Transport, err)
	}
	if err := bw.Flush(); err != nil {
		return nil, rmierrors.Wrap(rmierrors.Transport, err)
	}

	got := make([]byte, len(header))
	if _, err := io.ReadFull(conn, got); err != nil {
		return nil, rmierrors.Wrap(rmierrors.Transport, err)
	}
	if string(got) != header {
		return nil, rmierrors.New(rmierrors.Transport, fmt.Sprintf("bad wire header %q", got))
	}

	return &Codec{
		conn: conn,
		bw:   bw,
		enc:  gob.NewEncoder(bw),
		dec:  gob.NewDecoder(conn),
	}, nil
}

func (c *Codec) WriteRequest(req *Request) error {
	if err := c.enc.Encode(req); err != nil {
		return rmierrors.Wrap(rmierrors.Transport, err)
	}
	if err := c.bw.Flush(); err != nil {
		return rmierrors.Wrap(rmierrors.Transport, err)
	}
	return nil
}

func (c *Codec) ReadRequest() (*Request, error) {
	var req Request
	if err := c.dec.Decode(&req); err != nil {
		return nil, rmierrors.Wrap(rmierrors.Transport, err)
	}
	return &req, nil
}

func (c *Codec) WriteResponse(resp *Response) error {
	if err := c.enc.Encode(resp); err != nil {
		return rmierrors.Wrap(rmierrors.Transport, err)
	}
	if err := c.bw.Flush(); err != nil {
		return rmierrors.Wrap(rmierrors.Transport, err)
	}
	return nil
}

func (c *Codec) ReadResponse() (*Response, error) {
	var resp Response
	if err := c.dec.Decode(&resp); err != nil {
		return nil, rmierrors.Wrap(rmierrors.Transport, err)
	}
	return &resp, nil
}

// Close closes the underlying connection. The RMI runtime opens exactly
// one connection per call (spec §4.3) and closes it on every exit path.
func (c *Codec) Close() error {
	return c.conn.Close()
}
