// Package redis is a Redis-backed events.Sink, grounded on the teacher's
// pubsub/redis.Event, using github.com/mediocregopher/radix/v3 to publish
// a JSON-encoded event onto a channel per (interface, event type).
package redis

import (
	"encoding/json"
	"fmt"

	"github.com/mediocregopher/radix/v3"

	"github.com/f0mster/rmi/pkg/events"
)

type Sink struct {
	pool *radix.Pool
}

func New(network, address string, poolSize int) (*Sink, error) {
	pool, err := radix.NewPool(network, address, poolSize)
	if err != nil {
		return nil, fmt.Errorf("events/redis: pool create: %w", err)
	}
	return &Sink{pool: pool}, nil
}

func (s *Sink) Close() error {
	return s.pool.Close()
}

type wireEvent struct {
	Type      string `json:"type"`
	Interface string `json:"interface"`
	Method    string `json:"method"`
	Address   string `json:"address"`
	Err       string `json:"err,omitempty"`
	AtUnixNs  int64  `json:"at_unix_ns"`
}

// Publish is fire-and-forget: a publish failure never propagates back into
// the RMI call path, per package events's contract. It is logged nowhere
// here on purpose; callers that need visibility should wrap Sink with
// their own logging decorator.
func (s *Sink) Publish(evt events.Event) {
	channel := evt.Interface + ":" + string(evt.Type)
	we := wireEvent{
		Type:      string(evt.Type),
		Interface: evt.Interface,
		Method:    evt.Method,
		Address:   evt.Address,
		AtUnixNs:  evt.At.UnixNano(),
	}
	if evt.Err != nil {
		we.Err = evt.Err.Error()
	}
	payload, err := json.Marshal(we)
	if err != nil {
		return
	}
	_ = s.pool.Do(radix.Cmd(nil, "PUBLISH", channel, string(payload)))
}
