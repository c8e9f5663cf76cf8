package redis_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mediocregopher/radix/v3"
	"github.com/ory/dockertest/v3"
	"github.com/stretchr/testify/require"

	"github.com/f0mster/rmi/pkg/events"
	eventsredis "github.com/f0mster/rmi/pkg/events/redis"
)

// TestSink_Publish spins up a real Redis container and asserts that a
// published event lands on the expected pub/sub channel with the expected
// JSON shape. Grounded on pubsub/redis's dockertest harness: pool.Run,
// exponential-backoff retry via pool.Retry, and pool.Purge on teardown.
//
// Requires a reachable docker daemon. The test is skipped only when the
// dockertest pool cannot be created; with no daemon running it fails at
// pool.Run.
func TestSink_Publish(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker not available: %s", err)
	}

	resource, err := pool.Run("redis", "6.0.8-alpine3.12", nil)
	require.NoError(t, err)
	defer pool.Purge(resource)

	addr := "127.0.0.1:" + resource.GetPort("6379/tcp")
	var conn radix.Conn
	require.NoError(t, pool.Retry(func() error {
		conn, err = radix.Dial("tcp", addr)
		return err
	}))
	defer conn.Close()

	sink, err := eventsredis.New("tcp", addr, 4)
	require.NoError(t, err)
	defer sink.Close()

	iface := "TestInterface" + uuid.NewString()
	channel := iface + ":" + string(events.CallCompleted)

	sub := radix.PubSub(conn)
	msgCh := make(chan radix.PubSubMessage, 1)
	require.NoError(t, sub.Subscribe(msgCh, channel))
	defer sub.Close()

	sink.Publish(events.Event{
		Type:      events.CallCompleted,
		Interface: iface,
		Method:    "Ping",
		Address:   "127.0.0.1:9000",
		At:        time.Now(),
	})

	select {
	case msg := <-msgCh:
		require.True(t, strings.HasPrefix(string(msg.Message), "{"))
		var decoded map[string]interface{}
		require.NoError(t, json.Unmarshal(msg.Message, &decoded))
		require.Equal(t, "Ping", decoded["method"])
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}
