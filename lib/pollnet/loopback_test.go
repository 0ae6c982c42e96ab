package pollnet

import (
	"bytes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
	"time"
)

// TestLoopback drives a real server and client over 127.0.0.1
func TestLoopback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping socket test in short mode")
	}

	srv, err := NewServer[int](DefaultServerConfig())
	require.NoError(t, err)
	require.NoError(t, srv.Init("", "127.0.0.1", 0))
	defer srv.Close("test done")

	addr, err := srv.Addr()
	require.NoError(t, err)
	require.NotZero(t, addr.Port())

	serverHandler := &recorder{onData: func(c *Conn[int], data []byte) int {
		require.NoError(t, c.Write(bytes.ToUpper(data)))
		return 0
	}}

	cfg := DefaultClientConfig()
	cfg.ConnRetryInterval = 50 * time.Millisecond
	client, err := NewClient[int](cfg)
	require.NoError(t, err)
	require.NoError(t, client.Init("", "127.0.0.1", addr.Port(), 0))
	defer client.Shutdown("test done")

	var received []byte
	clientHandler := &recorder{
		onConnected: func(c *Conn[int]) {
			require.NoError(t, c.Write([]byte("ping")))
		},
		onData: func(c *Conn[int], data []byte) int {
			received = append(received, data...)
			return 0
		},
	}

	deadline := time.Now().Add(5 * time.Second)
	for string(received) != "PING" && time.Now().Before(deadline) {
		client.Poll(clientHandler)
		srv.Poll(serverHandler)
		time.Sleep(time.Millisecond)
	}

	require.Equal(t, "PING", string(received))
	assert.Equal(t, 1, srv.ConnCount())
	assert.Equal(t, 1, clientHandler.count("connected"))
	assert.Equal(t, 0, clientHandler.count("connect failed"))

	// a closing client is observed as an orderly remote close
	client.Shutdown("bye")
	for srv.ConnCount() > 0 && time.Now().Before(deadline) {
		srv.Poll(serverHandler)
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 0, srv.ConnCount())
	assert.Equal(t, 1, serverHandler.count("disconnected: remote close"))
}
