package reactor

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestTcpServerEchoEndToEnd drives a real TcpServer over loopback TCP,
// exercising Acceptor -> LoopPool -> Connection -> Buffer end to end
// (spec.md §8's echo scenario).
func TestTcpServerEchoEndToEnd(t *testing.T) {
	const port = 18391
	server, err := NewTcpServer(port)
	require.NoError(t, err)
	server.SetThreadNum(2)
	server.SetMessageCallback(func(conn *Connection, buf *Buffer) {
		data := make([]byte, buf.Readable())
		copy(data, buf.ReadPtr())
		buf.AdvanceRead(len(data))
		assert.NoError(t, conn.Send(data))
	})

	go server.Start()
	time.Sleep(200 * time.Millisecond)

	conn, err := net.Dial("tcp", "127.0.0.1:18391")
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	reply := make([]byte, 4)
	_, err = conn.Read(reply)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(reply))
}

func TestNewTcpServerRejectsOutOfRangePort(t *testing.T) {
	_, err := NewTcpServer(0)
	assert.ErrorIs(t, err, ErrBadAddress)

	_, err = NewTcpServer(70000)
	assert.ErrorIs(t, err, ErrBadAddress)
}
