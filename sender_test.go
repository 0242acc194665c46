package unreliable

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/TyOverby/unreliable/pkt"
)

type sentDatagram struct {
	addr netip.AddrPort
	data []byte
}

type inboundDatagram struct {
	from netip.AddrPort
	data []byte
}

// mockSocket records sent datagrams and replays queued inbound ones.
type mockSocket struct {
	sent    []sentDatagram
	inbound []inboundDatagram
	sendErr error
}

func (m *mockSocket) LocalAddr() (netip.AddrPort, error) {
	return netip.MustParseAddrPort("127.0.0.1:1234"), nil
}

func (m *mockSocket) SendTo(addr netip.AddrPort, data []byte) error {
	if m.sendErr != nil {
		return m.sendErr
	}

	stored := make([]byte, len(data))
	copy(stored, data)
	m.sent = append(m.sent, sentDatagram{addr: addr, data: stored})
	return nil
}

func (m *mockSocket) ReceiveFrom(buf []byte) (int, netip.AddrPort, error) {
	if len(m.inbound) == 0 {
		return 0, netip.AddrPort{}, errors.New("no more inbound datagrams")
	}

	next := m.inbound[0]
	m.inbound = m.inbound[1:]

	n := copy(buf, next.data)
	return n, next.from, nil
}

func (m *mockSocket) Close() error {
	return nil
}

// testConfig slices messages into 4-byte chunks.
func testConfig() *Config {
	return &Config{
		DatagramLength: pkt.MsgPadding + 4,
		Replication:    1,
		MaxBufferBytes: 0,
	}
}

func TestSenderChunking(t *testing.T) {
	sender, err := NewSender(&mockSocket{}, testConfig())
	require.NoError(t, err)

	require.NoError(t, sender.Enqueue([]byte("0123456789"), "127.0.0.1:9000"))
	require.Equal(t, 3, sender.QueuedChunks())

	want := []struct {
		index   uint16
		payload string
	}{
		{1, "0123"}, {2, "4567"}, {3, "89"},
	}
	for i, w := range want {
		chunk := sender.outQueue[i].chunk
		assert.Equal(t, pkt.MsgID(1), chunk.ID)
		assert.Equal(t, pkt.PieceNum{Index: w.index, Total: 3}, chunk.Piece)
		assert.Equal(t, []byte(w.payload), chunk.Payload)
	}

	// The next message draws the next ID from the shared counter.
	require.NoError(t, sender.Enqueue([]byte("x"), "127.0.0.1:9001"))
	assert.Equal(t, pkt.MsgID(2), sender.outQueue[3].chunk.ID)
}

func TestSenderEmptyMessage(t *testing.T) {
	sender, err := NewSender(&mockSocket{}, testConfig())
	require.NoError(t, err)

	require.NoError(t, sender.Enqueue(nil, "127.0.0.1:9000"))
	require.Equal(t, 1, sender.QueuedChunks())

	chunk := sender.outQueue[0].chunk
	assert.Equal(t, pkt.PieceNum{Index: 1, Total: 1}, chunk.Piece)
	assert.Empty(t, chunk.Payload)
}

func TestSenderReplication(t *testing.T) {
	config := testConfig()
	config.Replication = 2

	sender, err := NewSender(&mockSocket{}, config)
	require.NoError(t, err)

	require.NoError(t, sender.Enqueue([]byte("01234567"), "127.0.0.1:9000"))
	require.Equal(t, 4, sender.QueuedChunks())

	// Replica-by-replica: the full piece sequence repeats.
	wantIndices := []uint16{1, 2, 1, 2}
	for i, want := range wantIndices {
		assert.Equal(t, want, sender.outQueue[i].chunk.Piece.Index)
		assert.Equal(t, pkt.MsgID(1), sender.outQueue[i].chunk.ID)
	}
}

func TestSenderResolveFailure(t *testing.T) {
	sender, err := NewSender(&mockSocket{}, testConfig())
	require.NoError(t, err)

	err = sender.Enqueue([]byte("payload"), "127.0.0.1:notaport")
	assert.Error(t, err)
	assert.Zero(t, sender.QueuedChunks())
}

func TestSenderMessageTooLarge(t *testing.T) {
	sender, err := NewSender(&mockSocket{}, testConfig())
	require.NoError(t, err)

	// 4-byte chunks can number at most 65535 pieces.
	err = sender.Enqueue(make([]byte, 4*65535+1), "127.0.0.1:9000")
	assert.ErrorIs(t, err, ErrMessageTooLarge)
	assert.Zero(t, sender.QueuedChunks())

	// The failed message must not burn an ID.
	require.NoError(t, sender.Enqueue([]byte("ok"), "127.0.0.1:9000"))
	assert.Equal(t, pkt.MsgID(1), sender.outQueue[0].chunk.ID)
}

func TestSendOneAndSendAll(t *testing.T) {
	socket := &mockSocket{}
	sender, err := NewSender(socket, testConfig())
	require.NoError(t, err)

	require.NoError(t, sender.Enqueue([]byte("01234567"), "127.0.0.1:9000"))

	more, err := sender.SendOne()
	require.NoError(t, err)
	assert.True(t, more)

	more, err = sender.SendOne()
	require.NoError(t, err)
	assert.False(t, more)

	// Sending from an empty queue is a no-op.
	more, err = sender.SendOne()
	require.NoError(t, err)
	assert.False(t, more)

	require.Len(t, socket.sent, 2)
	dest := netip.MustParseAddrPort("127.0.0.1:9000")
	for i, sent := range socket.sent {
		assert.Equal(t, dest, sent.addr)
		assert.LessOrEqual(t, len(sent.data), int(testConfig().DatagramLength))

		chunk, err := pkt.ParseChunk(sent.data)
		require.NoError(t, err)
		assert.Equal(t, uint16(i+1), chunk.Piece.Index)
	}

	require.NoError(t, sender.Enqueue([]byte("0123456789ab"), "127.0.0.1:9000"))
	require.NoError(t, sender.SendAll())
	assert.Zero(t, sender.QueuedChunks())
	assert.Len(t, socket.sent, 5)
}

func TestSendOneTooLarge(t *testing.T) {
	sender, err := NewSender(&mockSocket{}, testConfig())
	require.NoError(t, err)

	// A chunk this big can only appear through misconfigured slicing.
	sender.outQueue = append(sender.outQueue, queuedChunk{
		chunk: pkt.Chunk{
			ID:      1,
			Piece:   pkt.PieceNum{Index: 1, Total: 1},
			Payload: make([]byte, int(testConfig().DatagramLength)),
		},
		dest: netip.MustParseAddrPort("127.0.0.1:9000"),
	})

	_, err = sender.SendOne()
	assert.ErrorIs(t, err, ErrChunkTooLarge)
}

func TestSendOneSurfacesTransportError(t *testing.T) {
	socket := &mockSocket{sendErr: errors.New("network unreachable")}
	sender, err := NewSender(socket, testConfig())
	require.NoError(t, err)

	require.NoError(t, sender.Enqueue([]byte("payload!"), "127.0.0.1:9000"))
	assert.Error(t, sender.SendAll())
}

func TestNewSenderRejectsBadConfig(t *testing.T) {
	_, err := NewSender(&mockSocket{}, &Config{DatagramLength: pkt.MsgPadding, Replication: 1})
	assert.Error(t, err)

	_, err = NewSender(&mockSocket{}, &Config{DatagramLength: 1200, Replication: 0})
	assert.Error(t, err)
}
