package unreliable

import (
	"net/netip"

	"github.com/TyOverby/unreliable/pkt"
	"github.com/TyOverby/unreliable/queue"
	"github.com/TyOverby/unreliable/sock"
)

// Receiver is the receiving end of an unreliable message socket. It keeps
// one reassembly queue per observed source address and hands back messages
// as they complete.
//
// A Receiver is not safe for concurrent use.
type Receiver struct {
	socket sock.Socket
	queues map[netip.AddrPort]*queue.MsgQueue // Maps source addresses to their reassembly queues
	buf    []byte
	config *Config
}

// NewReceiver creates a Receiver that reads from socket. The read buffer is
// sized to config.DatagramLength; datagrams larger than that are truncated
// by the transport and will fail to decode.
func NewReceiver(socket sock.Socket, config *Config) (*Receiver, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Receiver{
		socket: socket,
		queues: make(map[netip.AddrPort]*queue.MsgQueue),
		buf:    make([]byte, config.DatagramLength),
		config: config,
	}, nil
}

// Poll blocks until a complete message has been reassembled and returns it
// together with the address it came from. It loops internally, consuming as
// many datagrams as it takes for some message to complete.
//
// Poll returns early on a transport error or when a datagram fails to decode
// (truncated, corrupt or not a chunk at all). Decode failures are not fatal
// to the Receiver: its reassembly state is untouched and the caller should
// log the error and call Poll again.
func (r *Receiver) Poll() (netip.AddrPort, pkt.CompleteMessage, error) {
	for {
		n, from, err := r.socket.ReceiveFrom(r.buf)
		if err != nil {
			return netip.AddrPort{}, pkt.CompleteMessage{}, err
		}

		chunk, err := pkt.ParseChunk(r.buf[:n])
		if err != nil {
			log.Warningf("dropping malformed datagram from %s: %v", from, err)
			return netip.AddrPort{}, pkt.CompleteMessage{}, err
		}

		q, exists := r.queues[from]
		if !exists {
			q = queue.NewMsgQueue(r.config.MaxBufferBytes)
			r.queues[from] = q
		}

		if msg, ok := q.InsertChunk(*chunk); ok {
			return from, msg, nil
		}
	}
}
