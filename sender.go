package unreliable

import (
	"errors"
	"fmt"
	"math"
	"net/netip"

	"github.com/TyOverby/unreliable/pkt"
	"github.com/TyOverby/unreliable/sock"
)

var (
	ErrChunkTooLarge   = errors.New("serialized chunk exceeds the configured datagram length")
	ErrMessageTooLarge = errors.New("message does not fit in 65535 chunks")
)

type queuedChunk struct {
	chunk pkt.Chunk
	dest  netip.AddrPort
}

// Sender is the sending end of an unreliable message socket. It slices
// outbound messages into chunks, queues them per destination and drains the
// queue onto the socket one datagram at a time.
//
// Message IDs are drawn from one counter shared across all destinations this
// Sender sends to, so any single peer observes a sparse but strictly
// increasing ID sequence.
//
// A Sender is not safe for concurrent use.
type Sender struct {
	outQueue []queuedChunk
	lastID   uint64
	socket   sock.Socket
	config   *Config
}

// NewSender creates a Sender that transmits through socket.
func NewSender(socket sock.Socket, config *Config) (*Sender, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}

	return &Sender{
		socket: socket,
		config: config,
	}, nil
}

// Enqueue slices a message into chunks addressed to dest and appends them to
// the outgoing queue, Replication times over. Nothing is transmitted yet;
// call SendOne or SendAll to drain the queue.
//
// It fails if dest cannot be resolved or if the message needs more chunks
// than the wire format can number; in both cases nothing is queued.
func (s *Sender) Enqueue(message []byte, dest string) error {
	addr, err := sock.Resolve(dest)
	if err != nil {
		return err
	}

	chunkSize := int(s.config.DatagramLength) - pkt.MsgPadding

	// An empty message still occupies one (empty) chunk so it can be
	// reassembled and delivered like any other.
	numChunks := (len(message) + chunkSize - 1) / chunkSize
	if numChunks == 0 {
		numChunks = 1
	}
	if numChunks > math.MaxUint16 {
		return fmt.Errorf("%w: message is %d bytes, %d chunks of %d bytes each", ErrMessageTooLarge, len(message), numChunks, chunkSize)
	}

	s.lastID++
	id := pkt.MsgID(s.lastID)

	for replica := 0; replica < s.config.Replication; replica++ {
		for i := 0; i < numChunks; i++ {
			start := i * chunkSize
			end := min(start+chunkSize, len(message))

			s.outQueue = append(s.outQueue, queuedChunk{
				chunk: pkt.Chunk{
					ID:      id,
					Piece:   pkt.PieceNum{Index: uint16(i + 1), Total: uint16(numChunks)},
					Payload: message[start:end],
				},
				dest: addr,
			})
		}
	}

	return nil
}

// SendOne pops the front of the outgoing queue and sends it as one UDP
// datagram. It reports whether further chunks remain queued.
func (s *Sender) SendOne() (morePending bool, err error) {
	if len(s.outQueue) == 0 {
		return false, nil
	}

	next := s.outQueue[0]
	s.outQueue = s.outQueue[1:]

	data := next.chunk.ToByteArray()
	if len(data) > int(s.config.DatagramLength) {
		return len(s.outQueue) > 0, fmt.Errorf("%w: %d > %d", ErrChunkTooLarge, len(data), s.config.DatagramLength)
	}

	if err := s.socket.SendTo(next.dest, data); err != nil {
		return len(s.outQueue) > 0, err
	}

	log.Debugf("sent chunk %s to %s", next.chunk.String(), next.dest)

	return len(s.outQueue) > 0, nil
}

// SendAll drains the outgoing queue by repeatedly calling SendOne,
// returning the first error encountered.
func (s *Sender) SendAll() error {
	for {
		more, err := s.SendOne()
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
}

// QueuedChunks returns the number of chunks waiting to be sent.
func (s *Sender) QueuedChunks() int {
	return len(s.outQueue)
}
