package queue

import (
	"github.com/TyOverby/unreliable/pkt"
)

// msgStage buffers the chunks received so far for one in-flight message.
// A stage is owned by exactly one MsgQueue entry and is destroyed on
// completion, eviction or abandonment.
type msgStage struct {
	id          pkt.MsgID
	totalPieces uint16
	pieces      map[uint16]pkt.Chunk // Maps piece indices to chunks
	size        int                  // Sum of the payload lengths of all stored chunks
}

func newMsgStage(first pkt.Chunk) *msgStage {
	stage := &msgStage{
		id:          first.ID,
		totalPieces: first.Piece.Total,
		pieces:      make(map[uint16]pkt.Chunk, first.Piece.Total),
	}

	stage.addChunk(first)

	return stage
}

// addChunk stores a chunk and returns the number of payload bytes added.
// A chunk whose piece index is already present (replication echo,
// retransmission) is discarded and 0 is returned. That is routine traffic,
// not an error.
func (s *msgStage) addChunk(chunk pkt.Chunk) int {
	if _, exists := s.pieces[chunk.Piece.Index]; exists {
		return 0
	}

	s.pieces[chunk.Piece.Index] = chunk
	s.size += len(chunk.Payload)

	return len(chunk.Payload)
}

// isReady reports whether every declared piece of the message has arrived.
func (s *msgStage) isReady() bool {
	return len(s.pieces) == int(s.totalPieces)
}

// merge concatenates all stored payloads ordered by piece index ascending.
// Must only be called when isReady() is true.
func (s *msgStage) merge() pkt.CompleteMessage {
	payload := make([]byte, 0, s.size)

	for index := uint16(1); index <= s.totalPieces; index++ {
		payload = append(payload, s.pieces[index].Payload...)
	}

	return pkt.CompleteMessage{ID: s.id, Payload: payload}
}
