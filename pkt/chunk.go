// Package pkt defines the wire types of the protocol: the chunk that travels
// in one datagram and the complete message a receiver reassembles from chunks.
package pkt

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// MsgID identifies one logical message. IDs are unique and strictly
// increasing per sender instance across all destinations it sends to.
type MsgID uint64

// PieceNum locates a chunk within its message.
// Index is 1-based; a valid piece satisfies 1 <= Index <= Total.
type PieceNum struct {
	Index uint16 // This chunk's position within the message
	Total uint16 // Declared chunk count of the whole message
}

// Chunk is the unit exchanged on the wire.
// Format:
//
//	+--------+--------+--------+--------+--------+--------+--------+--------+
//	|                                                                       |
//	|                       Message ID (64 bits)                            |
//	|                                                                       |
//	+--------+--------+--------+--------+--------+--------+--------+--------+
//	|  Piece Index (16 bits)  |  Piece Total (16 bits)  | Checksum (16 bits)|
//	+--------+--------+--------+--------+--------+--------+--------+--------+
//	|                          Payload (variable)                           |
//	+--------+--------+--------+--------+--------+--------+--------+--------+
//
// Header size: 14 bytes. All header fields are big-endian.
// A Chunk must not be modified after construction.
type Chunk struct {
	ID      MsgID
	Piece   PieceNum
	Payload []byte
}

// CompleteMessage is a fully reassembled message: the concatenation of all
// chunk payloads ordered by piece index ascending.
type CompleteMessage struct {
	ID      MsgID
	Payload []byte
}

const (
	// HeaderSize is the size of the serialized chunk header in bytes.
	HeaderSize = 14

	// MsgPadding is the per-datagram overhead a sender must reserve when
	// slicing a message, so that header plus payload fit the datagram bound.
	MsgPadding = 32
)

var (
	ErrChunkTooShort   = errors.New("data is shorter than the chunk header, invalid chunk")
	ErrBadChecksum     = errors.New("chunk checksum mismatch")
	ErrInvalidPieceNum = errors.New("chunk piece number is out of range")
)

// ParseChunk deserializes a received datagram into a Chunk.
// The payload is copied out of data, so the caller may reuse its buffer.
func ParseChunk(data []byte) (*Chunk, error) {
	if len(data) < HeaderSize {
		return nil, ErrChunkTooShort
	}

	if !VerifyChecksum(data) {
		return nil, ErrBadChecksum
	}

	chunk := &Chunk{
		ID: MsgID(binary.BigEndian.Uint64(data[0:8])),
		Piece: PieceNum{
			Index: binary.BigEndian.Uint16(data[8:10]),
			Total: binary.BigEndian.Uint16(data[10:12]),
		},
	}

	if chunk.Piece.Index == 0 || chunk.Piece.Total == 0 || chunk.Piece.Index > chunk.Piece.Total {
		return nil, fmt.Errorf("%w: piece %d of %d", ErrInvalidPieceNum, chunk.Piece.Index, chunk.Piece.Total)
	}

	payload := make([]byte, len(data)-HeaderSize)
	copy(payload, data[HeaderSize:])
	chunk.Payload = payload

	return chunk, nil
}

// ToByteArray serializes the Chunk into a new byte slice containing the
// header (14 bytes) followed by the payload. The checksum is computed here.
func (c *Chunk) ToByteArray() []byte {
	data := make([]byte, HeaderSize, HeaderSize+len(c.Payload))
	binary.BigEndian.PutUint64(data[0:8], uint64(c.ID))
	binary.BigEndian.PutUint16(data[8:10], c.Piece.Index)
	binary.BigEndian.PutUint16(data[10:12], c.Piece.Total)
	// data[12:14] stays zero for checksum calculation
	data = append(data, c.Payload...)

	checksum := CalculateChecksum(data)
	data[12] = ^checksum[0]
	data[13] = ^checksum[1]

	return data
}

func (c *Chunk) String() string {
	return fmt.Sprintf("{ ID:%d Piece:%d/%d Len:%d }", c.ID, c.Piece.Index, c.Piece.Total, len(c.Payload))
}
