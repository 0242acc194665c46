// Package queue implements the per-peer reassembly engine. It tracks the
// in-flight partial messages of one remote peer, publishes messages once all
// of their chunks have arrived and enforces a most-recent-completes-wins
// ordering: the IDs of successively published messages are strictly
// increasing, and completing a message permanently abandons every older
// partial one.
package queue

import (
	"slices"

	"github.com/op/go-logging"

	"github.com/TyOverby/unreliable/pkt"
)

var log = logging.MustGetLogger("unreliable")

// MsgQueue reassembles the messages of a single remote peer.
//
// A MsgQueue never infers loss from gaps in the message ID sequence: a sender
// shares one ID counter across all of its destinations, so sparse per-peer
// sequences are expected. Staleness (an ID at or below the last published
// one) is the only ID-based rejection.
//
// A MsgQueue is not safe for concurrent use.
type MsgQueue struct {
	lastReleased pkt.MsgID // High-water mark of the most recently published message
	hasReleased  bool
	stages       map[pkt.MsgID]*msgStage
	maxSize      int // Capacity bound in bytes over all stages, 0 means unbounded
	curSize      int
}

// NewMsgQueue creates a queue whose open stages together hold at most
// maxSize payload bytes. A maxSize of 0 disables the bound; long-lived or
// adversarial deployments should always configure one, because without it a
// permanently incomplete message is only reclaimed when a newer message
// completes.
func NewMsgQueue(maxSize int) *MsgQueue {
	return &MsgQueue{
		stages:  make(map[pkt.MsgID]*msgStage),
		maxSize: maxSize,
	}
}

// markPublished records an ID as published and abandons every open stage
// with a smaller ID. Those messages could only ever complete with an ID at
// or below the high-water mark, which the staleness check would reject.
func (q *MsgQueue) markPublished(justPublished pkt.MsgID) {
	q.lastReleased = justPublished
	q.hasReleased = true

	for open, stage := range q.stages {
		if open < justPublished {
			log.Debugf("abandoning message %d (%d/%d pieces, %d bytes): superseded by %d",
				open, len(stage.pieces), stage.totalPieces, stage.size, justPublished)
			delete(q.stages, open)
			q.curSize -= stage.size
		}
	}
}

// prune evicts open stages oldest-first until the queue is back under its
// capacity bound or no stages remain.
func (q *MsgQueue) prune() {
	if q.maxSize == 0 {
		return
	}

	if q.curSize <= q.maxSize {
		return
	}

	open := make([]pkt.MsgID, 0, len(q.stages))
	for id := range q.stages {
		open = append(open, id)
	}
	slices.Sort(open)

	for _, id := range open {
		if q.curSize <= q.maxSize {
			break
		}

		stage := q.stages[id]
		log.Debugf("evicting message %d (%d bytes): queue over capacity (%d > %d)",
			id, stage.size, q.curSize, q.maxSize)
		delete(q.stages, id)
		q.curSize -= stage.size
	}
}

// InsertChunk feeds one received chunk into the queue. It returns the
// reassembled message and true if this chunk completed one; otherwise the
// chunk was buffered or silently dropped (stale, duplicate or evicted) and
// ok is false. No outcome is an error.
func (q *MsgQueue) InsertChunk(chunk pkt.Chunk) (msg pkt.CompleteMessage, ok bool) {
	q.prune()

	// Chunks of already-published or superseded messages are ignored.
	if q.hasReleased && chunk.ID <= q.lastReleased {
		log.Debugf("dropping stale chunk %s: last released is %d", chunk.String(), q.lastReleased)
		return pkt.CompleteMessage{}, false
	}

	// A single-piece message is complete by definition.
	if chunk.Piece.Total == 1 {
		q.markPublished(chunk.ID)
		return pkt.CompleteMessage{ID: chunk.ID, Payload: chunk.Payload}, true
	}

	stage, exists := q.stages[chunk.ID]
	if !exists {
		q.curSize += len(chunk.Payload)
		q.stages[chunk.ID] = newMsgStage(chunk)
		return pkt.CompleteMessage{}, false
	}

	q.curSize += stage.addChunk(chunk)

	if !stage.isReady() {
		return pkt.CompleteMessage{}, false
	}

	delete(q.stages, chunk.ID)
	q.curSize -= stage.size
	q.markPublished(chunk.ID)

	return stage.merge(), true
}

// LastReleased returns the ID of the most recently published message.
// ok is false if nothing has been published yet.
func (q *MsgQueue) LastReleased() (id pkt.MsgID, ok bool) {
	return q.lastReleased, q.hasReleased
}

// Size returns the payload bytes currently buffered across all open stages.
func (q *MsgQueue) Size() int {
	return q.curSize
}

// OpenMessages returns the number of partially received messages.
func (q *MsgQueue) OpenMessages() int {
	return len(q.stages)
}
