// Package unreliable implements chunked messaging on top of UDP. A Sender
// splits arbitrarily large messages into datagram-sized chunks and drains
// them onto a socket; a Receiver reassembles chunks that arrive out of
// order, duplicated or not at all back into complete messages, delivering
// per peer only messages newer than the last one delivered.
//
// The protocol is unreliable by design: there are no acknowledgments, no
// retransmissions and no ordering guarantee beyond "a later-completing
// message wins". What it does guarantee is that a delivered message is
// intact and that delivery per peer is monotonic in message ID.
package unreliable

import "github.com/op/go-logging"

var log = logging.MustGetLogger("unreliable")
