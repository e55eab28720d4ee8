// Package datalink implements a selective-repeat sliding-window data link
// protocol over a channel that may corrupt or lose frames, but that never
// reorders or duplicates them.
//
// A [Link] plays both roles of a full-duplex station: the sender window keeps
// up to NrBufs unacknowledged DATA frames, each with its own retransmission
// timer, and the receiver window buffers out-of-order frames and delivers them
// in order. Acknowledgments travel piggy-backed in the ack field of every frame;
// a delayed-ack timer produces a separate ACK frame when there is no outgoing
// traffic, and a NAK asks the peer to resend the frame we are waiting for.
//
// A note about concurrency: the windows lack mutexes because they are confined
// to the goroutine running [Link.Run]. Every other component (physical layer,
// timers, network layer) talks to the link by posting a [model.Event] on the
// single inbound events channel.
package datalink
