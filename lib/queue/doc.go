// Package queue provides an unbounded lock-free Multi-Producer Single-Consumer
// (MPSC) queue. The client transport uses it as the send queue of a
// connection: any number of callers push framed requests, a single writer
// goroutine receives them in push order and writes them to the socket.
//
// Features and Guarantees:
//
//   - Lock-Free Push: producers append with atomic compare-and-swap only
//   - Unbounded Size: a slow socket never blocks a caller, the queue grows instead
//   - Single Consumer: values are delivered through the channel returned by Recv
//   - Per-Producer Order: values pushed by one goroutine are received in push
//     order, the interleaving of concurrent producers is decided by whichever
//     CAS succeeds first
//   - Close drains, Abort discards: after Close all queued values are still
//     delivered before the channel is closed, Abort drops them
package queue
