/*
DESCRIPTION
  outputqueue.go implements the OutputQueue: pictures that have left the Dpb
  wait here until the queue's length exceeds the preferred output delay,
  smoothing back ends with pipelined hardware latency.

AUTHORS
  Saxon Nelson-Milton <saxon@ausocean.org>, The Australian Ocean Laboratory (AusOcean)
*/
package decoder

import "github.com/ausocean/h264decoder/dpb"

type queuedPicture struct {
	frame   *Frame
	picture *dpb.Picture
}

// OutputQueue holds pictures bumped from the Dpb awaiting delivery to the
// back end.
type OutputQueue struct {
	items []queuedPicture
}

// Push appends a picture, paired with its routing frame, to the queue.
func (q *OutputQueue) Push(frame *Frame, picture *dpb.Picture) {
	q.items = append(q.items, queuedPicture{frame, picture})
}

// Len returns the number of pictures currently queued.
func (q *OutputQueue) Len() int { return len(q.items) }

// Drain delivers queued pictures to backend.OutputPicture while the queue's
// length exceeds delay. The most recent non-OK status is returned; a non-OK
// result does not stop the remaining pictures in this call from draining,
// and later OK results do not clear it.
func (q *OutputQueue) Drain(backend Backend, delay int) Status {
	status := StatusOK
	for len(q.items) > delay {
		item := q.items[0]
		q.items = q.items[1:]
		if s := backend.OutputPicture(item.frame, item.picture); s != StatusOK {
			status = s
		}
	}
	return status
}

// Flush delivers every remaining queued picture regardless of delay.
func (q *OutputQueue) Flush(backend Backend) Status {
	status := StatusOK
	for _, item := range q.items {
		if s := backend.OutputPicture(item.frame, item.picture); s != StatusOK {
			status = s
		}
	}
	q.items = nil
	return status
}

// Clear discards every queued picture without delivering it, for upstream
// flush.
func (q *OutputQueue) Clear() { q.items = nil }
