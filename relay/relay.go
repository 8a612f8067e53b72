// Package relay provides a small bounded channel whose sends never
// block. It is standalone: wsclient.Connection calls its CallbackSink
// directly and does not send through a Relay.
package relay

import (
	"context"

	"github.com/pkg/errors"
)

var errChannelBufferFull = errors.New("channel buffer full")

// Item wraps a value delivered through a Relay.
type Item struct {
	Data any
}

// Relay is a single-producer-friendly, bounded fan-out channel. Sends
// never block past the buffer: a full buffer is reported as an error
// rather than stalling the caller, so a slow consumer of the callback
// sink cannot wedge the connection runtime.
type Relay struct {
	comm chan Item
	C    <-chan Item
}

// NewRelay allocates a Relay with the given buffer size. A zero or
// negative size is a programmer error.
func NewRelay(buffer int) *Relay {
	if buffer <= 0 {
		panic("relay: buffer size should be greater than 0")
	}
	ch := make(chan Item, buffer)
	return &Relay{comm: ch, C: ch}
}

// Send enqueues data, returning errChannelBufferFull instead of
// blocking if the buffer is saturated. It also respects ctx
// cancellation.
func (r *Relay) Send(ctx context.Context, data any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case r.comm <- Item{Data: data}:
		return nil
	default:
		return errChannelBufferFull
	}
}

// Close shuts the relay down; subsequent reads from C drain any
// buffered items then observe a closed channel.
func (r *Relay) Close() {
	close(r.comm)
}
