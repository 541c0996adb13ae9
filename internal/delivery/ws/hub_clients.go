package ws

import "context"

// Register hands a new connection to the hub. It reports false when the hub
// has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister tells the hub a connection has ended. It is queued behind the
// frames c already handed over, so those are still processed.
func (h *Hub) Unregister(c *Client) {
	h.pushInbound(inboundFrame{client: c, leave: true})
}

// Inbound queues a raw frame read from c. It reports false when the hub has
// stopped.
func (h *Hub) Inbound(c *Client, data []byte) bool {
	return h.pushInbound(inboundFrame{client: c, data: data})
}

// pushInbound adds to the inbound queue. done is checked first: the queue is
// buffered, so a send could still succeed after Run has returned.
func (h *Hub) pushInbound(f inboundFrame) bool {
	select {
	case <-h.done:
		return false
	default:
	}

	select {
	case h.inbound <- f:
		return true
	case <-h.done:
		return false
	}
}

// Stats asks the hub loop for a snapshot
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan Stats, 1)
	select {
	case h.stats <- reply:
	case <-h.done:
		return Stats{}, ErrHubStopped
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}
