package hub

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soar/padview/internal/gamepad"
)

const (
	fullSyncInterval = 5 * time.Second
	deltaCountSync   = 100
)

// Broadcaster turns runner frames into full and delta messages for the hub.
type Broadcaster struct {
	hub    *Hub
	frames <-chan gamepad.Frame
	clock  clock.Clock
	log    zerolog.Logger

	mu   sync.Mutex
	last gamepad.Frame
	seq  int64
}

type BroadcasterOption func(*Broadcaster)

// WithClock replaces the clock driving the periodic full sync.
func WithClock(c clock.Clock) BroadcasterOption {
	return func(b *Broadcaster) { b.clock = c }
}

func NewBroadcaster(h *Hub, frames <-chan gamepad.Frame, opts ...BroadcasterOption) *Broadcaster {
	b := &Broadcaster{
		hub:    h,
		frames: frames,
		clock:  clock.New(),
		log:    log.With().Str("component", "broadcaster").Logger(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run forwards frames until the channel closes or ctx is cancelled.
func (b *Broadcaster) Run(ctx context.Context) {
	ticker := b.clock.Ticker(fullSyncInterval)
	defer ticker.Stop()

	var deltaCount int

	for {
		select {
		case <-ctx.Done():
			return

		case f, ok := <-b.frames:
			if !ok {
				return
			}

			b.mu.Lock()
			delta := gamepad.ComputeDelta(b.last, f)
			b.last = f
			if delta.IsEmpty() && !f.HasEdges() {
				b.mu.Unlock()
				continue
			}
			b.seq++
			deltaCount++
			var msg *WSMessage
			if deltaCount >= deltaCountSync {
				msg = NewFullMessage(b.seq, &f)
				deltaCount = 0
			} else {
				msg = NewDeltaMessage(b.seq, delta, f)
			}
			b.mu.Unlock()
			b.send(msg)

		case <-ticker.C:
			b.mu.Lock()
			if !b.last.State.Connected {
				b.mu.Unlock()
				continue
			}
			b.seq++
			f := b.last
			msg := NewFullMessage(b.seq, &f)
			b.mu.Unlock()
			b.send(msg)
		}
	}
}

// SendInitialState sends the current full frame to a newly connected client.
func (b *Broadcaster) SendInitialState(c *Client) {
	b.mu.Lock()
	b.seq++
	f := b.last
	msg := NewFullMessage(b.seq, &f)
	b.mu.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Msg("marshal initial state")
		return
	}
	c.enqueue(data)
}

func (b *Broadcaster) send(msg *WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		b.log.Error().Err(err).Str("type", msg.Type).Msg("marshal message")
		return
	}
	b.hub.Broadcast(data)
}
