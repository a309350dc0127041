package assetstate

import (
	"context"

	"github.com/google/uuid"
)

// LoadedEvent is published when every handle of a bundle reports Loaded.
type LoadedEvent struct {
	Bundle  BundleID
	Episode uuid.UUID
	Handles []Handle
	Tick    uint64
}

// FailedAsset names one asset that reported Failed.
type FailedAsset struct {
	Asset  AssetRef
	Handle Handle
}

// LoadFailedEvent is published when a loading episode is abandoned.
type LoadFailedEvent struct {
	Bundle  BundleID
	Episode uuid.UUID
	Failed  []FailedAsset
	Tick    uint64
}

// notifier fans events out to subscribers synchronously, in subscription
// order, from inside the tick.
type notifier[E any] struct {
	next uint64
	subs []subscription[E]
}

type subscription[E any] struct {
	id uint64
	fn func(E)
}

func (n *notifier[E]) subscribe(fn func(E)) func() {
	n.next++
	id := n.next
	n.subs = append(n.subs, subscription[E]{id: id, fn: fn})
	return func() {
		for i, s := range n.subs {
			if s.id == id {
				n.subs = append(n.subs[:i:i], n.subs[i+1:]...)
				return
			}
		}
	}
}

func (n *notifier[E]) publish(evt E) {
	for _, s := range n.subs {
		s.fn(evt)
	}
}

// ChannelPublisher forwards notifications to a Go channel.
// Non-blocking publish with drop on backpressure; OnDrop, when set, hears
// about every dropped event.
type ChannelPublisher[E any] struct {
	ch     chan<- E
	OnDrop func(E)
}

// NewChannelPublisher creates a ChannelPublisher with the given output
// channel. Pass its Publish method to App.OnLoaded or App.OnLoadFailed.
func NewChannelPublisher[E any](ch chan<- E) *ChannelPublisher[E] {
	return &ChannelPublisher[E]{ch: ch}
}

// Publish sends evt without blocking.
func (p *ChannelPublisher[E]) Publish(evt E) {
	select {
	case p.ch <- evt:
	default:
		if p.OnDrop != nil {
			p.OnDrop(evt)
		}
	}
}

// PublishContext sends evt, waiting until ctx is done. Use it from host
// goroutines, never from inside a tick.
func (p *ChannelPublisher[E]) PublishContext(ctx context.Context, evt E) error {
	select {
	case p.ch <- evt:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *ChannelPublisher[E]) Close() error {
	close(p.ch)
	return nil
}
