// Package lifecycle bridges rulemerge watch events to the generic
// lifecycle event stream.
package lifecycle

import (
	"context"

	"github.com/aretw0/lifecycle"

	"github.com/aretw0/rulemerge/pkg/core"
)

type watchSource struct {
	events <-chan core.Event
	out    chan lifecycle.Event
}

// NewSource creates a lifecycle.Source that emits the change events of a
// watch worker. The output channel is closed when the input closes or the
// context passed to Start is done.
func NewSource(events <-chan core.Event) lifecycle.Source {
	return &watchSource{
		events: events,
		out:    make(chan lifecycle.Event),
	}
}

func (s *watchSource) Events() <-chan lifecycle.Event {
	return s.out
}

func (s *watchSource) Start(ctx context.Context) error {
	lifecycle.Go(ctx, func(ctx context.Context) error {
		defer close(s.out)
		for {
			select {
			case <-ctx.Done():
				return nil
			case e, ok := <-s.events:
				if !ok {
					return nil
				}
				// core.Event satisfies lifecycle.Event through String().
				select {
				case s.out <- e:
				case <-ctx.Done():
					return nil
				}
			}
		}
	})
	return nil
}

// Event recovers the rulemerge event carried by a lifecycle event.
func Event(e lifecycle.Event) (core.Event, bool) {
	ce, ok := e.(core.Event)
	return ce, ok
}
