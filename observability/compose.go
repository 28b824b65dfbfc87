package observability

import "context"

// NoOpObserver discards all events.
type NoOpObserver struct{}

func (NoOpObserver) OnEvent(ctx context.Context, event Event) {}

type multiObserver []Observer

func (m multiObserver) OnEvent(ctx context.Context, event Event) {
	for _, obs := range m {
		obs.OnEvent(ctx, event)
	}
}

// Combine returns an Observer that forwards events to every non-nil observer
// in order. With no observers it returns NoOpObserver; with one it returns
// that observer unchanged.
func Combine(observers ...Observer) Observer {
	filtered := make(multiObserver, 0, len(observers))
	for _, obs := range observers {
		if obs != nil {
			filtered = append(filtered, obs)
		}
	}

	switch len(filtered) {
	case 0:
		return NoOpObserver{}
	case 1:
		return filtered[0]
	default:
		return filtered
	}
}
