package notify

import "context"

// Fanout delivers each alert to every wrapped sink in order.
type Fanout []Sink

func (f Fanout) Name() string { return "fanout" }

func (f Fanout) Notify(ctx context.Context, title, body string) {
	for _, s := range f {
		s.Notify(ctx, title, body)
	}
}
