// Package notify delivers human-visible alerts. Every sink is
// best-effort: delivery failures are logged, never returned to the
// poll loop, and never allowed to block it beyond a short bound.
package notify

import "context"

// Sink emits a human-visible alert for a title and message.
type Sink interface {
	// Name returns the sink identifier.
	Name() string

	// Notify delivers an alert. It never returns an error and must
	// not block the caller for more than a few seconds.
	Notify(ctx context.Context, title, body string)
}

// MessageSink delivers out-of-band messages such as email. The return
// value reports whether a message was actually handed off (a
// deduplicated or failed send returns false).
type MessageSink interface {
	Send(ctx context.Context, subject, body string) bool
}
