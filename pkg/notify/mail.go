package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"strings"
	"sync"
	"time"
)

// DefaultDedupWindow is how long a subject suppresses repeat sends.
const DefaultDedupWindow = time.Hour

// SendFunc matches smtp.SendMail and is injectable for tests.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// MailSink sends email through a single SMTP hop. Sends are
// deduplicated by subject inside a sliding window so a condition that
// holds across many polls produces one message, not a flood. Dry-run
// mode logs instead of transmitting.
type MailSink struct {
	addr   string
	auth   smtp.Auth
	from   string
	to     []string
	dryRun bool
	window time.Duration
	send   SendFunc
	now    func() time.Time
	logger *slog.Logger

	mu   sync.Mutex
	sent map[string]time.Time
}

// MailConfig carries SMTP settings for a MailSink.
type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	DryRun   bool
	Window   time.Duration
}

// MailOption customizes a MailSink.
type MailOption func(*MailSink)

// WithMailClock replaces the wall clock, for tests.
func WithMailClock(now func() time.Time) MailOption {
	return func(m *MailSink) { m.now = now }
}

// WithSendFunc replaces the SMTP transmit function, for tests.
func WithSendFunc(send SendFunc) MailOption {
	return func(m *MailSink) { m.send = send }
}

// NewMailSink creates a mail sink.
func NewMailSink(cfg MailConfig, logger *slog.Logger, opts ...MailOption) *MailSink {
	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}
	window := cfg.Window
	if window <= 0 {
		window = DefaultDedupWindow
	}
	m := &MailSink{
		addr:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		auth:   auth,
		from:   cfg.From,
		to:     cfg.To,
		dryRun: cfg.DryRun,
		window: window,
		send:   smtp.SendMail,
		now:    time.Now,
		logger: logger,
		sent:   make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Send transmits one message. Returns true when the message was
// handed to the SMTP server (or logged in dry-run mode), false when
// it was deduplicated or the send failed.
func (m *MailSink) Send(ctx context.Context, subject, body string) bool {
	if !m.markSent(subject) {
		m.logger.Debug("mail suppressed by dedup window", "subject", subject)
		return false
	}

	if m.dryRun {
		m.logger.Info("dry-run mail", "subject", subject, "to", strings.Join(m.to, ","))
		return true
	}

	msg := m.buildMessage(subject, body)
	done := make(chan error, 1)
	go func() {
		done <- m.send(m.addr, m.auth, m.from, m.to, msg)
	}()

	select {
	case <-ctx.Done():
		m.logger.Warn("mail send cancelled", "subject", subject)
		return false
	case err := <-done:
		if err != nil {
			m.logger.Warn("mail send failed", "subject", subject, "error", err)
			return false
		}
	}

	m.logger.Info("mail sent", "subject", subject)
	return true
}

// markSent records the subject if it is outside the dedup window and
// reports whether a send should proceed.
func (m *MailSink) markSent(subject string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if last, ok := m.sent[subject]; ok && now.Sub(last) < m.window {
		return false
	}
	m.sent[subject] = now
	return true
}

func (m *MailSink) buildMessage(subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", m.from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(m.to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
