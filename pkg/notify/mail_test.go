package notify_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/smtp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quotawatch/quotawatch/pkg/notify"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestMailSink_SendsAndDedupes(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	var sent [][]byte
	sink := notify.NewMailSink(notify.MailConfig{
		Host: "smtp.test", Port: 587,
		From: "watcher@test", To: []string{"me@test"},
	}, testLogger(),
		notify.WithMailClock(func() time.Time { return now }),
		notify.WithSendFunc(func(_ string, _ smtp.Auth, _ string, _ []string, msg []byte) error {
			sent = append(sent, msg)
			return nil
		}),
	)

	assert.True(t, sink.Send(context.Background(), "quota low", "body one"))
	assert.False(t, sink.Send(context.Background(), "quota low", "body two"))
	require.Len(t, sent, 1)
	assert.Contains(t, string(sent[0]), "Subject: quota low")
	assert.Contains(t, string(sent[0]), "body one")
}

func TestMailSink_DedupWindowExpires(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	count := 0
	sink := notify.NewMailSink(notify.MailConfig{
		Host: "smtp.test", Port: 587,
		From: "watcher@test", To: []string{"me@test"},
	}, testLogger(),
		notify.WithMailClock(func() time.Time { return now }),
		notify.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
			count++
			return nil
		}),
	)

	require.True(t, sink.Send(context.Background(), "quota low", "x"))
	now = now.Add(notify.DefaultDedupWindow + time.Minute)
	require.True(t, sink.Send(context.Background(), "quota low", "x"))
	assert.Equal(t, 2, count)
}

func TestMailSink_DifferentSubjectsBothSend(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	count := 0
	sink := notify.NewMailSink(notify.MailConfig{
		Host: "smtp.test", Port: 587,
		From: "watcher@test", To: []string{"me@test"},
	}, testLogger(),
		notify.WithMailClock(func() time.Time { return now }),
		notify.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
			count++
			return nil
		}),
	)

	assert.True(t, sink.Send(context.Background(), "quota low", "x"))
	assert.True(t, sink.Send(context.Background(), "quota milestone", "x"))
	assert.Equal(t, 2, count)
}

func TestMailSink_DryRunSkipsTransmit(t *testing.T) {
	sink := notify.NewMailSink(notify.MailConfig{
		Host: "smtp.test", Port: 587,
		From: "watcher@test", To: []string{"me@test"},
		DryRun: true,
	}, testLogger(),
		notify.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
			t.Fatal("dry-run must not transmit")
			return nil
		}),
	)

	assert.True(t, sink.Send(context.Background(), "quota low", "x"))
}

func TestMailSink_SendFailureReturnsFalse(t *testing.T) {
	sink := notify.NewMailSink(notify.MailConfig{
		Host: "smtp.test", Port: 587,
		From: "watcher@test", To: []string{"me@test"},
	}, testLogger(),
		notify.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("connection refused")
		}),
	)

	assert.False(t, sink.Send(context.Background(), "quota low", "x"))
}
