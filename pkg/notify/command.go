package notify

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"time"
)

// commandTimeout caps how long a notification command may run. The
// command is detached from the poll loop, so the cap only bounds the
// spawned process.
const commandTimeout = 5 * time.Second

// CommandSink runs a shell command for each alert, with the title and
// body exposed as QW_TITLE and QW_BODY. The default command drives
// notify-send, but anything scriptable works (osascript, beep, ...).
type CommandSink struct {
	command string
	logger  *slog.Logger
}

// DefaultCommand is used when no notification command is configured.
const DefaultCommand = `notify-send -u critical "$QW_TITLE" "$QW_BODY"`

// NewCommandSink creates a command sink. An empty command falls back
// to DefaultCommand.
func NewCommandSink(command string, logger *slog.Logger) *CommandSink {
	if command == "" {
		command = DefaultCommand
	}
	return &CommandSink{command: command, logger: logger}
}

func (c *CommandSink) Name() string { return "command" }

// Notify spawns the command detached so a stuck notification daemon
// cannot stall the poll loop.
func (c *CommandSink) Notify(_ context.Context, title, body string) {
	go c.run(title, body)
}

func (c *CommandSink) run(title, body string) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	cmd.Env = append(os.Environ(), "QW_TITLE="+title, "QW_BODY="+body)
	if err := cmd.Run(); err != nil {
		c.logger.Warn("notification command failed", "error", err)
	}
}
