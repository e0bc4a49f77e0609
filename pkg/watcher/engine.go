// Package watcher holds the alerting core: the two-phase threshold
// engine for the primary series, the multi-series snapshot
// aggregator, and the status crossing engine.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/quotawatch/quotawatch/pkg/notify"
)

// Phase is the alerting phase of the primary series.
type Phase int

const (
	// PhaseSimple alerts every poll while the value exceeds the base
	// threshold.
	PhaseSimple Phase = iota
	// PhaseMilestone alerts at most once per descending threshold
	// crossing.
	PhaseMilestone
)

func (p Phase) String() string {
	switch p {
	case PhaseSimple:
		return "simple"
	case PhaseMilestone:
		return "milestone"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// AckStore is the slice of persisted state the engine needs: the
// user-settable acknowledgement marker.
type AckStore interface {
	// Ack reports the current acknowledgement flag.
	Ack() bool
	// SetAck writes the flag. Failures are non-fatal to the engine.
	SetAck(bool) error
}

// EngineConfig configures the threshold engine for one series.
type EngineConfig struct {
	// Series is the primary series name, used in alert text.
	Series string
	// BaseThreshold is the simple-phase alert threshold.
	BaseThreshold float64
	// Milestones are the descending thresholds of the milestone
	// phase. Order in the slice does not matter; the engine sorts.
	Milestones []float64
	// NotifyLimit is how many simple-phase alerts fire before the
	// engine escalates and switches to the milestone phase.
	NotifyLimit int
}

// Engine is the threshold-crossing state machine for the primary
// series. It is not safe for concurrent use; exactly one poll loop
// drives it.
//
// The phase and its working variables live only for the process
// lifetime: a restart resets to the simple phase with empty history,
// which can re-fire a base-threshold alert that was already
// acknowledged. Known limitation, kept on purpose.
type Engine struct {
	cfg    EngineConfig
	sink   notify.Sink
	mail   notify.MessageSink
	acks   AckStore
	logger *slog.Logger

	phase       Phase
	notifyCount int
	fired       map[float64]bool
	prevValue   float64
	prevSet     bool
	prevSeeded  bool
	mailSent    bool
	liveAlerted bool
}

// NewEngine creates an engine in the simple phase. mail may be nil
// when email is disabled.
func NewEngine(cfg EngineConfig, sink notify.Sink, mail notify.MessageSink, acks AckStore, logger *slog.Logger) *Engine {
	ms := make([]float64, len(cfg.Milestones))
	copy(ms, cfg.Milestones)
	sort.Sort(sort.Reverse(sort.Float64Slice(ms)))
	cfg.Milestones = ms
	if cfg.NotifyLimit <= 0 {
		cfg.NotifyLimit = 5
	}
	return &Engine{
		cfg:    cfg,
		sink:   sink,
		mail:   mail,
		acks:   acks,
		logger: logger,
		fired:  make(map[float64]bool),
	}
}

// Phase returns the current alerting phase.
func (e *Engine) Phase() Phase { return e.phase }

// Observe feeds one poll's decision-ready value into the machine.
// The caller must only call this when a plausible or fresh-stale
// value exists; a poll without one is skipped entirely.
func (e *Engine) Observe(ctx context.Context, value float64) {
	switch e.phase {
	case PhaseSimple:
		e.observeSimple(ctx, value)
	case PhaseMilestone:
		e.observeMilestone(ctx, value)
	}
}

func (e *Engine) observeSimple(ctx context.Context, value float64) {
	if e.acks.Ack() {
		e.logger.Info("acknowledged, entering milestone phase",
			"series", e.cfg.Series, "value", value)
		e.enterMilestone(value)
		return
	}

	if value <= e.cfg.BaseThreshold {
		return
	}

	title := fmt.Sprintf("%s quota alert", e.cfg.Series)
	body := fmt.Sprintf("remaining %.2f exceeds base threshold %.2f", value, e.cfg.BaseThreshold)
	e.sink.Notify(ctx, title, body)
	e.notifyCount++

	// One message-sink notice per simple-phase period.
	if e.mail != nil && !e.mailSent {
		e.mail.Send(ctx, title, body)
		e.mailSent = true
	}

	if e.notifyCount >= e.cfg.NotifyLimit {
		e.sink.Notify(ctx,
			fmt.Sprintf("%s quota alert (escalated)", e.cfg.Series),
			fmt.Sprintf("%d alerts since the value went above %.2f; switching to milestone tracking at %.2f",
				e.notifyCount, e.cfg.BaseThreshold, value))
		e.notifyCount = 0
		e.logger.Info("notify limit reached, entering milestone phase",
			"series", e.cfg.Series, "value", value)
		e.enterMilestone(value)
	}
}

func (e *Engine) enterMilestone(value float64) {
	e.phase = PhaseMilestone
	e.fired = make(map[float64]bool)
	e.notifyCount = 0
	e.prevValue = value
	e.prevSet = true
	e.prevSeeded = true
	e.liveAlerted = false
}

func (e *Engine) observeMilestone(ctx context.Context, value float64) {
	if value < e.cfg.BaseThreshold {
		e.resetToSimple(value)
		return
	}

	if !e.prevSet {
		e.prevValue = value
		e.prevSet = true
		e.prevSeeded = true
		return
	}

	prev := e.prevValue
	e.prevValue = value

	// The comparison right after seeding is a non-event: the seed is
	// not a real prior observation, so a threshold only arms once an
	// observed value has actually been above it.
	if e.prevSeeded {
		e.prevSeeded = false
		return
	}

	// Milestones are sorted descending; the highest unfired crossed
	// threshold fires, every crossed threshold is marked. A single
	// large drop therefore alerts once and silently retires the
	// thresholds it jumped over.
	var firedNow float64
	found := false
	for _, t := range e.cfg.Milestones {
		if prev >= t && t > value {
			if !found && !e.fired[t] {
				found = true
				firedNow = t
			}
			e.fired[t] = true
		}
	}
	if !found {
		return
	}

	// One live alert per phase entry; later crossings are log lines.
	if !e.liveAlerted {
		e.liveAlerted = true
		e.sink.Notify(ctx,
			fmt.Sprintf("%s quota milestone", e.cfg.Series),
			fmt.Sprintf("remaining dropped below %.2f (now %.2f)", firedNow, value))
	} else {
		e.logger.Info("milestone crossed",
			"series", e.cfg.Series, "threshold", firedNow, "value", value)
	}
}

func (e *Engine) resetToSimple(value float64) {
	e.phase = PhaseSimple
	e.fired = make(map[float64]bool)
	e.notifyCount = 0
	e.prevSet = false
	e.prevSeeded = false
	e.mailSent = false
	e.liveAlerted = false
	if err := e.acks.SetAck(false); err != nil {
		e.logger.Warn("clear ack marker", "error", err)
	}
	e.logger.Info("value back below base threshold, returning to simple phase",
		"series", e.cfg.Series, "value", value, "base", e.cfg.BaseThreshold)
}
