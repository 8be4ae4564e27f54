package queue

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	defaultRateLimit      = 500 * time.Millisecond
	defaultAxisMinInterval = 50 * time.Millisecond
	defaultAxisHeartbeat  = 2 * time.Second
	defaultOverrideTTL    = 30 * time.Second
	maxLogEntries         = 50
	maxPending            = 50

	// Dedup tolerances (spec §3 invariant): axis re-assert threshold
	// and scalar setpoint dedup tolerance.
	axisEpsilon    = 0.1
	setpointEpsilon = 1.0
)

// Config holds the queue's tunables.
type Config struct {
	RateLimit       time.Duration
	AxisMinInterval time.Duration
	AxisHeartbeat   time.Duration
	OverrideTTL     time.Duration
}

func (c Config) normalized() Config {
	if c.RateLimit <= 0 {
		c.RateLimit = defaultRateLimit
	}
	if c.AxisMinInterval <= 0 {
		c.AxisMinInterval = defaultAxisMinInterval
	}
	if c.AxisHeartbeat <= 0 {
		c.AxisHeartbeat = defaultAxisHeartbeat
	}
	if c.OverrideTTL <= 0 {
		c.OverrideTTL = defaultOverrideTTL
	}
	return c
}

// axisState tracks the dedicated per-axis-kind rate/log bookkeeping
// (spec §4.4's "dedicated map of {last_send_time, last_rounded_value,
// last_log_time}").
type axisState struct {
	lastSendTime     time.Time
	lastRoundedValue float64
	lastLogTime      time.Time
}

// ActiveOverride describes a currently-active pilot override.
type ActiveOverride struct {
	Axis            OverrideAxis
	RemainingSeconds float64
}

// Counters tracks error/observability counts (spec §7).
type Counters struct {
	ValidationFailures  uint64
	TransportUnavailable uint64
	QueueOverflow        uint64
}

// Queue is the command queue (spec §4.4).
type Queue struct {
	mu sync.Mutex

	cfg       Config
	limits    ClampLimits
	transport Transport
	logger    *logrus.Entry

	pending []Command
	apState map[Kind]Command

	axisStates map[Kind]*axisState

	overrides map[OverrideAxis]time.Time

	log []LogEntry

	counters Counters

	lastExec time.Time
	timer    *time.Timer

	onOverrideChange   func([]ActiveOverride)
	onCommandExecuted  func(LogEntry)

	nowFn func() time.Time
}

// New builds a Queue bound to a transport and clamp limits.
func New(transport Transport, limits ClampLimits, cfg Config, logger *logrus.Entry) *Queue {
	return &Queue{
		cfg:        cfg.normalized(),
		limits:     limits,
		transport:  transport,
		logger:     logger,
		apState:    make(map[Kind]Command),
		axisStates: make(map[Kind]*axisState),
		overrides:  make(map[OverrideAxis]time.Time),
		nowFn:      time.Now,
	}
}

// OnOverrideChange registers the override-change callback (spec §6).
func (q *Queue) OnOverrideChange(fn func([]ActiveOverride)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onOverrideChange = fn
}

// OnCommandExecuted registers the execution callback (spec §6).
func (q *Queue) OnCommandExecuted(fn func(LogEntry)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onCommandExecuted = fn
}

// SetLimits replaces the safety clamp bounds, e.g. on profile change.
func (q *Queue) SetLimits(limits ClampLimits) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.limits = limits
}

// Reset clears dedup state so critical commands resend at a phase
// boundary (spec §4.5 step 4), without touching overrides or counters.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.apState = make(map[Kind]Command)
	q.axisStates = make(map[Kind]*axisState)
}

// Counters returns a snapshot of the error/observability counters.
func (q *Queue) Counters() Counters {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.counters
}

// Len returns the number of non-axis commands currently pending.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Enqueue validates, clamps, and routes a command (spec §4.4).
func (q *Queue) Enqueue(ctx context.Context, cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueueLocked(ctx, cmd, q.now())
}

func (q *Queue) now() time.Time {
	if q.nowFn != nil {
		return q.nowFn()
	}
	return time.Now()
}

func (q *Queue) enqueueLocked(ctx context.Context, cmd Command, now time.Time) {
	validated, ok := Validate(cmd, q.limits)
	if !ok {
		q.counters.ValidationFailures++
		return
	}
	cmd = validated

	if axis, mapped := AxisFor(cmd.Kind); mapped {
		if exp, active := q.overrides[axis]; active && now.Before(exp) {
			return // pilot override suppresses this AI command
		}
	}

	if cmd.Family == FamilyAxis {
		q.sendAxisLocked(ctx, cmd, now)
		return
	}

	if !neverDeduped[cmd.Kind] {
		if last, known := q.apState[cmd.Kind]; known && sameValue(last, cmd) {
			return // matches last known state, nothing to do
		}
	}

	collapsed := false
	for i, p := range q.pending {
		if p.Kind == cmd.Kind {
			q.pending[i] = cmd
			collapsed = true
			break
		}
	}
	if !collapsed {
		if len(q.pending) >= maxPending {
			q.pending = q.pending[1:]
			q.counters.QueueOverflow++
		}
		q.pending = append(q.pending, cmd)
	}

	q.scheduleDrainLocked(ctx, now)
}

func sameValue(a, b Command) bool {
	switch a.Family {
	case FamilyToggle:
		return a.BoolValue == b.BoolValue
	default:
		return math.Abs(a.Value-b.Value) < setpointEpsilon
	}
}

// sendAxisLocked dispatches an axis-family command immediately,
// bypassing the queue, rate-limited per kind (spec §4.4).
func (q *Queue) sendAxisLocked(ctx context.Context, cmd Command, now time.Time) {
	st := q.axisStates[cmd.Kind]
	if st == nil {
		st = &axisState{}
		q.axisStates[cmd.Kind] = st
	}

	if !st.lastSendTime.IsZero() && now.Sub(st.lastSendTime) < q.cfg.AxisMinInterval {
		return
	}

	msg := BuildWireMessage(cmd)
	if err := q.transport.Send(ctx, msg); err != nil {
		q.counters.TransportUnavailable++
		return
	}

	st.lastSendTime = now
	rounded := math.Round(cmd.Value/axisEpsilon) * axisEpsilon

	shouldLog := math.Abs(rounded-st.lastRoundedValue) >= axisEpsilon || st.lastLogTime.IsZero() || now.Sub(st.lastLogTime) >= q.cfg.AxisHeartbeat
	st.lastRoundedValue = rounded
	if shouldLog {
		st.lastLogTime = now
		q.appendLogLocked(cmd, msg, now)
	}
}

// scheduleDrainLocked arms the drain timer to fire at the next
// allowed instant, per the teacher's self-scheduled one-shot timer
// idiom (DESIGN NOTES).
func (q *Queue) scheduleDrainLocked(ctx context.Context, now time.Time) {
	if len(q.pending) == 0 {
		return
	}
	next := q.lastExec.Add(q.cfg.RateLimit)
	if next.Before(now) {
		next = now
	}
	delay := next.Sub(now)

	if q.timer != nil {
		q.timer.Stop()
	}
	q.timer = time.AfterFunc(delay, func() {
		q.drain(ctx)
	})
}

// Drain pops one pending command and executes it if enough time has
// passed since the last execution (spec §4.4 "drain").
func (q *Queue) Drain(ctx context.Context) {
	q.drain(ctx)
}

func (q *Queue) drain(ctx context.Context) {
	q.mu.Lock()
	now := q.now()
	if now.Sub(q.lastExec) < q.cfg.RateLimit || len(q.pending) == 0 {
		if len(q.pending) > 0 {
			q.scheduleDrainLocked(ctx, now)
		}
		q.mu.Unlock()
		return
	}

	cmd := q.pending[0]
	q.pending = q.pending[1:]
	q.lastExec = now
	q.executeLocked(ctx, cmd, now)

	if len(q.pending) > 0 {
		q.scheduleDrainLocked(ctx, now)
	}
	q.mu.Unlock()
}

func (q *Queue) executeLocked(ctx context.Context, cmd Command, now time.Time) {
	msg := BuildWireMessage(cmd)
	if err := q.transport.Send(ctx, msg); err != nil {
		q.counters.TransportUnavailable++
		return
	}
	q.apState[cmd.Kind] = cmd
	q.appendLogLocked(cmd, msg, now)
}

func (q *Queue) appendLogLocked(cmd Command, msg WireMessage, now time.Time) {
	entry := LogEntry{
		ID:          uuid.NewString(),
		Kind:        cmd.Kind,
		Wire:        msg.Command,
		Value:       msg.Value,
		HasValue:    msg.HasValue,
		Description: cmd.Description,
		ExecutedAt:  now.UnixNano(),
	}
	q.log = append(q.log, entry)
	if len(q.log) > maxLogEntries {
		q.log = q.log[len(q.log)-maxLogEntries:]
	}
	if q.onCommandExecuted != nil {
		cb := q.onCommandExecuted
		go cb(entry)
	}
}

// Log returns a copy of the bounded execution log.
func (q *Queue) Log() []LogEntry {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]LogEntry, len(q.log))
	copy(out, q.log)
	return out
}

// UpdateAPState merges externally-observed autopilot state into the
// dedup snapshot (spec §4.4).
func (q *Queue) UpdateAPState(cmd Command) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.apState[cmd.Kind] = cmd
}

// RegisterOverride stamps axis -> now+duration, drops all queued
// commands mapped to that axis, and fires the override-change
// callback (spec §4.4).
func (q *Queue) RegisterOverride(axis OverrideAxis, duration time.Duration) {
	q.mu.Lock()
	if duration <= 0 {
		duration = q.cfg.OverrideTTL
	}
	now := q.now()
	q.overrides[axis] = now.Add(duration)

	filtered := q.pending[:0]
	for _, p := range q.pending {
		if a, ok := AxisFor(p.Kind); ok && a == axis {
			continue
		}
		filtered = append(filtered, p)
	}
	q.pending = filtered

	cb := q.onOverrideChange
	active := q.activeOverridesLocked(now)
	q.mu.Unlock()

	if cb != nil {
		cb(active)
	}
}

// GetActiveOverrides returns unexpired overrides with remaining
// seconds (spec §4.4).
func (q *Queue) GetActiveOverrides() []ActiveOverride {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.activeOverridesLocked(q.now())
}

func (q *Queue) activeOverridesLocked(now time.Time) []ActiveOverride {
	out := make([]ActiveOverride, 0, len(q.overrides))
	for axis, exp := range q.overrides {
		if exp.After(now) {
			out = append(out, ActiveOverride{Axis: axis, RemainingSeconds: exp.Sub(now).Seconds()})
		}
	}
	return out
}
