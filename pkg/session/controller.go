package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ozzylabs/ozzy/pkg/callclient"
	"github.com/ozzylabs/ozzy/pkg/errorsx"
	"github.com/ozzylabs/ozzy/pkg/events"
	"github.com/ozzylabs/ozzy/pkg/logging"
	"github.com/ozzylabs/ozzy/pkg/metrics"
	"github.com/ozzylabs/ozzy/pkg/mic"
	"github.com/ozzylabs/ozzy/pkg/redact"
)

// Registrar authorizes a call with the backend and returns an access
// token plus the backend's call ID.
type Registrar interface {
	CreateWebCall(ctx context.Context, agentID string) (accessToken, callID string, err error)
}

// Config holds the static session parameters.
type Config struct {
	AgentID      string
	TalkMode     TalkMode
	EmitRawAudio bool
}

// Snapshot is an immutable view of the session state, consumed by the
// presentation layer.
type Snapshot struct {
	Status        Status
	Mode          TalkMode
	Muted         bool
	AgentSpeaking bool
	PTTActive     bool
	Level         float64
	Err           string
}

// Controller owns the call session state machine. It reacts to user
// intents and to asynchronous call-client events; the injected client
// is the only party it drives. All state is guarded by one mutex, and
// client invocations plus listener notifications happen outside it, so
// intents and events may arrive from any goroutine.
type Controller struct {
	cfg       Config
	client    callclient.Client
	registrar Registrar
	prober    mic.Prober
	log       *slog.Logger

	obs      metrics.Observer
	levelObs metrics.Observer

	mu            sync.Mutex
	status        Status
	mode          TalkMode
	muted         bool
	agentSpeaking bool
	pttActive     bool
	lastErr       string
	meter         *LevelMeter
	attemptID     string
	callID        string
	stopRequested bool
	listeners     []StateListener
}

// User-facing messages. The internal diagnostic always goes to the log;
// these are the short strings the display derives from.
const (
	msgMicDenied      = "microphone permission denied"
	msgMicUnavailable = "no microphone available"
	msgConnectFailed  = "could not connect, try again"
	msgCallError      = "call error"
)

func NewController(client callclient.Client, registrar Registrar, prober mic.Prober, cfg Config, log *slog.Logger) *Controller {
	if prober == nil {
		prober = mic.StaticProber{}
	}
	return &Controller{
		cfg:       cfg,
		client:    client,
		registrar: registrar,
		prober:    prober,
		log:       logging.NewComponentLogger(log, "session"),
		status:    StatusIdle,
		mode:      cfg.TalkMode,
		meter:     NewLevelMeter(),
	}
}

// SetObserver wires telemetry for state transitions and call setup
// milestones.
func (c *Controller) SetObserver(obs metrics.Observer) {
	c.obs = obs
}

// SetLevelObserver wires the (typically sampled) sink for per-frame
// audio level telemetry.
func (c *Controller) SetLevelObserver(obs metrics.Observer) {
	c.levelObs = obs
}

// AddListener registers a listener for status change events.
func (c *Controller) AddListener(listener StateListener) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, listener)
}

// Snapshot returns the current session state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Status:        c.status,
		Mode:          c.mode,
		Muted:         c.muted,
		AgentSpeaking: c.agentSpeaking,
		PTTActive:     c.pttActive,
		Level:         c.meter.Level(),
		Err:           c.lastErr,
	}
}

// Start runs the full start sequence: microphone probe, registration,
// then the client's start operation. Connected is only entered when the
// client later emits call_started. A second start while one is pending
// is rejected, never queued.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.status != StatusIdle && c.status != StatusError {
		status := c.status
		c.mu.Unlock()
		return errorsx.Wrap(fmt.Errorf("start rejected while %s", status), errorsx.ReasonSessionBusy)
	}
	attemptID := uuid.NewString()
	c.attemptID = attemptID
	c.callID = ""
	c.lastErr = ""
	c.stopRequested = false
	notify := c.transitionLocked(StatusConnecting, "start requested")
	c.mu.Unlock()
	notify()
	c.record("start_requested", attemptID, "", nil)

	if err := c.prober.Probe(ctx); err != nil {
		msg, reason := classifyMicError(err)
		c.failStart(attemptID, msg)
		c.log.Warn("mic_probe_failed", "attempt_id", attemptID, "error", err)
		return errorsx.Wrap(err, reason)
	}
	c.record("mic_granted", attemptID, "", nil)

	token, callID, err := c.registrar.CreateWebCall(ctx, c.cfg.AgentID)
	if err != nil {
		c.failStart(attemptID, msgConnectFailed)
		c.log.Warn("register_failed", "attempt_id", attemptID, "error", redact.Text(err.Error()))
		return err
	}

	c.mu.Lock()
	if c.stopRequested || c.status != StatusConnecting || c.attemptID != attemptID {
		// Stop landed while registration was in flight; the call was
		// never started, so there is nothing to tear down.
		var abandon func()
		if c.status == StatusConnecting && c.attemptID == attemptID {
			abandon = c.transitionLocked(StatusIdle, "start abandoned")
		}
		c.mu.Unlock()
		if abandon != nil {
			abandon()
		}
		c.record("start_abandoned", attemptID, callID, nil)
		return nil
	}
	c.callID = callID
	mode := c.mode
	c.mu.Unlock()
	c.record("register_ok", attemptID, callID, nil)

	err = c.client.StartCall(ctx, callclient.StartOptions{
		AccessToken:         token,
		EmitRawAudioSamples: c.cfg.EmitRawAudio,
	})
	if err != nil {
		// Never leave the client half-open after a failed start.
		_ = c.client.StopCall()
		c.failStart(attemptID, msgConnectFailed)
		c.log.Warn("client_start_failed", "attempt_id", attemptID, "error", err)
		return errorsx.Wrap(err, errorsx.ReasonClientStart)
	}

	if mode == ModePushToTalk {
		c.mu.Lock()
		c.muted = true
		c.mu.Unlock()
		if merr := c.client.Mute(); merr != nil {
			c.log.Warn("start_mute_failed", "attempt_id", attemptID, "error", merr)
		}
	}
	return nil
}

// Stop ends the call (or abandons a pending start) and resets to Idle.
// The later call_ended event is an idempotent no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if c.status == StatusIdle {
		c.mu.Unlock()
		return nil
	}
	c.stopRequested = true
	notify := c.transitionLocked(StatusIdle, "stop requested")
	c.resetFlagsLocked()
	c.mu.Unlock()
	notify()
	if err := c.client.StopCall(); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonClientStop)
	}
	return nil
}

// ToggleMute flips the mute flag while connected; no-op otherwise.
func (c *Controller) ToggleMute() error {
	c.mu.Lock()
	target := !c.muted
	c.mu.Unlock()
	return c.SetMuted(target)
}

// SetMuted applies an explicit mute state while connected.
func (c *Controller) SetMuted(muted bool) error {
	c.mu.Lock()
	if c.status != StatusConnected {
		c.mu.Unlock()
		return nil
	}
	c.muted = muted
	c.mu.Unlock()
	if muted {
		return errorsx.Wrap(c.client.Mute(), errorsx.ReasonClientSend)
	}
	return errorsx.Wrap(c.client.Unmute(), errorsx.ReasonClientSend)
}

// PushToTalkPress opens the microphone while the talk control is held.
// Active only in push-to-talk mode during a connected call; key repeat
// while already active is ignored.
func (c *Controller) PushToTalkPress() error {
	c.mu.Lock()
	if c.mode != ModePushToTalk || c.status != StatusConnected || c.pttActive {
		c.mu.Unlock()
		return nil
	}
	c.pttActive = true
	c.muted = false
	c.mu.Unlock()
	return errorsx.Wrap(c.client.Unmute(), errorsx.ReasonClientSend)
}

// PushToTalkRelease closes the microphone again. Front ends must call
// this for pointer-up, pointer-leave, touch-end, and key-up alike so a
// held microphone can never stick open.
func (c *Controller) PushToTalkRelease() error {
	c.mu.Lock()
	if !c.pttActive {
		c.mu.Unlock()
		return nil
	}
	c.pttActive = false
	c.muted = true
	c.mu.Unlock()
	return errorsx.Wrap(c.client.Mute(), errorsx.ReasonClientSend)
}

// SwitchTalkMode updates the talk mode without interrupting the call.
// Mid-call, push-to-talk forces mute on and continuous forces it off.
func (c *Controller) SwitchTalkMode(mode TalkMode) error {
	c.mu.Lock()
	if c.mode == mode {
		c.mu.Unlock()
		return nil
	}
	c.mode = mode
	connected := c.status == StatusConnected
	if connected {
		c.pttActive = false
		c.muted = mode == ModePushToTalk
	}
	c.mu.Unlock()
	if !connected {
		return nil
	}
	if mode == ModePushToTalk {
		return errorsx.Wrap(c.client.Mute(), errorsx.ReasonClientSend)
	}
	return errorsx.Wrap(c.client.Unmute(), errorsx.ReasonClientSend)
}

// HandleEvent applies one asynchronous client event.
func (c *Controller) HandleEvent(ev events.Event) {
	switch ev.Kind() {
	case events.KindCallStarted:
		c.onCallStarted()
	case events.KindCallEnded:
		c.onCallEnded()
	case events.KindAgentStartTalking:
		c.setAgentSpeaking(true)
	case events.KindAgentStopTalking:
		c.setAgentSpeaking(false)
	case events.KindAudio:
		c.onAudioFrame(ev.Samples())
	case events.KindError:
		c.onError(ev.Detail())
	case events.KindUpdate, events.KindMetadata:
		c.log.Debug("client_event_ignored", "kind", string(ev.Kind()))
	default:
		c.log.Debug("client_event_unknown", "kind", string(ev.Kind()))
	}
}

func (c *Controller) onCallStarted() {
	c.mu.Lock()
	if c.stopRequested {
		// Stop was requested while the start was still in flight; the
		// platform connected anyway, so tear the call down right away.
		attemptID := c.attemptID
		c.mu.Unlock()
		_ = c.client.StopCall()
		c.record("start_abandoned", attemptID, "", nil)
		return
	}
	if c.status == StatusConnected {
		c.mu.Unlock()
		return
	}
	c.lastErr = ""
	notify := c.transitionLocked(StatusConnected, "call_started")
	attemptID, callID := c.attemptID, c.callID
	c.mu.Unlock()
	notify()
	c.record("call_connected", attemptID, callID, nil)
}

func (c *Controller) onCallEnded() {
	c.mu.Lock()
	var notify func()
	if c.status != StatusIdle {
		notify = c.transitionLocked(StatusIdle, "call_ended")
	}
	c.resetFlagsLocked()
	c.stopRequested = false
	attemptID, callID := c.attemptID, c.callID
	c.mu.Unlock()
	if notify != nil {
		notify()
		c.record("call_ended", attemptID, callID, nil)
	}
}

func (c *Controller) setAgentSpeaking(speaking bool) {
	c.mu.Lock()
	c.agentSpeaking = speaking
	c.mu.Unlock()
}

func (c *Controller) onAudioFrame(samples []int16) {
	c.mu.Lock()
	if c.status != StatusConnected {
		c.mu.Unlock()
		return
	}
	level := c.meter.Ingest(samples)
	attemptID, callID := c.attemptID, c.callID
	c.mu.Unlock()
	if c.levelObs != nil {
		c.levelObs.RecordEvent(metrics.MetricsEvent{
			Name:  "audio_level",
			Time:  time.Now(),
			Value: level,
			Tags:  map[string]string{"attempt_id": attemptID, "call_id": callID},
		})
	}
}

func (c *Controller) onError(detail string) {
	msg := detail
	if msg == "" {
		msg = msgCallError
	}
	c.mu.Lock()
	c.lastErr = msg
	var notify func()
	if c.status != StatusError {
		notify = c.transitionLocked(StatusError, "client error")
	}
	c.resetFlagsLocked()
	attemptID, callID := c.attemptID, c.callID
	c.mu.Unlock()
	if notify != nil {
		notify()
	}
	// Guarantee the client is not left connected-but-broken.
	_ = c.client.StopCall()
	c.log.Error("client_error", "attempt_id", attemptID, "detail", redact.Text(detail))
	c.record("session_error", attemptID, callID, map[string]string{"detail": redact.Text(msg)})
}

func (c *Controller) failStart(attemptID, userMsg string) {
	c.mu.Lock()
	if c.attemptID != attemptID {
		c.mu.Unlock()
		return
	}
	c.lastErr = userMsg
	notify := c.transitionLocked(StatusError, "start failed")
	c.resetFlagsLocked()
	c.mu.Unlock()
	notify()
	c.record("start_failed", attemptID, "", map[string]string{"message": userMsg})
}

// transitionLocked validates and applies a status change. It returns a
// closure that notifies listeners and records telemetry, to be invoked
// after the lock is released.
func (c *Controller) transitionLocked(to Status, reason string) func() {
	from := c.status
	if from == to {
		return func() {}
	}
	if !transitionValid(from, to) {
		c.log.Warn("invalid_transition", "from", from.String(), "to", to.String(), "reason", reason)
		return func() {}
	}
	c.status = to
	change := StateChange{
		FromStatus: from,
		ToStatus:   to,
		Timestamp:  time.Now(),
		Reason:     reason,
	}
	listeners := append([]StateListener(nil), c.listeners...)
	attemptID, callID := c.attemptID, c.callID
	return func() {
		for _, listener := range listeners {
			listener.OnStateChange(change)
		}
		c.record("session_state", attemptID, callID, map[string]string{
			"from":   from.String(),
			"to":     to.String(),
			"reason": reason,
		})
	}
}

func (c *Controller) resetFlagsLocked() {
	c.muted = false
	c.agentSpeaking = false
	c.pttActive = false
	c.meter.Reset()
}

func (c *Controller) record(name, attemptID, callID string, tags map[string]string) {
	if c.obs == nil {
		return
	}
	merged := make(map[string]string, len(tags)+2)
	for k, v := range tags {
		merged[k] = v
	}
	if attemptID != "" {
		merged["attempt_id"] = attemptID
	}
	if callID != "" {
		merged["call_id"] = callID
	}
	c.obs.RecordEvent(metrics.MetricsEvent{Name: name, Time: time.Now(), Tags: merged})
}

func classifyMicError(err error) (string, errorsx.ReasonCode) {
	switch {
	case errors.Is(err, mic.ErrUnavailable):
		return msgMicUnavailable, errorsx.ReasonMicUnavailable
	default:
		return msgMicDenied, errorsx.ReasonMicDenied
	}
}
