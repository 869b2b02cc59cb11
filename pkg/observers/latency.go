package observers

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ozzylabs/ozzy/pkg/metrics"
)

// LatencyObserver measures call setup latency per start attempt:
// start request -> microphone granted -> registration complete ->
// call_started from the platform.
type LatencyObserver struct {
	mu       sync.Mutex
	attempts map[string]*attempt
	log      *slog.Logger
}

type attempt struct {
	requested  time.Time
	micGranted time.Time
	registered time.Time
	callID     string
}

func NewLatencyObserver(log *slog.Logger) *LatencyObserver {
	if log == nil {
		log = slog.Default()
	}
	return &LatencyObserver{
		attempts: make(map[string]*attempt),
		log:      log,
	}
}

func (o *LatencyObserver) RecordEvent(ev metrics.MetricsEvent) {
	attemptID := ""
	if ev.Tags != nil {
		attemptID = ev.Tags["attempt_id"]
	}
	if attemptID == "" {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	a := o.attempts[attemptID]
	if a == nil {
		a = &attempt{}
		o.attempts[attemptID] = a
	}
	switch ev.Name {
	case "start_requested":
		if a.requested.IsZero() {
			a.requested = ev.Time
		}
	case "mic_granted":
		if a.micGranted.IsZero() {
			a.micGranted = ev.Time
		}
	case "register_ok":
		if a.registered.IsZero() {
			a.registered = ev.Time
		}
		if a.callID == "" && ev.Tags != nil {
			a.callID = ev.Tags["call_id"]
		}
	case "call_connected":
		o.logSetupLocked(attemptID, a, ev.Time)
		delete(o.attempts, attemptID)
	case "start_failed", "start_abandoned":
		delete(o.attempts, attemptID)
	}
}

func (o *LatencyObserver) logSetupLocked(attemptID string, a *attempt, connected time.Time) {
	o.log.Info("call_setup_latency",
		"attempt_id", attemptID,
		"call_id", a.callID,
		"mic_ms", durationMs(a.requested, a.micGranted),
		"register_ms", durationMs(a.micGranted, a.registered),
		"connect_ms", durationMs(a.registered, connected),
		"total_ms", durationMs(a.requested, connected),
	)
}

func durationMs(a, b time.Time) int64 {
	if a.IsZero() || b.IsZero() {
		return -1
	}
	return b.Sub(a).Milliseconds()
}
