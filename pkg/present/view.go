// Package present derives everything a front end renders from a
// session snapshot. Derivation is pure: no side effects, no session
// access beyond the snapshot value, so any UI loop can call it at
// whatever frame rate it likes.
package present

import (
	"math"

	"github.com/ozzylabs/ozzy/pkg/session"
)

// Ring selects the glow treatment around the call control.
type Ring int

const (
	RingIdle Ring = iota
	RingListening
	RingAgent
)

func (r Ring) String() string {
	switch r {
	case RingListening:
		return "listening"
	case RingAgent:
		return "agent"
	default:
		return "idle"
	}
}

// View is the fully derived render model.
type View struct {
	StatusLine string
	Ring       Ring
	Bars       []float64

	StartEnabled bool
	StopEnabled  bool
	MuteEnabled  bool
	PTTEnabled   bool
}

const (
	// Bars never drop below this so the widget stays visible.
	barBaseline = 0.08
	// Agent speech raises the floor even when the inbound level is low.
	agentFloor = 0.25

	fallbackError = "something went wrong"
)

// Derive computes the render model for one frame. phase advances with
// wall time and only drives the cosmetic bar animation.
func Derive(snap session.Snapshot, phase float64, barCount int) View {
	return View{
		StatusLine:   statusLine(snap),
		Ring:         ring(snap),
		Bars:         bars(snap, phase, barCount),
		StartEnabled: snap.Status == session.StatusIdle || snap.Status == session.StatusError,
		StopEnabled:  snap.Status == session.StatusConnecting || snap.Status == session.StatusConnected,
		MuteEnabled:  snap.Status == session.StatusConnected,
		PTTEnabled:   snap.Status == session.StatusConnected && snap.Mode == session.ModePushToTalk,
	}
}

func statusLine(snap session.Snapshot) string {
	switch snap.Status {
	case session.StatusConnecting:
		return "connecting"
	case session.StatusError:
		if snap.Err != "" {
			return snap.Err
		}
		return fallbackError
	case session.StatusConnected:
		switch {
		case snap.AgentSpeaking:
			return "agent speaking"
		case snap.PTTActive:
			return "listening"
		case snap.Muted:
			return "muted"
		case snap.Mode == session.ModePushToTalk:
			return "hold to talk"
		default:
			return "listening"
		}
	default:
		return "tap to start"
	}
}

func ring(snap session.Snapshot) Ring {
	if snap.Status != session.StatusConnected {
		return RingIdle
	}
	switch {
	case snap.AgentSpeaking:
		return RingAgent
	case snap.PTTActive, !snap.Muted:
		return RingListening
	default:
		return RingIdle
	}
}

func bars(snap session.Snapshot, phase float64, barCount int) []float64 {
	if barCount <= 0 {
		return nil
	}
	out := make([]float64, barCount)
	if snap.Status != session.StatusConnected {
		for i := range out {
			out[i] = barBaseline
		}
		return out
	}
	floor := barBaseline
	if snap.AgentSpeaking {
		floor = agentFloor
	}
	spread := 2 * math.Pi / float64(barCount)
	for i := range out {
		// wave stays in (0,1] so bar height is strictly increasing in
		// the audio level; the phase term just keeps the bars moving.
		wave := 0.55 + 0.45*math.Sin(phase+float64(i)*spread)
		out[i] = clamp01(floor + snap.Level*(1-floor)*wave)
	}
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
