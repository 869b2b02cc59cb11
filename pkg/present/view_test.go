package present

import (
	"testing"

	"github.com/ozzylabs/ozzy/pkg/session"
)

func connected(mutate func(*session.Snapshot)) session.Snapshot {
	snap := session.Snapshot{Status: session.StatusConnected}
	if mutate != nil {
		mutate(&snap)
	}
	return snap
}

func TestStatusLine(t *testing.T) {
	cases := []struct {
		name string
		snap session.Snapshot
		want string
	}{
		{"idle", session.Snapshot{Status: session.StatusIdle}, "tap to start"},
		{"connecting", session.Snapshot{Status: session.StatusConnecting}, "connecting"},
		{"error message", session.Snapshot{Status: session.StatusError, Err: "no microphone available"}, "no microphone available"},
		{"error fallback", session.Snapshot{Status: session.StatusError}, fallbackError},
		{"agent speaking", connected(func(s *session.Snapshot) { s.AgentSpeaking = true }), "agent speaking"},
		{"agent speaking beats muted", connected(func(s *session.Snapshot) { s.AgentSpeaking = true; s.Muted = true }), "agent speaking"},
		{"ptt active", connected(func(s *session.Snapshot) { s.Mode = session.ModePushToTalk; s.PTTActive = true }), "listening"},
		{"muted", connected(func(s *session.Snapshot) { s.Muted = true }), "muted"},
		{"continuous default", connected(nil), "listening"},
		{"ptt default", connected(func(s *session.Snapshot) { s.Mode = session.ModePushToTalk; s.Muted = true }), "muted"},
		{"ptt idle hand", connected(func(s *session.Snapshot) { s.Mode = session.ModePushToTalk }), "hold to talk"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := Derive(c.snap, 0, 8).StatusLine; got != c.want {
				t.Errorf("status line = %q, want %q", got, c.want)
			}
		})
	}
}

func TestRingPrecedence(t *testing.T) {
	agent := connected(func(s *session.Snapshot) { s.AgentSpeaking = true; s.PTTActive = true })
	if got := Derive(agent, 0, 8).Ring; got != RingAgent {
		t.Errorf("agent ring = %s, want agent", got)
	}
	listening := connected(nil)
	if got := Derive(listening, 0, 8).Ring; got != RingListening {
		t.Errorf("open-mic ring = %s, want listening", got)
	}
	muted := connected(func(s *session.Snapshot) { s.Muted = true })
	if got := Derive(muted, 0, 8).Ring; got != RingIdle {
		t.Errorf("muted ring = %s, want idle", got)
	}
	pttHeld := connected(func(s *session.Snapshot) { s.Mode = session.ModePushToTalk; s.PTTActive = true })
	if got := Derive(pttHeld, 0, 8).Ring; got != RingListening {
		t.Errorf("ptt-held ring = %s, want listening", got)
	}
	idle := session.Snapshot{Status: session.StatusIdle}
	if got := Derive(idle, 0, 8).Ring; got != RingIdle {
		t.Errorf("idle ring = %s, want idle", got)
	}
}

func TestControlEnablement(t *testing.T) {
	cases := []struct {
		snap                   session.Snapshot
		start, stop, mute, ptt bool
	}{
		{session.Snapshot{Status: session.StatusIdle}, true, false, false, false},
		{session.Snapshot{Status: session.StatusError}, true, false, false, false},
		{session.Snapshot{Status: session.StatusConnecting}, false, true, false, false},
		{connected(nil), false, true, true, false},
		{connected(func(s *session.Snapshot) { s.Mode = session.ModePushToTalk }), false, true, true, true},
	}
	for _, c := range cases {
		v := Derive(c.snap, 0, 8)
		if v.StartEnabled != c.start || v.StopEnabled != c.stop || v.MuteEnabled != c.mute || v.PTTEnabled != c.ptt {
			t.Errorf("%s: enablement = start:%v stop:%v mute:%v ptt:%v, want start:%v stop:%v mute:%v ptt:%v",
				c.snap.Status, v.StartEnabled, v.StopEnabled, v.MuteEnabled, v.PTTEnabled,
				c.start, c.stop, c.mute, c.ptt)
		}
	}
}

func TestBarsBaselineWhenNotConnected(t *testing.T) {
	for _, status := range []session.Status{session.StatusIdle, session.StatusConnecting, session.StatusError} {
		bars := Derive(session.Snapshot{Status: status, Level: 0.9}, 1.3, 12).Bars
		if len(bars) != 12 {
			t.Fatalf("%s: bar count = %d, want 12", status, len(bars))
		}
		for i, b := range bars {
			if b != barBaseline {
				t.Errorf("%s: bar[%d] = %v, want baseline %v", status, i, b, barBaseline)
			}
		}
	}
}

func TestBarsMonotonicInLevel(t *testing.T) {
	for _, phase := range []float64{0, 0.7, 2.1, 5.5} {
		quiet := Derive(connected(func(s *session.Snapshot) { s.Level = 0.2 }), phase, 8).Bars
		loud := Derive(connected(func(s *session.Snapshot) { s.Level = 0.8 }), phase, 8).Bars
		for i := range quiet {
			if loud[i] < quiet[i] {
				t.Fatalf("phase %v bar[%d]: loud %v below quiet %v", phase, i, loud[i], quiet[i])
			}
		}
	}
}

func TestBarsWithinBoundsAndAnimated(t *testing.T) {
	snap := connected(func(s *session.Snapshot) { s.Level = 1 })
	moved := false
	prev := Derive(snap, 0, 8).Bars
	for _, phase := range []float64{0.5, 1.0, 1.5} {
		bars := Derive(snap, phase, 8).Bars
		for i, b := range bars {
			if b < 0 || b > 1 {
				t.Fatalf("bar[%d] = %v out of [0,1]", i, b)
			}
			if b != prev[i] {
				moved = true
			}
		}
		prev = bars
	}
	if !moved {
		t.Error("bars did not animate across phases")
	}
}

func TestBarsAgentFloor(t *testing.T) {
	quietAgent := Derive(connected(func(s *session.Snapshot) { s.AgentSpeaking = true }), 0, 8).Bars
	for i, b := range quietAgent {
		if b < agentFloor {
			t.Errorf("bar[%d] = %v below agent floor %v", i, b, agentFloor)
		}
	}
}

func TestBarsDegenerateCount(t *testing.T) {
	if bars := Derive(connected(nil), 0, 0).Bars; bars != nil {
		t.Errorf("bars for count 0 = %v, want nil", bars)
	}
}
