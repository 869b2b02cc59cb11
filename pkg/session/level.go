package session

import "math"

// LevelMeter turns inbound PCM16 frames into a smoothed display level
// in [0,1]. It exists purely for the waveform/ring visual; degenerate
// input clamps to zero and never panics.
type LevelMeter struct {
	level  float64
	gain   float64
	attack float64
	decay  float64
}

func NewLevelMeter() *LevelMeter {
	return &LevelMeter{
		gain:   4.0,
		attack: 0.6,
		decay:  0.3,
	}
}

// Ingest folds one frame into the meter and returns the new level.
// An empty frame resets the level to zero.
func (m *LevelMeter) Ingest(samples []int16) float64 {
	if len(samples) == 0 {
		m.level = 0
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += math.Abs(float64(s))
	}
	target := clamp01(sum / float64(len(samples)) / 32768.0 * m.gain)
	alpha := m.attack
	if target < m.level {
		alpha = m.decay
	}
	m.level += (target - m.level) * alpha
	if target == 0 && m.level < 0.01 {
		m.level = 0
	}
	m.level = clamp01(m.level)
	return m.level
}

// Level returns the current smoothed level.
func (m *LevelMeter) Level() float64 { return m.level }

// Reset drops the level to zero, used on call end.
func (m *LevelMeter) Reset() { m.level = 0 }

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
