package events

import "time"

// Kind identifies a call-client lifecycle event.
type Kind string

const (
	KindCallStarted       Kind = "call_started"
	KindCallEnded         Kind = "call_ended"
	KindAgentStartTalking Kind = "agent_start_talking"
	KindAgentStopTalking  Kind = "agent_stop_talking"
	KindError             Kind = "error"
	KindAudio             Kind = "audio"
	KindUpdate            Kind = "update"
	KindMetadata          Kind = "metadata"
)

// Event is an immutable call-client event delivered asynchronously
// from a client implementation to the session controller.
type Event struct {
	kind    Kind
	detail  string
	samples []int16
	meta    map[string]string
	ts      time.Time
}

// New creates an event with no payload.
func New(kind Kind) Event {
	return Event{kind: kind, ts: time.Now()}
}

// NewError creates an error event carrying a diagnostic detail.
func NewError(detail string) Event {
	return Event{kind: KindError, detail: detail, ts: time.Now()}
}

// NewAudio creates an audio event carrying raw PCM16 samples.
// The slice is copied so callers may reuse their buffers.
func NewAudio(samples []int16) Event {
	return Event{kind: KindAudio, samples: append([]int16(nil), samples...), ts: time.Now()}
}

// NewWithMeta creates an event carrying free-form metadata.
func NewWithMeta(kind Kind, meta map[string]string) Event {
	return Event{kind: kind, meta: cloneMeta(meta), ts: time.Now()}
}

func (e Event) Kind() Kind       { return e.kind }
func (e Event) Detail() string   { return e.detail }
func (e Event) Time() time.Time  { return e.ts }
func (e Event) Samples() []int16 { return e.samples }

func (e Event) Meta() map[string]string { return cloneMeta(e.meta) }

func cloneMeta(meta map[string]string) map[string]string {
	if len(meta) == 0 {
		return nil
	}
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
