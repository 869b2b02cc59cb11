package callclient

import (
	"context"

	"github.com/ozzylabs/ozzy/pkg/events"
)

// StartOptions carries parameters for starting a call.
type StartOptions struct {
	// AccessToken authorizes the call; issued by the registration backend.
	AccessToken string
	// EmitRawAudioSamples requests inbound PCM sample callbacks for
	// visualization, where the implementation supports them.
	EmitRawAudioSamples bool
}

// Client is the vendor-agnostic boundary to the conversational-voice
// platform. Implementations own their network lifecycle; lifecycle
// events are delivered asynchronously on Events. Only one call may be
// active per client at a time.
type Client interface {
	Name() string
	StartCall(ctx context.Context, opts StartOptions) error
	StopCall() error
	Mute() error
	Unmute() error
	Events() <-chan events.Event
	Close() error
}
