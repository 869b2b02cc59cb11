package mic

import (
	"context"
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DeviceProber probes the default capture device through portaudio.
// The stream is opened with a minimal buffer purely to surface
// permission/availability errors, then closed before returning.
type DeviceProber struct {
	SampleRate int
}

func NewDeviceProber() *DeviceProber {
	return &DeviceProber{SampleRate: 16000}
}

func (p *DeviceProber) Probe(ctx context.Context) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := portaudio.Initialize(); err != nil {
		return errors.Join(ErrUnavailable, err)
	}
	defer func() {
		if e := portaudio.Terminate(); e != nil {
			err = errors.Join(err, fmt.Errorf("terminating portaudio: %w", e))
		}
	}()

	if _, derr := portaudio.DefaultInputDevice(); derr != nil {
		return errors.Join(ErrUnavailable, derr)
	}

	rate := p.SampleRate
	if rate <= 0 {
		rate = 16000
	}
	in := make([]int16, 64)
	stream, serr := portaudio.OpenDefaultStream(1, 0, float64(rate), len(in), in)
	if serr != nil {
		// The host API reports a refused device the same way as a busy
		// one; treat open failure on an existing device as a denial.
		return errors.Join(ErrPermissionDenied, serr)
	}
	defer func() {
		if e := stream.Close(); e != nil {
			err = errors.Join(err, fmt.Errorf("closing probe stream: %w", e))
		}
	}()

	if serr := stream.Start(); serr != nil {
		return errors.Join(ErrPermissionDenied, serr)
	}
	return stream.Stop()
}
