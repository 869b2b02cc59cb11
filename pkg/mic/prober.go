package mic

import (
	"context"
	"errors"
)

// ErrPermissionDenied indicates the user or OS refused microphone access.
var ErrPermissionDenied = errors.New("microphone permission denied")

// ErrUnavailable indicates no audio capture capability exists at all.
// Distinct from a denial: there is nothing the user can grant.
var ErrUnavailable = errors.New("no audio capture device available")

// Prober verifies that audio capture is possible before a call is
// registered. Implementations must hold the device only for the probe
// itself and release it on every exit path.
type Prober interface {
	Probe(ctx context.Context) error
}

// StaticProber returns a fixed result; used in tests and for
// deployments where capture permission is managed elsewhere.
type StaticProber struct {
	Err error
}

func (p StaticProber) Probe(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.Err
}
