package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ozzylabs/ozzy/pkg/errorsx"
	"github.com/twilio/twilio-go"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type callCreator interface {
	CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error)
}

// DialerConfig holds the Twilio credentials and routing for the phone
// fallback, where the backend dials the user instead of serving a web
// call.
type DialerConfig struct {
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
	// VoiceURL is the webhook Twilio fetches to bridge the answered
	// phone leg into the agent call.
	VoiceURL string `mapstructure:"voice_url"`
}

// Dialer places outbound calls through the Twilio REST API.
type Dialer struct {
	cfg    DialerConfig
	client callCreator
}

func NewDialer(cfg DialerConfig) *Dialer {
	return &Dialer{cfg: cfg}
}

// Dial rings toNumber and returns the provider call SID.
func (d *Dialer) Dial(ctx context.Context, toNumber string) (string, error) {
	_ = ctx
	if strings.TrimSpace(toNumber) == "" {
		return "", errorsx.Wrap(errors.New("to_number required"), errorsx.ReasonDialFailed)
	}
	if d.cfg.FromNumber == "" {
		return "", errorsx.Wrap(errors.New("missing from_number"), errorsx.ReasonDialFailed)
	}
	if d.cfg.AccountSID == "" || d.cfg.AuthToken == "" {
		return "", errorsx.Wrap(errors.New("missing twilio credentials"), errorsx.ReasonDialFailed)
	}
	client := d.client
	if client == nil {
		rest := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: d.cfg.AccountSID,
			Password: d.cfg.AuthToken,
		})
		client = rest.Api
	}
	params := &api.CreateCallParams{}
	params.SetTo(toNumber)
	params.SetFrom(d.cfg.FromNumber)
	params.SetUrl(d.cfg.VoiceURL)
	resp, err := client.CreateCall(params)
	if err != nil {
		return "", errorsx.Wrap(err, errorsx.ReasonDialFailed)
	}
	if resp == nil || resp.Sid == nil {
		return "", errorsx.Wrap(fmt.Errorf("missing call sid"), errorsx.ReasonDialFailed)
	}
	return *resp.Sid, nil
}
