package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/ozzylabs/ozzy/pkg/errorsx"
	api "github.com/twilio/twilio-go/rest/api/v2010"
)

type stubCreator struct {
	last *api.CreateCallParams
	sid  string
	err  error
}

func (s *stubCreator) CreateCall(params *api.CreateCallParams) (*api.ApiV2010Call, error) {
	s.last = params
	if s.err != nil {
		return nil, s.err
	}
	return &api.ApiV2010Call{Sid: &s.sid}, nil
}

func TestDialerDial(t *testing.T) {
	stub := &stubCreator{sid: "CA123"}
	d := NewDialer(DialerConfig{
		AccountSID: "AC1",
		AuthToken:  "token",
		FromNumber: "+200",
		VoiceURL:   "https://example.com/voice",
	})
	d.client = stub

	sid, err := d.Dial(context.Background(), "+100")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if sid != "CA123" {
		t.Fatalf("sid = %s, want CA123", sid)
	}
	if stub.last == nil || stub.last.To == nil || *stub.last.To != "+100" {
		t.Fatal("expected To param")
	}
	if stub.last.From == nil || *stub.last.From != "+200" {
		t.Fatal("expected From param")
	}
	if stub.last.Url == nil || *stub.last.Url != "https://example.com/voice" {
		t.Fatal("expected Url param")
	}
}

func TestDialerMissingCredentials(t *testing.T) {
	d := NewDialer(DialerConfig{FromNumber: "+200"})
	_, err := d.Dial(context.Background(), "+100")
	if !errorsx.HasReason(err, errorsx.ReasonDialFailed) {
		t.Fatalf("reason = %s, want dial_failed", errorsx.Reason(err))
	}
}

func TestDialerProviderError(t *testing.T) {
	stub := &stubCreator{err: errors.New("twilio down")}
	d := NewDialer(DialerConfig{AccountSID: "AC1", AuthToken: "token", FromNumber: "+200"})
	d.client = stub
	_, err := d.Dial(context.Background(), "+100")
	if !errorsx.HasReason(err, errorsx.ReasonDialFailed) {
		t.Fatalf("reason = %s, want dial_failed", errorsx.Reason(err))
	}
}
