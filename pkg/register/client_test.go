package register

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ozzylabs/ozzy/pkg/errorsx"
)

func TestCreateWebCallSuccess(t *testing.T) {
	var gotPath, gotContentType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "tok123",
			"call_id":      "call-1",
		})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	resp, err := c.CreateWebCall(context.Background(), "agent-7")
	if err != nil {
		t.Fatalf("create web call: %v", err)
	}
	if resp.AccessToken != "tok123" {
		t.Fatalf("expected tok123, got %q", resp.AccessToken)
	}
	if gotPath != "/create-web-call" {
		t.Fatalf("expected /create-web-call, got %s", gotPath)
	}
	if gotContentType != "application/json" {
		t.Fatalf("expected json content type, got %q", gotContentType)
	}
	if gotBody["agent_id"] != "agent-7" {
		t.Fatalf("expected agent_id in body, got %v", gotBody)
	}
}

func TestCreateWebCallNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.CreateWebCall(context.Background(), "agent-7")
	if err == nil {
		t.Fatalf("expected error on 500")
	}
	if !errorsx.HasReason(err, errorsx.ReasonRegisterStatus) {
		t.Fatalf("expected register_status reason, got %s", errorsx.Reason(err))
	}
}

func TestCreateWebCallMissingToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"call_id": "call-1"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.CreateWebCall(context.Background(), "agent-7")
	if !errorsx.HasReason(err, errorsx.ReasonRegisterDecode) {
		t.Fatalf("expected register_decode reason, got %v", err)
	}
}

func TestCreateWebCallTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	_, err := c.CreateWebCall(context.Background(), "agent-7")
	if !errorsx.HasReason(err, errorsx.ReasonRegisterConnect) {
		t.Fatalf("expected register_connect reason, got %v", err)
	}
}

func TestCreateWebCallTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer func() {
		close(block)
		srv.Close()
	}()

	c := NewClient(Config{BaseURL: srv.URL, TimeoutMS: 50}, nil)
	start := time.Now()
	_, err := c.CreateWebCall(context.Background(), "agent-7")
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not honored")
	}
	if !errorsx.HasReason(err, errorsx.ReasonRegisterConnect) {
		t.Fatalf("expected register_connect reason, got %v", err)
	}
}

func TestCreatePhoneCall(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/create-phone-call" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"call_sid": "CA123"})
	}))
	defer srv.Close()

	c := NewClient(Config{BaseURL: srv.URL}, nil)
	resp, err := c.CreatePhoneCall(context.Background(), "agent-7", "+100")
	if err != nil {
		t.Fatalf("create phone call: %v", err)
	}
	if resp.CallSID != "CA123" {
		t.Fatalf("expected CA123, got %q", resp.CallSID)
	}
}
