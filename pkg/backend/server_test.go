package backend

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func TestCreateWebCall(t *testing.T) {
	srv := NewServer(ServerConfig{TokenSecret: "secret"}, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/create-web-call", webCallRequest{AgentID: "agent-1"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body webCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.AccessToken == "" || body.CallID == "" {
		t.Fatalf("response = %+v, want token and call_id", body)
	}
	agentID, callID, err := NewTokenIssuer("secret", time.Minute).Verify(body.AccessToken)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if agentID != "agent-1" || callID != body.CallID {
		t.Fatalf("token claims = %q/%q, want agent-1/%q", agentID, callID, body.CallID)
	}
}

func TestCreateWebCallValidation(t *testing.T) {
	srv := NewServer(ServerConfig{TokenSecret: "secret"}, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/create-web-call", webCallRequest{})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty agent_id status = %d, want 400", resp.StatusCode)
	}

	getResp, err := http.Get(ts.URL + "/create-web-call")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	getResp.Body.Close()
	if getResp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("GET status = %d, want 405", getResp.StatusCode)
	}
}

func TestCreateWebCallAllowlist(t *testing.T) {
	srv := NewServer(ServerConfig{TokenSecret: "secret", AllowedAgents: []string{"agent-ok"}}, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/create-web-call", webCallRequest{AgentID: "agent-bad"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("unlisted agent status = %d, want 403", resp.StatusCode)
	}

	okResp := postJSON(t, ts.URL+"/create-web-call", webCallRequest{AgentID: "agent-ok"})
	okResp.Body.Close()
	if okResp.StatusCode != http.StatusCreated {
		t.Errorf("listed agent status = %d, want 201", okResp.StatusCode)
	}
}

func TestCreatePhoneCall(t *testing.T) {
	stub := &stubCreator{sid: "CA555"}
	dialer := NewDialer(DialerConfig{AccountSID: "AC1", AuthToken: "token", FromNumber: "+200"})
	dialer.client = stub
	srv := NewServer(ServerConfig{TokenSecret: "secret"}, dialer, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/create-phone-call", phoneCallRequest{AgentID: "agent-1", ToNumber: "+100"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body phoneCallResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.CallSID != "CA555" {
		t.Fatalf("call_sid = %q, want CA555", body.CallSID)
	}
}

func TestCreatePhoneCallUnconfigured(t *testing.T) {
	srv := NewServer(ServerConfig{TokenSecret: "secret"}, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/create-phone-call", phoneCallRequest{AgentID: "agent-1", ToNumber: "+100"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(ServerConfig{TokenSecret: "secret"}, nil, nil)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
