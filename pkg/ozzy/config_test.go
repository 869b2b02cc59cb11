package ozzy

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, "agent_id: agent-1\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AgentID != "agent-1" {
		t.Errorf("agent_id = %q", cfg.AgentID)
	}
	if cfg.TalkMode != "continuous" {
		t.Errorf("talk_mode = %q, want continuous", cfg.TalkMode)
	}
	if !cfg.EmitRawAudio {
		t.Error("emit_raw_audio should default true")
	}
	if cfg.Backend.BaseURL != "http://localhost:8080" {
		t.Errorf("backend.base_url = %q", cfg.Backend.BaseURL)
	}
	if cfg.Backend.TimeoutMS != 10000 {
		t.Errorf("backend.timeout_ms = %d, want 10000", cfg.Backend.TimeoutMS)
	}
	if cfg.Client.Provider != "mock" {
		t.Errorf("client.provider = %q, want mock", cfg.Client.Provider)
	}
	if cfg.Mic.Provider != "static" || cfg.Mic.SampleRate != 16000 {
		t.Errorf("mic config = %+v", cfg.Mic)
	}
	if !cfg.Privacy.RedactPII {
		t.Error("privacy.redact_pii should default true")
	}
	if cfg.Observability.AudioLevelSample != 0.1 {
		t.Errorf("audio_level_sample = %v, want 0.1", cfg.Observability.AudioLevelSample)
	}
	if cfg.Server.TokenTTL != 5*time.Minute {
		t.Errorf("server.token_ttl = %v, want 5m", cfg.Server.TokenTTL)
	}
}

func TestLoadConfigFull(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, `
agent_id: agent-9
talk_mode: push_to_talk
emit_raw_audio: false
backend:
  base_url: https://calls.example.com
  timeout_ms: 2500
client:
  provider: retell
  settings:
    ws_url: wss://calls.example.com/ws
    dial_timeout_ms: 3000
mic:
  provider: device
  sample_rate: 48000
server:
  addr: ":9090"
  token_secret: s3cret
  token_ttl: 2m
  allowed_agents:
    - agent-9
observability:
  artifacts_dir: /tmp/ozzy-artifacts
  retention_days: 7
log_level: debug
log_format: json
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TalkMode != "push_to_talk" || cfg.EmitRawAudio {
		t.Errorf("talk config = %q/%v", cfg.TalkMode, cfg.EmitRawAudio)
	}
	if cfg.Backend.BaseURL != "https://calls.example.com" || cfg.Backend.TimeoutMS != 2500 {
		t.Errorf("backend = %+v", cfg.Backend)
	}
	if cfg.Client.Provider != "retell" {
		t.Errorf("client.provider = %q", cfg.Client.Provider)
	}
	if cfg.Client.Settings["ws_url"] != "wss://calls.example.com/ws" {
		t.Errorf("client settings = %v", cfg.Client.Settings)
	}
	if cfg.Mic.Provider != "device" || cfg.Mic.SampleRate != 48000 {
		t.Errorf("mic = %+v", cfg.Mic)
	}
	if cfg.Server.TokenTTL != 2*time.Minute {
		t.Errorf("server.token_ttl = %v, want 2m", cfg.Server.TokenTTL)
	}
	if len(cfg.Server.AllowedAgents) != 1 || cfg.Server.AllowedAgents[0] != "agent-9" {
		t.Errorf("allowed_agents = %v", cfg.Server.AllowedAgents)
	}
	if cfg.Observability.ArtifactsDir != "/tmp/ozzy-artifacts" || cfg.Observability.RetentionDays != 7 {
		t.Errorf("observability = %+v", cfg.Observability)
	}
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("OZZY_TEST_AGENT", "agent-env")
	t.Setenv("OZZY_TEST_WS", "wss://env.example.com/ws")
	cfg, err := LoadConfig(writeConfig(t, `
agent_id: ${OZZY_TEST_AGENT}
client:
  provider: retell
  settings:
    ws_url: ${OZZY_TEST_WS}
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AgentID != "agent-env" {
		t.Errorf("agent_id = %q, want agent-env", cfg.AgentID)
	}
	if cfg.Client.Settings["ws_url"] != "wss://env.example.com/ws" {
		t.Errorf("ws_url = %v", cfg.Client.Settings["ws_url"])
	}
}

func TestLoadConfigRequiresAgentID(t *testing.T) {
	if _, err := LoadConfig(writeConfig(t, "talk_mode: continuous\n")); err == nil {
		t.Fatal("expected validation error for missing agent_id")
	}
}
