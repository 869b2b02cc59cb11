package register

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ozzylabs/ozzy/pkg/errorsx"
	"github.com/ozzylabs/ozzy/pkg/logging"
	"github.com/ozzylabs/ozzy/pkg/redact"
)

// DefaultBaseURL is used when no backend base URL is configured.
const DefaultBaseURL = "http://localhost:8080"

const defaultTimeout = 10 * time.Second

type Config struct {
	BaseURL   string `mapstructure:"base_url"`
	TimeoutMS int    `mapstructure:"timeout_ms"`
}

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.BaseURL) == "" {
		c.BaseURL = DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	if c.TimeoutMS <= 0 {
		c.TimeoutMS = int(defaultTimeout / time.Millisecond)
	}
	return c
}

// WebCallResponse is the backend's answer to a web-call registration.
type WebCallResponse struct {
	AccessToken string `json:"access_token"`
	CallID      string `json:"call_id,omitempty"`
}

// PhoneCallResponse is the backend's answer to a phone-call fallback.
type PhoneCallResponse struct {
	CallSID string `json:"call_sid"`
}

// Client registers calls against the backend collaborator.
type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	cfg = cfg.withDefaults()
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
		log: logging.NewComponentLogger(log, "register"),
	}
}

// CreateWebCall authorizes a web call for the given agent and returns a
// short-lived access token. Any non-2xx status is a registration failure.
func (c *Client) CreateWebCall(ctx context.Context, agentID string) (WebCallResponse, error) {
	var out WebCallResponse
	payload := map[string]string{"agent_id": agentID}
	if err := c.post(ctx, "/create-web-call", payload, &out); err != nil {
		return WebCallResponse{}, err
	}
	if out.AccessToken == "" {
		return WebCallResponse{}, errorsx.Wrap(fmt.Errorf("registration response missing access_token"), errorsx.ReasonRegisterDecode)
	}
	c.log.Debug("web_call_registered", "call_id", out.CallID, "token", redact.Token(out.AccessToken))
	return out, nil
}

// CreatePhoneCall asks the backend to dial the user on a phone number
// instead of opening a web call.
func (c *Client) CreatePhoneCall(ctx context.Context, agentID, toNumber string) (PhoneCallResponse, error) {
	var out PhoneCallResponse
	payload := map[string]string{"agent_id": agentID, "to_number": toNumber}
	if err := c.post(ctx, "/create-phone-call", payload, &out); err != nil {
		return PhoneCallResponse{}, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRegisterConnect)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRegisterConnect)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRegisterConnect)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain a little of the body for the diagnostic log, never for
		// the caller-facing error.
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.log.Warn("register_failed",
			"path", path,
			"status", resp.StatusCode,
			"body", redact.Text(string(snippet)),
		)
		return errorsx.Wrap(fmt.Errorf("registration failed with status %d", resp.StatusCode), errorsx.ReasonRegisterStatus)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errorsx.Wrap(err, errorsx.ReasonRegisterDecode)
	}
	return nil
}
