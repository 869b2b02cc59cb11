package retell

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ozzylabs/ozzy/pkg/callclient"
	"github.com/ozzylabs/ozzy/pkg/errorsx"
	"github.com/ozzylabs/ozzy/pkg/events"
	"github.com/ozzylabs/ozzy/pkg/logging"

	"log/slog"
)

type Config struct {
	WSURL         string `mapstructure:"ws_url"`
	DialTimeoutMS int    `mapstructure:"dial_timeout_ms"`
	SampleRate    int    `mapstructure:"sample_rate"`
}

func (c Config) withDefaults() Config {
	if c.DialTimeoutMS <= 0 {
		c.DialTimeoutMS = 5000
	}
	if c.SampleRate <= 0 {
		c.SampleRate = 16000
	}
	return c
}

// Client speaks a websocket event protocol with the voice-agent
// platform: JSON envelopes for lifecycle and control, binary frames for
// raw PCM16 audio. One call may be active at a time; there is no
// automatic reconnect.
type Client struct {
	cfg Config
	log *slog.Logger

	eventCh chan events.Event
	closed  atomic.Bool
	active  atomic.Bool

	mu        sync.Mutex
	conn      *websocket.Conn
	sendCh    chan []byte
	endedOnce *sync.Once
}

type envelope struct {
	Event               string `json:"event"`
	AccessToken         string `json:"access_token,omitempty"`
	EmitRawAudioSamples bool   `json:"emit_raw_audio_samples,omitempty"`
	Detail              string `json:"detail,omitempty"`
}

func New(cfg Config, log *slog.Logger) *Client {
	return &Client{
		cfg:     cfg.withDefaults(),
		log:     logging.NewComponentLogger(log, "retell_client"),
		eventCh: make(chan events.Event, 256),
	}
}

func (c *Client) Name() string { return "retell" }

func (c *Client) Events() <-chan events.Event { return c.eventCh }

func (c *Client) StartCall(ctx context.Context, opts callclient.StartOptions) error {
	if opts.AccessToken == "" {
		return errorsx.Wrap(errors.New("missing access token"), errorsx.ReasonClientStart)
	}
	if c.closed.Load() {
		return errorsx.Wrap(errors.New("client closed"), errorsx.ReasonClientStart)
	}
	if !c.active.CompareAndSwap(false, true) {
		return errorsx.Wrap(errors.New("call already active"), errorsx.ReasonClientStart)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: time.Duration(c.cfg.DialTimeoutMS) * time.Millisecond,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+opts.AccessToken)
	conn, resp, err := dialer.DialContext(ctx, c.cfg.WSURL, header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		c.active.Store(false)
		return errorsx.Wrap(err, errorsx.ReasonClientStart)
	}

	sendCh := make(chan []byte, 64)
	ended := &sync.Once{}
	c.mu.Lock()
	c.conn = conn
	c.sendCh = sendCh
	c.endedOnce = ended
	c.mu.Unlock()

	start, _ := json.Marshal(envelope{
		Event:               "start_call",
		AccessToken:         opts.AccessToken,
		EmitRawAudioSamples: opts.EmitRawAudioSamples,
	})
	sendCh <- start

	go c.writeLoop(conn, sendCh)
	go c.readLoop(conn, ended)
	return nil
}

func (c *Client) StopCall() error {
	if !c.active.Load() {
		return nil
	}
	c.enqueue(envelope{Event: "stop_call"})

	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn != nil {
		deadline := time.Now().Add(time.Second)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
		// Give the server a moment to half-close, then force the read
		// loop out.
		_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	}
	return nil
}

func (c *Client) Mute() error {
	return c.enqueue(envelope{Event: "mute"})
}

func (c *Client) Unmute() error {
	return c.enqueue(envelope{Event: "unmute"})
}

func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	_ = c.StopCall()
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	close(c.eventCh)
	return nil
}

func (c *Client) enqueue(env envelope) error {
	if !c.active.Load() {
		return nil
	}
	c.mu.Lock()
	sendCh := c.sendCh
	c.mu.Unlock()
	if sendCh == nil {
		return nil
	}
	raw, err := json.Marshal(env)
	if err != nil {
		return errorsx.Wrap(err, errorsx.ReasonClientSend)
	}
	select {
	case sendCh <- raw:
		return nil
	default:
		return errorsx.Wrap(errors.New("send queue full"), errorsx.ReasonClientSend)
	}
}

func (c *Client) writeLoop(conn *websocket.Conn, sendCh chan []byte) {
	for msg := range sendCh {
		if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			return
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn, ended *sync.Once) {
	defer c.teardown(conn, ended)
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if !c.closed.Load() && websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.emit(events.NewError(err.Error()))
			}
			return
		}
		switch mt {
		case websocket.BinaryMessage:
			c.emit(events.NewAudio(decodePCM16(data)))
		case websocket.TextMessage:
			var env envelope
			if err := json.Unmarshal(data, &env); err != nil {
				c.log.Debug("bad_envelope", "error", err)
				continue
			}
			if env.Event == "call_ended" {
				// Emitted exactly once by teardown.
				return
			}
			c.emit(envelopeEvent(env))
		}
	}
}

func (c *Client) teardown(conn *websocket.Conn, ended *sync.Once) {
	_ = conn.Close()
	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	if c.sendCh != nil {
		close(c.sendCh)
		c.sendCh = nil
	}
	c.mu.Unlock()
	c.active.Store(false)
	ended.Do(func() {
		c.emit(events.New(events.KindCallEnded))
	})
}

func (c *Client) emit(ev events.Event) {
	if c.closed.Load() {
		return
	}
	select {
	case c.eventCh <- ev:
	default:
	}
}

func envelopeEvent(env envelope) events.Event {
	switch env.Event {
	case "call_started":
		return events.New(events.KindCallStarted)
	case "agent_start_talking":
		return events.New(events.KindAgentStartTalking)
	case "agent_stop_talking":
		return events.New(events.KindAgentStopTalking)
	case "error":
		return events.NewError(env.Detail)
	case "metadata":
		return events.NewWithMeta(events.KindMetadata, map[string]string{"raw": env.Detail})
	default:
		return events.NewWithMeta(events.KindUpdate, map[string]string{"event": env.Event})
	}
}

func decodePCM16(data []byte) []int16 {
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(data[2*i:]))
	}
	return samples
}
