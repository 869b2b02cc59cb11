// Package ozzy wires the call front end together: configuration,
// provider registry, session controller, observers, and the run
// lifecycle.
package ozzy

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/ozzylabs/ozzy/pkg/callclient"
	"github.com/ozzylabs/ozzy/pkg/logging"
	"github.com/ozzylabs/ozzy/pkg/metrics"
	"github.com/ozzylabs/ozzy/pkg/mic"
	"github.com/ozzylabs/ozzy/pkg/observers"
	"github.com/ozzylabs/ozzy/pkg/redact"
	"github.com/ozzylabs/ozzy/pkg/register"
	"github.com/ozzylabs/ozzy/pkg/runner"
	"github.com/ozzylabs/ozzy/pkg/session"
)

// Engine owns a configured call session and its supporting services.
type Engine struct {
	cfg        Config
	controller *session.Controller
	client     callclient.Client
	registrar  *register.Client
	providers  *ProviderRegistry
	runner     *runner.LifecycleRunner
	asyncObs   *metrics.AsyncObserver
	timeline   *observers.TimelineObserver
	ctx        context.Context
	cancel     context.CancelFunc
	pumpDone   chan struct{}
}

// EngineOptions carries construction-time overrides. Client and Prober
// replace the config-selected providers when set; tests use this to
// inject doubles.
type EngineOptions struct {
	Config    Config
	Providers *ProviderRegistry
	Client    callclient.Client
	Prober    mic.Prober
	Listeners []session.StateListener
}

func NewEngine(opts EngineOptions) (*Engine, error) {
	cfg := opts.Config
	SetDefaultLogger(cfg.LogLevel, cfg.LogFormat)
	redact.SetEnabled(cfg.Privacy.RedactPII)

	slog.Info("ozzy_init",
		"environment", cfg.Environment,
		"client_provider", cfg.Client.Provider,
		"agent_id", cfg.AgentID,
		"talk_mode", cfg.TalkMode,
	)

	latencyObs := observers.NewLatencyObserver(slog.Default())
	logObs := observers.NewLoggerObserver(slog.Default())
	obsList := []metrics.Observer{latencyObs, logObs}
	var timeline *observers.TimelineObserver
	if dir := strings.TrimSpace(cfg.Observability.ArtifactsDir); dir != "" {
		if cfg.Observability.RetentionDays > 0 {
			_, _ = observers.PurgeArtifacts(dir, time.Duration(cfg.Observability.RetentionDays)*24*time.Hour)
		}
		timeline = observers.NewTimelineObserver(dir)
		obsList = append(obsList, timeline)
	}
	var metricsFile *os.File
	if path := strings.TrimSpace(cfg.Observability.MetricsFile); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			slog.Warn("metrics_file_open_failed", "path", path, "error", err)
		} else {
			metricsFile = f
			obsList = append(obsList, metrics.NewJSONLObserver(f))
		}
	}
	multiObs := observers.NewMultiObserver(obsList...)
	asyncObs := metrics.NewAsyncObserver(multiObs, 2048)

	providers := opts.Providers
	if providers == nil {
		providers = DefaultRegistry()
	}

	client := opts.Client
	if client == nil {
		built, err := providers.BuildClient(cfg.Client.Provider, cfg, slog.Default())
		if err != nil {
			asyncObs.Close()
			return nil, err
		}
		client = built
	}

	prober := opts.Prober
	if prober == nil {
		built, err := providers.BuildProber(cfg.Mic.Provider, cfg)
		if err != nil {
			asyncObs.Close()
			return nil, err
		}
		prober = built
	}

	registrar := register.NewClient(cfg.Backend, slog.Default())

	controller := session.NewController(client, registrarAdapter{registrar}, prober, session.Config{
		AgentID:      cfg.AgentID,
		TalkMode:     session.ParseTalkMode(cfg.TalkMode),
		EmitRawAudio: cfg.EmitRawAudio,
	}, slog.Default())
	controller.SetObserver(asyncObs)
	controller.SetLevelObserver(metrics.NewSamplingObserver(asyncObs, cfg.Observability.AudioLevelSample))
	for _, l := range opts.Listeners {
		if l != nil {
			controller.AddListener(l)
		}
	}

	e := &Engine{
		cfg:        cfg,
		controller: controller,
		client:     client,
		registrar:  registrar,
		providers:  providers,
		asyncObs:   asyncObs,
		timeline:   timeline,
		pumpDone:   make(chan struct{}),
	}

	hooks := runner.Hooks{
		OnStart: func() {
			slog.Info("engine_ready",
				"message", "Ozzy Front End Ready",
				"backend_url", cfg.Backend.BaseURL,
				"client", client.Name(),
			)
		},
		OnStop: func() {
			asyncObs.Close()
			if timeline != nil {
				_ = timeline.Close()
			}
			if metricsFile != nil {
				_ = metricsFile.Close()
			}
			slog.Info("shutdown", "goroutines", runtime.NumGoroutine())
		},
	}

	drainer := runner.DrainerFunc(func() error {
		_ = controller.Stop()
		_ = client.Close()
		select {
		case <-e.pumpDone:
		case <-time.After(5 * time.Second):
		}
		return nil
	})

	e.runner = runner.NewLifecycleRunner(drainer, hooks, 30*time.Second)
	e.ctx, e.cancel = context.WithCancel(context.Background())
	return e, nil
}

// registrarAdapter narrows the register client to what the session
// controller needs.
type registrarAdapter struct {
	c *register.Client
}

func (a registrarAdapter) CreateWebCall(ctx context.Context, agentID string) (string, string, error) {
	resp, err := a.c.CreateWebCall(ctx, agentID)
	if err != nil {
		return "", "", err
	}
	return resp.AccessToken, resp.CallID, nil
}

// Start launches the event pump and run lifecycle. It returns
// immediately; Stop or context cancellation ends the engine.
func (e *Engine) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	go e.pump()
	go func() {
		_ = e.runner.Run(ctx)
	}()
	return nil
}

// pump routes the client's asynchronous events into the controller.
// It exits when the client's event channel closes.
func (e *Engine) pump() {
	defer close(e.pumpDone)
	for ev := range e.client.Events() {
		e.controller.HandleEvent(ev)
	}
}

func (e *Engine) Stop() error {
	if e.cancel != nil {
		e.cancel()
	}
	return e.runner.Stop()
}

func (e *Engine) Controller() *session.Controller {
	return e.controller
}

func (e *Engine) Registrar() *register.Client {
	return e.registrar
}

func (e *Engine) ProviderRegistry() *ProviderRegistry {
	return e.providers
}

func (e *Engine) Config() Config {
	return e.cfg
}

func (e *Engine) Context() context.Context {
	if e.ctx == nil {
		return context.Background()
	}
	return e.ctx
}

func (e *Engine) Health() error {
	if e.client == nil {
		return fmt.Errorf("missing call client")
	}
	return nil
}

// SetDefaultLogger installs the process-wide slog logger.
func SetDefaultLogger(level, format string) {
	handler := logging.NewHandler(os.Stdout, format, logging.ParseLevel(level))
	slog.SetDefault(slog.New(handler))
}
