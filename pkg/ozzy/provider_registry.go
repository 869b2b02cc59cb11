package ozzy

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ozzylabs/ozzy/pkg/callclient"
	"github.com/ozzylabs/ozzy/pkg/callclient/mock"
	"github.com/ozzylabs/ozzy/pkg/callclient/retell"
	"github.com/ozzylabs/ozzy/pkg/configutil"
	"github.com/ozzylabs/ozzy/pkg/mic"
)

type ClientFactory func(cfg Config, log *slog.Logger) (callclient.Client, error)
type ProberFactory func(cfg Config) (mic.Prober, error)

// ProviderRegistry maps provider names from config to factories for the
// call client and microphone prober.
type ProviderRegistry struct {
	clients map[string]ClientFactory
	probers map[string]ProberFactory
}

func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		clients: make(map[string]ClientFactory),
		probers: make(map[string]ProberFactory),
	}
}

// DefaultRegistry returns a registry with the built-in providers:
// call clients "mock" and "retell", probers "static" and "device".
func DefaultRegistry() *ProviderRegistry {
	r := NewProviderRegistry()
	r.RegisterClient("mock", func(cfg Config, log *slog.Logger) (callclient.Client, error) {
		return mock.New(), nil
	})
	r.RegisterClient("retell", func(cfg Config, log *slog.Logger) (callclient.Client, error) {
		if err := configutil.ValidateSettings(cfg.Client.Settings, configutil.Schema{
			Required: []string{"ws_url"},
			Optional: []string{"dial_timeout_ms", "sample_rate"},
		}); err != nil {
			return nil, fmt.Errorf("retell settings: %w", err)
		}
		var rc retell.Config
		if err := configutil.DecodeSettings(cfg.Client.Settings, &rc); err != nil {
			return nil, fmt.Errorf("decode retell settings: %w", err)
		}
		return retell.New(rc, log), nil
	})
	r.RegisterProber("static", func(cfg Config) (mic.Prober, error) {
		return mic.StaticProber{}, nil
	})
	r.RegisterProber("device", func(cfg Config) (mic.Prober, error) {
		p := mic.NewDeviceProber()
		if cfg.Mic.SampleRate > 0 {
			p.SampleRate = cfg.Mic.SampleRate
		}
		return p, nil
	})
	return r
}

func (r *ProviderRegistry) RegisterClient(name string, factory ClientFactory) {
	r.clients[normalizeProvider(name)] = factory
}

func (r *ProviderRegistry) RegisterProber(name string, factory ProberFactory) {
	r.probers[normalizeProvider(name)] = factory
}

func (r *ProviderRegistry) BuildClient(provider string, cfg Config, log *slog.Logger) (callclient.Client, error) {
	fn := r.clients[normalizeProvider(provider)]
	if fn == nil {
		return nil, fmt.Errorf("client provider not registered: %s", provider)
	}
	return fn(cfg, log)
}

func (r *ProviderRegistry) BuildProber(provider string, cfg Config) (mic.Prober, error) {
	fn := r.probers[normalizeProvider(provider)]
	if fn == nil {
		return nil, fmt.Errorf("mic provider not registered: %s", provider)
	}
	return fn(cfg)
}

func normalizeProvider(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
