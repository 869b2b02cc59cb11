package ozzy

import (
	"fmt"
	"os"
	"reflect"

	"github.com/ozzylabs/ozzy/pkg/backend"
	"github.com/ozzylabs/ozzy/pkg/configutil"
	"github.com/ozzylabs/ozzy/pkg/register"
	"github.com/spf13/viper"
)

// Config is the full engine configuration, loaded from a single file
// with environment expansion applied to every string value.
type Config struct {
	AgentID      string `mapstructure:"agent_id"`
	TalkMode     string `mapstructure:"talk_mode"`
	EmitRawAudio bool   `mapstructure:"emit_raw_audio"`

	Backend register.Config `mapstructure:"backend"`
	Client  ClientConfig    `mapstructure:"client"`
	Mic     MicConfig       `mapstructure:"mic"`

	// Server and Dialer configure the bundled reference backend; unused
	// when the front end registers against an external service.
	Server backend.ServerConfig `mapstructure:"server"`
	Dialer backend.DialerConfig `mapstructure:"dialer"`

	Environment   string              `mapstructure:"environment"`
	LogLevel      string              `mapstructure:"log_level"`
	LogFormat     string              `mapstructure:"log_format"`
	Observability ObservabilityConfig `mapstructure:"observability"`
	Privacy       PrivacyConfig       `mapstructure:"privacy"`
}

// ClientConfig selects the call-client provider and its free-form
// settings, decoded by the provider factory.
type ClientConfig struct {
	Provider string         `mapstructure:"provider"`
	Settings map[string]any `mapstructure:"settings"`
}

type MicConfig struct {
	Provider   string `mapstructure:"provider"`
	SampleRate int    `mapstructure:"sample_rate"`
}

type ObservabilityConfig struct {
	ArtifactsDir     string  `mapstructure:"artifacts_dir"`
	MetricsFile      string  `mapstructure:"metrics_file"`
	RetentionDays    int     `mapstructure:"retention_days"`
	AudioLevelSample float64 `mapstructure:"audio_level_sample"`
}

type PrivacyConfig struct {
	RedactPII bool `mapstructure:"redact_pii"`
}

func LoadConfig(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("talk_mode", "continuous")
	v.SetDefault("emit_raw_audio", true)
	v.SetDefault("backend.base_url", register.DefaultBaseURL)
	v.SetDefault("backend.timeout_ms", 10000)
	v.SetDefault("client.provider", "mock")
	v.SetDefault("mic.provider", "static")
	v.SetDefault("mic.sample_rate", 16000)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.token_ttl", "5m")
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("observability.artifacts_dir", "")
	v.SetDefault("observability.metrics_file", "")
	v.SetDefault("observability.retention_days", 0)
	v.SetDefault("observability.audio_level_sample", 0.1)
	v.SetDefault("privacy.redact_pii", true)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal: %w", err)
	}

	expandEnvStrings(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := configutil.RequireString(c.AgentID, "agent_id"); err != nil {
		return err
	}
	if err := configutil.RequireString(c.Client.Provider, "client.provider"); err != nil {
		return err
	}
	return nil
}

func expandEnvStrings(cfg *Config) {
	expandValue(reflect.ValueOf(cfg))
	cfg.Client.Settings = expandSettings(cfg.Client.Settings)
}

func expandSettings(settings map[string]any) map[string]any {
	if settings == nil {
		return nil
	}
	for k, v := range settings {
		settings[k] = expandAny(v)
	}
	return settings
}

func expandAny(v any) any {
	switch val := v.(type) {
	case string:
		return os.ExpandEnv(val)
	case []any:
		for i := range val {
			val[i] = expandAny(val[i])
		}
		return val
	case map[string]any:
		for k, v := range val {
			val[k] = expandAny(v)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, v := range val {
			ks, ok := k.(string)
			if !ok {
				continue
			}
			out[ks] = expandAny(v)
		}
		return out
	default:
		return v
	}
}

func expandValue(v reflect.Value) {
	if !v.IsValid() {
		return
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return
		}
		expandValue(v.Elem())
		return
	}
	switch v.Kind() {
	case reflect.Struct:
		for i := 0; i < v.NumField(); i++ {
			expandValue(v.Field(i))
		}
	case reflect.String:
		if v.CanSet() {
			v.SetString(os.ExpandEnv(v.String()))
		}
	case reflect.Slice, reflect.Array:
		for i := 0; i < v.Len(); i++ {
			expandValue(v.Index(i))
		}
	case reflect.Map:
		if v.Type().Key().Kind() == reflect.String && v.Type().Elem().Kind() == reflect.String {
			for _, key := range v.MapKeys() {
				val := v.MapIndex(key)
				expanded := os.ExpandEnv(val.String())
				v.SetMapIndex(key, reflect.ValueOf(expanded))
			}
		}
	}
}
