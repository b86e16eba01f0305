package cfg

import (
	"cmp"
	"fmt"
	"net/url"
	"strconv"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

const (
	ProviderLocal = "local"
	ProviderPush  = "push"
)

type rawCfg struct {
	DBPath string `long:"db-path" env:"DB_PATH" default:"./feedsink.db" description:"SQLite database path"`

	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	FeedsDir     string `long:"feeds-dir" env:"FEEDS_DIR" default:"./feeds" description:"Directory containing subscription seed files"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"5" description:"Number of background workers for import processing"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Outbound fetch timeout in seconds"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	Provider        string `long:"provider" env:"FEED_PROVIDER" default:"local" description:"Feed push provider (local or push)"`
	PushEndpoint    string `long:"push-endpoint" env:"PUSH_ENDPOINT" description:"Push provider hub endpoint (required when provider=push)"`
	WebhookSecret   string `long:"webhook-secret" env:"WEBHOOK_SECRET" description:"Secret used to sign and verify webhook deliveries (required)" required:"true"`
	CallbackBaseURL string `long:"callback-base-url" env:"CALLBACK_BASE_URL" default:"http://localhost:8080" description:"Public base URL webhook callbacks are delivered to"`
	RegistryPort    string `long:"registry-port" env:"REGISTRY_PORT" default:"8081" description:"Local feed registry port (provider=local only)"`

	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"Feedsink/1.0" description:"User agent string for HTTP requests"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:          raw.DBPath,
		Port:            raw.Port,
		FeedsDir:        raw.FeedsDir,
		WorkerCount:     raw.WorkerCount,
		FetchTimeout:    raw.FetchTimeout,
		APIAccessKey:    raw.APIAccessKey,
		Provider:        raw.Provider,
		PushEndpoint:    raw.PushEndpoint,
		WebhookSecret:   raw.WebhookSecret,
		CallbackBaseURL: raw.CallbackBaseURL,
		RegistryPort:    raw.RegistryPort,
		UserAgent:       raw.UserAgent,
		Debug:           raw.Debug,
		Version:         GetVersion(),
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

// Validate rejects configurations the process must not start with.
func Validate(cfg *Cfg) error {
	switch cfg.Provider {
	case ProviderLocal, ProviderPush:
	default:
		return fmt.Errorf("invalid provider '%s': must be '%s' or '%s'", cfg.Provider, ProviderLocal, ProviderPush)
	}

	if cfg.WebhookSecret == "" {
		return fmt.Errorf("webhook secret is required")
	}

	if cfg.Provider == ProviderPush && cfg.PushEndpoint == "" {
		return fmt.Errorf("push endpoint is required when provider is '%s'", ProviderPush)
	}

	for name, port := range map[string]string{"port": cfg.Port, "registry port": cfg.RegistryPort} {
		p, err := strconv.Atoi(port)
		if err != nil || p < 1 || p > 65535 {
			return fmt.Errorf("invalid %s '%s'", name, port)
		}
	}

	if u, err := url.Parse(cfg.CallbackBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid callback base URL '%s'", cfg.CallbackBaseURL)
	}

	return nil
}
