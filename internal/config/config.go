// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"
	"sync"

	"github.com/spf13/viper"
)

type Config struct {
	RPCURL            string   `mapstructure:"rpc_url"`
	Owners            []string `mapstructure:"owners"`
	HighlightMint     string   `mapstructure:"highlight_mint"`
	IPFSGateway       string   `mapstructure:"ipfs_gateway"`
	FetchTimeoutMs    int      `mapstructure:"fetch_timeout_ms"`
	DustEpsilon       float64  `mapstructure:"dust_epsilon"`
	EnrichConcurrency int      `mapstructure:"enrich_concurrency"`
	RedisAddr         string   `mapstructure:"redis_addr"`
	ProxyListenAddr   string   `mapstructure:"proxy_listen_addr"`
	ProxyUpstreamURL  string   `mapstructure:"proxy_upstream_url"`
	ExportDir         string   `mapstructure:"export_dir"`
	DebugLogging      bool     `mapstructure:"debug_logging"`
}

const (
	DefaultIPFSGateway       = "https://ipfs.io"
	DefaultFetchTimeoutMs    = 10000
	DefaultDustEpsilon       = 1e-6
	DefaultEnrichConcurrency = 8
	DefaultProxyListenAddr   = ":8899"
	DefaultExportDir         = "exports"
)

func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"ipfs_gateway":       DefaultIPFSGateway,
		"fetch_timeout_ms":   DefaultFetchTimeoutMs,
		"dust_epsilon":       DefaultDustEpsilon,
		"enrich_concurrency": DefaultEnrichConcurrency,
		"proxy_listen_addr":  DefaultProxyListenAddr,
		"export_dir":         DefaultExportDir,
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := loadEnvironmentVariables(v, &cfg); err != nil {
		return nil, err
	}

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if cfg.RPCURL == "" {
		return errors.New("missing rpc_url in configuration")
	}
	if err := validateURLWithCache(cfg.RPCURL, "http"); err != nil {
		return errors.New("invalid RPC URL protocol")
	}
	if err := validateURLWithCache(cfg.IPFSGateway, "http"); err != nil {
		return errors.New("invalid IPFS gateway URL protocol")
	}
	if cfg.ProxyUpstreamURL != "" {
		if err := validateURLWithCache(cfg.ProxyUpstreamURL, "http"); err != nil {
			return errors.New("invalid proxy upstream URL protocol")
		}
	}
	return validateNumericParams(cfg)
}

func validateNumericParams(cfg *Config) error {
	if cfg.FetchTimeoutMs <= 0 {
		return errors.New("invalid fetch_timeout_ms")
	}
	if cfg.DustEpsilon < 0 {
		return errors.New("invalid dust_epsilon")
	}
	if cfg.EnrichConcurrency <= 0 {
		return errors.New("invalid enrich_concurrency")
	}
	return nil
}

var urlCache sync.Map

func validateURLWithCache(rawURL string, protocol string) error {
	if _, ok := urlCache.Load(rawURL); ok {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	urlCache.Store(rawURL, parsed)
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) error {
	v.AutomaticEnv()
	v.SetEnvPrefix("SOLANA_PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envRPC := v.GetString("RPC_URL")
	if envRPC != "" {
		cfg.RPCURL = envRPC
	}

	envUpstream := v.GetString("PROXY_UPSTREAM_URL")
	if envUpstream != "" {
		cfg.ProxyUpstreamURL = envUpstream
	}

	envOwners := v.GetString("OWNERS")
	if envOwners != "" {
		owners := strings.Split(envOwners, ",")
		var clean []string
		for _, owner := range owners {
			trimmed := strings.TrimSpace(owner)
			if trimmed != "" {
				clean = append(clean, trimmed)
			}
		}
		if len(clean) > 0 {
			cfg.Owners = clean
		}
	}
	return nil
}
