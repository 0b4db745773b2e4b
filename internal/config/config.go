// Package config loads lighthouse's configuration the way the teacher's
// cmd/e2d/app wires cobra flags and its pkg/util/env reflection-based
// environment reader, generalized to the nested, double-underscore-
// separated section names this service's configuration calls for
// (ConnectionStrings__DefaultConnection, NonceValidation__WindowDuration,
// ...), using viper instead of a hand-rolled struct-tag walker so that the
// layering viper already gives the rest of the ecosystem applies here too:
// defaults < config file < environment. No command-line flags are bound
// into the configuration.
package config

import (
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Config is the fully resolved, typed configuration for a lighthouse
// server process.
type Config struct {
	ListenAddress   string
	MetricsAddress  string
	LogLevel        string

	ConnectionStrings struct {
		DefaultConnection string
	}
	NonceValidation struct {
		WindowDuration time.Duration
	}
	NodeEviction struct {
		MaxNodesPerClusterVersion int
	}
	RateLimiting struct {
		Disabled bool
	}

	Security struct {
		CertFile      string
		KeyFile       string
		TrustedCAFile string
	}
}

// New binds defaults, an optional config file, and environment variables
// using the Section__Key convention, then returns the resolved Config.
func New(v *viper.Viper, configFile string) (*Config, error) {
	if v == nil {
		v = viper.New()
	}

	v.SetDefault("listenaddress", ":8080")
	v.SetDefault("metricsaddress", ":9090")
	v.SetDefault("loglevel", "info")
	v.SetDefault("connectionstrings.defaultconnection", "memory://")
	v.SetDefault("noncevalidation.windowduration", "24:00:00")
	v.SetDefault("nodeeviction.maxnodesperclusterversion", 5)
	v.SetDefault("ratelimiting.disabled", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	v.AutomaticEnv()
	// AutomaticEnv only looks up the upper-cased name; also accept the
	// mixed-case Section__Key spelling of each documented setting.
	for _, name := range []string{
		"ConnectionStrings__DefaultConnection",
		"NonceValidation__WindowDuration",
		"NodeEviction__MaxNodesPerClusterVersion",
		"RateLimiting__Disabled",
	} {
		if err := v.BindEnv(strings.ToLower(strings.Replace(name, "__", ".", 1)), name); err != nil {
			return nil, errors.Wrap(err, "binding environment variable")
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrap(err, "reading config file")
		}
	}

	window, err := parseHMS(v.GetString("noncevalidation.windowduration"))
	if err != nil {
		return nil, errors.Wrap(err, "NonceValidation__WindowDuration")
	}

	cfg := &Config{
		ListenAddress:  v.GetString("listenaddress"),
		MetricsAddress: v.GetString("metricsaddress"),
		LogLevel:       v.GetString("loglevel"),
	}
	cfg.ConnectionStrings.DefaultConnection = v.GetString("connectionstrings.defaultconnection")
	cfg.NonceValidation.WindowDuration = window
	cfg.NodeEviction.MaxNodesPerClusterVersion = v.GetInt("nodeeviction.maxnodesperclusterversion")
	cfg.RateLimiting.Disabled = v.GetBool("ratelimiting.disabled")
	cfg.Security.CertFile = v.GetString("security.certfile")
	cfg.Security.KeyFile = v.GetString("security.keyfile")
	cfg.Security.TrustedCAFile = v.GetString("security.trustedcafile")

	if cfg.NodeEviction.MaxNodesPerClusterVersion <= 0 {
		return nil, errors.New("NodeEviction__MaxNodesPerClusterVersion must be a positive integer")
	}
	return cfg, nil
}

// parseHMS parses the spec's HH:MM:SS window format. time.ParseDuration
// doesn't accept this shape directly since it requires unit suffixes.
func parseHMS(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, errors.Errorf("expected HH:MM:SS, got %q", s)
	}
	var hms [3]int64
	for i, p := range parts {
		n, err := parseUintStrict(p)
		if err != nil {
			return 0, errors.Errorf("expected HH:MM:SS, got %q", s)
		}
		hms[i] = n
	}
	return time.Duration(hms[0])*time.Hour + time.Duration(hms[1])*time.Minute + time.Duration(hms[2])*time.Second, nil
}

func parseUintStrict(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("empty component")
	}
	var n int64
	for _, ch := range s {
		if ch < '0' || ch > '9' {
			return 0, errors.Errorf("non-digit in %q", s)
		}
		n = n*10 + int64(ch-'0')
	}
	return n, nil
}
