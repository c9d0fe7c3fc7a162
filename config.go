package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "IPDNS"

type Config struct {
	Address          string
	Port             string
	ReadTimeout      time.Duration
	WriteTimeout     time.Duration
	IdleTimeout      time.Duration
	DNSLookupTimeout time.Duration
	Docs             bool // serve /spec.yaml and /swagger-ui.html
	Nameservers      []string
	ResolvConf       string
	TrustedProxies   []string
	MetricsAddress   string // empty disables the metrics listener

	Log struct {
		File    string
		STDOUT  bool
		Verbose bool
		JSON    bool
	}
}

// --- CONFIG & SETUP ---

func registerFlags(flags *pflag.FlagSet) {
	flags.String("address", "", "listen host, empty listens on all interfaces")
	flags.String("port", "8000", "listen port")
	flags.Bool("docs", true, "serve /spec.yaml and /swagger-ui.html")
	flags.StringSlice("nameservers", nil, "nameservers to query instead of the resolv.conf ones (host or host:port)")
	flags.String("resolv-conf", "/etc/resolv.conf", "resolver configuration file")
	flags.Duration("dns-timeout", 0, "per query timeout, 0 keeps the resolver default")
	flags.StringSlice("trusted-proxies", nil, "peers whose X-Forwarded-For and X-Real-IP headers are honoured")
	flags.String("metrics-address", "", "address of the prometheus listener, empty disables it")
	flags.Duration("read-timeout", 10*time.Second, "http read timeout")
	flags.Duration("write-timeout", 10*time.Second, "http write timeout")
	flags.Duration("idle-timeout", 30*time.Second, "http idle timeout")
	flags.String("log-file", "", "log file path, empty disables file logging")
	flags.Bool("log-stdout", true, "log to stdout")
	flags.Bool("log-verbose", false, "enable debug logging")
	flags.Bool("log-json", false, "log in json format")
}

// loadConfig merges, from highest priority: flags set on the command line,
// environment, the optional config file, then flag defaults.
func loadConfig(flags *pflag.FlagSet, configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// unprefixed names kept for existing deployments
	if err := v.BindEnv("port", envPrefix+"_PORT", "PORT"); err != nil {
		return Config{}, err
	}
	if err := v.BindEnv("trusted-proxies", envPrefix+"_TRUSTED_PROXIES", "TRUSTED_PROXIES"); err != nil {
		return Config{}, err
	}

	if err := v.BindPFlags(flags); err != nil {
		return Config{}, fmt.Errorf("bind flags: %w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configFile, err)
		}
	}

	cfg := Config{
		Address:          v.GetString("address"),
		Port:             v.GetString("port"),
		ReadTimeout:      v.GetDuration("read-timeout"),
		WriteTimeout:     v.GetDuration("write-timeout"),
		IdleTimeout:      v.GetDuration("idle-timeout"),
		DNSLookupTimeout: v.GetDuration("dns-timeout"),
		Docs:             v.GetBool("docs"),
		Nameservers:      splitList(v.GetStringSlice("nameservers")),
		ResolvConf:       v.GetString("resolv-conf"),
		TrustedProxies:   splitList(v.GetStringSlice("trusted-proxies")),
		MetricsAddress:   v.GetString("metrics-address"),
	}
	cfg.Log.File = v.GetString("log-file")
	cfg.Log.STDOUT = v.GetBool("log-stdout")
	cfg.Log.Verbose = v.GetBool("log-verbose")
	cfg.Log.JSON = v.GetBool("log-json")

	if cfg.Port == "" {
		return Config{}, errors.New("empty port")
	}

	return cfg, nil
}

// splitList flattens comma separated entries, as environment variables
// arrive as a single string.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}
	}
	return out
}
