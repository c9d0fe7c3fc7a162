package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	flags := pflag.NewFlagSet("ipdns", pflag.ContinueOnError)
	registerFlags(flags)
	require.NoError(t, flags.Parse(args))
	return flags
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(parseFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, "", cfg.Address)
	assert.Equal(t, "8000", cfg.Port)
	assert.True(t, cfg.Docs)
	assert.Empty(t, cfg.Nameservers)
	assert.Equal(t, "/etc/resolv.conf", cfg.ResolvConf)
	assert.Zero(t, cfg.DNSLookupTimeout)
	assert.Empty(t, cfg.TrustedProxies)
	assert.Empty(t, cfg.MetricsAddress)
	assert.Equal(t, 10*time.Second, cfg.ReadTimeout)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, 30*time.Second, cfg.IdleTimeout)
	assert.True(t, cfg.Log.STDOUT)
	assert.False(t, cfg.Log.Verbose)
}

func TestLoadConfigFlags(t *testing.T) {
	flags := parseFlags(t,
		"--port", "9000",
		"--docs=false",
		"--nameservers", "1.1.1.1,8.8.8.8:53",
		"--dns-timeout", "3s",
		"--log-verbose",
	)

	cfg, err := loadConfig(flags, "")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.False(t, cfg.Docs)
	assert.Equal(t, []string{"1.1.1.1", "8.8.8.8:53"}, cfg.Nameservers)
	assert.Equal(t, 3*time.Second, cfg.DNSLookupTimeout)
	assert.True(t, cfg.Log.Verbose)
}

func TestLoadConfigEnv(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("TRUSTED_PROXIES", "10.0.0.1, 10.0.0.2")
	t.Setenv("IPDNS_METRICS_ADDRESS", "127.0.0.1:9100")
	t.Setenv("IPDNS_DOCS", "false")

	cfg, err := loadConfig(parseFlags(t), "")
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Port)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, cfg.TrustedProxies)
	assert.Equal(t, "127.0.0.1:9100", cfg.MetricsAddress)
	assert.False(t, cfg.Docs)
}

func TestLoadConfigFlagOverridesEnv(t *testing.T) {
	t.Setenv("PORT", "7000")

	cfg, err := loadConfig(parseFlags(t, "--port", "9000"), "")
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
}

func TestLoadConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "ipdns.yaml")
	require.NoError(t, os.WriteFile(file, []byte(`
port: "8443"
address: 127.0.0.1
nameservers:
  - 9.9.9.9
log-json: true
`), 0o644))

	cfg, err := loadConfig(parseFlags(t), file)
	require.NoError(t, err)

	assert.Equal(t, "8443", cfg.Port)
	assert.Equal(t, "127.0.0.1", cfg.Address)
	assert.Equal(t, []string{"9.9.9.9"}, cfg.Nameservers)
	assert.True(t, cfg.Log.JSON)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := loadConfig(parseFlags(t), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = loadConfig(parseFlags(t, "--port", ""), "")
	assert.EqualError(t, err, "empty port")
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", " ", "c,"}))
	assert.Nil(t, splitList(nil))
}
