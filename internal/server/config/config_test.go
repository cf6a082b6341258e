package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/devnet"
	"github.com/dmitrijs2005/mintflow/internal/signer"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":50051", c.EndpointAddrGRPC)
	assert.Equal(t, devnet.DefaultTargets(), c.Targets)
	assert.Equal(t, workflow.DefaultConfig(), c.Workflow)
	assert.Empty(t, c.S3Bucket)
	assert.False(t, c.DevKeys)
	require.ErrorIs(t, c.Validate(), common.ErrConfiguration)

	c.DevKeys = true
	require.NoError(t, c.Validate())
}

func TestLoadConfig_SignerKeysRequired(t *testing.T) {
	_, err := LoadConfig(nil)
	require.ErrorIs(t, err, common.ErrConfiguration)

	t.Run("dev keys from env", func(t *testing.T) {
		t.Setenv(envPrefix+"DEV_KEYS", "true")
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.True(t, cfg.UsesDevKeys())
	})
	t.Run("bad dev keys env", func(t *testing.T) {
		t.Setenv(envPrefix+"DEV_KEYS", "maybe")
		_, err := LoadConfig(nil)
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})
	t.Run("dev flag does not swallow the next token", func(t *testing.T) {
		cfg, err := LoadConfig([]string{"-dev", "stray", "-a", ":7000"})
		require.NoError(t, err)
		assert.True(t, cfg.DevKeys)
		assert.Equal(t, ":7000", cfg.EndpointAddrGRPC)
	})
	t.Run("complete keys", func(t *testing.T) {
		for _, role := range []string{"REPORTER", "REGISTRY", "CUSTODY", "CERTIFIER"} {
			t.Setenv(envPrefix+role+"_KEY", "aa")
		}
		cfg, err := LoadConfig(nil)
		require.NoError(t, err)
		assert.False(t, cfg.UsesDevKeys())
	})
}

func TestLoadConfig_Layering(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mintflow.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"endpoint_addr_grpc": ":6000",
		"endpoint_addr_metrics": "",
		"ledger_endpoint": "http://ledger:8545",
		"keys": {"reporter": "aa", "registry": "bb", "custody": "cc", "certifier": "dd"},
		"dev_keys": false,
		"trusted_certifiers": ["0xold"],
		"confirm_timeout": "10s",
		"poll_interval": 100000000,
		"max_attempts": 7,
		"s3_bucket": "file-bucket"
	}`), 0o600))

	t.Setenv(envPrefix+"S3_BUCKET", "env-bucket")
	t.Setenv(envPrefix+"MAX_BACKOFF", "2s")
	t.Setenv(envPrefix+"PARALLELISM", "8")
	t.Setenv(envPrefix+"TRUSTED_CERTIFIERS", "0xold,0xolder")

	cfg, err := LoadConfig([]string{"-c", path, "-a", ":7000", "-t", "5m"})
	require.NoError(t, err)

	want := &Config{}
	want.LoadDefaults()
	want.EndpointAddrGRPC = ":7000"
	want.EndpointAddrMetrics = ""
	want.LedgerEndpoint = "http://ledger:8545"
	want.Keys = Keys{Reporter: "aa", Registry: "bb", Custody: "cc", Certifier: "dd"}
	want.DevKeys = false
	want.TrustedCertifiers = []string{"0xold", "0xolder"}
	want.ConfirmTimeout = 10 * time.Second
	want.PollInterval = 100 * time.Millisecond
	want.Workflow.MaxAttempts = 7
	want.Workflow.MaxBackoff = 2 * time.Second
	want.Workflow.Parallelism = 8
	want.S3Bucket = "env-bucket"
	want.AccessTokenValidityDuration = 5 * time.Minute

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("bad json", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{`), 0o600))
		_, err := LoadConfig([]string{"-c", path})
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig([]string{"-c", filepath.Join(t.TempDir(), "absent.json")})
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})
	t.Run("bad env duration", func(t *testing.T) {
		t.Setenv(envPrefix+"CONFIRM_TIMEOUT", "soon")
		_, err := LoadConfig(nil)
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})
	t.Run("keys required without dev keys", func(t *testing.T) {
		t.Setenv(envPrefix+"REPORTER_KEY", "aa")
		_, err := LoadConfig([]string{"-dev=false"})
		assert.ErrorIs(t, err, common.ErrConfiguration)
	})
}

func TestValidate(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"no grpc address":      func(c *Config) { c.EndpointAddrGRPC = "" },
		"no ledger":            func(c *Config) { c.LedgerEndpoint = "" },
		"poll above timeout":   func(c *Config) { c.PollInterval = time.Minute },
		"no secret":            func(c *Config) { c.SecretKey = "" },
		"missing target":       func(c *Config) { c.Targets.Certifier = "" },
		"shared target":        func(c *Config) { c.Targets.Custody = c.Targets.Registry },
		"zero attempts":        func(c *Config) { c.Workflow.MaxAttempts = 0 },
		"zero token lifetime":  func(c *Config) { c.AccessTokenValidityDuration = 0 },
		"zero confirm timeout": func(c *Config) { c.ConfirmTimeout = 0 },
	} {
		var c Config
		c.LoadDefaults()
		c.DevKeys = true
		mutate(&c)
		assert.ErrorIs(t, c.Validate(), common.ErrConfiguration, name)
	}
}

func TestSignerKeys(t *testing.T) {
	var c Config
	c.LoadDefaults()
	c.DevKeys = true
	c.Keys.Custody = "keystore:/etc/mintflow/custody.json"
	assert.True(t, c.UsesDevKeys())

	k, err := c.SignerKeys()
	require.NoError(t, err)
	assert.Equal(t, "keystore:/etc/mintflow/custody.json", k.Custody)

	dev, err := devnet.DeriveKeys(devnet.RootSeed())
	require.NoError(t, err)
	reporter, err := signer.Load(k.Reporter, "")
	require.NoError(t, err)
	assert.Equal(t, dev.Reporter.Address(), reporter.Address())

	c.DevKeys = false
	assert.False(t, c.UsesDevKeys())
	k, err = c.SignerKeys()
	require.NoError(t, err)
	assert.Empty(t, k.Reporter)
}
