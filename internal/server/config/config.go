// Package config handles configuration for the mintflow server: defaults,
// then an optional JSON file, then MINTFLOW_* environment variables, then
// command-line flags. The result is validated before anything connects to the
// ledger.
package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode/devnet"
	"github.com/dmitrijs2005/mintflow/internal/workflow"
)

// Keys are signer references, each either a hex seed or "keystore:<path>".
type Keys struct {
	Reporter  string `json:"reporter"`
	Registry  string `json:"registry"`
	Custody   string `json:"custody"`
	Certifier string `json:"certifier"`
}

func (k Keys) complete() bool {
	return k.Reporter != "" && k.Registry != "" && k.Custody != "" && k.Certifier != ""
}

// Config holds runtime settings for the mintflow server.
//
// Fields:
//   - EndpointAddrGRPC / EndpointAddrMetrics: bind addresses. An empty
//     metrics address disables the metrics listener.
//   - LedgerEndpoint: base URL of the ledger RPC.
//   - Targets: contract identifiers of the stage components.
//   - Keys / KeyPassphrase: stage signers. DevKeys is off by default. With
//     it set, missing keys fall back to the public development keys.
//   - TrustedCertifiers: retired certifier addresses whose certificates
//     still verify.
//   - ConfirmTimeout / PollInterval: bound and cadence of receipt polling.
//   - Workflow: retry and batch settings of the orchestrator.
//   - SecretKey / AccessTokenValidityDuration: operator JWTs (HS256).
//   - S3*: certificate archive. An empty bucket disables archiving.
type Config struct {
	EndpointAddrGRPC            string
	EndpointAddrMetrics         string
	LedgerEndpoint              string
	Targets                     abi.Targets
	Keys                        Keys
	KeyPassphrase               string
	DevKeys                     bool
	TrustedCertifiers           []string
	ConfirmTimeout              time.Duration
	PollInterval                time.Duration
	Workflow                    workflow.Config
	SecretKey                   string
	AccessTokenValidityDuration time.Duration
	S3AccessKey                 string
	S3SecretKey                 string
	S3Bucket                    string
	S3Region                    string
	S3BaseEndpoint              string
	S3Prefix                    string
	LogLevel                    string
	LogFormat                   string
}

// LoadDefaults populates Config with development defaults.
// NOTE: the secret key is insecure outside development. No signer keys are
// set, so Validate fails until keys or DevKeys are supplied.
func (c *Config) LoadDefaults() {
	c.EndpointAddrGRPC = ":50051"
	c.EndpointAddrMetrics = ":9090"
	c.LedgerEndpoint = "http://127.0.0.1:8545"
	c.Targets = devnet.DefaultTargets()
	c.DevKeys = false
	c.ConfirmTimeout = 30 * time.Second
	c.PollInterval = 250 * time.Millisecond
	c.Workflow = workflow.DefaultConfig()
	c.SecretKey = "secretKey"
	c.AccessTokenValidityDuration = 15 * time.Minute
	c.S3Region = "us-east-1"
	c.S3Prefix = "mintflow"
	c.LogLevel = "info"
	c.LogFormat = "json"
}

// LoadConfig builds a Config from args (without the program name).
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.EndpointAddrGRPC == "":
		return fmt.Errorf("%w: grpc address is required", common.ErrConfiguration)
	case c.LedgerEndpoint == "":
		return fmt.Errorf("%w: ledger endpoint is required", common.ErrConfiguration)
	case !c.DevKeys && !c.Keys.complete():
		return fmt.Errorf("%w: reporter, registry, custody and certifier keys are required", common.ErrConfiguration)
	case c.ConfirmTimeout <= 0 || c.PollInterval <= 0:
		return fmt.Errorf("%w: confirm timeout and poll interval must be positive", common.ErrConfiguration)
	case c.PollInterval > c.ConfirmTimeout:
		return fmt.Errorf("%w: poll interval exceeds confirm timeout", common.ErrConfiguration)
	case c.SecretKey == "":
		return fmt.Errorf("%w: secret key is required", common.ErrConfiguration)
	case c.AccessTokenValidityDuration <= 0:
		return fmt.Errorf("%w: access token validity must be positive", common.ErrConfiguration)
	}
	if err := c.Targets.Validate(); err != nil {
		return err
	}
	return c.Workflow.Validate()
}

// UsesDevKeys reports whether SignerKeys will fill any key from the
// development root.
func (c *Config) UsesDevKeys() bool {
	return c.DevKeys && !c.Keys.complete()
}

// SignerKeys returns the configured key references, filling the gaps from
// the development root when DevKeys is set.
func (c *Config) SignerKeys() (Keys, error) {
	k := c.Keys
	if !c.UsesDevKeys() {
		return k, nil
	}
	dev, err := devnet.DeriveKeys(devnet.RootSeed())
	if err != nil {
		return k, err
	}
	seeds := dev.Seeds()
	for dst, role := range map[*string]string{
		&k.Reporter:  devnet.RoleReporter,
		&k.Registry:  devnet.RoleRegistry,
		&k.Custody:   devnet.RoleCustody,
		&k.Certifier: devnet.RoleCertifier,
	} {
		if *dst == "" {
			*dst = seeds[role]
		}
	}
	return k, nil
}
