package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/flagx"
	"github.com/dmitrijs2005/mintflow/internal/timex"
)

// JsonConfig is the file form of Config. Durations accept "1s" or integer
// nanoseconds; absent fields keep their current values.
type JsonConfig struct {
	EndpointAddrGRPC            string          `json:"endpoint_addr_grpc"`
	EndpointAddrMetrics         *string         `json:"endpoint_addr_metrics"`
	LedgerEndpoint              string          `json:"ledger_endpoint"`
	Targets                     *abi.Targets    `json:"targets"`
	Keys                        *Keys           `json:"keys"`
	KeyPassphrase               string          `json:"key_passphrase"`
	DevKeys                     *bool           `json:"dev_keys"`
	TrustedCertifiers           []string        `json:"trusted_certifiers"`
	ConfirmTimeout              *timex.Duration `json:"confirm_timeout"`
	PollInterval                *timex.Duration `json:"poll_interval"`
	MaxAttempts                 int             `json:"max_attempts"`
	BaseBackoff                 *timex.Duration `json:"base_backoff"`
	MaxBackoff                  *timex.Duration `json:"max_backoff"`
	Parallelism                 int             `json:"parallelism"`
	SecretKey                   string          `json:"secret_key"`
	AccessTokenValidityDuration *timex.Duration `json:"access_token_validity_duration"`
	S3AccessKey                 string          `json:"s3_access_key"`
	S3SecretKey                 string          `json:"s3_secret_key"`
	S3Bucket                    string          `json:"s3_bucket"`
	S3Region                    string          `json:"s3_region"`
	S3BaseEndpoint              string          `json:"s3_base_endpoint"`
	S3Prefix                    string          `json:"s3_prefix"`
	LogLevel                    string          `json:"log_level"`
	LogFormat                   string          `json:"log_format"`
}

// parseJson overlays the file named by -c/-config, if any.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrConfiguration, path, err)
	}

	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	if c.EndpointAddrMetrics != nil {
		config.EndpointAddrMetrics = *c.EndpointAddrMetrics
	}
	setString(&config.LedgerEndpoint, c.LedgerEndpoint)
	if c.Targets != nil {
		config.Targets = *c.Targets
	}
	if c.Keys != nil {
		config.Keys = *c.Keys
	}
	setString(&config.KeyPassphrase, c.KeyPassphrase)
	if c.DevKeys != nil {
		config.DevKeys = *c.DevKeys
	}
	if c.TrustedCertifiers != nil {
		config.TrustedCertifiers = c.TrustedCertifiers
	}
	setDuration(&config.ConfirmTimeout, c.ConfirmTimeout)
	setDuration(&config.PollInterval, c.PollInterval)
	setInt(&config.Workflow.MaxAttempts, c.MaxAttempts)
	setDuration(&config.Workflow.BaseBackoff, c.BaseBackoff)
	setDuration(&config.Workflow.MaxBackoff, c.MaxBackoff)
	setInt(&config.Workflow.Parallelism, c.Parallelism)
	setString(&config.SecretKey, c.SecretKey)
	setDuration(&config.AccessTokenValidityDuration, c.AccessTokenValidityDuration)
	setString(&config.S3AccessKey, c.S3AccessKey)
	setString(&config.S3SecretKey, c.S3SecretKey)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.S3Prefix, c.S3Prefix)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v *timex.Duration) {
	if v != nil {
		*dst = v.Duration
	}
}
