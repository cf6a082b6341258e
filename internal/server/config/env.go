package config

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/flagx"
)

const envPrefix = common.EnvPrefix

func parseEnv(config *Config) error {
	flagx.EnvString(envPrefix+"GRPC_ADDR", &config.EndpointAddrGRPC)
	flagx.EnvString(envPrefix+"METRICS_ADDR", &config.EndpointAddrMetrics)
	flagx.EnvString(envPrefix+"LEDGER_ENDPOINT", &config.LedgerEndpoint)
	flagx.EnvString(envPrefix+"REGISTRY_TARGET", &config.Targets.Registry)
	flagx.EnvString(envPrefix+"CUSTODY_TARGET", &config.Targets.Custody)
	flagx.EnvString(envPrefix+"CERTIFIER_TARGET", &config.Targets.Certifier)
	flagx.EnvString(envPrefix+"TOKEN_TARGET", &config.Targets.Token)
	flagx.EnvString(envPrefix+"ORACLE_TARGET", &config.Targets.Oracle)
	flagx.EnvString(envPrefix+"REPORTER_KEY", &config.Keys.Reporter)
	flagx.EnvString(envPrefix+"REGISTRY_KEY", &config.Keys.Registry)
	flagx.EnvString(envPrefix+"CUSTODY_KEY", &config.Keys.Custody)
	flagx.EnvString(envPrefix+"CERTIFIER_KEY", &config.Keys.Certifier)
	flagx.EnvString(envPrefix+"KEY_PASSPHRASE", &config.KeyPassphrase)
	flagx.EnvList(envPrefix+"TRUSTED_CERTIFIERS", &config.TrustedCertifiers)
	flagx.EnvString(envPrefix+"SECRET_KEY", &config.SecretKey)
	flagx.EnvString(envPrefix+"S3_ACCESS_KEY", &config.S3AccessKey)
	flagx.EnvString(envPrefix+"S3_SECRET_KEY", &config.S3SecretKey)
	flagx.EnvString(envPrefix+"S3_BUCKET", &config.S3Bucket)
	flagx.EnvString(envPrefix+"S3_REGION", &config.S3Region)
	flagx.EnvString(envPrefix+"S3_ENDPOINT", &config.S3BaseEndpoint)
	flagx.EnvString(envPrefix+"LOG_LEVEL", &config.LogLevel)
	flagx.EnvString(envPrefix+"LOG_FORMAT", &config.LogFormat)

	for name, dst := range map[string]*time.Duration{
		"CONFIRM_TIMEOUT": &config.ConfirmTimeout,
		"POLL_INTERVAL":   &config.PollInterval,
		"BASE_BACKOFF":    &config.Workflow.BaseBackoff,
		"MAX_BACKOFF":     &config.Workflow.MaxBackoff,
		"TOKEN_TTL":       &config.AccessTokenValidityDuration,
	} {
		if err := flagx.EnvDuration(envPrefix+name, dst); err != nil {
			return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
		}
	}
	if err := flagx.EnvBool(envPrefix+"DEV_KEYS", &config.DevKeys); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	for name, dst := range map[string]*int{
		"MAX_ATTEMPTS": &config.Workflow.MaxAttempts,
		"PARALLELISM":  &config.Workflow.Parallelism,
	} {
		if err := flagx.EnvInt(envPrefix+name, dst); err != nil {
			return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
		}
	}
	return nil
}
