package config

import (
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/flagx"
)

const envPrefix = common.EnvPrefix + "LEDGER_"

func parseEnv(config *Config) error {
	flagx.EnvString(envPrefix+"HTTP_ADDR", &config.EndpointAddrHTTP)
	flagx.EnvString(envPrefix+"STORAGE", &config.Storage)
	flagx.EnvString(envPrefix+"DATABASE_DSN", &config.DatabaseDSN)
	flagx.EnvString(envPrefix+"REGISTRY_TARGET", &config.Targets.Registry)
	flagx.EnvString(envPrefix+"CUSTODY_TARGET", &config.Targets.Custody)
	flagx.EnvString(envPrefix+"CERTIFIER_TARGET", &config.Targets.Certifier)
	flagx.EnvString(envPrefix+"TOKEN_TARGET", &config.Targets.Token)
	flagx.EnvString(envPrefix+"ORACLE_TARGET", &config.Targets.Oracle)
	flagx.EnvString(common.EnvPrefix+"LOG_LEVEL", &config.LogLevel)
	flagx.EnvString(common.EnvPrefix+"LOG_FORMAT", &config.LogFormat)
	return nil
}
