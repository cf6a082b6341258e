package config

import (
	"time"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/flagx"
)

// Config holds runtime settings for mintctl.
//
// Fields:
//   - ServerEndpointAddr: host:port of the mintflow gRPC endpoint.
//   - AccessToken: operator JWT sent with transfer and batch calls.
//   - Timeout: deadline of one command, including every ledger round trip
//     a transfer needs.
type Config struct {
	ServerEndpointAddr string
	AccessToken        string
	Timeout            time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.Timeout = 2 * time.Minute
}

// Load builds a Config from defaults, the JSON file at path (when not
// empty) and the environment.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseJson(cfg, path); err != nil {
		return nil, err
	}
	if err := parseEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseEnv(cfg *Config) error {
	flagx.EnvString(common.EnvPrefix+"SERVER_ADDR", &cfg.ServerEndpointAddr)
	flagx.EnvString(common.EnvPrefix+"ACCESS_TOKEN", &cfg.AccessToken)
	return flagx.EnvDuration(common.EnvPrefix+"TIMEOUT", &cfg.Timeout)
}
