package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/mintflow/internal/abi"
	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/flagx"
	"github.com/dmitrijs2005/mintflow/internal/ledgernode"
	"github.com/dmitrijs2005/mintflow/internal/models"
)

// JsonConfig is the file form of Config. Absent fields keep their current
// values.
type JsonConfig struct {
	EndpointAddrHTTP string                  `json:"endpoint_addr_http"`
	Storage          string                  `json:"storage"`
	DatabaseDSN      string                  `json:"database_dsn"`
	Targets          *abi.Targets            `json:"targets"`
	Authorities      *ledgernode.Authorities `json:"authorities"`
	DevAuthorities   *bool                   `json:"dev_authorities"`
	Prices           []models.Price          `json:"prices"`
	LogLevel         string                  `json:"log_level"`
	LogFormat        string                  `json:"log_format"`
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

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.Storage, c.Storage)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.Targets != nil {
		config.Targets = *c.Targets
	}
	if c.Authorities != nil {
		config.Authorities = *c.Authorities
	}
	if c.DevAuthorities != nil {
		config.DevAuthorities = *c.DevAuthorities
	}
	if len(c.Prices) > 0 {
		config.Prices = c.Prices
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
