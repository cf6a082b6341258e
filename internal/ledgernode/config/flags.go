package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/flagx"
)

// parseFlags applies the command-line overrides.
//
//	-a string   HTTP bind address (e.g. ":8545")
//	-s string   storage backend: memory or postgres
//	-d string   PostgreSQL DSN
//	-l string   log level
//	-dev        admit only the development authority keys; takes no
//	            separate value, use -dev=false to turn it off
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-s", "-d", "-l", "-dev"}, "-dev")

	fs := flag.NewFlagSet("ledgerd", flag.ContinueOnError)
	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to serve the ledger API")
	fs.StringVar(&config.Storage, "s", config.Storage, "storage backend (memory|postgres)")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.DevAuthorities, "dev", config.DevAuthorities, "use development authority keys")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	return nil
}
