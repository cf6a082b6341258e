package config

import (
	"flag"
	"fmt"

	"github.com/dmitrijs2005/mintflow/internal/common"
	"github.com/dmitrijs2005/mintflow/internal/flagx"
)

// parseFlags applies the command-line overrides.
//
//	-a string   gRPC bind address (e.g. ":50051")
//	-m string   metrics bind address, empty to disable
//	-n string   ledger RPC endpoint
//	-s string   JWT HMAC secret key
//	-t duration access token validity
//	-b string   S3 archive bucket
//	-e string   S3 base endpoint (e.g. "http://127.0.0.1:9000/")
//	-l string   log level
//	-dev        fall back to the development signer keys; takes no
//	            separate value, use -dev=false to turn it off
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-m", "-n", "-s", "-t", "-b", "-e", "-l", "-dev"}, "-dev")

	fs := flag.NewFlagSet("mintflow", flag.ContinueOnError)
	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "address and port to run the gRPC server")
	fs.StringVar(&config.EndpointAddrMetrics, "m", config.EndpointAddrMetrics, "address and port to serve metrics")
	fs.StringVar(&config.LedgerEndpoint, "n", config.LedgerEndpoint, "ledger RPC endpoint")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.AccessTokenValidityDuration, "t", config.AccessTokenValidityDuration, "access token validity")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 archive bucket")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level")
	fs.BoolVar(&config.DevKeys, "dev", config.DevKeys, "use development signer keys for missing keys")

	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %v", common.ErrConfiguration, err)
	}
	return nil
}
