// Package config loads runtime configuration for mintctl.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file given with --config.
//  3. MINTFLOW_SERVER_ADDR, MINTFLOW_ACCESS_TOKEN and MINTFLOW_TIMEOUT.
//  4. Command-line flags, applied by the CLI after Load returns.
//
// # JSON schema
//
// The timeout uses timex.Duration, so it can be a string like "30s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "access_token": "eyJ...",
//	  "timeout": "2m"
//	}
package config
