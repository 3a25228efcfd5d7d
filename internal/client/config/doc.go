// Package config loads runtime configuration for the videoctl client.
//
// # Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: VIDEOFEED_SERVER_URL, VIDEOFEED_TOKEN, VIDEOFEED_CLIENT_TIMEOUT.
//  3. Optional JSON or TOML file passed to Load.
//  4. Command-line flags, bound by the CLI onto the returned Config.
//
// # File schema
//
// Durations accept strings like "30s" (JSON also takes integer nanoseconds):
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "token": "",
//	  "timeout": "30s"
//	}
package config
