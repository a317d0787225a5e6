// Package config loads LabKeeper runtime configuration.
//
// Sources, later ones overriding earlier ones:
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected with -c or -config.
//  3. LAB_* environment variables.
//  4. Command-line flags.
//
// Supported flags
//
//	-d string   data directory
//	-l string   log level (debug, info, warn, error)
//	-f string   log format (text, json)
//	-m string   listen address for the /metrics endpoint, empty disables it
//	-t int      session lifetime in minutes
//	-strict     refuse to modify signed orders
//
// File names in the config (orders table, users file, key file, catalog,
// audit database, export directory) are resolved against DataDir unless
// absolute.
//
// JSON durations use timex.Duration, so "8h" and integer nanoseconds both
// work:
//
//	{
//	  "data_dir": "/var/lib/labkeeper",
//	  "session_ttl": "8h",
//	  "strict_lifecycle": true
//	}
package config
