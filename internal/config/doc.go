// Package config handles configuration loading for the payments ledger tools.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The format follows the file extension: ".toml" is decoded as
// TOML, anything else as YAML. Missing optional values receive defaults
// before validation.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	database:
//	  path: "${LEDGER_DB}"
//
// Syntax: ${VAR_NAME}. Unset variables expand to the empty string.
//
// # Configuration Sections
//
// Database:
//
//	database:
//	  path: "/var/lib/lnledger/payments.db"
//
// Logging:
//
//	logging:
//	  level: "info"     # debug, info, warn, error
//	  format: "text"    # text, json
//	  file: ""          # optional rotated copy of the log
//	  max_size_mb: 50
//	  max_backups: 3
//	  max_age_days: 28
//
// Export:
//
//	export:
//	  batch_size: 100   # payments fetched per page
//
// The same file in TOML:
//
//	[database]
//	path = "/var/lib/lnledger/payments.db"
//
//	[logging]
//	level = "debug"
//
// # Validation
//
// Load() rejects:
//
//   - an empty database path
//   - unknown log levels and formats
//   - negative rotation limits or batch sizes
//
// # Usage
//
//	cfg, err := config.Load("/etc/lnledger/ledger.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// Default() returns a configuration usable once Database.Path is set.
package config
