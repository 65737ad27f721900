// Package config loads, validates and holds the Porthole configuration.
//
// # Configuration Loading
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("porthole.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("porthole.yaml")
//
// The file is decoded on top of NewDefaultConfig, so omitted fields keep
// their defaults, including boolean ones. Unknown fields are an error.
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention PORTHOLE_SECTION_FIELD:
//
//   - PORTHOLE_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - PORTHOLE_TOKENS_STARTUP_POLICY overrides tokens.startup_policy
//   - PORTHOLE_STATE_SQLITE_PATH overrides state.sqlite.path
//
// Environment variables always take precedence over the file. Routes and API
// keys can only be set in the file.
//
// # Validation
//
// Validate collects every problem into a ValidationError of FieldErrors.
// Unknown token policies and malformed snapshot schedules are validation
// errors, so the process refuses to start with them.
//
// # Example
//
//	server:
//	  listen_address: "0.0.0.0:8080"
//	proxy:
//	  routes:
//	    - prefix: /proxy
//	      port: 5000
//	    - prefix: /proxy8888
//	      port: 8888
//	  forward_timeout: 30s
//	tokens:
//	  startup_policy: random
//	  shutdown_policy: disable
//	docker:
//	  host: unix:///var/run/docker.sock
//	directory:
//	  path: /etc/porthole/supervisors.yaml
//	state:
//	  backend: sqlite
//	  sqlite:
//	    path: /var/lib/porthole/state.db
//	security:
//	  api_keys:
//	    - key: "3f9c1e..."
//	      identity: alice
//
// # Global Configuration
//
// Initialize, GetConfig and ReloadConfig manage a process-wide instance for
// the command layer. Components receive their sections explicitly.
package config
