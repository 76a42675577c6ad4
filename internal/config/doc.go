// Package config loads, defaults, and validates the daemon
// configuration. Values come from an optional TOML file, overridden by
// the documented environment variables; a .env file is honored for
// development setups.
package config
