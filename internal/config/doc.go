// Package config handles configuration loading, parsing, and validation
// from various sources (defaults, a YAML file, environment variables). It
// provides type-safe access to the store, logging and HTTP settings while
// keeping configuration details separate from the data-access core.
package config
