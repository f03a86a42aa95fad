// Package config loads and validates application configuration from
// environment variables (ATELIER_ prefix) and an optional config file.
package config
