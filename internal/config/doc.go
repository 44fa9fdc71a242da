// Package config handles configuration loading, parsing, and validation
// from environment variables and optional config files. It provides type-safe
// access to application settings, including the role flags that decide which
// runtime mode a process instance plays.
package config
