// Package config loads, normalizes, and validates animrig configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// OUTPUT_BUCKET, DISABLE_GCS, and PORT. The Config type centralizes every
// knob the CLI and service need, so workspace roots, engine settings, and
// object-storage credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths and clear validation errors.
package config
