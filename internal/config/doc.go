// Package config loads, normalizes, and validates batchdl configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BATCHDL_SECRET_KEY. The Config type centralizes every knob the daemon and CLI
// need, so work/public directories, the HTTP surface, and the notification
// channel are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
