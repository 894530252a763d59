// Package config loads, normalizes, and validates event importer
// configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// TICKETMASTER_API_KEY and ZYTE_API_KEY. The Config type centralizes every
// knob the importer and CLI need, so data directories and external service
// credentials are discovered in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
