// Package config loads, normalizes, and validates shootsort configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files from ~/.config/shootsort/config.toml or a
// project-local shootsort.toml. The Config type centralizes every knob the
// CLI needs, so collaborating packages receive typed values rather than
// re-reading files.
package config
