// Package config loads, normalizes, and validates chatscribe's TOML
// configuration. Defaults mirror the directory layout expected by the
// surrounding tooling (input_data/uploaded, input_data/processing,
// output_data).
package config
