// Package notifications delivers batch and job events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. The coordinator depends only on the small Service interface, so
// alternative transports can be dropped in without touching pipeline code.
package notifications
