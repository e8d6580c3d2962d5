// Package services provides shared plumbing for external capability wrappers:
// the sentinel-marker error envelope used by every pipeline stage and the
// context carriers that thread job, batch, stage, and correlation identifiers
// through logging.
package services
