// Package main hosts the chatscribe CLI entrypoint and command graph.
//
// The Cobra-based command tree covers batch processing of chat export
// archives, the HTTP API server, job history inspection, stale workspace
// cleanup, and configuration scaffolding. It centralizes configuration
// resolution and structured logging setup so subcommands can focus on user
// experience instead of wiring.
//
// Keep this package lean: add new functionality by extending the internal
// packages first, then surface it through dedicated commands or flags here.
package main
