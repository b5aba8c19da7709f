// Package cli wires together the Cobra command tree for the clearsift
// binary.
//
// It defines the root command and subcommands (audit, filter, version),
// binds flags, loads configuration, assembles the filter pipeline, and
// returns deterministic exit codes for CI gating.
package cli
