// Package cli wires together the Cobra command tree for the scribe binary.
//
// It defines the root command and all subcommands (check, serve, history,
// models, capabilities, config, cache, mcp, version), binds flags, reads
// configuration, builds the checking engines, and returns deterministic
// exit codes for scripting.
package cli
