// Scribe checks documents for spelling, grammar, clarity, tone, and
// consistency, using a hosted checking service or an LLM provider.
//
// Checks run from the command line, through a local HTTP API, or as MCP
// tools. Every check is recorded in a local history database.
//
// Usage:
//
//	scribe check notes.md                 # check with the checking service
//	scribe check --llm notes.md           # check with the configured LLM
//	cat draft.txt | scribe check --llm -  # check stdin
//	scribe serve --addr :8080             # run the HTTP API
//	scribe history list                   # browse past checks
//	scribe mcp                            # serve MCP tools over stdio
//
// See https://github.com/dshills/scribe for full documentation.
package main
