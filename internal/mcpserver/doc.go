// Package mcpserver exposes LLM text checks as Model Context Protocol tools.
//
// Two tools are registered:
//
//   - check_text runs a writing check on inline content with the configured
//     LLM provider and returns the check result as JSON. Optional arguments
//     pick the model, replace the system prompt or name the source file.
//   - list_goals returns the six quality goals a check scores.
//
// Check failures are reported as tool errors, not protocol errors, so the
// client sees the message. [Serve] runs the server over stdio; logging must
// therefore go to stderr.
package mcpserver
