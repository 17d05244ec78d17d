// Package output formats check results for display or machine consumption.
//
// Four formats are supported:
//   - text: human-readable terminal output (default)
//   - json: the normalized check result
//   - markdown: a summary table with a collapsible section per goal
//   - sarif: SARIF v2.1.0 for CI tools and code-scanning uploads
//
// Use [GetWriter] to obtain a [Writer] for a given format string, then call
// [Writer.Write] with an [io.Writer] and a [*Report]. [WriteReport] handles
// destination selection. [WriteHistory] and [WriteStats] render stored
// checks.
package output
