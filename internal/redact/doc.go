// Package redact masks secrets in document content before it is sent to
// any LLM provider.
//
// Detection uses regex heuristics covering common secret shapes: API keys,
// JWTs, private keys, AWS access key IDs and secret access keys, bearer
// tokens, connection strings with inline credentials, and provider-specific
// tokens (Anthropic, OpenAI, GitHub, Slack).
//
// Masking is length-preserving: issue offsets reported against the masked
// text are valid offsets into the original.
//
// Path-based redaction is also supported: uploads whose file names match
// configured glob patterns are masked entirely rather than scanned.
package redact
