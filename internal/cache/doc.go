// Package cache provides a file-based cache for LLM completion text.
//
// Entries are keyed by a SHA-256 hash of the provider name, model, system
// prompt, and checked content (see [BuildKey]). Each entry stores the raw
// completion along with a creation timestamp and a TTL in seconds. Expired
// entries miss on read and are removed by [Cache.Prune].
//
// The default cache directory is $XDG_CACHE_HOME/scribe (or the OS-appropriate
// equivalent). When secret redaction is enabled, cached content has already
// been masked.
package cache
