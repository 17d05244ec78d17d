// Package config loads and merges scribe configuration from multiple sources.
//
// Precedence (highest to lowest):
//  1. CLI flags
//  2. Environment variables (LLM_PROVIDER, SCRIBE_MODEL, ACROLINX_BASE_URL, etc.)
//  3. Config file ($XDG_CONFIG_HOME/scribe/config.yaml)
//  4. Built-in defaults
//
// Use [Load] to obtain a merged [Config], [Save] to write the config file,
// and [SetField] to update a single dotted key such as "llm.provider".
package config
