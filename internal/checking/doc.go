// Package checking is a client for the Acrolinx-style checking service: it
// submits documents, polls asynchronous checks, and reads the service's
// capabilities. Error responses are mapped to APIError values whose codes
// and statuses the HTTP API passes on to its own callers.
package checking
