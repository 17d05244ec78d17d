// Package server exposes checks, capabilities, models, and history over a
// JSON HTTP API built on chi.
//
// Routes under /api/checking, /api/models, and /api/history need an
// Authorization bearer token. Errors are written as
// {"error":{"message":...,"code":...}}; checking-service errors keep the
// status and code they were mapped to.
package server
