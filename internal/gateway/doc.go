// Package gateway provides the check backends a coordinator runs against.
//
// Local routes each request in process: LLM requests are extracted and
// analyzed by a textcheck.Checker and finish immediately, everything else
// goes to the checking service. Remote sends the same requests to a running
// scribe HTTP API.
package gateway
