// Package check defines the request, result, and history record types shared
// by every checking engine.
//
// Results use the Acrolinx issue shape so that native and LLM checks are
// interchangeable for callers. Issue offsets are character offsets into the
// original content.
package check
