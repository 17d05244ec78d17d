// Package coordinator drives a single check through its lifecycle:
// submission, polling of asynchronous checks, timeout, cancellation, and
// history persistence.
//
// A Coordinator runs at most one check at a time. Submitting a new check
// stops the previous one's polling first, and late answers from a stopped
// check are discarded. History writes are best effort; a failing store is
// logged and never affects the check itself.
package coordinator
