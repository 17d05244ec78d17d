// Package chunk splits long text into overlapping, boundary-aware chunks for
// providers with limited context windows, and merges per-chunk findings back
// into whole-text coordinates.
//
// Chunk ends prefer, in order, a paragraph break, a sentence end, a clause
// break, and whitespace found within the last 200 characters of the naive
// cut, as long as the chunk stays at least half the maximum size.
package chunk
