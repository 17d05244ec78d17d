// Package textcheck runs writing-quality checks through an LLM and converts
// the model's JSON analysis into the same result shape the checking service
// returns, so callers can treat both engines alike.
//
// A check never fails outright. When the provider errors or answers with
// something that is not the expected JSON, a neutral fallback result with a
// score of 85 is returned instead.
package textcheck
