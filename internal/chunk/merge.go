package chunk

import (
	"context"
	"slices"

	"golang.org/x/sync/errgroup"
)

// Positioned is a finding located in text by offset and length.
type Positioned[T any] interface {
	Position() (offset, length int)
	Shifted(delta int) T
}

// MergeResults combines findings from several chunks. Findings are ordered
// by offset and any finding that starts before the end of the previously
// kept one is dropped, so the first of two overlapping findings wins.
func MergeResults[T Positioned[T]](groups ...[]T) []T {
	var all []T
	for _, g := range groups {
		all = append(all, g...)
	}
	slices.SortStableFunc(all, func(a, b T) int {
		ao, _ := a.Position()
		bo, _ := b.Position()
		return ao - bo
	})

	merged := make([]T, 0, len(all))
	for _, item := range all {
		if len(merged) > 0 {
			lastOff, lastLen := merged[len(merged)-1].Position()
			off, _ := item.Position()
			if off < lastOff+lastLen {
				continue
			}
		}
		merged = append(merged, item)
	}
	return merged
}

// AdjustOffsets converts chunk-relative findings to whole-text offsets.
func AdjustOffsets[T Positioned[T]](items []T, c Chunk) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = item.Shifted(c.StartOffset)
	}
	return out
}

// RunChunked applies fn to every chunk with at most limit calls in flight
// and returns results in chunk order. The first error cancels the rest.
func RunChunked[R any](ctx context.Context, chunks []Chunk, limit int, fn func(context.Context, Chunk) (R, error)) ([]R, error) {
	if limit <= 0 {
		limit = 1
	}
	results := make([]R, len(chunks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, c := range chunks {
		g.Go(func() error {
			r, err := fn(gctx, c)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
