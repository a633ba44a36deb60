// Package stream provides the fan-in primitives the transactions-list
// pipeline is joined with: combine-latest over a fixed set of live sources.
package stream

import (
	"context"
	"slices"
)

// Triple carries one combined emission from three heterogeneous sources.
type Triple[A, B, C any] struct {
	A A
	B B
	C C
}

// CombineLatest3 joins three sources with combine-latest semantics: nothing
// is emitted until every source has produced at least one value, after
// which every update on any source re-emits the latest known value of all
// three. The output closes once all sources have closed or ctx is done.
func CombineLatest3[A, B, C any](ctx context.Context, a <-chan A, b <-chan B, c <-chan C) <-chan Triple[A, B, C] {
	out := make(chan Triple[A, B, C])
	go func() {
		defer close(out)
		var (
			last                Triple[A, B, C]
			seenA, seenB, seenC bool
		)
		for a != nil || b != nil || c != nil {
			select {
			case v, ok := <-a:
				if !ok {
					a = nil
					continue
				}
				last.A, seenA = v, true
			case v, ok := <-b:
				if !ok {
					b = nil
					continue
				}
				last.B, seenB = v, true
			case v, ok := <-c:
				if !ok {
					c = nil
					continue
				}
				last.C, seenC = v, true
			case <-ctx.Done():
				return
			}
			if seenA && seenB && seenC {
				select {
				case out <- last:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

// CombineLatest joins a homogeneous set of sources. Emitted slices are
// fresh copies ordered by source index. A source that closes keeps its last
// value in subsequent emissions. Callers must guard the zero-source case
// themselves: a join over nothing would never emit.
func CombineLatest[T any](ctx context.Context, sources []<-chan T) <-chan []T {
	out := make(chan []T)
	go func() {
		defer close(out)

		type update struct {
			idx int
			val T
			ok  bool
		}
		updates := make(chan update)
		for i, src := range sources {
			go func(idx int, src <-chan T) {
				for {
					select {
					case v, ok := <-src:
						select {
						case updates <- update{idx: idx, val: v, ok: ok}:
						case <-ctx.Done():
							return
						}
						if !ok {
							return
						}
					case <-ctx.Done():
						return
					}
				}
			}(i, src)
		}

		latest := make([]T, len(sources))
		seen := make([]bool, len(sources))
		pending := len(sources)
		open := len(sources)
		for open > 0 {
			select {
			case u := <-updates:
				if !u.ok {
					open--
					continue
				}
				if !seen[u.idx] {
					seen[u.idx] = true
					pending--
				}
				latest[u.idx] = u.val
				if pending == 0 {
					select {
					case out <- slices.Clone(latest):
					case <-ctx.Done():
						return
					}
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
