package app

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Parallel2 runs two loads concurrently, e.g. a question and its answers.
// When either fails the other's context is canceled and both results are zero.
func Parallel2[A, B any](
	ctx context.Context,
	loadA func(context.Context) (A, error),
	loadB func(context.Context) (B, error),
) (A, B, error) {
	var (
		a A
		b B
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		a, err = loadA(gctx)
		return err
	})
	g.Go(func() (err error) {
		b, err = loadB(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		var (
			zeroA A
			zeroB B
		)

		return zeroA, zeroB, fmt.Errorf("parallel load: %w", err)
	}

	return a, b, nil
}

// PartialResult is one outcome of ParallelPartial.
type PartialResult[T any] struct {
	Value T
	Err   error
}

// ParallelPartial runs every fn to completion regardless of the others'
// failures, such as delivering one event to several publishers. Results are
// in the order of fns.
func ParallelPartial[T any](ctx context.Context, fns ...func(context.Context) (T, error)) []PartialResult[T] {
	results := make([]PartialResult[T], len(fns))

	var wg sync.WaitGroup
	for i, fn := range fns {
		wg.Go(func() {
			v, err := fn(ctx)
			results[i] = PartialResult[T]{Value: v, Err: err}
		})
	}

	wg.Wait()

	return results
}

// FanOut applies fn to items with at most workers calls in flight. The first
// error cancels the remaining work and is returned.
func FanOut[T any](ctx context.Context, workers int, items []T, fn func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))

	for _, item := range items {
		if gctx.Err() != nil {
			break
		}

		g.Go(func() error { return fn(gctx, item) })
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("fan out: %w", err)
	}

	return ctx.Err()
}
