// Package fetch coordinates the data loads behind a page.
package fetch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task loads one resource of a page.
type Task func(ctx context.Context) error

// All runs the tasks concurrently and returns once the last one resolved. The first
// error cancels the rest and is returned; the page then renders only that error.
func All(ctx context.Context, tasks ...Task) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, task := range tasks {
		if task == nil {
			continue
		}
		task := task
		g.Go(func() error { return task(gctx) })
	}
	return g.Wait()
}

// Into adapts a loader returning a value into a Task that stores it in dst.
func Into[T any](dst *T, load func(ctx context.Context) (T, error)) Task {
	return func(ctx context.Context) error {
		v, err := load(ctx)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}
}
