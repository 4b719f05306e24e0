package fn

import "sync"

// ParMap applies f to each item with at most workers goroutines, writing
// results into their original positions. Order is preserved; workers <= 0
// means unbounded.
func ParMap[T, U any](items []T, workers int, f func(T) U) []U {
	out := make([]U, len(items))
	if len(items) == 0 {
		return out
	}
	if workers <= 0 || workers > len(items) {
		workers = len(items)
	}

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range items {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer func() { <-sem; wg.Done() }()
			out[i] = f(items[i])
		}(i)
	}
	wg.Wait()
	return out
}

// ParMapResult is ParMap for fallible functions; the caller decides whether
// to Collect or inspect individual results.
func ParMapResult[T, U any](items []T, workers int, f func(T) Result[U]) []Result[U] {
	return ParMap(items, workers, f)
}
