// Package parallel spreads an index range over the available CPU cores.
package parallel

import (
	"context"
	"runtime"
	"sync"
)

// Workers returns how many goroutines Range starts for items.
func Workers(items int) int {
	n := runtime.NumCPU()
	if n > items {
		n = items
	}
	return n
}

// Range splits [0, items) into one contiguous chunk per worker, calls fn for
// each chunk on its own goroutine and waits for all of them.
func Range(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	workers := Workers(items)
	chunk := (items + workers - 1) / workers

	var wg sync.WaitGroup
	for start := 0; start < items; start += chunk {
		end := start + chunk
		if end > items {
			end = items
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}
	wg.Wait()
}

// ForEach calls fn once per index. Ranges of at most sequential items run on
// the calling goroutine. Indices not yet started when ctx is done are skipped
// and the context error is returned.
func ForEach(ctx context.Context, items, sequential int, fn func(i int)) error {
	body := func(start, end int) {
		for i := start; i < end; i++ {
			if ctx.Err() != nil {
				return
			}
			fn(i)
		}
	}
	if items <= sequential {
		body(0, items)
	} else {
		Range(items, body)
	}
	return ctx.Err()
}
