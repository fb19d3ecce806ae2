package lr

import (
	"sync"

	leveled "github.com/halilibrahimkanpak/he_logreg/leveled_eval"
)

// parallelFor runs fn for every i in [0, n) on up to workers goroutines.
// Each goroutine gets its own fork of p. The first error wins; remaining
// indices of the failing worker are skipped.
func parallelFor(p *leveled.Planner, workers, n int, fn func(p *leveled.Planner, i int) error) error {
	// Adjust worker count if range is small
	if n < workers {
		workers = n
	}

	if workers <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(p, i); err != nil {
				return err
			}
		}
		return nil
	}

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	chunkSize := (n + workers - 1) / workers

	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(workerID int) {
			defer wg.Done()

			local := p.Fork()
			start := workerID * chunkSize
			end := min(start+chunkSize, n)
			for i := start; i < end; i++ {
				if err := fn(local, i); err != nil {
					once.Do(func() { firstErr = err })
					return
				}
			}
		}(w)
	}
	wg.Wait()

	return firstErr
}
