package application

import (
	"sync"

	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// FanIn gathers concurrent per-source fetches into one result set. Each
// source writes only its own result; a slow source delays Collect, not
// its siblings, and per-fetch deadlines bound the wait.
type FanIn struct {
	results chan domain.FetchResult
	wg      sync.WaitGroup
}

func NewFanIn(capacity int) *FanIn {
	return &FanIn{results: make(chan domain.FetchResult, capacity)}
}

// Go runs one fetch concurrently.
func (f *FanIn) Go(fetch func() domain.FetchResult) {
	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.results <- fetch()
	}()
}

// Collect waits for every fetch started with Go and returns the results
// keyed by source. Call at most once.
func (f *FanIn) Collect() map[domain.SourceID]domain.FetchResult {
	go func() {
		f.wg.Wait()
		close(f.results)
	}()

	out := make(map[domain.SourceID]domain.FetchResult)
	for res := range f.results {
		out[res.Source] = res
	}
	return out
}
