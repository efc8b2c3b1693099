package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Sternrassler/listpager/pkg/paging"
	"github.com/rs/zerolog/log"
)

// BatchConfig holds batch fetch configuration.
type BatchConfig struct {
	// MaxConcurrency is the maximum number of parallel requests
	MaxConcurrency int

	// MaxPages stops the fetch after this many pages (0 = no limit).
	MaxPages int
}

// DefaultBatchConfig returns a conservative batch configuration.
func DefaultBatchConfig() BatchConfig {
	return BatchConfig{
		MaxConcurrency: 4,
		MaxPages:       50,
	}
}

// PageResult represents the result of fetching a single page
type PageResult[T any] struct {
	PageNumber int
	Items      []T
	Error      error
}

// FetchAll reads every page of src for params and returns the items in page
// order. When the server reports X-Pages the remaining pages are fetched by a
// worker pool; otherwise pages are read one after another until the last.
// On failure the items of the pages before the first failed one are
// returned together with the error.
func FetchAll[T any](ctx context.Context, src *Source[T], params paging.Params, config BatchConfig) ([]T, error) {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 1
	}
	start := time.Now()

	first, meta, err := src.load(ctx, 1, params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch first page: %w", err)
	}
	if meta.isLast || reachedLimit(1, config.MaxPages) {
		return first, nil
	}

	var items []T
	var pages int
	if meta.totalPages > 0 {
		items, pages, err = fetchParallel(ctx, src, params, config, first, meta.totalPages)
	} else {
		items, pages, err = fetchSequential(ctx, src, params, config, first)
	}

	log.Info().
		Str("endpoint", src.Endpoint()).
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, err
}

func reachedLimit(page, maxPages int) bool {
	return maxPages > 0 && page >= maxPages
}

func fetchSequential[T any](ctx context.Context, src *Source[T], params paging.Params, config BatchConfig, first []T) ([]T, int, error) {
	items := first
	for page := 2; ; page++ {
		pageItems, meta, err := src.load(ctx, page, params)
		if err != nil {
			return items, page - 1, fmt.Errorf("fetch page %d: %w", page, err)
		}
		items = append(items, pageItems...)
		if meta.isLast || reachedLimit(page, config.MaxPages) {
			return items, page, nil
		}
	}
}

func fetchParallel[T any](ctx context.Context, src *Source[T], params paging.Params, config BatchConfig, first []T, totalPages int) ([]T, int, error) {
	lastPage := totalPages
	if config.MaxPages > 0 && lastPage > config.MaxPages {
		lastPage = config.MaxPages
	}

	log.Debug().
		Str("endpoint", src.Endpoint()).
		Int("total_pages", totalPages).
		Int("fetching", lastPage).
		Msg("Starting parallel page fetch")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	pageQueue := make(chan int, lastPage)
	for page := 2; page <= lastPage; page++ {
		pageQueue <- page
	}
	close(pageQueue)

	results := make(chan PageResult[T], lastPage)
	var wg sync.WaitGroup
	workers := min(config.MaxConcurrency, lastPage-1)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go worker(ctx, src, params, pageQueue, results, &wg, i)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	byPage := map[int][]T{1: first}
	firstFailed := 0
	var firstErr error
	for result := range results {
		if result.Error != nil {
			if firstFailed == 0 || result.PageNumber < firstFailed {
				firstFailed = result.PageNumber
				firstErr = result.Error
			}
			cancel()
			continue
		}
		byPage[result.PageNumber] = result.Items
	}

	items := make([]T, 0, len(first)*lastPage)
	pages := 0
	for page := 1; page <= lastPage; page++ {
		pageItems, ok := byPage[page]
		if !ok {
			break
		}
		items = append(items, pageItems...)
		pages++
	}

	if firstErr != nil {
		return items, pages, fmt.Errorf("fetch page %d (partial data: %d/%d pages): %w", firstFailed, pages, lastPage, firstErr)
	}
	return items, pages, nil
}

// worker processes pages from the queue
func worker[T any](ctx context.Context, src *Source[T], params paging.Params, pageQueue <-chan int, results chan<- PageResult[T], wg *sync.WaitGroup, workerID int) {
	defer wg.Done()
	pagesProcessed := 0

	for pageNum := range pageQueue {
		if ctx.Err() != nil {
			log.Debug().
				Int("worker_id", workerID).
				Int("pages_processed", pagesProcessed).
				Msg("Worker stopping (context cancelled)")
			return
		}

		items, _, err := src.load(ctx, pageNum, params)
		results <- PageResult[T]{PageNumber: pageNum, Items: items, Error: err}
		if err != nil {
			return
		}
		pagesProcessed++
	}
}
