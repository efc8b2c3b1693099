package pagination

import (
	"context"
	"encoding/json"
	"net/url"
	"time"

	"github.com/Sternrassler/listpager/pkg/apierror"
	"github.com/Sternrassler/listpager/pkg/client"
	"github.com/Sternrassler/listpager/pkg/paging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Config holds source configuration.
type Config struct {
	// PageSize is requested from the server for every page.
	PageSize int

	// Timeout per page fetch
	Timeout time.Duration
}

// DefaultConfig returns the default source configuration.
func DefaultConfig() Config {
	return Config{
		PageSize: 20,
		Timeout:  15 * time.Second,
	}
}

// PageGetter fetches one page of a list endpoint. *client.Client implements it.
type PageGetter interface {
	GetPage(ctx context.Context, endpoint string, page, pageSize int, query url.Values) (*client.PageResponse, error)
}

// pageMeta is what the server said about the page besides its items.
type pageMeta struct {
	totalPages int
	total      int
	isLast     bool
}

// Source loads pages of one endpoint and decodes them into T.
type Source[T any] struct {
	getter   PageGetter
	endpoint string
	config   Config
	logger   zerolog.Logger
}

// NewSource creates a source for endpoint.
func NewSource[T any](getter PageGetter, endpoint string, config Config) *Source[T] {
	defaults := DefaultConfig()
	if config.PageSize <= 0 {
		config.PageSize = defaults.PageSize
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &Source[T]{
		getter:   getter,
		endpoint: endpoint,
		config:   config,
		logger:   log.With().Str("component", "pagination").Str("endpoint", endpoint).Logger(),
	}
}

// Endpoint returns the endpoint path the source reads.
func (s *Source[T]) Endpoint() string {
	return s.endpoint
}

// PageSize returns the page size requested from the server.
func (s *Source[T]) PageSize() int {
	return s.config.PageSize
}

// LoadPage implements paging.Fetcher.
func (s *Source[T]) LoadPage(ctx context.Context, page int, params paging.Params) (paging.Page[T], error) {
	items, meta, err := s.load(ctx, page, params)
	if err != nil {
		return paging.Page[T]{}, err
	}
	return paging.Page[T]{Items: items, IsLastPage: meta.isLast}, nil
}

func (s *Source[T]) load(ctx context.Context, page int, params paging.Params) ([]T, pageMeta, error) {
	pageCtx, cancel := context.WithTimeout(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.getter.GetPage(pageCtx, s.endpoint, page, s.config.PageSize, Query(params))
	if err != nil {
		return nil, pageMeta{}, err
	}

	var items []T
	if len(resp.List) > 0 {
		if err := json.Unmarshal(resp.List, &items); err != nil {
			return nil, pageMeta{}, &apierror.UnexpectedError{Message: "undecodable list items", Err: err}
		}
	}
	if items == nil {
		items = []T{}
	}

	meta := pageMeta{
		totalPages: resp.TotalPages,
		total:      resp.Total,
		isLast:     isLastPage(resp, page, len(items), s.config.PageSize),
	}

	s.logger.Debug().
		Int("page", page).
		Int("items", len(items)).
		Bool("is_last", meta.isLast).
		Msg("Page loaded")

	return items, meta, nil
}

// isLastPage prefers the server's hasMore flag, then the X-Pages count, and
// finally treats a short page as the last one.
func isLastPage(resp *client.PageResponse, page, count, pageSize int) bool {
	if resp.HasMore != nil {
		return !*resp.HasMore
	}
	if resp.TotalPages > 0 {
		return page >= resp.TotalPages
	}
	return count < pageSize
}

// Query converts a filter set to query parameters, dropping empty values.
func Query(params paging.Params) url.Values {
	q := url.Values{}
	for k, v := range params {
		if v == "" {
			continue
		}
		q.Set(k, v)
	}
	return q
}
